// Package scraper is the impure shell around the parsers: it fetches pages
// and feeds over HTTP and hands the content to the pure parsing functions.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotInitialized is returned by Fetch before Init or after Dispose.
	ErrNotInitialized = errors.New("fetcher is not initialized")
	// ErrBodyTooLarge is returned when a response exceeds MaxBodyBytes.
	ErrBodyTooLarge = errors.New("response body too large")
	// ErrUnsupportedScheme is returned for non-http(s) URLs.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)

// Fetcher retrieves the raw content at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Lifecycle is implemented by fetchers that hold a long-lived resource.
type Lifecycle interface {
	Init(ctx context.Context) error
	Dispose() error
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error fetching %s: %s", e.URL, e.Status)
}

// Temporary reports whether the request may succeed on retry.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500
}

// HTTPFetcher fetches over HTTP with a shared client. The client is created
// by Init and released by Dispose.
type HTTPFetcher struct {
	cfg Config

	mu     sync.RWMutex
	client *http.Client
}

// NewHTTPFetcher returns an uninitialized fetcher.
func NewHTTPFetcher(cfg Config) *HTTPFetcher {
	return &HTTPFetcher{cfg: cfg.withDefaults()}
}

// Init creates the HTTP client. Calling it again is a no-op.
func (f *HTTPFetcher) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client != nil {
		return nil
	}
	f.client = &http.Client{
		Timeout:       f.cfg.Timeout,
		Transport:     http.DefaultTransport.(*http.Transport).Clone(),
		CheckRedirect: f.checkRedirect,
	}
	return nil
}

// Dispose closes idle connections and releases the client.
func (f *HTTPFetcher) Dispose() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.client != nil {
		f.client.CloseIdleConnections()
		f.client = nil
	}
	return nil
}

// Fetch performs a GET and returns the body. 5xx responses and timeouts
// are retried up to MaxAttempts.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	f.mu.RLock()
	client := f.client
	f.mu.RUnlock()

	if client == nil {
		return "", ErrNotInitialized
	}

	var lastErr error
	for attempt := range f.cfg.MaxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}

		body, err := f.fetchOnce(ctx, client, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return "", lastErr
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, client *http.Client, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if !isHTTP(req.URL) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, rawURL)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: rawURL, Code: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > f.cfg.MaxBodyBytes {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, rawURL, f.cfg.MaxBodyBytes)
	}
	return string(data), nil
}

func (f *HTTPFetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= f.cfg.MaxRedirects {
		return errors.New("too many redirects")
	}
	if !isHTTP(req.URL) {
		return fmt.Errorf("%w: redirect to %q", ErrUnsupportedScheme, req.URL)
	}
	return nil
}

func retryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return true
	}
	var serr *StatusError
	return errors.As(err, &serr) && serr.Temporary()
}

func isHTTP(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
