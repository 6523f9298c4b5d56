package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/pressfeed/parsers"
)

const ghostPage = `<html lang="en"><head><title>A Story</title>
<link rel="canonical" href="https://www.404media.co/a-story/">
<script type="application/ld+json">{"@context":"https://schema.org","@type":"Article","headline":"A Story","datePublished":"2024-03-01T10:00:00.000Z","author":{"@type":"Person","name":"Jason Koebler"}}</script>
</head><body><article><section class="gh-content"><p>Hello world.</p><hr></section></article></body></html>`

const ghostHome = `<html><body><div class="post-feed">
<article class="post-card"><a href="/a-story/"><h2 class="post-card-title">A Story</h2></a></article>
<article class="post-card"><a href="/b-story/"><h2 class="post-card-title">B Story</h2><div class="post-card-excerpt">B excerpt</div></a></article>
</div></body></html>`

const ghostFeed = `<?xml version="1.0"?><rss version="2.0"><channel><title>404</title>
<item><title>B Story</title><link>https://www.404media.co/b-story/</link><description>Feed excerpt</description><pubDate>Fri, 01 Mar 2024 10:00:00 +0000</pubDate></item>
<item><title>C Story</title><link>https://www.404media.co/c-story/</link></item>
</channel></rss>`

// mapFetcher serves canned content by URL.
type mapFetcher map[string]string

func (m mapFetcher) Fetch(_ context.Context, rawURL string) (string, error) {
	body, ok := m[rawURL]
	if !ok {
		return "", &StatusError{URL: rawURL, Code: http.StatusNotFound, Status: "404 Not Found"}
	}
	return body, nil
}

func newScraper(t *testing.T, f Fetcher) *Scraper {
	t.Helper()
	registry, err := parsers.DefaultRegistry(nil)
	require.NoError(t, err)
	return New(registry, f)
}

func media404() parsers.Publisher {
	return parsers.BuiltinPublishers()[0]
}

// TestScrapeArticle verifies fetch, parse and validation are composed
func TestScrapeArticle(t *testing.T) {
	s := newScraper(t, mapFetcher{"https://www.404media.co/a-story/": ghostPage})

	a, err := s.ScrapeArticle(context.Background(), "https://www.404media.co/a-story/", "")
	require.NoError(t, err)
	assert.Equal(t, "A Story", a.Metadata.Title)
	assert.Equal(t, "404-media", a.Source.Publisher)
	assert.Len(t, a.Body, 2)
}

// TestScrapeArticle_FetchError verifies fetch failures are wrapped
func TestScrapeArticle_FetchError(t *testing.T) {
	s := newScraper(t, mapFetcher{})

	_, err := s.ScrapeArticle(context.Background(), "https://www.404media.co/missing/", "")
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusNotFound, serr.Code)
}

// TestScrapeArticle_StructuralError verifies parser failures propagate
func TestScrapeArticle_StructuralError(t *testing.T) {
	s := newScraper(t, mapFetcher{"https://www.404media.co/x/": "<html><body><p>no article</p></body></html>"})

	_, err := s.ScrapeArticle(context.Background(), "https://www.404media.co/x/", "")
	assert.ErrorIs(t, err, parsers.ErrStructure)
}

// TestDiscoverArticles_MergesFeed verifies homepage and feed results are
// merged without duplicates
func TestDiscoverArticles_MergesFeed(t *testing.T) {
	s := newScraper(t, mapFetcher{
		"https://www.404media.co/":    ghostHome,
		"https://www.404media.co/rss/": ghostFeed,
	})

	found, err := s.DiscoverArticles(context.Background(), media404())
	require.NoError(t, err)
	require.Len(t, found, 3)

	assert.Equal(t, "https://www.404media.co/a-story/", found[0].URL)
	assert.Empty(t, found[0].FeedURL)

	assert.Equal(t, "https://www.404media.co/b-story/", found[1].URL)
	assert.Equal(t, "B excerpt", found[1].Excerpt, "homepage fields win")
	require.NotNil(t, found[1].PublishedAt, "feed fills missing fields")
	assert.Equal(t, "https://www.404media.co/rss/", found[1].FeedURL)

	assert.Equal(t, "https://www.404media.co/c-story/", found[2].URL)
	assert.Equal(t, "404-media", found[2].SourceID)
}

// TestDiscoverArticles_PartialFailure verifies one readable source is
// enough
func TestDiscoverArticles_PartialFailure(t *testing.T) {
	s := newScraper(t, mapFetcher{"https://www.404media.co/rss/": ghostFeed})

	found, err := s.DiscoverArticles(context.Background(), media404())
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

// TestDiscoverArticles_AllFail verifies an error when nothing is readable
func TestDiscoverArticles_AllFail(t *testing.T) {
	s := newScraper(t, mapFetcher{})

	_, err := s.DiscoverArticles(context.Background(), media404())
	assert.Error(t, err)

	_, err = s.DiscoverArticles(context.Background(), parsers.Publisher{ID: "empty", CMS: parsers.CMSGeneric})
	assert.ErrorIs(t, err, ErrNothingToDiscover)
}

// TestDiscoverURL verifies ad-hoc listing discovery
func TestDiscoverURL(t *testing.T) {
	s := newScraper(t, mapFetcher{"https://www.404media.co/": ghostHome})

	found, err := s.DiscoverURL(context.Background(), "https://www.404media.co/", "")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func initFetcher(t *testing.T, cfg Config) *HTTPFetcher {
	t.Helper()
	f := NewHTTPFetcher(cfg)
	require.NoError(t, f.Init(context.Background()))
	t.Cleanup(func() { _ = f.Dispose() })
	return f
}

// TestHTTPFetcher_Fetch verifies the body and user agent
func TestHTTPFetcher_Fetch(t *testing.T) {
	var agent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		fmt.Fprint(w, "<html>ok</html>")
	}))
	defer server.Close()

	f := initFetcher(t, Config{})

	body, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", body)
	assert.Equal(t, DefaultUserAgent, agent)
}

// TestHTTPFetcher_Lifecycle verifies Fetch requires Init
func TestHTTPFetcher_Lifecycle(t *testing.T) {
	f := NewHTTPFetcher(DefaultConfig())

	_, err := f.Fetch(context.Background(), "https://example.com/")
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, f.Init(context.Background()))
	require.NoError(t, f.Init(context.Background()))
	require.NoError(t, f.Dispose())

	_, err = f.Fetch(context.Background(), "https://example.com/")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

// TestHTTPFetcher_StatusErrors verifies 4xx is not retried and 5xx is
func TestHTTPFetcher_StatusErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := initFetcher(t, Config{MaxAttempts: 3})

	_, err := f.Fetch(context.Background(), server.URL+"/missing")
	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusNotFound, serr.Code)
	assert.Equal(t, int32(1), calls.Load())

	calls.Store(0)
	_, err = f.Fetch(context.Background(), server.URL+"/down")
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusServiceUnavailable, serr.Code)
	assert.Equal(t, int32(3), calls.Load())
}

// TestHTTPFetcher_BodyLimit verifies oversized responses are rejected
func TestHTTPFetcher_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("x", 64))
	}))
	defer server.Close()

	f := initFetcher(t, Config{MaxBodyBytes: 16})

	_, err := f.Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

// TestHTTPFetcher_Scheme verifies non-http URLs are rejected
func TestHTTPFetcher_Scheme(t *testing.T) {
	f := initFetcher(t, Config{})

	_, err := f.Fetch(context.Background(), "file:///etc/passwd")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

// TestHTTPFetcher_Timeout verifies the per-request timeout applies
func TestHTTPFetcher_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	f := initFetcher(t, Config{Timeout: 50 * time.Millisecond})

	_, err := f.Fetch(context.Background(), server.URL)
	assert.Error(t, err)
}

// TestConfig_WithDefaults verifies zero fields are filled
func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{UserAgent: "custom"}.withDefaults()

	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "custom", cfg.UserAgent)
	assert.Equal(t, int64(10<<20), cfg.MaxBodyBytes)
	assert.Equal(t, 2, cfg.MaxAttempts)
	assert.Equal(t, 5, cfg.MaxRedirects)
}
