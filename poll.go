// Package pressfeed runs the ingestion pipeline end to end: it discovers
// articles from configured publishers, tracks them in the state store,
// scrapes and transforms pending ones and writes the resulting bundles.
package pressfeed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pevans/pressfeed/anf"
	"github.com/pevans/pressfeed/article"
	"github.com/pevans/pressfeed/output"
	"github.com/pevans/pressfeed/parsers"
	"github.com/pevans/pressfeed/scraper"
	"github.com/pevans/pressfeed/state"
)

// Source is the fetching side of the pipeline. *scraper.Scraper
// implements it.
type Source interface {
	DiscoverArticles(ctx context.Context, pub parsers.Publisher) ([]scraper.Discovered, error)
	ScrapeArticle(ctx context.Context, pageURL, cmsHint string) (*article.Article, error)
}

// PollConfig holds configuration for the poll service.
type PollConfig struct {
	// Time between polls
	Interval time.Duration
	// Maximum number of publishers polled in parallel
	Concurrency int
	// Attempts per article before it is no longer retried
	MaxAttempts int
	// Maximum number of pending articles scraped per publisher per poll
	BatchSize int
	// Timeout for one publisher's discovery and scraping
	PublisherTimeout time.Duration
}

// DefaultPollConfig returns the default configuration.
func DefaultPollConfig() *PollConfig {
	return &PollConfig{
		Interval:         1 * time.Hour,
		Concurrency:      5,
		MaxAttempts:      3,
		BatchSize:        20,
		PublisherTimeout: 5 * time.Minute,
	}
}

// PublisherResult summarizes one publisher's poll.
type PublisherResult struct {
	PublisherID string        `json:"publisher_id"`
	Discovered  int           `json:"discovered"`
	New         int           `json:"new"`
	Scraped     int           `json:"scraped"`
	Failed      int           `json:"failed"`
	Warnings    int           `json:"warnings"`
	Duration    time.Duration `json:"duration"`
	Err         error         `json:"-"`
}

// PollService is a background service that discovers and ingests articles
// from configured publishers.
type PollService struct {
	source     Source
	publishers []parsers.Publisher
	state      *state.Store
	output     *output.Store
	config     *PollConfig
	logger     zerolog.Logger

	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	semaphore chan struct{}
}

// Option configures a PollService.
type Option func(*PollService)

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(ps *PollService) {
		ps.logger = l
	}
}

// NewPollService creates a poll service. A nil config uses
// DefaultPollConfig; zero fields take their defaults.
func NewPollService(
	source Source,
	publishers []parsers.Publisher,
	stateStore *state.Store,
	outputStore *output.Store,
	config *PollConfig,
	opts ...Option,
) *PollService {
	cfg := DefaultPollConfig()
	if config != nil {
		if config.Interval > 0 {
			cfg.Interval = config.Interval
		}
		if config.Concurrency > 0 {
			cfg.Concurrency = config.Concurrency
		}
		if config.MaxAttempts > 0 {
			cfg.MaxAttempts = config.MaxAttempts
		}
		if config.BatchSize > 0 {
			cfg.BatchSize = config.BatchSize
		}
		if config.PublisherTimeout > 0 {
			cfg.PublisherTimeout = config.PublisherTimeout
		}
	}

	ps := &PollService{
		source:     source,
		publishers: publishers,
		state:      stateStore,
		output:     outputStore,
		config:     cfg,
		logger:     zerolog.Nop(),
		stopChan:   make(chan struct{}),
		semaphore:  make(chan struct{}, cfg.Concurrency),
	}
	for _, opt := range opts {
		opt(ps)
	}
	return ps
}

// Config returns the effective configuration.
func (ps *PollService) Config() PollConfig {
	return *ps.config
}

// Run polls immediately and then once per interval until Stop is called or
// the context is cancelled.
func (ps *PollService) Run(ctx context.Context) error {
	ps.logger.Info().
		Int("publishers", len(ps.publishers)).
		Dur("interval", ps.config.Interval).
		Msg("poll service starting")

	if _, err := ps.PollOnce(ctx); err != nil {
		ps.logger.Error().Err(err).Msg("initial poll failed")
	}

	ticker := time.NewTicker(ps.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ps.logger.Info().Msg("poll service stopping (context cancelled)")
			ps.wg.Wait()
			return ctx.Err()
		case <-ps.stopChan:
			ps.logger.Info().Msg("poll service stopping")
			ps.wg.Wait()
			return nil
		case <-ticker.C:
			if _, err := ps.PollOnce(ctx); err != nil {
				ps.logger.Error().Err(err).Msg("poll failed")
			}
		}
	}
}

// Stop signals the service to stop gracefully. It is safe to call more
// than once.
func (ps *PollService) Stop() {
	ps.stopOnce.Do(func() {
		close(ps.stopChan)
	})
}

// PollOnce polls every publisher once, at most Concurrency at a time, and
// waits for all of them. A failing publisher does not affect the others.
func (ps *PollService) PollOnce(ctx context.Context) ([]PublisherResult, error) {
	results := make([]PublisherResult, len(ps.publishers))

	var err error
	launched := 0
loop:
	for i, pub := range ps.publishers {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break loop
		case ps.semaphore <- struct{}{}:
			launched++
			ps.wg.Add(1)
			go func() {
				defer ps.wg.Done()
				defer func() { <-ps.semaphore }()
				results[i] = ps.pollPublisher(ctx, pub)
			}()
		}
	}
	ps.wg.Wait()

	return results[:launched], err
}

func (ps *PollService) pollPublisher(ctx context.Context, pub parsers.Publisher) PublisherResult {
	start := time.Now()
	result := PublisherResult{PublisherID: pub.ID}
	log := ps.logger.With().Str("publisher", pub.ID).Logger()

	ctx, cancel := context.WithTimeout(ctx, ps.config.PublisherTimeout)
	defer cancel()

	// Pending articles from earlier polls are still processed when
	// discovery fails.
	found, err := ps.source.DiscoverArticles(ctx, pub)
	if err != nil {
		result.Err = fmt.Errorf("failed to discover articles: %w", err)
		if errors.Is(err, scraper.ErrNothingToDiscover) {
			log.Debug().Err(err).Msg("skipping discovery")
		} else {
			log.Error().Err(err).Msg("discovery failed")
		}
	}
	result.Discovered = len(found)

	for _, d := range found {
		d.SourceID = pub.ID
		_, created, err := ps.state.Track(d.DiscoveredArticle, d.FeedURL)
		if err != nil {
			log.Warn().Err(err).Str("url", d.URL).Msg("failed to track article")
			continue
		}
		if created {
			result.New++
		}
	}

	pending, err := ps.state.Pending(pub.ID, ps.config.BatchSize, ps.config.MaxAttempts)
	if err != nil {
		result.Err = errors.Join(result.Err, fmt.Errorf("failed to list pending articles: %w", err))
		log.Error().Err(err).Msg("failed to list pending articles")
	}

	for _, record := range pending {
		if ctx.Err() != nil {
			break
		}

		warnings, err := ps.ingest(ctx, pub, record)
		if err != nil {
			result.Failed++
			ps.handleFailure(log, record, err)
			continue
		}
		result.Scraped++
		result.Warnings += warnings
	}

	result.Duration = time.Since(start)
	event := log.Info()
	if result.Duration > 30*time.Second {
		event = log.Warn()
	}
	event.
		Int("discovered", result.Discovered).
		Int("new", result.New).
		Int("scraped", result.Scraped).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("polled publisher")

	return result
}

// ingest scrapes, transforms and writes one tracked article, returning the
// number of transform warnings.
func (ps *PollService) ingest(ctx context.Context, pub parsers.Publisher, record state.Record) (int, error) {
	a, err := ps.source.ScrapeArticle(ctx, record.URL, pub.CMS)
	if err != nil {
		return 0, err
	}
	if record.FeedURL != "" && a.Source.FeedURL == "" {
		a.Source.FeedURL = record.FeedURL
	}

	result, err := anf.Transform(a)
	if err != nil {
		return 0, fmt.Errorf("failed to transform article: %w", err)
	}

	bundle := output.Bundle{
		Document: result.Document,
		Article:  a,
		Warnings: result.Warnings,
	}
	if err := ps.output.Write(bundle); err != nil {
		return 0, fmt.Errorf("failed to write bundle: %w", err)
	}

	if err := ps.state.MarkScraped(record.URL, result.Document.Identifier); err != nil {
		return 0, fmt.Errorf("failed to mark article scraped: %w", err)
	}
	return len(result.Warnings), nil
}

func (ps *PollService) handleFailure(log zerolog.Logger, record state.Record, cause error) {
	var err error
	if isPermanentError(cause) {
		log.Error().Err(cause).Str("url", record.URL).Msg("abandoning article after permanent error")
		err = ps.state.MarkAbandoned(record.URL, cause, ps.config.MaxAttempts)
	} else {
		log.Warn().Err(cause).Str("url", record.URL).Int("attempt", record.Attempts+1).Msg("failed to ingest article")
		err = ps.state.MarkFailed(record.URL, cause)
	}
	if err != nil {
		log.Error().Err(err).Str("url", record.URL).Msg("failed to record article failure")
	}
}

// isPermanentError reports whether retrying cannot help: client errors
// other than timeouts and throttling, unsupported or oversized pages, and
// pages whose structure or output fails validation.
func isPermanentError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *scraper.StatusError
	if errors.As(err, &statusErr) {
		code := statusErr.Code
		return code >= 400 && code < 500 &&
			code != http.StatusRequestTimeout && code != http.StatusTooManyRequests
	}

	return errors.Is(err, scraper.ErrUnsupportedScheme) ||
		errors.Is(err, scraper.ErrBodyTooLarge) ||
		errors.Is(err, parsers.ErrStructure) ||
		errors.Is(err, article.ErrInvalid) ||
		errors.Is(err, anf.ErrInvalidDocument) ||
		errors.Is(err, output.ErrIdentifierConflict)
}
