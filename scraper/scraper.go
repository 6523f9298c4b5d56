package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pevans/pressfeed/article"
	"github.com/pevans/pressfeed/feeds"
	"github.com/pevans/pressfeed/parsers"
)

// ErrNothingToDiscover is returned for publishers without a homepage or
// feed.
var ErrNothingToDiscover = errors.New("nothing to discover")

// Discovered is an article reference together with the feed it came from,
// if any.
type Discovered struct {
	article.DiscoveredArticle
	FeedURL string `json:"feedUrl,omitempty"`
}

// Scraper composes fetching with the pure parsers.
type Scraper struct {
	registry *parsers.Registry
	fetcher  Fetcher
	logger   zerolog.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithLogger sets the logger used for partial discovery failures.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scraper) {
		s.logger = l
	}
}

// New returns a Scraper routing pages through registry.
func New(registry *parsers.Registry, fetcher Fetcher, opts ...Option) *Scraper {
	s := &Scraper{
		registry: registry,
		fetcher:  fetcher,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the parser registry.
func (s *Scraper) Registry() *parsers.Registry {
	return s.registry
}

// ScrapeArticle fetches a page, parses it and validates the result.
func (s *Scraper) ScrapeArticle(ctx context.Context, pageURL, cmsHint string) (*article.Article, error) {
	html, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch article: %w", err)
	}

	a, err := s.registry.ParseArticle(html, pageURL, cmsHint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse article: %w", err)
	}

	if err := article.Validate(a); err != nil {
		return nil, fmt.Errorf("parsed article is invalid: %w", err)
	}
	return a, nil
}

// DiscoverURL fetches a listing page and extracts article references.
func (s *Scraper) DiscoverURL(ctx context.Context, pageURL, cmsHint string) ([]article.DiscoveredArticle, error) {
	html, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	return s.registry.Discover(html, pageURL, cmsHint)
}

// DiscoverArticles discovers articles from a publisher's homepage and, when
// configured, its feed. Homepage results come first; feed items fill in
// missing fields of known links and add new ones. An error is returned
// only when no source could be read.
func (s *Scraper) DiscoverArticles(ctx context.Context, pub parsers.Publisher) ([]Discovered, error) {
	var (
		found     []Discovered
		errs      []error
		attempted int
	)
	index := map[string]int{}

	if homepage := pub.HomepageURL(); homepage != "" {
		attempted++
		items, err := s.discoverHomepage(ctx, pub, homepage)
		if err != nil {
			errs = append(errs, err)
		}
		for _, d := range items {
			if _, ok := index[d.URL]; ok {
				continue
			}
			index[d.URL] = len(found)
			found = append(found, Discovered{DiscoveredArticle: d})
		}
	}

	if pub.FeedURL != "" {
		attempted++
		items, err := s.discoverFeed(ctx, pub)
		if err != nil {
			errs = append(errs, err)
		}
		for _, d := range items {
			if i, ok := index[d.URL]; ok {
				found[i] = merge(found[i], d, pub.FeedURL)
				continue
			}
			index[d.URL] = len(found)
			found = append(found, Discovered{DiscoveredArticle: d, FeedURL: pub.FeedURL})
		}
	}

	if attempted == 0 {
		return nil, fmt.Errorf("%w: publisher %s has no homepage or feed", ErrNothingToDiscover, pub.ID)
	}
	if err := errors.Join(errs...); err != nil {
		if len(errs) == attempted {
			return nil, fmt.Errorf("failed to discover articles for %s: %w", pub.ID, err)
		}
		s.logger.Warn().Err(err).Str("publisher", pub.ID).Msg("partial discovery failure")
	}

	if found == nil {
		found = []Discovered{}
	}
	return found, nil
}

func (s *Scraper) discoverHomepage(ctx context.Context, pub parsers.Publisher, homepage string) ([]article.DiscoveredArticle, error) {
	html, err := s.fetcher.Fetch(ctx, homepage)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch homepage: %w", err)
	}

	p, ok := s.registry.Lookup(pub.ID)
	if !ok {
		p = s.registry.ForURL(homepage, pub.CMS)
	}
	items, err := p.Discover(html, homepage)
	if err != nil {
		return nil, fmt.Errorf("failed to discover from homepage: %w", err)
	}
	return items, nil
}

func (s *Scraper) discoverFeed(ctx context.Context, pub parsers.Publisher) ([]article.DiscoveredArticle, error) {
	data, err := s.fetcher.Fetch(ctx, pub.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	items, err := feeds.Discover(data, pub.FeedURL, pub.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to discover from feed: %w", err)
	}
	return items, nil
}

// merge fills fields the homepage card lacked from the feed item.
func merge(d Discovered, item article.DiscoveredArticle, feedURL string) Discovered {
	if d.Excerpt == "" {
		d.Excerpt = item.Excerpt
	}
	if d.Thumbnail == "" {
		d.Thumbnail = item.Thumbnail
	}
	if d.PublishedAt == nil {
		d.PublishedAt = item.PublishedAt
	}
	d.FeedURL = feedURL
	return d
}
