// Package parsers turns fetched publisher HTML into intermediary articles.
//
// Every parser is a value implementing Parser. ParseArticle and Discover are
// pure functions over already-fetched content; fetching belongs to the
// scraper package. Cross-publisher extraction (JSON-LD, meta tags, dates,
// embed classification) comes from htmlutil, while CMS-specific DOM rules
// stay in the file of the parser that needs them.
package parsers

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pevans/pressfeed/article"
)

// CMS tags understood by New.
const (
	CMSGhost     = "ghost"
	CMSWordPress = "wordpress"
	CMSSelector  = "selector"
	CMSGeneric   = "generic"
)

// Parser converts one publisher's pages into intermediary documents.
type Parser interface {
	// Name is publisher-qualified, e.g. "ghost:404-media".
	Name() string
	CMS() string
	Matches(rawURL string) bool
	ParseArticle(html, pageURL string) (*article.Article, error)
	Discover(html, pageURL string) ([]article.DiscoveredArticle, error)
}

// Publisher describes a site the system knows how to parse.
type Publisher struct {
	ID        string          `yaml:"id" json:"id"`
	Name      string          `yaml:"name" json:"name"`
	CMS       string          `yaml:"cms" json:"cms"`
	Domains   []string        `yaml:"domains" json:"domains"`
	Homepage  string          `yaml:"homepage" json:"homepage,omitempty"`
	FeedURL   string          `yaml:"feed_url" json:"feedUrl,omitempty"`
	Selectors *SelectorConfig `yaml:"selectors" json:"selectors,omitempty"`
}

// SelectorConfig tells the selector parser where things live on a site
// that runs no recognized CMS.
type SelectorConfig struct {
	// ArticleSelector matches article links (or their containers) on the
	// homepage. Empty falls back to generic link heuristics.
	ArticleSelector string `yaml:"article_selector" json:"articleSelector,omitempty"`
	TitleSelector   string `yaml:"title_selector" json:"titleSelector,omitempty"`
	ContentSelector string `yaml:"content_selector" json:"contentSelector"`
	AuthorSelector  string `yaml:"author_selector" json:"authorSelector,omitempty"`
	DateSelector    string `yaml:"date_selector" json:"dateSelector,omitempty"`
	// DateFormat is a Go time layout. Empty means any format NormalizeDate
	// understands.
	DateFormat string `yaml:"date_format" json:"dateFormat,omitempty"`
}

// Option configures parsers built by New and NewRegistry.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the clock used for extractedAt and missing publish dates.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds the parser for a publisher record.
func New(p Publisher, opts ...Option) (Parser, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	b := newBase(p, o)

	switch p.CMS {
	case CMSGhost:
		return &GhostParser{base: b}, nil
	case CMSWordPress:
		return &WordPressParser{base: b}, nil
	case CMSSelector:
		return &SelectorParser{base: b, config: *p.Selectors}, nil
	case CMSGeneric:
		return &GenericParser{base: b}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCMS, p.CMS)
	}
}

// Validate checks that a publisher record can be turned into a parser.
func (p Publisher) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidPublisher)
	}
	if !KnownCMS(p.CMS) {
		return fmt.Errorf("%w: %q", ErrUnknownCMS, p.CMS)
	}
	if p.CMS != CMSGeneric && len(p.Domains) == 0 {
		return fmt.Errorf("%w: %s: at least one domain is required", ErrInvalidPublisher, p.ID)
	}
	if p.CMS == CMSSelector && (p.Selectors == nil || strings.TrimSpace(p.Selectors.ContentSelector) == "") {
		return fmt.Errorf("%w: %s: selector publishers need selectors.content_selector", ErrInvalidPublisher, p.ID)
	}
	if p.Homepage != "" && !article.ValidURL(p.Homepage) {
		return fmt.Errorf("%w: %s: invalid homepage %q", ErrInvalidPublisher, p.ID, p.Homepage)
	}
	if p.FeedURL != "" && !article.ValidURL(p.FeedURL) {
		return fmt.Errorf("%w: %s: invalid feed url %q", ErrInvalidPublisher, p.ID, p.FeedURL)
	}
	return nil
}

// HomepageURL returns the configured homepage, or https://<first domain>/.
func (p Publisher) HomepageURL() string {
	if p.Homepage != "" {
		return p.Homepage
	}
	if len(p.Domains) > 0 {
		return "https://" + p.Domains[0] + "/"
	}
	return ""
}

// KnownCMS reports whether New can build a parser for the tag.
func KnownCMS(cms string) bool {
	switch cms {
	case CMSGhost, CMSWordPress, CMSSelector, CMSGeneric:
		return true
	}
	return false
}

// publisherIDForHost derives an id such as "example-com" from a host.
func publisherIDForHost(host string) string {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return strings.ReplaceAll(host, ".", "-")
}

func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
