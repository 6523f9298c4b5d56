package parsers

import (
	"fmt"

	"github.com/pevans/pressfeed/article"
)

// BuiltinPublishers are registered by DefaultRegistry after any configured
// publishers.
func BuiltinPublishers() []Publisher {
	return []Publisher{
		{
			ID:       "404-media",
			Name:     "404 Media",
			CMS:      CMSGhost,
			Domains:  []string{"404media.co"},
			Homepage: "https://www.404media.co/",
			FeedURL:  "https://www.404media.co/rss/",
		},
	}
}

// Registry routes URLs to parsers. Routing is first-registered-wins: when
// two parsers claim the same URL, the one registered earlier is used.
// The registry keeps no per-call state.
type Registry struct {
	parsers []Parser
	opts    []Option
}

// NewRegistry returns an empty registry. opts are applied to the parsers
// it builds on demand (CMS-hinted and generic fallbacks).
func NewRegistry(opts ...Option) *Registry {
	return &Registry{opts: opts}
}

// DefaultRegistry registers configured publishers first, then the
// built-ins whose id is not already taken.
func DefaultRegistry(configured []Publisher, opts ...Option) (*Registry, error) {
	r := NewRegistry(opts...)
	seen := map[string]bool{}

	all := append(append([]Publisher{}, configured...), BuiltinPublishers()...)
	for _, p := range all {
		if seen[p.ID] {
			continue
		}
		if err := r.RegisterPublisher(p); err != nil {
			return nil, err
		}
		seen[p.ID] = true
	}
	return r, nil
}

// Register appends a parser to the routing order.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// RegisterPublisher builds and registers the parser for a publisher.
func (r *Registry) RegisterPublisher(p Publisher) error {
	parser, err := New(p, r.opts...)
	if err != nil {
		return fmt.Errorf("failed to register publisher %q: %w", p.ID, err)
	}
	r.Register(parser)
	return nil
}

// Parsers returns the registered parsers in routing order.
func (r *Registry) Parsers() []Parser {
	out := make([]Parser, len(r.parsers))
	copy(out, r.parsers)
	return out
}

// Publishers returns the publisher records behind the registered parsers.
func (r *Registry) Publishers() []Publisher {
	var out []Publisher
	for _, p := range r.parsers {
		if pp, ok := p.(interface{ Publisher() Publisher }); ok {
			out = append(out, pp.Publisher())
		}
	}
	return out
}

// Lookup finds a registered parser by publisher id.
func (r *Registry) Lookup(publisherID string) (Parser, bool) {
	for _, p := range r.parsers {
		if pp, ok := p.(interface{ Publisher() Publisher }); ok && pp.Publisher().ID == publisherID {
			return p, true
		}
	}
	return nil, false
}

// ForURL picks the parser for a URL. The first registered parser that
// matches wins. Otherwise a known cmsHint builds an ad-hoc parser for that
// CMS, keyed by the URL's host, and anything else gets the generic parser.
func (r *Registry) ForURL(rawURL, cmsHint string) Parser {
	for _, p := range r.parsers {
		if p.Matches(rawURL) {
			return p
		}
	}

	host := hostOf(rawURL)
	id := publisherIDForHost(host)
	if id == "" {
		id = CMSGeneric
	}

	if cmsHint != "" && cmsHint != CMSGeneric && cmsHint != CMSSelector && KnownCMS(cmsHint) && host != "" {
		p, err := New(Publisher{ID: id, CMS: cmsHint, Domains: []string{host}}, r.opts...)
		if err == nil {
			return p
		}
	}
	return NewGeneric(id, r.opts...)
}

// ParseArticle routes pageURL and parses html with the chosen parser.
func (r *Registry) ParseArticle(html, pageURL, cmsHint string) (*article.Article, error) {
	return r.ForURL(pageURL, cmsHint).ParseArticle(html, pageURL)
}

// Discover routes pageURL and extracts article references from html.
func (r *Registry) Discover(html, pageURL, cmsHint string) ([]article.DiscoveredArticle, error) {
	return r.ForURL(pageURL, cmsHint).Discover(html, pageURL)
}
