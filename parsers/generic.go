package parsers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/pevans/pressfeed/article"
	"github.com/pevans/pressfeed/htmlutil"
)

// GenericParser handles any site without a dedicated parser. Readability
// finds the main content; metadata still comes from JSON-LD and meta tags.
// Built by NewGeneric it has no domains, so it never claims a URL and the
// registry reaches it only as the fallback.
type GenericParser struct {
	base
}

// NewGeneric returns the fallback parser for a publisher id.
func NewGeneric(publisherID string, opts ...Option) *GenericParser {
	return &GenericParser{base: newBase(Publisher{ID: publisherID, CMS: CMSGeneric}, buildOptions(opts))}
}

func (p *GenericParser) ParseArticle(html, pageURL string) (*article.Article, error) {
	page, err := p.load(html, pageURL)
	if err != nil {
		return nil, err
	}

	readable, err := readability.FromReader(strings.NewReader(html), page.Base)
	if err != nil || strings.TrimSpace(readable.Content) == "" {
		return nil, p.structural("readable article content", pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(readable.Content))
	if err != nil {
		return nil, p.structural("readable article content", pageURL)
	}

	w := &walker{page: page}
	a, err := p.assemble(page, pageURL, w.children(doc.Find("body")), "readable content")
	if err != nil {
		return nil, err
	}

	if a.Metadata.Title == "" {
		a.Metadata.Title = htmlutil.CleanText(readable.Title)
	}
	if a.Metadata.Excerpt == "" {
		a.Metadata.Excerpt = htmlutil.CleanText(readable.Excerpt)
	}
	return a, nil
}

func (p *GenericParser) Discover(html, pageURL string) ([]article.DiscoveredArticle, error) {
	page, err := p.load(html, pageURL)
	if err != nil {
		return nil, err
	}
	return genericDiscover(page, p.pub.ID), nil
}
