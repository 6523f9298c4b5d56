package parsers

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pevans/pressfeed/article"
	"github.com/pevans/pressfeed/htmlutil"
)

// base carries what every parser shares: the publisher record, the clock
// and domain ownership.
type base struct {
	pub  Publisher
	opts options
}

func newBase(p Publisher, o options) base {
	domains := make([]string, 0, len(p.Domains))
	for _, d := range p.Domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
		if d != "" {
			domains = append(domains, d)
		}
	}
	p.Domains = domains
	return base{pub: p, opts: o}
}

func (b *base) Name() string {
	return b.pub.CMS + ":" + b.pub.ID
}

func (b *base) CMS() string {
	return b.pub.CMS
}

// Publisher returns the record the parser was built from.
func (b *base) Publisher() Publisher {
	return b.pub
}

// Matches reports whether the URL's host is one of the publisher's domains
// or a subdomain of one.
func (b *base) Matches(rawURL string) bool {
	host := strings.TrimPrefix(hostOf(rawURL), "www.")
	if host == "" {
		return false
	}
	for _, d := range b.pub.Domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func (b *base) load(html, pageURL string) (*htmlutil.Page, error) {
	if !article.ValidURL(pageURL) {
		return nil, fmt.Errorf("%s: invalid page url %q", b.Name(), pageURL)
	}
	page, err := htmlutil.NewPage(html, pageURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse html: %w", b.Name(), err)
	}
	return page, nil
}

func (b *base) structural(expected, pageURL string) error {
	return &StructuralError{Parser: b.Name(), Expected: expected, URL: pageURL}
}

// assemble builds the article around an extracted body. An empty body is a
// structural failure; parsers never return a document without content.
func (b *base) assemble(page *htmlutil.Page, pageURL string, body article.Body, container string) (*article.Article, error) {
	if len(body) == 0 {
		return nil, b.structural("body content in "+container, pageURL)
	}

	now := b.opts.now().UTC()
	return &article.Article{
		Version:     article.SchemaVersion,
		ExtractedAt: now,
		Source: article.Source{
			URL:          pageURL,
			CanonicalURL: page.CanonicalURL(),
			Publisher:    b.pub.ID,
			CMS:          b.pub.CMS,
			Method:       article.MethodScrape,
		},
		Metadata: page.Metadata(now),
		Authors:  page.Authors(),
		Body:     body,
	}, nil
}

// firstMatch returns the first element matched by any selector, in
// selector priority order.
func firstMatch(doc *goquery.Document, selectors ...string) (*goquery.Selection, string) {
	for _, sel := range selectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s, sel
		}
	}
	return nil, ""
}
