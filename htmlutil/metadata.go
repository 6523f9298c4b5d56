package htmlutil

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/language"

	"github.com/pevans/pressfeed/article"
)

// DefaultLanguage is used when a page declares no usable language.
const DefaultLanguage = "en"

// Page bundles the cross-publisher structured data found on one page.
type Page struct {
	Doc  *goquery.Document
	Base *url.URL
	LD   map[string]any // article JSON-LD object, nil when absent
	Meta Meta
}

// NewPage parses html and collects its JSON-LD and meta tags. pageURL must
// be absolute.
func NewPage(html, pageURL string) (*Page, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	p := &Page{Doc: doc, Base: base, Meta: ExtractMeta(doc)}
	p.LD, _ = FindArticleLD(ExtractJSONLD(doc))
	return p, nil
}

// Resolve resolves href against the page URL.
func (p *Page) Resolve(href string) (string, bool) {
	return ResolveURL(p.Base, href)
}

// CanonicalURL returns the page's canonical URL from link[rel=canonical],
// the JSON-LD url or og:url, in that order. It returns "" when none is a
// valid absolute URL.
func (p *Page) CanonicalURL() string {
	candidates := []string{
		p.Doc.Find(`link[rel="canonical"]`).First().AttrOr("href", ""),
		LDString(p.LD, "url", "mainEntityOfPage"),
		p.Meta.First("og:url"),
	}
	for _, c := range candidates {
		if abs, ok := p.Resolve(c); ok {
			return abs
		}
	}
	return ""
}

// Metadata projects the page's metadata with priority JSON-LD > meta tags >
// defaults. extractedAt stands in for a missing publication date.
func (p *Page) Metadata(extractedAt time.Time) article.Metadata {
	md := article.Metadata{
		Title: firstNonEmpty(
			LDString(p.LD, "headline", "name"),
			p.Meta.First("og:title", "twitter:title"),
			p.Doc.Find("title").First().Text(),
			p.Doc.Find("h1").First().Text(),
		),
		Subtitle: CleanText(LDString(p.LD, "alternativeHeadline")),
		Excerpt: firstNonEmpty(
			LDString(p.LD, "description"),
			p.Meta.First("og:description", "twitter:description", "description"),
		),
		Language: p.language(),
	}

	published, ok := firstDate(
		LDString(p.LD, "datePublished"),
		p.Meta.First("article:published_time", "og:article:published_time", "datepublished", "date"),
		p.Doc.Find("time[datetime]").First().AttrOr("datetime", ""),
		LDString(p.LD, "dateCreated"),
	)
	if !ok {
		published = extractedAt.UTC()
	}
	md.PublishedAt = published

	if modified, ok := firstDate(
		LDString(p.LD, "dateModified"),
		p.Meta.First("article:modified_time", "og:updated_time", "datemodified"),
	); ok && !modified.Before(published) {
		md.ModifiedAt = &modified
	}

	categories := LDStrings(p.LD, "articleSection")
	categories = append(categories, p.Meta.All("article:section")...)
	md.Categories = Dedupe(categories)
	if len(md.Categories) > 0 {
		md.Section = md.Categories[0]
	}

	md.Tags = Dedupe(p.Meta.All("article:tag"))

	var keywords []string
	for _, k := range LDStrings(p.LD, "keywords") {
		keywords = append(keywords, SplitList(k)...)
	}
	keywords = append(keywords, SplitList(p.Meta.First("keywords", "news_keywords"))...)
	md.Keywords = Dedupe(keywords)

	if thumb := firstNonEmpty(
		LDImageURL(p.LD),
		p.Meta.First("og:image", "og:image:url", "twitter:image", "twitter:image:src"),
	); thumb != "" {
		if abs, ok := p.Resolve(thumb); ok {
			md.Thumbnail = &article.ImageRef{
				URL:     abs,
				AltText: p.Meta.First("og:image:alt", "twitter:image:alt"),
			}
		}
	}

	return md
}

func (p *Page) language() string {
	candidates := []string{
		LDString(p.LD, "inLanguage"),
		p.Doc.Find("html").First().AttrOr("lang", ""),
		p.Meta.First("og:locale", "content-language", "language"),
	}
	for _, c := range candidates {
		if tag, ok := NormalizeLanguage(c); ok {
			return tag
		}
	}
	return DefaultLanguage
}

// NormalizeLanguage canonicalizes a BCP-47 tag, accepting the underscore
// form used by og:locale ("en_US").
func NormalizeLanguage(s string) (string, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "-")
	if s == "" {
		return "", false
	}
	tag, err := language.Parse(s)
	if err != nil || tag == language.Und {
		return "", false
	}
	return tag.String(), true
}

// Authors returns the page's byline. JSON-LD authors win; otherwise the
// author meta tag is split into names. The result is never nil.
func (p *Page) Authors() []article.Author {
	authors := []article.Author{}
	for _, person := range ldPeople(p.LD, "author") {
		name := CleanText(LDString(person, "name"))
		if name == "" {
			continue
		}
		a := article.Author{
			Name: name,
			Bio:  CleanText(LDString(person, "description")),
		}
		if u, ok := p.Resolve(ldURL(person["url"])); ok {
			a.URL = u
		}
		if u, ok := p.Resolve(LDImageURL(person)); ok {
			a.Avatar = u
		}
		authors = append(authors, a)
	}
	if len(authors) > 0 {
		return authors
	}

	byline := p.Meta.First("author", "article:author")
	if _, isURL := ResolveURL(nil, byline); isURL {
		return authors
	}
	for _, name := range ParseAuthors(byline) {
		authors = append(authors, article.Author{Name: name})
	}
	return authors
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = CleanText(v); v != "" {
			return v
		}
	}
	return ""
}
