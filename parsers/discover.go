package parsers

import (
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/pevans/pressfeed/article"
	"github.com/pevans/pressfeed/htmlutil"
)

// nonArticleSegments mark listing, account and asset paths.
var nonArticleSegments = map[string]bool{
	"tag": true, "tags": true, "author": true, "authors": true,
	"category": true, "categories": true, "topic": true, "topics": true,
	"page": true, "feed": true, "rss": true, "search": true,
	"about": true, "contact": true, "privacy": true, "terms": true,
	"subscribe": true, "signup": true, "signin": true, "login": true,
	"account": true, "membership": true, "newsletter": true, "newsletters": true,
	"archive": true, "archives": true, "wp-admin": true, "wp-login.php": true,
	"wp-content": true, "cdn-cgi": true, "assets": true, "static": true,
	"ghost": true, "members": true,
}

var assetExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".svg": true, ".pdf": true, ".xml": true, ".css": true, ".js": true,
	".mp3": true, ".mp4": true, ".zip": true,
}

// cardFields locates the parts of a homepage card. Each selector is
// evaluated inside the card; empty selectors are skipped.
type cardFields struct {
	title     string
	excerpt   string
	thumbnail string
	date      string
}

// discovery accumulates discovered articles in document order,
// deduplicated by absolute URL.
type discovery struct {
	page     *htmlutil.Page
	sourceID string
	byURL    map[string]int
	found    []article.DiscoveredArticle
}

func newDiscovery(page *htmlutil.Page, sourceID string) *discovery {
	return &discovery{
		page:     page,
		sourceID: sourceID,
		byURL:    map[string]int{},
		found:    []article.DiscoveredArticle{},
	}
}

// cards adds one article per element matched by selector. The element may
// be the link itself or a container holding it.
func (d *discovery) cards(selector string, fields cardFields) {
	d.page.Doc.Find(selector).Each(func(_ int, card *goquery.Selection) {
		link := card
		if goquery.NodeName(card) != "a" {
			link = card.Find("a[href]").First()
		}
		abs, ok := d.articleURL(link.AttrOr("href", ""), false)
		if !ok {
			return
		}

		title := ""
		if fields.title != "" {
			title = htmlutil.CleanText(card.Find(fields.title).First().Text())
		}
		if title == "" {
			title = htmlutil.CleanText(link.Text())
		}
		if title == "" {
			title = htmlutil.CleanText(link.AttrOr("title", ""))
		}

		da := article.DiscoveredArticle{URL: abs, Title: title, SourceID: d.sourceID}
		if fields.excerpt != "" {
			da.Excerpt = htmlutil.CleanText(card.Find(fields.excerpt).First().Text())
		}
		if fields.thumbnail != "" {
			w := walker{page: d.page}
			if src, ok := w.imageURL(card.Find(fields.thumbnail).First()); ok {
				da.Thumbnail = src
			}
		}
		if fields.date != "" {
			el := card.Find(fields.date).First()
			if t, err := htmlutil.NormalizeDate(el.AttrOr("datetime", el.Text())); err == nil {
				da.PublishedAt = &t
			}
		}
		d.add(da)
	})
}

// links adds bare article links using heuristics only: the link text must
// read like a headline and the path like an article slug.
func (d *discovery) links(selector string) {
	d.page.Doc.Find(selector).Each(func(_ int, link *goquery.Selection) {
		abs, ok := d.articleURL(link.AttrOr("href", ""), true)
		if !ok {
			return
		}
		title := htmlutil.CleanText(link.Text())
		if len(strings.Fields(title)) < 3 {
			return
		}
		d.add(article.DiscoveredArticle{URL: abs, Title: title, SourceID: d.sourceID})
	})
}

// add keeps the first occurrence of a URL and fills its missing fields
// from later ones.
func (d *discovery) add(da article.DiscoveredArticle) {
	i, seen := d.byURL[da.URL]
	if !seen {
		if da.Title == "" {
			return
		}
		d.byURL[da.URL] = len(d.found)
		d.found = append(d.found, da)
		return
	}

	existing := &d.found[i]
	if existing.Excerpt == "" {
		existing.Excerpt = da.Excerpt
	}
	if existing.Thumbnail == "" {
		existing.Thumbnail = da.Thumbnail
	}
	if existing.PublishedAt == nil {
		existing.PublishedAt = da.PublishedAt
	}
}

func (d *discovery) articleURL(href string, strict bool) (string, bool) {
	abs, ok := d.page.Resolve(href)
	if !ok {
		return "", false
	}
	u, err := url.Parse(abs)
	if err != nil || !htmlutil.SameSite(u.Hostname(), d.page.Base.Hostname()) {
		return "", false
	}
	if !isArticlePath(u, strict) {
		return "", false
	}
	return abs, true
}

// isArticlePath rejects the homepage, listing pages and assets. strict
// additionally requires a slug-like or numbered final segment.
func isArticlePath(u *url.URL, strict bool) bool {
	var segments []string
	for s := range strings.SplitSeq(u.Path, "/") {
		if s != "" {
			segments = append(segments, strings.ToLower(s))
		}
	}
	if len(segments) == 0 {
		return false
	}
	for _, s := range segments {
		if nonArticleSegments[s] {
			return false
		}
	}

	last := segments[len(segments)-1]
	if assetExtensions[path.Ext(last)] {
		return false
	}
	if !strict {
		return true
	}
	return strings.Contains(last, "-") || strings.ContainsFunc(last, unicode.IsDigit)
}

func (d *discovery) result() []article.DiscoveredArticle {
	return d.found
}

// genericDiscover is the CMS-agnostic homepage heuristic.
func genericDiscover(page *htmlutil.Page, sourceID string) []article.DiscoveredArticle {
	d := newDiscovery(page, sourceID)
	d.cards("article", cardFields{
		title:     "h1, h2, h3, h4",
		excerpt:   "p",
		thumbnail: "img",
		date:      "time",
	})
	d.links("h2 a[href], h3 a[href], main a[href]")
	return d.result()
}
