package parsers

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/pevans/pressfeed/article"
	"github.com/pevans/pressfeed/htmlutil"
)

// ghostContainers are the post body classes used across Ghost themes,
// most specific first.
var ghostContainers = []string{
	".gh-content",
	".post-full-content",
	".post-content",
	".article-content",
	".kg-canvas",
}

// GhostParser reads Ghost sites. Ghost always emits a JSON-LD article
// block, so its absence means the page is not an article.
type GhostParser struct {
	base
}

func (p *GhostParser) ParseArticle(html, pageURL string) (*article.Article, error) {
	page, err := p.load(html, pageURL)
	if err != nil {
		return nil, err
	}
	if page.LD == nil {
		return nil, p.structural("JSON-LD article block", pageURL)
	}
	content, selector := firstMatch(page.Doc, ghostContainers...)
	if content == nil {
		return nil, p.structural("Ghost content container (.gh-content)", pageURL)
	}

	paywalled := page.Doc.Find(".gh-post-upgrade-cta, .gh-cta").Length() > 0

	w := &walker{page: page, hook: ghostHook}
	a, err := p.assemble(page, pageURL, w.children(content), selector)
	if err != nil {
		return nil, err
	}
	if paywalled {
		a.Paywall = &article.Paywall{Paywalled: true}
	}
	return a, nil
}

func (p *GhostParser) Discover(html, pageURL string) ([]article.DiscoveredArticle, error) {
	page, err := p.load(html, pageURL)
	if err != nil {
		return nil, err
	}

	d := newDiscovery(page, p.pub.ID)
	d.cards("article.post-card, article.gh-card, .post-feed article, .gh-feed article", cardFields{
		title:     ".post-card-title, .gh-card-title, h2, h3",
		excerpt:   ".post-card-excerpt, .gh-card-excerpt",
		thumbnail: ".post-card-image img, .gh-card-image img, img",
		date:      "time",
	})
	if len(d.found) == 0 {
		return genericDiscover(page, p.pub.ID), nil
	}
	return d.result(), nil
}

// ghostHook maps Koenig editor cards.
func ghostHook(w *walker, s *goquery.Selection) (article.Body, bool) {
	switch {
	case s.Is(".gh-post-upgrade-cta, .gh-cta, .kg-signup-card, .kg-button-card, .kg-cta-card, .kg-product-card, .kg-file-card, .kg-audio-card"):
		return nil, true

	case s.Is(".kg-gallery-card"):
		caption := htmlutil.CleanText(s.Find("figcaption").First().Text())
		return w.images(s.Find(".kg-gallery-image img"), caption), true

	case s.Is(".kg-image-card"):
		caption := htmlutil.CleanText(s.Find("figcaption").First().Text())
		return w.images(s.Find("img").First(), caption), true

	case s.Is(".kg-embed-card"):
		caption := htmlutil.CleanText(s.Find("figcaption").First().Text())
		if q := s.Find("blockquote.twitter-tweet, blockquote.instagram-media, blockquote.tiktok-embed").First(); q.Length() > 0 {
			if e, ok := w.socialEmbed(q); ok {
				e.Caption = caption
				return article.Body{e}, true
			}
			return nil, true
		}
		if f := s.Find("iframe").First(); f.Length() > 0 {
			if e, ok := w.embed(f, caption); ok {
				return article.Body{e}, true
			}
		}
		return nil, true

	case s.Is(".kg-video-card"):
		caption := htmlutil.CleanText(s.Find("figcaption").First().Text())
		if v, ok := w.video(s.Find("video").First(), caption); ok {
			if v.Thumbnail == "" {
				if thumb, ok := w.imageURL(s.Find(".kg-video-thumbnail img, img").First()); ok {
					v.Thumbnail = thumb
				}
			}
			return article.Body{v}, true
		}
		return nil, true

	case s.Is(".kg-bookmark-card"):
		link := s.Find("a.kg-bookmark-container").First()
		href, ok := w.page.Resolve(link.AttrOr("href", ""))
		title := htmlutil.CleanText(s.Find(".kg-bookmark-title").First().Text())
		if !ok || title == "" {
			return nil, true
		}
		return article.Body{article.Paragraph{
			Text:   `<a href="` + htmlutil.EscapeHTML(href) + `">` + htmlutil.EscapeHTML(title) + `</a>`,
			Format: article.FormatHTML,
		}}, true

	case s.Is(".kg-callout-card"):
		text, format, ok := textBlock(s.Find(".kg-callout-text").First())
		if !ok {
			return nil, true
		}
		return article.Body{article.Paragraph{Text: text, Format: format}}, true

	case s.Is(".kg-toggle-card"):
		var body article.Body
		if h := htmlutil.CleanText(s.Find(".kg-toggle-heading-text").First().Text()); h != "" {
			body = append(body, article.Heading{Level: 4, Text: h, Format: article.FormatText})
		}
		body = append(body, w.children(s.Find(".kg-toggle-content").First())...)
		return body, true

	case s.Is("blockquote.kg-blockquote-alt"):
		text, attribution := quoteParts(s)
		if text == "" {
			return nil, true
		}
		return article.Body{article.Pullquote{Text: text, Attribution: attribution}}, true

	case s.Is(".kg-divider-card"):
		return article.Body{article.Divider{}}, true
	}
	return nil, false
}
