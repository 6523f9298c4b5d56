package parsers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pevans/pressfeed/article"
	"github.com/pevans/pressfeed/htmlutil"
)

var wordpressContainers = []string{
	".entry-content",
	".wp-block-post-content",
	".post-content",
	"article .content",
}

// WordPressParser reads classic and block-editor WordPress themes. JSON-LD
// is optional there (it comes from SEO plugins), so the entry content
// container is the only required anchor.
type WordPressParser struct {
	base
}

func (p *WordPressParser) ParseArticle(html, pageURL string) (*article.Article, error) {
	page, err := p.load(html, pageURL)
	if err != nil {
		return nil, err
	}
	content, selector := firstMatch(page.Doc, wordpressContainers...)
	if content == nil {
		return nil, p.structural("WordPress entry content container (.entry-content)", pageURL)
	}

	w := &walker{page: page, hook: wordpressHook}
	return p.assemble(page, pageURL, w.children(content), selector)
}

func (p *WordPressParser) Discover(html, pageURL string) ([]article.DiscoveredArticle, error) {
	page, err := p.load(html, pageURL)
	if err != nil {
		return nil, err
	}

	d := newDiscovery(page, p.pub.ID)
	d.cards("article.post, article.type-post, .wp-block-post", cardFields{
		title:     ".entry-title, .wp-block-post-title, h2, h3",
		excerpt:   ".entry-summary, .wp-block-post-excerpt",
		thumbnail: ".wp-post-image, .wp-block-post-featured-image img, img",
		date:      "time.entry-date, .wp-block-post-date time, time",
	})
	if len(d.found) == 0 {
		return genericDiscover(page, p.pub.ID), nil
	}
	return d.result(), nil
}

// wordpressHook maps Gutenberg blocks and strips plugin furniture.
func wordpressHook(w *walker, s *goquery.Selection) (article.Body, bool) {
	switch {
	case s.Is(".sharedaddy, .jp-relatedposts, .wp-block-buttons, .post-tags, .yarpp-related, .wp-block-comments, .wp-block-post-navigation-link"):
		return nil, true

	case s.Is(".wp-block-ad, [data-ad-slot], .ad-slot"):
		slot := firstNonBlank(s.AttrOr("data-ad-slot", ""), s.AttrOr("id", ""))
		if slot == "" {
			return nil, true
		}
		return article.Body{article.AdPlacement{Slot: slot}}, true

	case s.Is("figure.wp-block-embed, .wp-block-embed"):
		return wordpressEmbed(w, s), true

	case s.Is(".wp-block-pullquote"):
		text, attribution := quoteParts(s.Find("blockquote").First())
		if text == "" {
			return nil, true
		}
		return article.Body{article.Pullquote{Text: text, Attribution: attribution}}, true

	case s.Is(".wp-block-gallery"):
		caption := htmlutil.CleanText(s.ChildrenFiltered("figcaption").First().Text())
		return w.images(s.Find("img"), caption), true

	case s.Is(".wp-block-separator"):
		return article.Body{article.Divider{}}, true
	}
	return nil, false
}

// wordpressEmbed reads an embed block. Before oEmbed runs, the block holds
// the bare provider URL as wrapper text instead of an iframe.
func wordpressEmbed(w *walker, s *goquery.Selection) article.Body {
	caption := htmlutil.CleanText(s.Find("figcaption").First().Text())
	wrapper := s.Find(".wp-block-embed__wrapper").First()

	if q := wrapper.Find("blockquote").First(); q.Length() > 0 {
		if e, ok := w.socialEmbed(q); ok {
			e.Caption = caption
			return article.Body{e}
		}
	}
	if f := s.Find("iframe").First(); f.Length() > 0 {
		if e, ok := w.embed(f, caption); ok {
			return article.Body{e}
		}
	}
	if abs, ok := w.page.Resolve(strings.TrimSpace(wrapper.Text())); ok {
		return article.Body{article.Embed{
			Platform: htmlutil.ClassifyEmbed(abs),
			EmbedURL: abs,
			Caption:  caption,
		}}
	}
	return nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
