package parsers

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/pevans/pressfeed/article"
	"github.com/pevans/pressfeed/htmlutil"
)

// blockHook lets a CMS parser claim an element before the generic rules
// run. Returning handled=true with an empty body drops the element.
type blockHook func(w *walker, s *goquery.Selection) (body article.Body, handled bool)

// walker converts a content container into body components, child by
// child in document order. Elements it does not recognize are dropped.
type walker struct {
	page *htmlutil.Page
	hook blockHook
}

// containers are descended into instead of being converted.
var containers = map[string]bool{
	"div": true, "section": true, "article": true, "main": true,
	"center": true, "details": true,
}

func (w *walker) children(parent *goquery.Selection) article.Body {
	var body article.Body
	parent.Contents().Each(func(_ int, s *goquery.Selection) {
		body = append(body, w.node(s)...)
	})
	return body
}

func (w *walker) node(s *goquery.Selection) article.Body {
	n := s.Get(0)
	switch n.Type {
	case html.TextNode:
		if text := htmlutil.CleanText(n.Data); text != "" {
			return article.Body{article.Paragraph{Text: text, Format: article.FormatText}}
		}
		return nil
	case html.ElementNode:
	default:
		return nil
	}

	if w.hook != nil {
		if body, ok := w.hook(w, s); ok {
			return body
		}
	}

	switch tag := n.Data; tag {
	case "p":
		return w.paragraph(s)
	case "h1", "h2", "h3", "h4", "h5", "h6":
		text, format, ok := textBlock(s)
		if !ok {
			return nil
		}
		return article.Body{article.Heading{Level: int(tag[1] - '0'), Text: text, Format: format}}
	case "blockquote":
		return w.blockquote(s)
	case "ul", "ol":
		return list(s, tag)
	case "pre":
		return pre(s)
	case "figure":
		return w.figure(s)
	case "img", "picture":
		if img, ok := w.image(s, ""); ok {
			return article.Body{img}
		}
		return nil
	case "iframe":
		if e, ok := w.embed(s, ""); ok {
			return article.Body{e}
		}
		return nil
	case "video":
		if v, ok := w.video(s, ""); ok {
			return article.Body{v}
		}
		return nil
	case "hr":
		return article.Body{article.Divider{}}
	case "table":
		if t, ok := table(s); ok {
			return article.Body{t}
		}
		return nil
	default:
		if containers[tag] {
			return w.children(s)
		}
		return nil
	}
}

// paragraph lifts media wrapped in a <p> out ahead of the paragraph text.
func (w *walker) paragraph(s *goquery.Selection) article.Body {
	var body article.Body
	s.Find("img, iframe, video").Each(func(_ int, m *goquery.Selection) {
		body = append(body, w.node(m)...)
	})
	if text, format, ok := textBlock(s); ok {
		body = append(body, article.Paragraph{Text: text, Format: format})
	}
	return body
}

// textBlock returns plain text when the element has no child elements and
// its inner HTML otherwise.
func textBlock(s *goquery.Selection) (string, article.Format, bool) {
	text := htmlutil.CleanText(s.Text())
	if text == "" {
		return "", "", false
	}
	if s.Children().Length() == 0 {
		return text, article.FormatText, true
	}
	inner, err := s.Html()
	if err != nil {
		return text, article.FormatText, true
	}
	return strings.TrimSpace(inner), article.FormatHTML, true
}

func (w *walker) blockquote(s *goquery.Selection) article.Body {
	if s.HasClass("twitter-tweet") || s.HasClass("instagram-media") || s.HasClass("tiktok-embed") {
		if e, ok := w.socialEmbed(s); ok {
			return article.Body{e}
		}
		return nil
	}

	text, attribution := quoteParts(s)
	if text == "" {
		return nil
	}
	return article.Body{article.Blockquote{Text: text, Attribution: attribution}}
}

// quoteParts splits a quote element into its text and the attribution
// held in <cite> or <footer>.
func quoteParts(s *goquery.Selection) (string, string) {
	attribution := htmlutil.CleanText(s.Find("cite, footer").First().Text())
	attribution = strings.TrimLeft(attribution, "—–- ")

	clone := s.Clone()
	clone.Find("cite, footer, script, style").Remove()

	var parts []string
	if paras := clone.Find("p"); paras.Length() > 0 {
		paras.Each(func(_ int, p *goquery.Selection) {
			if t := htmlutil.CleanText(p.Text()); t != "" {
				parts = append(parts, t)
			}
		})
	} else if t := htmlutil.CleanText(clone.Text()); t != "" {
		parts = append(parts, t)
	}
	return strings.Join(parts, "\n"), attribution
}

// socialEmbed reads the post URL out of a Twitter, Instagram or TikTok
// blockquote embed.
func (w *walker) socialEmbed(s *goquery.Selection) (article.Embed, bool) {
	candidates := []string{
		s.AttrOr("data-instgrm-permalink", ""),
		s.AttrOr("cite", ""),
	}
	links := s.Find("a[href]")
	for i := links.Length() - 1; i >= 0; i-- {
		candidates = append(candidates, links.Eq(i).AttrOr("href", ""))
	}

	for _, c := range candidates {
		abs, ok := w.page.Resolve(c)
		if !ok {
			continue
		}
		if p := htmlutil.ClassifyEmbed(abs); p != article.PlatformOther {
			return article.Embed{
				Platform:     p,
				EmbedURL:     abs,
				FallbackText: htmlutil.CleanText(s.Text()),
			}, true
		}
	}
	return article.Embed{}, false
}

// list converts a ul or ol. Lists nested inside an item become their own
// List components following the parent.
func list(s *goquery.Selection, tag string) article.Body {
	var (
		items  []string
		nested article.Body
	)
	s.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		own := li.Clone()
		own.Find("ul, ol").Remove()
		if t := htmlutil.CleanText(own.Text()); t != "" {
			items = append(items, t)
		}

		li.Find("ul, ol").FilterFunction(func(_ int, sub *goquery.Selection) bool {
			return sub.ParentsFiltered("li").First().IsSelection(li)
		}).Each(func(_ int, sub *goquery.Selection) {
			nested = append(nested, list(sub, goquery.NodeName(sub))...)
		})
	})

	var body article.Body
	if len(items) > 0 {
		style := article.ListUnordered
		if tag == "ol" {
			style = article.ListOrdered
		}
		body = append(body, article.List{Style: style, Items: items})
	}
	return append(body, nested...)
}

func pre(s *goquery.Selection) article.Body {
	if code := s.Find("code").First(); code.Length() > 0 {
		text := strings.Trim(code.Text(), "\n")
		if strings.TrimSpace(text) == "" {
			return nil
		}
		lang := codeLanguage(code)
		if lang == "" {
			lang = codeLanguage(s)
		}
		return article.Body{article.CodeBlock{Code: text, Language: lang}}
	}

	text := strings.Trim(s.Text(), "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return article.Body{article.Preformatted{Text: text}}
}

func codeLanguage(s *goquery.Selection) string {
	for class := range strings.FieldsSeq(s.AttrOr("class", "")) {
		for _, prefix := range []string{"language-", "lang-"} {
			if lang, ok := strings.CutPrefix(class, prefix); ok && lang != "" {
				return lang
			}
		}
	}
	return ""
}

func (w *walker) figure(s *goquery.Selection) article.Body {
	caption := htmlutil.CleanText(s.Find("figcaption").First().Text())

	switch {
	case s.Find("table").Length() > 0:
		if t, ok := table(s.Find("table").First()); ok {
			return article.Body{t}
		}
		return nil
	case s.Find("video").Length() > 0:
		if v, ok := w.video(s.Find("video").First(), caption); ok {
			return article.Body{v}
		}
		return nil
	case s.Find("iframe").Length() > 0:
		if e, ok := w.embed(s.Find("iframe").First(), caption); ok {
			return article.Body{e}
		}
		return nil
	case s.Find("blockquote").Length() > 0:
		return w.blockquote(s.Find("blockquote").First())
	case s.Find("img").Length() > 0:
		return w.images(s.Find("img"), caption)
	default:
		return nil
	}
}

// images converts a set of images sharing one caption; the caption goes on
// the last image.
func (w *walker) images(imgs *goquery.Selection, caption string) article.Body {
	var body article.Body
	last := imgs.Length() - 1
	imgs.Each(func(i int, img *goquery.Selection) {
		c := ""
		if i == last {
			c = caption
		}
		if image, ok := w.image(img, c); ok {
			body = append(body, image)
		}
	})
	return body
}

func (w *walker) image(s *goquery.Selection, caption string) (article.Image, bool) {
	if goquery.NodeName(s) == "picture" {
		s = s.Find("img").First()
	}
	src, ok := w.imageURL(s)
	if !ok {
		return article.Image{}, false
	}
	return article.Image{
		URL:     src,
		Caption: caption,
		AltText: htmlutil.CleanText(s.AttrOr("alt", "")),
		Width:   dimension(s.AttrOr("width", "")),
		Height:  dimension(s.AttrOr("height", "")),
	}, true
}

// imageURL prefers lazy-load attributes over src, which often holds a
// placeholder.
func (w *walker) imageURL(s *goquery.Selection) (string, bool) {
	candidates := []string{
		s.AttrOr("data-src", ""),
		s.AttrOr("src", ""),
		firstSrcset(s.AttrOr("srcset", "")),
		firstSrcset(s.AttrOr("data-srcset", "")),
	}
	for _, c := range candidates {
		if abs, ok := w.page.Resolve(c); ok {
			return abs, true
		}
	}
	return "", false
}

func firstSrcset(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func dimension(s string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (w *walker) embed(s *goquery.Selection, caption string) (article.Embed, bool) {
	for _, c := range []string{s.AttrOr("src", ""), s.AttrOr("data-src", "")} {
		if abs, ok := w.page.Resolve(c); ok {
			return article.Embed{
				Platform: htmlutil.ClassifyEmbed(abs),
				EmbedURL: abs,
				Caption:  caption,
			}, true
		}
	}
	return article.Embed{}, false
}

func (w *walker) video(s *goquery.Selection, caption string) (article.Video, bool) {
	candidates := []string{s.AttrOr("src", "")}
	s.Find("source[src]").Each(func(_ int, src *goquery.Selection) {
		candidates = append(candidates, src.AttrOr("src", ""))
	})

	for _, c := range candidates {
		abs, ok := w.page.Resolve(c)
		if !ok {
			continue
		}
		v := article.Video{URL: abs, Caption: caption}
		if poster, ok := w.page.Resolve(s.AttrOr("poster", "")); ok {
			v.Thumbnail = poster
		}
		return v, true
	}
	return article.Video{}, false
}

// table reads every row with at least one cell. Leading rows inside
// <thead>, or a first row made only of <th>, count as header rows.
func table(s *goquery.Selection) (article.Table, bool) {
	var t article.Table
	firstAllTH := false

	s.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("th, td")
		if cells.Length() == 0 {
			return
		}

		row := make([]string, 0, cells.Length())
		cells.Each(func(_ int, c *goquery.Selection) {
			row = append(row, htmlutil.CleanText(c.Text()))
		})

		inHead := tr.ParentsFiltered("thead").Length() > 0
		if inHead && t.HeaderRows == len(t.Rows) {
			t.HeaderRows++
		}
		if len(t.Rows) == 0 {
			firstAllTH = tr.ChildrenFiltered("td").Length() == 0
		}
		t.Rows = append(t.Rows, row)
	})

	if len(t.Rows) == 0 {
		return article.Table{}, false
	}
	if t.HeaderRows == 0 && firstAllTH {
		t.HeaderRows = 1
	}
	return t, true
}
