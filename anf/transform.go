package anf

import (
	"fmt"
	"strings"

	"github.com/pevans/pressfeed/article"
	"github.com/pevans/pressfeed/htmlutil"
	"github.com/pevans/pressfeed/sanitize"
)

// ComponentResult is the outcome of mapping one body component. A nil
// Components slice is the null result: the component was dropped, and
// Warnings says why.
type ComponentResult struct {
	Components []Component
	Warnings   []Warning
}

func (r *ComponentResult) add(c Component) {
	r.Components = append(r.Components, c)
}

func (r *ComponentResult) warn(t WarningType, component, format string, args ...any) {
	r.Warnings = append(r.Warnings, warn(t, component, format, args...))
}

func (r *ComponentResult) drop(component, format string, args ...any) ComponentResult {
	r.Components = nil
	r.warn(WarningDroppedComponent, component, format, args...)
	return *r
}

// TransformComponent maps one intermediary body component to ANF. It never
// fails: components without a safe equivalent are dropped or degraded with
// a warning.
func TransformComponent(c article.Component) ComponentResult {
	var r ComponentResult

	switch c := c.(type) {
	case article.Paragraph:
		text, format, ok := r.text(string(c.Type()), c.Text, c.Format)
		if !ok {
			return r.drop(string(c.Type()), "paragraph has no text after sanitizing")
		}
		r.add(Body{Text: text, Format: format, TextStyle: StyleBody})

	case article.Heading:
		level := min(max(c.Level, 1), 6)
		text, format, ok := r.text(string(c.Type()), c.Text, c.Format)
		if !ok {
			return r.drop(string(c.Type()), "heading has no text after sanitizing")
		}
		r.add(Heading{Level: level, Text: text, Format: format, TextStyle: HeadingStyle(level)})

	case article.Blockquote:
		r.add(Quote{Text: attributed(c.Text, c.Attribution), TextStyle: StyleQuote})

	case article.Pullquote:
		r.add(Pullquote{Text: attributed(c.Text, c.Attribution), TextStyle: StylePullquote})

	case article.List:
		r.add(Body{Text: listHTML(c), Format: FormatHTML, TextStyle: StyleBody})

	case article.CodeBlock:
		r.add(Body{Text: preHTML(c.Code), Format: FormatHTML, TextStyle: StyleMonospace})

	case article.Preformatted:
		r.add(Body{Text: preHTML(c.Text), Format: FormatHTML, TextStyle: StyleMonospace})

	case article.Image:
		photo := Photo{URL: c.URL, AccessibilityCaption: c.AltText}
		if text := joinCredit(c.Caption, c.Credit); text != "" {
			photo.Caption = &Caption{Text: text, TextStyle: StyleCaption}
		}
		if c.AltText == "" {
			r.warn(WarningMissingField, string(c.Type()), "image %s has no alt text for its accessibility caption", c.URL)
		}
		r.add(photo)

	case article.Video:
		r.add(Video{URL: c.URL, StillURL: c.Thumbnail, Caption: c.Caption})

	case article.Embed:
		r.embed(c)

	case article.Divider:
		r.add(Divider{})

	case article.Table:
		if len(c.Rows) == 0 {
			return r.drop(string(c.Type()), "table has no rows")
		}
		r.add(HTMLTable{HTML: tableHTML(c)})

	case article.RawHTML:
		return r.drop(string(c.Type()), "raw HTML has no safe ANF equivalent")

	case article.AdPlacement:
		r.add(BannerAdvertisement{BannerType: BannerAny})

	case nil:
		return r.drop("", "nil component")

	default:
		return r.drop(string(c.Type()), "unsupported component type %q", c.Type())
	}

	return r
}

// text prepares paragraph and heading text. HTML is sanitized; plain text
// carries no format. ok is false when nothing visible is left.
func (r *ComponentResult) text(component, text string, format article.Format) (string, string, bool) {
	switch format {
	case article.FormatHTML:
		clean, changed := sanitize.Clean(text)
		if changed {
			r.warn(WarningHTMLSanitized, component, "disallowed markup was removed from %s", component)
		}
		if strings.TrimSpace(sanitize.Text(clean)) == "" {
			return "", "", false
		}
		return clean, FormatHTML, true
	case article.FormatMarkdown:
		return text, FormatMarkdown, strings.TrimSpace(text) != ""
	default:
		return text, "", strings.TrimSpace(text) != ""
	}
}

func (r *ComponentResult) embed(e article.Embed) {
	switch e.Platform {
	case article.PlatformYouTube, article.PlatformVimeo, article.PlatformDailymotion:
		r.add(EmbedWebVideo{URL: e.EmbedURL, Caption: e.Caption})
	case article.PlatformX:
		r.add(Tweet{URL: e.EmbedURL})
	case article.PlatformInstagram:
		r.add(Instagram{URL: e.EmbedURL})
	case article.PlatformFacebook:
		r.add(FacebookPost{URL: e.EmbedURL})
	case article.PlatformTikTok:
		r.add(TikTok{URL: e.EmbedURL})
	default:
		if e.FallbackText != "" {
			r.add(Body{Text: e.FallbackText, TextStyle: StyleBody})
		} else {
			escaped := htmlutil.EscapeHTML(e.EmbedURL)
			r.add(Body{
				Text:      fmt.Sprintf(`<a href="%s">%s</a>`, escaped, escaped),
				Format:    FormatHTML,
				TextStyle: StyleBody,
			})
		}
		r.warn(WarningUnsupportedEmbed, string(e.Type()), "embed %s from platform %q rendered as a link", e.EmbedURL, e.Platform)
	}
}

func attributed(text, attribution string) string {
	if attribution == "" {
		return text
	}
	return text + "\n— " + attribution
}

func joinCredit(caption, credit string) string {
	switch {
	case caption != "" && credit != "":
		return caption + " — " + credit
	case caption != "":
		return caption
	default:
		return credit
	}
}

func listHTML(l article.List) string {
	tag := "ul"
	if l.Style == article.ListOrdered {
		tag = "ol"
	}

	var b strings.Builder
	b.WriteString("<" + tag + ">")
	for _, item := range l.Items {
		b.WriteString("<li>")
		b.WriteString(htmlutil.EscapeHTML(item))
		b.WriteString("</li>")
	}
	b.WriteString("</" + tag + ">")
	return b.String()
}

func preHTML(s string) string {
	return "<pre>" + htmlutil.EscapeHTML(s) + "</pre>"
}

func tableHTML(t article.Table) string {
	headerRows := min(max(t.HeaderRows, 0), len(t.Rows))

	var b strings.Builder
	b.WriteString("<table>")
	if headerRows > 0 {
		b.WriteString("<thead>")
		writeRows(&b, t.Rows[:headerRows], "th")
		b.WriteString("</thead>")
	}
	if headerRows < len(t.Rows) {
		b.WriteString("<tbody>")
		writeRows(&b, t.Rows[headerRows:], "td")
		b.WriteString("</tbody>")
	}
	b.WriteString("</table>")
	return b.String()
}

func writeRows(b *strings.Builder, rows [][]string, cell string) {
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, v := range row {
			b.WriteString("<" + cell + ">")
			b.WriteString(htmlutil.EscapeHTML(v))
			b.WriteString("</" + cell + ">")
		}
		b.WriteString("</tr>")
	}
}
