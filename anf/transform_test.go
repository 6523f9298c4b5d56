package anf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/pressfeed/article"
)

// TestTransformComponent_Totality verifies every body variant yields a
// component or a warning
func TestTransformComponent_Totality(t *testing.T) {
	variants := []article.Component{
		article.Paragraph{Text: "Hello", Format: article.FormatText},
		article.Heading{Level: 2, Text: "Title", Format: article.FormatText},
		article.Blockquote{Text: "Quoted"},
		article.Pullquote{Text: "Pulled"},
		article.List{Style: article.ListOrdered, Items: []string{"a"}},
		article.CodeBlock{Code: "x := 1"},
		article.Preformatted{Text: "  spaced"},
		article.Image{URL: "https://example.com/a.jpg", AltText: "alt"},
		article.Video{URL: "https://example.com/v.mp4"},
		article.Embed{Platform: article.PlatformYouTube, EmbedURL: "https://www.youtube.com/embed/x"},
		article.Divider{},
		article.Table{Rows: [][]string{{"a"}}},
		article.RawHTML{HTML: "<div>x</div>"},
		article.AdPlacement{Slot: "mid"},
	}
	require.Len(t, variants, 14)

	for _, c := range variants {
		t.Run(string(c.Type()), func(t *testing.T) {
			var r ComponentResult
			require.NotPanics(t, func() { r = TransformComponent(c) })
			if r.Components == nil {
				assert.NotEmpty(t, r.Warnings)
			}
		})
	}
}

// TestTransformComponent_Paragraph verifies text and html handling
func TestTransformComponent_Paragraph(t *testing.T) {
	r := TransformComponent(article.Paragraph{Text: "Plain & simple", Format: article.FormatText})
	require.Len(t, r.Components, 1)
	assert.Equal(t, Body{Text: "Plain & simple", TextStyle: StyleBody}, r.Components[0])
	assert.Empty(t, r.Warnings)

	r = TransformComponent(article.Paragraph{Text: "<em>First</em> paragraph.", Format: article.FormatHTML})
	require.Len(t, r.Components, 1)
	assert.Equal(t, Body{Text: "<em>First</em> paragraph.", Format: FormatHTML, TextStyle: StyleBody}, r.Components[0])
	assert.Empty(t, r.Warnings, "unchanged markup emits no warning")

	r = TransformComponent(article.Paragraph{Text: `<span class="x">Hi</span> <mark>there</mark>`, Format: article.FormatHTML})
	require.Len(t, r.Components, 1)
	assert.Equal(t, "Hi <b>there</b>", r.Components[0].(Body).Text)
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, WarningHTMLSanitized, r.Warnings[0].Type)

	// Tags the HTML parser discards on its own still count as removed.
	r = TransformComponent(article.Paragraph{Text: "<td>cell</td> text", Format: article.FormatHTML})
	require.Len(t, r.Components, 1)
	assert.Equal(t, "cell text", r.Components[0].(Body).Text)
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, WarningHTMLSanitized, r.Warnings[0].Type)
}

// TestTransformComponent_PlainTextOmitsFormat verifies the format key is
// absent for plain text
func TestTransformComponent_PlainTextOmitsFormat(t *testing.T) {
	r := TransformComponent(article.Paragraph{Text: "Plain", Format: article.FormatText})

	data, err := Components(r.Components).MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"role":"body","text":"Plain","textStyle":"default-body"}]`, string(data))
	assert.NotContains(t, string(data), "format")
}

// TestTransformComponent_EmptyHTMLDropped verifies markup with no visible
// text is dropped
func TestTransformComponent_EmptyHTMLDropped(t *testing.T) {
	r := TransformComponent(article.Paragraph{Text: "<script>alert(1)</script>", Format: article.FormatHTML})

	assert.Nil(t, r.Components)
	assert.Equal(t, 1, CountWarnings(r.Warnings, WarningHTMLSanitized))
	assert.Equal(t, 1, CountWarnings(r.Warnings, WarningDroppedComponent))
}

// TestTransformComponent_Heading verifies level clamping and styles
func TestTransformComponent_Heading(t *testing.T) {
	tests := []struct {
		level int
		want  Role
	}{
		{1, "heading1"},
		{3, "heading3"},
		{0, "heading1"},
		{9, "heading6"},
	}

	for _, tt := range tests {
		r := TransformComponent(article.Heading{Level: tt.level, Text: "Head", Format: article.FormatText})
		require.Len(t, r.Components, 1)
		h := r.Components[0].(Heading)
		assert.Equal(t, tt.want, h.Role())
		assert.Equal(t, HeadingStyle(h.Level), h.TextStyle)
	}
}

// TestTransformComponent_Quotes verifies attribution joining
func TestTransformComponent_Quotes(t *testing.T) {
	r := TransformComponent(article.Blockquote{Text: "A notable quote.", Attribution: "Someone"})
	require.Len(t, r.Components, 1)
	assert.Equal(t, Quote{Text: "A notable quote.\n— Someone", TextStyle: StyleQuote}, r.Components[0])

	r = TransformComponent(article.Pullquote{Text: "Pulled."})
	require.Len(t, r.Components, 1)
	assert.Equal(t, Pullquote{Text: "Pulled.", TextStyle: StylePullquote}, r.Components[0])
}

// TestTransformComponent_List verifies list markup
func TestTransformComponent_List(t *testing.T) {
	r := TransformComponent(article.List{Style: article.ListUnordered, Items: []string{"First", "Second"}})
	require.Len(t, r.Components, 1)
	body := r.Components[0].(Body)
	assert.Equal(t, "<ul><li>First</li><li>Second</li></ul>", body.Text)
	assert.Equal(t, FormatHTML, body.Format)

	r = TransformComponent(article.List{Style: article.ListOrdered, Items: []string{"a < b"}})
	assert.Equal(t, "<ol><li>a &lt; b</li></ol>", r.Components[0].(Body).Text)
}

// TestTransformComponent_Code verifies escaped pre blocks
func TestTransformComponent_Code(t *testing.T) {
	r := TransformComponent(article.CodeBlock{Code: `if a < b && c > d {}`, Language: "go"})
	require.Len(t, r.Components, 1)
	assert.Equal(t, Body{
		Text:      "<pre>if a &lt; b &amp;&amp; c &gt; d {}</pre>",
		Format:    FormatHTML,
		TextStyle: StyleMonospace,
	}, r.Components[0])

	r = TransformComponent(article.Preformatted{Text: "<tag>"})
	assert.Equal(t, "<pre>&lt;tag&gt;</pre>", r.Components[0].(Body).Text)
}

// TestTransformComponent_Image verifies captions and alt text
func TestTransformComponent_Image(t *testing.T) {
	tests := []struct {
		name    string
		caption string
		credit  string
		want    string
	}{
		{"both", "A photo", "Jane", "A photo — Jane"},
		{"caption only", "A photo", "", "A photo"},
		{"credit only", "", "Jane", "Jane"},
		{"neither", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := TransformComponent(article.Image{URL: "https://example.com/a.jpg", Caption: tt.caption, Credit: tt.credit, AltText: "alt"})
			require.Len(t, r.Components, 1)
			photo := r.Components[0].(Photo)
			assert.Equal(t, "alt", photo.AccessibilityCaption)
			if tt.want == "" {
				assert.Nil(t, photo.Caption)
			} else {
				require.NotNil(t, photo.Caption)
				assert.Equal(t, tt.want, photo.Caption.Text)
			}
			assert.Empty(t, r.Warnings)
		})
	}

	r := TransformComponent(article.Image{URL: "https://example.com/a.jpg"})
	require.Len(t, r.Components, 1)
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, WarningMissingField, r.Warnings[0].Type)
}

// TestTransformComponent_Video verifies still image and caption
func TestTransformComponent_Video(t *testing.T) {
	r := TransformComponent(article.Video{URL: "https://example.com/v.mp4", Thumbnail: "https://example.com/v.jpg", Caption: "Clip"})
	require.Len(t, r.Components, 1)
	assert.Equal(t, Video{URL: "https://example.com/v.mp4", StillURL: "https://example.com/v.jpg", Caption: "Clip"}, r.Components[0])
}

// TestTransformComponent_Embeds verifies platform role mapping
func TestTransformComponent_Embeds(t *testing.T) {
	u := "https://embed.example/x"
	tests := []struct {
		platform article.EmbedPlatform
		want     Component
	}{
		{article.PlatformYouTube, EmbedWebVideo{URL: u, Caption: "cap"}},
		{article.PlatformVimeo, EmbedWebVideo{URL: u, Caption: "cap"}},
		{article.PlatformDailymotion, EmbedWebVideo{URL: u, Caption: "cap"}},
		{article.PlatformX, Tweet{URL: u}},
		{article.PlatformInstagram, Instagram{URL: u}},
		{article.PlatformFacebook, FacebookPost{URL: u}},
		{article.PlatformTikTok, TikTok{URL: u}},
	}

	for _, tt := range tests {
		t.Run(string(tt.platform), func(t *testing.T) {
			r := TransformComponent(article.Embed{Platform: tt.platform, EmbedURL: u, Caption: "cap"})
			require.Len(t, r.Components, 1)
			assert.Equal(t, tt.want, r.Components[0])
			assert.Empty(t, r.Warnings)
		})
	}
}

// TestTransformComponent_EmbedFallback verifies unsupported platforms
// degrade to a link
func TestTransformComponent_EmbedFallback(t *testing.T) {
	u := "https://maps.example/embed/123"

	r := TransformComponent(article.Embed{Platform: article.PlatformOther, EmbedURL: u})
	require.Len(t, r.Components, 1)
	assert.Equal(t, Body{Text: `<a href="` + u + `">` + u + `</a>`, Format: FormatHTML, TextStyle: StyleBody}, r.Components[0])
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, WarningUnsupportedEmbed, r.Warnings[0].Type)

	r = TransformComponent(article.Embed{Platform: article.PlatformOther, EmbedURL: u, FallbackText: "See the map"})
	require.Len(t, r.Components, 1)
	assert.Equal(t, Body{Text: "See the map", TextStyle: StyleBody}, r.Components[0])
	assert.Equal(t, 1, CountWarnings(r.Warnings, WarningUnsupportedEmbed))
}

// TestTransformComponent_Table verifies header and body sections
func TestTransformComponent_Table(t *testing.T) {
	r := TransformComponent(article.Table{Rows: [][]string{{"Name", "Age"}, {"Alice", "30"}}, HeaderRows: 1})
	require.Len(t, r.Components, 1)
	html := r.Components[0].(HTMLTable).HTML
	assert.Equal(t,
		"<table><thead><tr><th>Name</th><th>Age</th></tr></thead><tbody><tr><td>Alice</td><td>30</td></tr></tbody></table>",
		html)
	assert.Less(t, strings.Index(html, "<thead>"), strings.Index(html, "<tbody>"))

	r = TransformComponent(article.Table{Rows: [][]string{{"a", "b"}}})
	html = r.Components[0].(HTMLTable).HTML
	assert.NotContains(t, html, "<thead>")
	assert.Equal(t, "<table><tbody><tr><td>a</td><td>b</td></tr></tbody></table>", html)
}

// TestTransformComponent_RawHTMLDropped verifies raw html always warns
func TestTransformComponent_RawHTMLDropped(t *testing.T) {
	r := TransformComponent(article.RawHTML{HTML: "<div>safe enough</div>"})

	assert.Nil(t, r.Components)
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, WarningDroppedComponent, r.Warnings[0].Type)
	assert.Equal(t, "rawHtml", r.Warnings[0].Component)
}

// TestTransformComponent_AdPlacement verifies the fixed banner type
func TestTransformComponent_AdPlacement(t *testing.T) {
	r := TransformComponent(article.AdPlacement{Slot: "mid-article"})
	require.Len(t, r.Components, 1)
	assert.Equal(t, BannerAdvertisement{BannerType: "any"}, r.Components[0])
}

// TestTransformComponent_Nil verifies a nil component is dropped
func TestTransformComponent_Nil(t *testing.T) {
	r := TransformComponent(nil)
	assert.Nil(t, r.Components)
	assert.Equal(t, 1, CountWarnings(r.Warnings, WarningDroppedComponent))
}
