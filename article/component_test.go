package article

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBody_MarshalTypeTag verifies each component carries its type tag
func TestBody_MarshalTypeTag(t *testing.T) {
	body := Body{
		Heading{Level: 1, Text: "Main", Format: FormatText},
		Divider{},
		Embed{Platform: PlatformYouTube, EmbedURL: "https://www.youtube.com/embed/abc"},
	}

	data, err := json.Marshal(body)
	require.NoError(t, err)

	assert.JSONEq(t, `[
		{"type": "heading", "level": 1, "text": "Main", "format": "text"},
		{"type": "divider"},
		{"type": "embed", "platform": "youtube", "embedUrl": "https://www.youtube.com/embed/abc"}
	]`, string(data))
}

// TestBody_DecodeEveryVariant verifies each tag decodes to its struct
func TestBody_DecodeEveryVariant(t *testing.T) {
	data := []byte(`[
		{"type": "paragraph", "text": "p", "format": "html"},
		{"type": "heading", "level": 2, "text": "h", "format": "text"},
		{"type": "blockquote", "text": "q", "attribution": "a"},
		{"type": "pullquote", "text": "pq"},
		{"type": "list", "style": "ordered", "items": ["one"]},
		{"type": "codeBlock", "code": "x := 1", "language": "go"},
		{"type": "preformatted", "text": "pre"},
		{"type": "image", "url": "https://example.com/a.jpg", "altText": "alt"},
		{"type": "video", "url": "https://example.com/v.mp4", "thumbnail": "https://example.com/v.jpg"},
		{"type": "embed", "platform": "x", "embedUrl": "https://x.com/a/status/1"},
		{"type": "divider"},
		{"type": "table", "rows": [["a", "b"]], "headerRows": 1},
		{"type": "rawHtml", "html": "<div></div>"},
		{"type": "adPlacement", "slot": "top"}
	]`)

	var body Body
	require.NoError(t, json.Unmarshal(data, &body))
	require.Len(t, body, 14)

	types := make([]ComponentType, 0, len(body))
	for _, c := range body {
		types = append(types, c.Type())
	}
	assert.Equal(t, []ComponentType{
		TypeParagraph, TypeHeading, TypeBlockquote, TypePullquote, TypeList,
		TypeCodeBlock, TypePreformatted, TypeImage, TypeVideo, TypeEmbed,
		TypeDivider, TypeTable, TypeRawHTML, TypeAdPlacement,
	}, types)

	assert.Equal(t, Heading{Level: 2, Text: "h", Format: FormatText}, body[1])
	assert.Equal(t, Table{Rows: [][]string{{"a", "b"}}, HeaderRows: 1}, body[11])
}

// TestBody_MissingType verifies untagged components are rejected
func TestBody_MissingType(t *testing.T) {
	var body Body
	err := json.Unmarshal([]byte(`[{"text": "p"}]`), &body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "body[0]")
}

// TestBody_NilMarshalsNull verifies a nil body is encoded as null
func TestBody_NilMarshalsNull(t *testing.T) {
	data, err := json.Marshal(Body(nil))
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

// TestSource_PreferredURL verifies canonical preference
func TestSource_PreferredURL(t *testing.T) {
	s := Source{URL: "https://example.com/a?utm=1"}
	assert.Equal(t, "https://example.com/a?utm=1", s.PreferredURL())

	s.CanonicalURL = "https://example.com/a"
	assert.Equal(t, "https://example.com/a", s.PreferredURL())
}
