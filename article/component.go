package article

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ComponentType discriminates the body component variants.
type ComponentType string

const (
	TypeParagraph    ComponentType = "paragraph"
	TypeHeading      ComponentType = "heading"
	TypeBlockquote   ComponentType = "blockquote"
	TypePullquote    ComponentType = "pullquote"
	TypeList         ComponentType = "list"
	TypeCodeBlock    ComponentType = "codeBlock"
	TypePreformatted ComponentType = "preformatted"
	TypeImage        ComponentType = "image"
	TypeVideo        ComponentType = "video"
	TypeEmbed        ComponentType = "embed"
	TypeDivider      ComponentType = "divider"
	TypeTable        ComponentType = "table"
	TypeRawHTML      ComponentType = "rawHtml"
	TypeAdPlacement  ComponentType = "adPlacement"
)

// Format is the markup of a text-bearing component.
type Format string

const (
	FormatText     Format = "text"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// ListStyle selects ordered or unordered list rendering.
type ListStyle string

const (
	ListOrdered   ListStyle = "ordered"
	ListUnordered ListStyle = "unordered"
)

// EmbedPlatform is the closed set of embed providers.
type EmbedPlatform string

const (
	PlatformYouTube     EmbedPlatform = "youtube"
	PlatformVimeo       EmbedPlatform = "vimeo"
	PlatformDailymotion EmbedPlatform = "dailymotion"
	PlatformX           EmbedPlatform = "x"
	PlatformInstagram   EmbedPlatform = "instagram"
	PlatformFacebook    EmbedPlatform = "facebook"
	PlatformTikTok      EmbedPlatform = "tiktok"
	PlatformOther       EmbedPlatform = "other"
)

// Component is one node of an article body. The set of implementations is
// closed: only the variants declared in this file satisfy it.
type Component interface {
	Type() ComponentType
	isComponent()
}

type Paragraph struct {
	Text   string `json:"text"`
	Format Format `json:"format"`
}

type Heading struct {
	Level  int    `json:"level"`
	Text   string `json:"text"`
	Format Format `json:"format"`
}

type Blockquote struct {
	Text        string `json:"text"`
	Attribution string `json:"attribution,omitempty"`
}

type Pullquote struct {
	Text        string `json:"text"`
	Attribution string `json:"attribution,omitempty"`
}

// List items are plain text.
type List struct {
	Style ListStyle `json:"style"`
	Items []string  `json:"items"`
}

type CodeBlock struct {
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

type Preformatted struct {
	Text string `json:"text"`
}

type Image struct {
	URL      string `json:"url"`
	Caption  string `json:"caption,omitempty"`
	Credit   string `json:"credit,omitempty"`
	AltText  string `json:"altText,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	MediaRef string `json:"mediaRef,omitempty"`
}

// Video duration is in seconds.
type Video struct {
	URL       string  `json:"url"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Caption   string  `json:"caption,omitempty"`
	Credit    string  `json:"credit,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
}

type Embed struct {
	Platform     EmbedPlatform `json:"platform"`
	EmbedURL     string        `json:"embedUrl"`
	Caption      string        `json:"caption,omitempty"`
	FallbackText string        `json:"fallbackText,omitempty"`
}

type Divider struct{}

// Table cells are plain text. The first HeaderRows rows are header rows.
type Table struct {
	Rows       [][]string `json:"rows"`
	HeaderRows int        `json:"headerRows,omitempty"`
}

type RawHTML struct {
	HTML string `json:"html"`
}

type AdPlacement struct {
	Slot string `json:"slot"`
}

func (Paragraph) Type() ComponentType    { return TypeParagraph }
func (Heading) Type() ComponentType      { return TypeHeading }
func (Blockquote) Type() ComponentType   { return TypeBlockquote }
func (Pullquote) Type() ComponentType    { return TypePullquote }
func (List) Type() ComponentType         { return TypeList }
func (CodeBlock) Type() ComponentType    { return TypeCodeBlock }
func (Preformatted) Type() ComponentType { return TypePreformatted }
func (Image) Type() ComponentType        { return TypeImage }
func (Video) Type() ComponentType        { return TypeVideo }
func (Embed) Type() ComponentType        { return TypeEmbed }
func (Divider) Type() ComponentType      { return TypeDivider }
func (Table) Type() ComponentType        { return TypeTable }
func (RawHTML) Type() ComponentType      { return TypeRawHTML }
func (AdPlacement) Type() ComponentType  { return TypeAdPlacement }

func (Paragraph) isComponent()    {}
func (Heading) isComponent()      {}
func (Blockquote) isComponent()   {}
func (Pullquote) isComponent()    {}
func (List) isComponent()         {}
func (CodeBlock) isComponent()    {}
func (Preformatted) isComponent() {}
func (Image) isComponent()        {}
func (Video) isComponent()        {}
func (Embed) isComponent()        {}
func (Divider) isComponent()      {}
func (Table) isComponent()        {}
func (RawHTML) isComponent()      {}
func (AdPlacement) isComponent()  {}

// Body is the ordered component list of an article. It encodes each
// component as a JSON object carrying a "type" discriminator.
type Body []Component

// MarshalJSON writes every component with its type tag.
func (b Body) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, c := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := marshalComponent(c)
		if err != nil {
			return nil, fmt.Errorf("body[%d]: %w", i, err)
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes components by their type tag. Unknown tags are an
// error.
func (b *Body) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	if raws == nil {
		*b = nil
		return nil
	}

	body := make(Body, 0, len(raws))
	for i, raw := range raws {
		c, err := unmarshalComponent(raw)
		if err != nil {
			return fmt.Errorf("body[%d]: %w", i, err)
		}
		body = append(body, c)
	}
	*b = body
	return nil
}

func marshalComponent(c Component) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("nil component")
	}

	fields, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}

	tag, err := json.Marshal(c.Type())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	if inner := bytes.TrimSpace(fields); len(inner) > 2 {
		buf.WriteByte(',')
		buf.Write(inner[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

func unmarshalComponent(raw json.RawMessage) (Component, error) {
	var head struct {
		Type ComponentType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}

	switch head.Type {
	case TypeParagraph:
		return decodeAs[Paragraph](raw)
	case TypeHeading:
		return decodeAs[Heading](raw)
	case TypeBlockquote:
		return decodeAs[Blockquote](raw)
	case TypePullquote:
		return decodeAs[Pullquote](raw)
	case TypeList:
		return decodeAs[List](raw)
	case TypeCodeBlock:
		return decodeAs[CodeBlock](raw)
	case TypePreformatted:
		return decodeAs[Preformatted](raw)
	case TypeImage:
		return decodeAs[Image](raw)
	case TypeVideo:
		return decodeAs[Video](raw)
	case TypeEmbed:
		return decodeAs[Embed](raw)
	case TypeDivider:
		return Divider{}, nil
	case TypeTable:
		return decodeAs[Table](raw)
	case TypeRawHTML:
		return decodeAs[RawHTML](raw)
	case TypeAdPlacement:
		return decodeAs[AdPlacement](raw)
	case "":
		return nil, fmt.Errorf("component is missing its type")
	default:
		return nil, fmt.Errorf("unknown component type %q", head.Type)
	}
}

func decodeAs[T Component](raw json.RawMessage) (Component, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
