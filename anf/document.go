// Package anf transforms intermediary articles into Apple News Format
// documents.
//
// Component mapping is lenient: a body component that has no safe ANF
// equivalent is dropped or degraded and reported as a Warning. The
// assembled document is strict: Transform fails when the document does not
// satisfy the ANF schema, even if every individual step only warned.
package anf

import "fmt"

// Version is the ANF format version written into every document.
const Version = "1.9"

// Document is an ANF article document.
type Document struct {
	Version             string               `json:"version"`
	Identifier          string               `json:"identifier"`
	Title               string               `json:"title"`
	Subtitle            string               `json:"subtitle,omitempty"`
	Language            string               `json:"language"`
	Layout              Layout               `json:"layout"`
	Components          Components           `json:"components"`
	ComponentTextStyles map[string]TextStyle `json:"componentTextStyles"`
	Metadata            *Metadata            `json:"metadata,omitempty"`
}

// Layout is the column grid of a document.
type Layout struct {
	Columns int `json:"columns"`
	Width   int `json:"width"`
	Margin  int `json:"margin,omitempty"`
	Gutter  int `json:"gutter,omitempty"`
}

// Metadata is the document metadata block. Dates are RFC 3339 strings.
type Metadata struct {
	Authors       []string `json:"authors,omitempty"`
	Excerpt       string   `json:"excerpt,omitempty"`
	CanonicalURL  string   `json:"canonicalURL,omitempty"`
	ThumbnailURL  string   `json:"thumbnailURL,omitempty"`
	DateCreated   string   `json:"dateCreated,omitempty"`
	DatePublished string   `json:"datePublished,omitempty"`
	DateModified  string   `json:"dateModified,omitempty"`
}

// TextStyle is a named component text style.
type TextStyle struct {
	FontName   string `json:"fontName,omitempty"`
	FontSize   int    `json:"fontSize,omitempty"`
	LineHeight int    `json:"lineHeight,omitempty"`
	TextColor  string `json:"textColor,omitempty"`
}

// IsZero reports whether no property of the style is set.
func (s TextStyle) IsZero() bool {
	return s == TextStyle{}
}

// Text style names referenced by components.
const (
	StyleBody      = "default-body"
	StyleCaption   = "default-caption"
	StylePullquote = "default-pullquote"
	StyleQuote     = "default-quote"
	StyleMonospace = "default-monospace"
)

// HeadingStyle returns the style name for a heading level.
func HeadingStyle(level int) string {
	return fmt.Sprintf("default-heading%d", level)
}

// DefaultLayout is the layout used for every document.
func DefaultLayout() Layout {
	return Layout{Columns: 7, Width: 1024, Margin: 60, Gutter: 20}
}

var headingSizes = [6]int{36, 30, 26, 22, 20, 18}

// DefaultTextStyles returns a fresh copy of the static style table: one
// entry for body, each heading level, caption, pullquote, quote and
// monospace text.
func DefaultTextStyles() map[string]TextStyle {
	styles := map[string]TextStyle{
		StyleBody:      {FontName: "Georgia", FontSize: 18, LineHeight: 26, TextColor: "#222222"},
		StyleCaption:   {FontName: "HelveticaNeue", FontSize: 13, LineHeight: 18, TextColor: "#666666"},
		StylePullquote: {FontName: "Georgia-Bold", FontSize: 28, LineHeight: 34, TextColor: "#111111"},
		StyleQuote:     {FontName: "Georgia-Italic", FontSize: 20, LineHeight: 28, TextColor: "#333333"},
		StyleMonospace: {FontName: "Menlo-Regular", FontSize: 15, LineHeight: 22, TextColor: "#222222"},
	}
	for i, size := range headingSizes {
		styles[HeadingStyle(i+1)] = TextStyle{
			FontName:   "HelveticaNeue-Bold",
			FontSize:   size,
			LineHeight: size + 8,
			TextColor:  "#111111",
		}
	}
	return styles
}
