package anf

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pevans/pressfeed/article"
)

// MaxIdentifierLength bounds document identifiers, in characters.
const MaxIdentifierLength = 64

// MaxTitleLength bounds document titles, in characters.
const MaxTitleLength = 500

// Assemble builds an ANF document from an article. Every body component is
// transformed in order; results are flattened and null results skipped.
// The document is not validated.
func Assemble(a *article.Article) (*Document, []Warning) {
	doc := &Document{
		Version:             Version,
		Identifier:          Identifier(a.Source.Publisher, a.Source.PreferredURL()),
		Title:               a.Metadata.Title,
		Subtitle:            a.Metadata.Subtitle,
		Language:            a.Metadata.Language,
		Layout:              DefaultLayout(),
		Components:          make(Components, 0, len(a.Body)),
		ComponentTextStyles: DefaultTextStyles(),
		Metadata:            metadata(a),
	}

	var warnings []Warning
	for _, c := range a.Body {
		r := TransformComponent(c)
		doc.Components = append(doc.Components, r.Components...)
		warnings = append(warnings, r.Warnings...)
	}

	return doc, warnings
}

// Identifier derives a document identifier from the publisher id and the
// last non-empty path segment of the article URL, truncated to
// MaxIdentifierLength characters.
func Identifier(publisher, articleURL string) string {
	id := publisher
	if slug := lastSegment(articleURL); slug != "" {
		if id == "" {
			id = slug
		} else {
			id += "-" + slug
		}
	}
	return truncate(id, MaxIdentifierLength)
}

func lastSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	segments := strings.Split(u.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func metadata(a *article.Article) *Metadata {
	m := &Metadata{
		Excerpt:      a.Metadata.Excerpt,
		CanonicalURL: a.Source.PreferredURL(),
	}

	for _, author := range a.Authors {
		if name := strings.TrimSpace(author.Name); name != "" {
			m.Authors = append(m.Authors, name)
		}
	}

	if a.Metadata.Thumbnail != nil {
		m.ThumbnailURL = a.Metadata.Thumbnail.URL
	}

	// ANF distinguishes created from published; only one source date exists.
	if !a.Metadata.PublishedAt.IsZero() {
		published := formatDate(a.Metadata.PublishedAt)
		m.DateCreated = published
		m.DatePublished = published
	}
	if a.Metadata.ModifiedAt != nil {
		m.DateModified = formatDate(*a.Metadata.ModifiedAt)
	}

	return m
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
