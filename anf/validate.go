package anf

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"

	"github.com/pevans/pressfeed/article"
)

var (
	// ErrInvalidDocument is wrapped by every ValidationError.
	ErrInvalidDocument = errors.New("invalid ANF document")
	// ErrNilArticle is returned by Transform for a nil article.
	ErrNilArticle = errors.New("article is nil")
)

// ValidationError names the first document field that violates the ANF
// schema.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidDocument, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidDocument
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks an assembled document against the ANF schema.
func Validate(doc *Document) error {
	if doc == nil {
		return invalid("document", "is nil")
	}
	if doc.Version == "" {
		return invalid("version", "is required")
	}
	if n := utf8.RuneCountInString(doc.Identifier); n == 0 || n > MaxIdentifierLength {
		return invalid("identifier", "must be 1 to %d characters, got %d", MaxIdentifierLength, n)
	}
	if strings.TrimSpace(doc.Title) == "" {
		return invalid("title", "is required")
	}
	if n := utf8.RuneCountInString(doc.Title); n > MaxTitleLength {
		return invalid("title", "must be at most %d characters, got %d", MaxTitleLength, n)
	}
	if _, err := language.Parse(doc.Language); err != nil {
		return invalid("language", "%q is not a valid language tag", doc.Language)
	}
	if doc.Layout.Columns <= 0 || doc.Layout.Width <= 0 {
		return invalid("layout", "columns and width must be positive")
	}

	for name, style := range doc.ComponentTextStyles {
		if style.IsZero() {
			return invalid("componentTextStyles."+name, "is empty")
		}
	}

	if len(doc.Components) == 0 {
		return invalid("components", "must not be empty")
	}
	for i, c := range doc.Components {
		if err := validateComponent(fmt.Sprintf("components[%d]", i), c, doc.ComponentTextStyles); err != nil {
			return err
		}
	}

	if doc.Metadata != nil {
		if err := validateMetadata(*doc.Metadata); err != nil {
			return err
		}
	}
	return nil
}

func validateComponent(field string, c Component, styles map[string]TextStyle) error {
	requireStyle := func(style string) error {
		if style == "" {
			return nil
		}
		if _, ok := styles[style]; !ok {
			return invalid(field+".textStyle", "references unknown style %q", style)
		}
		return nil
	}
	requireText := func(text string) error {
		if strings.TrimSpace(text) == "" {
			return invalid(field+".text", "is required")
		}
		return nil
	}
	requireURL := func(u string) error {
		if !article.ValidURL(u) {
			return invalid(field+".URL", "%q is not an absolute http(s) URL", u)
		}
		return nil
	}

	switch c := c.(type) {
	case Body:
		return firstErr(requireText(c.Text), validateFormat(field, c.Format), requireStyle(c.TextStyle))
	case Heading:
		if c.Level < 1 || c.Level > 6 {
			return invalid(field, "heading level %d is out of range", c.Level)
		}
		return firstErr(requireText(c.Text), validateFormat(field, c.Format), requireStyle(c.TextStyle))
	case Quote:
		return firstErr(requireText(c.Text), requireStyle(c.TextStyle))
	case Pullquote:
		return firstErr(requireText(c.Text), requireStyle(c.TextStyle))
	case Photo:
		if err := requireURL(c.URL); err != nil {
			return err
		}
		if c.Caption != nil {
			return requireStyle(c.Caption.TextStyle)
		}
		return nil
	case Video:
		if err := requireURL(c.URL); err != nil {
			return err
		}
		if c.StillURL != "" && !article.ValidURL(c.StillURL) {
			return invalid(field+".stillURL", "%q is not an absolute http(s) URL", c.StillURL)
		}
		return nil
	case EmbedWebVideo:
		return requireURL(c.URL)
	case Tweet:
		return requireURL(c.URL)
	case Instagram:
		return requireURL(c.URL)
	case FacebookPost:
		return requireURL(c.URL)
	case TikTok:
		return requireURL(c.URL)
	case Divider:
		return nil
	case HTMLTable:
		if strings.TrimSpace(c.HTML) == "" {
			return invalid(field+".html", "is required")
		}
		return nil
	case BannerAdvertisement:
		if c.BannerType != BannerAny {
			return invalid(field+".bannerType", "unsupported banner type %q", c.BannerType)
		}
		return nil
	case nil:
		return invalid(field, "is nil")
	default:
		return invalid(field, "unsupported component %T", c)
	}
}

func validateFormat(field, format string) error {
	switch format {
	case "", FormatHTML, FormatMarkdown:
		return nil
	default:
		return invalid(field+".format", "unsupported format %q", format)
	}
}

func validateMetadata(m Metadata) error {
	if m.CanonicalURL != "" && !article.ValidURL(m.CanonicalURL) {
		return invalid("metadata.canonicalURL", "%q is not an absolute http(s) URL", m.CanonicalURL)
	}
	if m.ThumbnailURL != "" && !article.ValidURL(m.ThumbnailURL) {
		return invalid("metadata.thumbnailURL", "%q is not an absolute http(s) URL", m.ThumbnailURL)
	}
	for i, name := range m.Authors {
		if strings.TrimSpace(name) == "" {
			return invalid(fmt.Sprintf("metadata.authors[%d]", i), "is empty")
		}
	}

	dates := []struct{ field, value string }{
		{"metadata.dateCreated", m.DateCreated},
		{"metadata.datePublished", m.DatePublished},
		{"metadata.dateModified", m.DateModified},
	}
	for _, d := range dates {
		if d.value == "" {
			continue
		}
		if _, err := time.Parse(time.RFC3339, d.value); err != nil {
			return invalid(d.field, "%q is not an RFC 3339 timestamp", d.value)
		}
	}
	return nil
}

// Result is a successfully transformed document with the warnings emitted
// while building it.
type Result struct {
	Document *Document `json:"document"`
	Warnings []Warning `json:"warnings"`
}

// TransformError is returned when the assembled document fails
// validation. It carries the warnings emitted before the failure.
type TransformError struct {
	Warnings []Warning
	Err      error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("failed to transform article: %v", e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// Transform assembles and validates an ANF document. Component problems
// are reported as warnings; a document that fails validation is an error.
func Transform(a *article.Article) (*Result, error) {
	if a == nil {
		return nil, ErrNilArticle
	}

	doc, warnings := Assemble(a)
	if warnings == nil {
		warnings = []Warning{}
	}

	if err := Validate(doc); err != nil {
		return nil, &TransformError{Warnings: warnings, Err: err}
	}
	return &Result{Document: doc, Warnings: warnings}, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
