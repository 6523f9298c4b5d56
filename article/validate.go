package article

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/language"
)

// ErrInvalid is wrapped by every ValidationError.
var ErrInvalid = errors.New("invalid article")

// ValidationError names the first field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalid, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Decode parses an intermediary document from JSON and validates it.
func Decode(data []byte) (*Article, error) {
	var a Article
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := Validate(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate checks an article against the intermediary schema and returns
// the first violation found. There is no lenient mode: a single malformed
// component rejects the whole document.
func Validate(a *Article) error {
	if a == nil {
		return invalid("article", "is nil")
	}
	if strings.TrimSpace(a.Version) == "" {
		return invalid("version", "is required")
	}
	if a.ExtractedAt.IsZero() {
		return invalid("extractedAt", "is required")
	}
	if err := validateSource(a.Source); err != nil {
		return err
	}
	if err := validateMetadata(a.Metadata); err != nil {
		return err
	}
	for i, author := range a.Authors {
		if err := validateAuthor(fmt.Sprintf("authors[%d]", i), author); err != nil {
			return err
		}
	}
	if len(a.Body) == 0 {
		return invalid("body", "must contain at least one component")
	}
	for i, c := range a.Body {
		if err := ValidateComponent(fmt.Sprintf("body[%d]", i), c); err != nil {
			return err
		}
	}
	for id, m := range a.Media {
		field := fmt.Sprintf("media[%s]", id)
		switch m.Type {
		case "image", "video", "audio":
		default:
			return invalid(field+".type", "must be image, video or audio, got %q", m.Type)
		}
		if !ValidURL(m.URL) {
			return invalid(field+".url", "must be an absolute http(s) URL")
		}
		if m.Width < 0 || m.Height < 0 {
			return invalid(field, "dimensions must not be negative")
		}
	}
	for i, r := range a.RelatedContent {
		field := fmt.Sprintf("relatedContent[%d]", i)
		if !ValidURL(r.URL) {
			return invalid(field+".url", "must be an absolute http(s) URL")
		}
		if strings.TrimSpace(r.Title) == "" {
			return invalid(field+".title", "is required")
		}
		if r.Thumbnail != "" && !ValidURL(r.Thumbnail) {
			return invalid(field+".thumbnail", "must be an absolute http(s) URL")
		}
	}
	if a.Paywall != nil {
		switch a.Paywall.Model {
		case "", "metered", "hard", "freemium":
		default:
			return invalid("paywall.model", "must be metered, hard or freemium, got %q", a.Paywall.Model)
		}
	}
	return nil
}

func validateSource(s Source) error {
	if !ValidURL(s.URL) {
		return invalid("source.url", "must be an absolute http(s) URL")
	}
	if s.CanonicalURL != "" && !ValidURL(s.CanonicalURL) {
		return invalid("source.canonicalUrl", "must be an absolute http(s) URL")
	}
	if strings.TrimSpace(s.Publisher) == "" {
		return invalid("source.publisher", "is required")
	}
	if strings.TrimSpace(s.CMS) == "" {
		return invalid("source.cms", "is required")
	}
	switch s.Method {
	case MethodScrape, MethodFeed, MethodAPI:
	default:
		return invalid("source.method", "must be scrape, feed or api, got %q", s.Method)
	}
	if s.FeedURL != "" && !ValidURL(s.FeedURL) {
		return invalid("source.feedUrl", "must be an absolute http(s) URL")
	}
	return nil
}

func validateMetadata(m Metadata) error {
	if strings.TrimSpace(m.Title) == "" {
		return invalid("metadata.title", "is required")
	}
	if strings.TrimSpace(m.Language) == "" {
		return invalid("metadata.language", "is required")
	}
	if _, err := language.Parse(m.Language); err != nil {
		return invalid("metadata.language", "%q is not a BCP-47 tag", m.Language)
	}
	if m.PublishedAt.IsZero() {
		return invalid("metadata.publishedAt", "is required")
	}
	if m.ModifiedAt != nil {
		if m.ModifiedAt.IsZero() {
			return invalid("metadata.modifiedAt", "must not be the zero time")
		}
		if m.ModifiedAt.Before(m.PublishedAt) {
			return invalid("metadata.modifiedAt", "is before publishedAt")
		}
	}
	switch m.Urgency {
	case "", UrgencyStandard, UrgencyPriority, UrgencyBreaking:
	default:
		return invalid("metadata.urgency", "must be standard, priority or breaking, got %q", m.Urgency)
	}
	if m.Thumbnail != nil {
		if !ValidURL(m.Thumbnail.URL) {
			return invalid("metadata.thumbnail.url", "must be an absolute http(s) URL")
		}
		if m.Thumbnail.Width < 0 || m.Thumbnail.Height < 0 {
			return invalid("metadata.thumbnail", "dimensions must not be negative")
		}
	}
	for _, set := range []struct {
		name   string
		values []string
	}{{"categories", m.Categories}, {"tags", m.Tags}, {"keywords", m.Keywords}} {
		for i, v := range set.values {
			if strings.TrimSpace(v) == "" {
				return invalid(fmt.Sprintf("metadata.%s[%d]", set.name, i), "must not be empty")
			}
		}
	}
	return nil
}

func validateAuthor(field string, a Author) error {
	if strings.TrimSpace(a.Name) == "" {
		return invalid(field+".name", "is required")
	}
	if a.URL != "" && !ValidURL(a.URL) {
		return invalid(field+".url", "must be an absolute http(s) URL")
	}
	if a.Avatar != "" && !ValidURL(a.Avatar) {
		return invalid(field+".avatar", "must be an absolute http(s) URL")
	}
	return nil
}

// ValidateComponent checks the shape of a single body component. Field is
// the path reported in the error, e.g. "body[3]".
func ValidateComponent(field string, c Component) error {
	switch v := c.(type) {
	case Paragraph:
		if err := validateFormat(field, v.Format); err != nil {
			return err
		}
		return requireText(field+".text", v.Text)
	case Heading:
		if v.Level < 1 || v.Level > 6 {
			return invalid(field+".level", "must be between 1 and 6, got %d", v.Level)
		}
		if err := validateFormat(field, v.Format); err != nil {
			return err
		}
		return requireText(field+".text", v.Text)
	case Blockquote:
		return requireText(field+".text", v.Text)
	case Pullquote:
		return requireText(field+".text", v.Text)
	case List:
		if v.Style != ListOrdered && v.Style != ListUnordered {
			return invalid(field+".style", "must be ordered or unordered, got %q", v.Style)
		}
		if len(v.Items) == 0 {
			return invalid(field+".items", "must not be empty")
		}
		for i, item := range v.Items {
			if err := requireText(fmt.Sprintf("%s.items[%d]", field, i), item); err != nil {
				return err
			}
		}
		return nil
	case CodeBlock:
		return requireText(field+".code", v.Code)
	case Preformatted:
		return requireText(field+".text", v.Text)
	case Image:
		if !ValidURL(v.URL) {
			return invalid(field+".url", "must be an absolute http(s) URL")
		}
		if v.Width < 0 || v.Height < 0 {
			return invalid(field, "dimensions must not be negative")
		}
		return nil
	case Video:
		if !ValidURL(v.URL) {
			return invalid(field+".url", "must be an absolute http(s) URL")
		}
		if v.Thumbnail != "" && !ValidURL(v.Thumbnail) {
			return invalid(field+".thumbnail", "must be an absolute http(s) URL")
		}
		if v.Duration < 0 {
			return invalid(field+".duration", "must not be negative")
		}
		return nil
	case Embed:
		if !validPlatform(v.Platform) {
			return invalid(field+".platform", "unknown platform %q", v.Platform)
		}
		if !ValidURL(v.EmbedURL) {
			return invalid(field+".embedUrl", "must be an absolute http(s) URL")
		}
		return nil
	case Divider:
		return nil
	case Table:
		if len(v.Rows) == 0 {
			return invalid(field+".rows", "must not be empty")
		}
		for i, row := range v.Rows {
			if len(row) == 0 {
				return invalid(fmt.Sprintf("%s.rows[%d]", field, i), "must have at least one cell")
			}
		}
		if v.HeaderRows < 0 || v.HeaderRows > len(v.Rows) {
			return invalid(field+".headerRows", "must be between 0 and %d, got %d", len(v.Rows), v.HeaderRows)
		}
		return nil
	case RawHTML:
		return requireText(field+".html", v.HTML)
	case AdPlacement:
		return requireText(field+".slot", v.Slot)
	case nil:
		return invalid(field, "is null")
	default:
		return invalid(field, "unsupported component %T", c)
	}
}

func validateFormat(field string, f Format) error {
	switch f {
	case FormatText, FormatHTML, FormatMarkdown:
		return nil
	default:
		return invalid(field+".format", "must be text, html or markdown, got %q", f)
	}
}

func validPlatform(p EmbedPlatform) bool {
	switch p {
	case PlatformYouTube, PlatformVimeo, PlatformDailymotion, PlatformX,
		PlatformInstagram, PlatformFacebook, PlatformTikTok, PlatformOther:
		return true
	}
	return false
}

func requireText(field, s string) error {
	if strings.TrimSpace(s) == "" {
		return invalid(field, "must not be empty")
	}
	return nil
}

// ValidURL reports whether s is an absolute http or https URL with a host.
func ValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
