// Package article defines the intermediary document every parser produces:
// a publisher-independent, structured rendition of one article page. The
// ANF transformer and the stores consume it; nothing downstream ever sees
// raw publisher HTML.
package article

import (
	"time"
)

// SchemaVersion is the intermediary document version written by parsers.
const SchemaVersion = "1.0"

// IngestionMethod records how the article reached the system.
type IngestionMethod string

const (
	MethodScrape IngestionMethod = "scrape"
	MethodFeed   IngestionMethod = "feed"
	MethodAPI    IngestionMethod = "api"
)

// Urgency is the editorial priority tier of an article.
type Urgency string

const (
	UrgencyStandard Urgency = "standard"
	UrgencyPriority Urgency = "priority"
	UrgencyBreaking Urgency = "breaking"
)

// Article is the canonical normalized article.
type Article struct {
	Version        string           `json:"version"`
	ExtractedAt    time.Time        `json:"extractedAt"`
	Source         Source           `json:"source"`
	Metadata       Metadata         `json:"metadata"`
	Authors        []Author         `json:"authors"`
	Body           Body             `json:"body"`
	Media          map[string]Media `json:"media,omitempty"`
	RelatedContent []RelatedItem    `json:"relatedContent,omitempty"`
	Paywall        *Paywall         `json:"paywall,omitempty"`
	Custom         map[string]any   `json:"custom,omitempty"`
}

// Source describes where an article came from.
type Source struct {
	URL          string          `json:"url"`
	CanonicalURL string          `json:"canonicalUrl,omitempty"`
	Publisher    string          `json:"publisher"`
	CMS          string          `json:"cms"`
	Method       IngestionMethod `json:"method"`
	FeedURL      string          `json:"feedUrl,omitempty"`
}

// PreferredURL returns the canonical URL when known, otherwise the URL the
// article was fetched from.
func (s Source) PreferredURL() string {
	if s.CanonicalURL != "" {
		return s.CanonicalURL
	}
	return s.URL
}

// Metadata holds the descriptive fields of an article.
type Metadata struct {
	Title         string     `json:"title"`
	Subtitle      string     `json:"subtitle,omitempty"`
	Excerpt       string     `json:"excerpt,omitempty"`
	Language      string     `json:"language"`
	PublishedAt   time.Time  `json:"publishedAt"`
	ModifiedAt    *time.Time `json:"modifiedAt,omitempty"`
	Categories    []string   `json:"categories,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	Keywords      []string   `json:"keywords,omitempty"`
	Section       string     `json:"section,omitempty"`
	Thumbnail     *ImageRef  `json:"thumbnail,omitempty"`
	Urgency       Urgency    `json:"urgency,omitempty"`
	ContentRating string     `json:"contentRating,omitempty"`
}

// ImageRef points at an image outside the body, such as a thumbnail.
type ImageRef struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
	Credit  string `json:"credit,omitempty"`
	AltText string `json:"altText,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// Author is a single byline entry.
type Author struct {
	Name   string `json:"name"`
	URL    string `json:"url,omitempty"`
	Bio    string `json:"bio,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Media is an entry of the optional media registry that image components
// can reference through MediaRef.
type Media struct {
	Type     string `json:"type"` // image, video or audio
	URL      string `json:"url"`
	MimeType string `json:"mimeType,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Credit   string `json:"credit,omitempty"`
}

// RelatedItem links to another article.
type RelatedItem struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Paywall describes access restrictions on the original page. It is
// informational only.
type Paywall struct {
	Paywalled bool   `json:"paywalled"`
	Model     string `json:"model,omitempty"` // metered, hard or freemium
}

// DiscoveredArticle is a lightweight reference found on a homepage or in a
// feed, before the article itself has been fetched.
type DiscoveredArticle struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	SourceID    string     `json:"sourceId"`
}
