package htmlutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ldPage = `<!DOCTYPE html>
<html lang="en-GB"><head>
<title>HTML Title | Site</title>
<link rel="canonical" href="/2024/03/ld-story/">
<meta property="og:title" content="OG Title">
<meta property="og:description" content="OG description">
<meta property="og:image" content="https://cdn.example.com/og.jpg">
<meta property="article:tag" content="Privacy">
<meta property="article:tag" content="privacy">
<meta property="article:tag" content="Surveillance">
<meta name="author" content="Meta Author">
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "NewsArticle",
  "headline": "LD Headline",
  "description": "LD description",
  "datePublished": "2024-03-01T12:00:00+02:00",
  "dateModified": "2024-03-02T09:30:00Z",
  "articleSection": ["News", "Tech"],
  "keywords": "ai, surveillance, ai",
  "image": {"@type": "ImageObject", "url": "/images/lead.jpg"},
  "author": [
    {"@type": "Person", "name": "Jason Koebler", "url": "https://example.com/author/jason/", "image": {"url": "https://cdn.example.com/jason.png"}},
    {"@type": "Person", "name": "Emanuel Maiberg"}
  ]
}
</script>
</head><body><h1>Body H1</h1></body></html>`

// TestPageMetadata_PrefersJSONLD verifies JSON-LD wins over meta tags
func TestPageMetadata_PrefersJSONLD(t *testing.T) {
	page, err := NewPage(ldPage, "https://example.com/2024/03/ld-story/?utm=x")
	require.NoError(t, err)

	extracted := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	md := page.Metadata(extracted)

	assert.Equal(t, "LD Headline", md.Title)
	assert.Equal(t, "LD description", md.Excerpt)
	assert.Equal(t, "en-GB", md.Language)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), md.PublishedAt)
	require.NotNil(t, md.ModifiedAt)
	assert.Equal(t, time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC), *md.ModifiedAt)
	assert.Equal(t, []string{"News", "Tech"}, md.Categories)
	assert.Equal(t, "News", md.Section)
	assert.Equal(t, []string{"Privacy", "Surveillance"}, md.Tags)
	assert.Equal(t, []string{"ai", "surveillance"}, md.Keywords)
	require.NotNil(t, md.Thumbnail)
	assert.Equal(t, "https://example.com/images/lead.jpg", md.Thumbnail.URL)

	assert.Equal(t, "https://example.com/2024/03/ld-story/", page.CanonicalURL())
}

// TestPageAuthors_FromJSONLD verifies structured authors beat the meta tag
func TestPageAuthors_FromJSONLD(t *testing.T) {
	page, err := NewPage(ldPage, "https://example.com/2024/03/ld-story/")
	require.NoError(t, err)

	authors := page.Authors()

	require.Len(t, authors, 2)
	assert.Equal(t, "Jason Koebler", authors[0].Name)
	assert.Equal(t, "https://example.com/author/jason/", authors[0].URL)
	assert.Equal(t, "https://cdn.example.com/jason.png", authors[0].Avatar)
	assert.Equal(t, "Emanuel Maiberg", authors[1].Name)
	assert.Empty(t, authors[1].URL)
}

// TestPageMetadata_MetaFallbacks verifies meta tags and defaults without JSON-LD
func TestPageMetadata_MetaFallbacks(t *testing.T) {
	html := `<html><head>
<title>  Fallback   Title </title>
<meta property="og:locale" content="fr_FR">
<meta property="og:url" content="https://example.com/canonical">
<meta property="article:published_time" content="2024-05-06T07:08:09-04:00">
<meta property="article:modified_time" content="2020-01-01T00:00:00Z">
<meta name="author" content="Jane Doe and John Roe">
</head><body></body></html>`

	page, err := NewPage(html, "https://example.com/canonical?x=1")
	require.NoError(t, err)

	md := page.Metadata(time.Now())

	assert.Equal(t, "Fallback Title", md.Title)
	assert.Equal(t, "fr-FR", md.Language)
	assert.Equal(t, time.Date(2024, 5, 6, 11, 8, 9, 0, time.UTC), md.PublishedAt)
	assert.Nil(t, md.ModifiedAt, "modified before published is discarded")
	assert.Nil(t, md.Thumbnail)
	assert.Equal(t, "https://example.com/canonical", page.CanonicalURL())

	authors := page.Authors()
	require.Len(t, authors, 2)
	assert.Equal(t, "Jane Doe", authors[0].Name)
	assert.Equal(t, "John Roe", authors[1].Name)
}

// TestPageMetadata_LanguagePriority verifies JSON-LD inLanguage wins over
// the html lang attribute, which wins over og:locale
func TestPageMetadata_LanguagePriority(t *testing.T) {
	const head = `<meta property="og:locale" content="fr_FR">`
	const ld = `<script type="application/ld+json">{"@type":"NewsArticle","headline":"H","inLanguage":"de-DE"}</script>`

	tests := []struct {
		name string
		html string
		want string
	}{
		{"json-ld first", `<html lang="en-GB"><head>` + head + ld + `</head><body></body></html>`, "de-DE"},
		{"html lang next", `<html lang="en-GB"><head>` + head + `</head><body></body></html>`, "en-GB"},
		{"og:locale last", `<html><head>` + head + `</head><body></body></html>`, "fr-FR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := NewPage(tt.html, "https://example.com/a")
			require.NoError(t, err)
			assert.Equal(t, tt.want, page.Metadata(time.Now()).Language)
		})
	}
}

// TestPageMetadata_Defaults verifies language and date defaults
func TestPageMetadata_Defaults(t *testing.T) {
	page, err := NewPage(`<html><body><h1>Only Heading</h1></body></html>`, "https://example.com/a")
	require.NoError(t, err)

	extracted := time.Date(2024, 6, 1, 8, 0, 0, 0, time.FixedZone("X", 3600))
	md := page.Metadata(extracted)

	assert.Equal(t, "Only Heading", md.Title)
	assert.Equal(t, DefaultLanguage, md.Language)
	assert.True(t, extracted.Equal(md.PublishedAt))
	assert.Equal(t, time.UTC, md.PublishedAt.Location())
	assert.Empty(t, page.CanonicalURL())
	assert.NotNil(t, page.Authors())
	assert.Empty(t, page.Authors())
}

// TestPageAuthors_IgnoresURLByline verifies an author meta holding a profile
// URL is not treated as a name
func TestPageAuthors_IgnoresURLByline(t *testing.T) {
	page, err := NewPage(`<html><head><meta property="article:author" content="https://facebook.com/someone"></head></html>`, "https://example.com/a")
	require.NoError(t, err)

	assert.Empty(t, page.Authors())
}
