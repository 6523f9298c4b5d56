// Package feeds discovers articles from RSS and Atom feeds. Like the
// parsers, it works on already-fetched content.
package feeds

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/pevans/pressfeed/article"
	"github.com/pevans/pressfeed/htmlutil"
)

// maxExcerpt bounds excerpts taken from item descriptions, in runes.
const maxExcerpt = 500

// Parse parses an RSS or Atom document. gofeed detects the format.
func Parse(data string) (*gofeed.Feed, error) {
	fp := gofeed.NewParser()
	feed, err := fp.ParseString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return feed, nil
}

// Discover converts every usable feed item into a discovered article.
// Relative item links resolve against feedURL; items without a link or a
// title are skipped and duplicate links are collapsed.
func Discover(data, feedURL, sourceID string) ([]article.DiscoveredArticle, error) {
	feed, err := Parse(data)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed url %q: %w", feedURL, err)
	}

	found := make([]article.DiscoveredArticle, 0, len(feed.Items))
	seen := map[string]bool{}
	for _, item := range feed.Items {
		da, ok := ItemToDiscovered(item, base, sourceID)
		if !ok || seen[da.URL] {
			continue
		}
		seen[da.URL] = true
		found = append(found, da)
	}
	return found, nil
}

// ItemToDiscovered maps one feed item. gofeed normalizes RSS <link> and
// Atom <link rel="alternate"> to Link, and <description>/<summary> to
// Description.
func ItemToDiscovered(item *gofeed.Item, base *url.URL, sourceID string) (article.DiscoveredArticle, bool) {
	link, ok := htmlutil.ResolveURL(base, item.Link)
	if !ok {
		return article.DiscoveredArticle{}, false
	}
	title := htmlutil.CleanText(item.Title)
	if title == "" {
		return article.DiscoveredArticle{}, false
	}

	da := article.DiscoveredArticle{
		URL:      link,
		Title:    title,
		Excerpt:  excerpt(item.Description),
		SourceID: sourceID,
	}

	if thumb, ok := htmlutil.ResolveURL(base, thumbnail(item)); ok {
		da.Thumbnail = thumb
	}

	switch {
	case item.PublishedParsed != nil:
		t := item.PublishedParsed.UTC()
		da.PublishedAt = &t
	case item.UpdatedParsed != nil:
		t := item.UpdatedParsed.UTC()
		da.PublishedAt = &t
	}

	return da, true
}

// excerpt strips markup from an item description and truncates it.
func excerpt(description string) string {
	if strings.TrimSpace(description) == "" {
		return ""
	}

	text := description
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(description)); err == nil {
		text = doc.Text()
	}
	text = htmlutil.CleanText(text)

	if runes := []rune(text); len(runes) > maxExcerpt {
		return string(runes[:maxExcerpt]) + "..."
	}
	return text
}

// thumbnail looks at the item image, image enclosures, then Media RSS.
func thumbnail(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}

	media := item.Extensions["media"]
	for _, name := range []string{"thumbnail", "content"} {
		for _, e := range media[name] {
			if name == "content" && e.Attrs["medium"] != "" && e.Attrs["medium"] != "image" {
				continue
			}
			if u := e.Attrs["url"]; u != "" {
				return u
			}
		}
	}
	return ""
}
