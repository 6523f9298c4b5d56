package htmlutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Meta indexes a page's <meta> tags by their property or name attribute.
// Keys are lower-cased; values keep document order so repeated properties
// such as article:tag are preserved.
type Meta map[string][]string

// ExtractMeta collects every <meta> tag that has a content attribute.
func ExtractMeta(doc *goquery.Document) Meta {
	meta := Meta{}
	doc.Find("meta[content]").Each(func(_ int, s *goquery.Selection) {
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		for _, attr := range []string{"property", "name", "itemprop", "http-equiv"} {
			if key, ok := s.Attr(attr); ok && key != "" {
				key = strings.ToLower(strings.TrimSpace(key))
				meta[key] = append(meta[key], content)
				return
			}
		}
	})
	return meta
}

// First returns the first value among keys, in key priority order.
func (m Meta) First(keys ...string) string {
	for _, key := range keys {
		if values := m[strings.ToLower(key)]; len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// All returns every value stored under key.
func (m Meta) All(key string) []string {
	return m[strings.ToLower(key)]
}
