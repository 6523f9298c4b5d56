// Package htmlutil holds the extraction helpers that depend only on
// cross-publisher conventions: schema.org JSON-LD blocks, Open Graph and
// Twitter meta tags, date normalization, embed URL classification, HTML
// escaping and URL resolution. Anything that depends on the DOM shape of a
// particular CMS belongs in that CMS's parser, not here.
package htmlutil

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// articleTypes are the schema.org types accepted as an article anchor.
var articleTypes = map[string]bool{
	"Article":              true,
	"NewsArticle":          true,
	"BlogPosting":          true,
	"ReportageNewsArticle": true,
	"AnalysisNewsArticle":  true,
	"OpinionNewsArticle":   true,
	"ReviewNewsArticle":    true,
	"LiveBlogPosting":      true,
	"TechArticle":          true,
	"Report":               true,
}

// ExtractJSONLD returns every JSON-LD object on the page, with top-level
// arrays and @graph containers flattened. Blocks that fail to parse are
// skipped.
func ExtractJSONLD(doc *goquery.Document) []map[string]any {
	var objects []map[string]any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}

		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return
		}
		objects = appendLD(objects, v)
	})
	return objects
}

func appendLD(objects []map[string]any, v any) []map[string]any {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			objects = appendLD(objects, item)
		}
	case map[string]any:
		if graph, ok := t["@graph"]; ok {
			objects = appendLD(objects, graph)
			if _, typed := t["@type"]; !typed {
				return objects
			}
		}
		objects = append(objects, t)
	}
	return objects
}

// FindArticleLD returns the first JSON-LD object typed as an article.
func FindArticleLD(objects []map[string]any) (map[string]any, bool) {
	for _, obj := range objects {
		for _, typ := range LDStrings(obj, "@type") {
			if articleTypes[typ] {
				return obj, true
			}
		}
	}
	return nil, false
}

// LDString returns the first non-empty string value among keys. Nested
// objects contribute their "name" or "url" (in that order) and arrays
// contribute their first usable element.
func LDString(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := ldScalar(obj[key]); s != "" {
			return s
		}
	}
	return ""
}

func ldScalar(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		if s := ldScalar(t["name"]); s != "" {
			return s
		}
		if s := ldScalar(t["url"]); s != "" {
			return s
		}
		return ldScalar(t["@id"])
	case []any:
		for _, item := range t {
			if s := ldScalar(item); s != "" {
				return s
			}
		}
	}
	return ""
}

// LDStrings returns all string values under key. Comma-separated strings
// are not split; use SplitList for keyword fields.
func LDStrings(obj map[string]any, key string) []string {
	var out []string
	switch t := obj[key].(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, item := range t {
			if s := ldScalar(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// LDImageURL returns the URL of the "image" property, which may be a string,
// an ImageObject or an array of either.
func LDImageURL(obj map[string]any) string {
	return ldURL(obj["image"])
}

func ldURL(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		if s := ldURL(t["url"]); s != "" {
			return s
		}
		return ldURL(t["contentUrl"])
	case []any:
		for _, item := range t {
			if s := ldURL(item); s != "" {
				return s
			}
		}
	}
	return ""
}

// ldPeople returns the Person-like entries under key.
func ldPeople(obj map[string]any, key string) []map[string]any {
	var people []map[string]any
	var collect func(v any)
	collect = func(v any) {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				people = append(people, map[string]any{"name": s})
			}
		case map[string]any:
			people = append(people, t)
		case []any:
			for _, item := range t {
				collect(item)
			}
		}
	}
	collect(obj[key])
	return people
}
