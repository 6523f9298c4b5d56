package htmlutil

import (
	"html"
	"net/url"
	"strings"
)

// EscapeHTML escapes <, >, &, ' and " so text can be embedded in markup.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}

// CleanText collapses runs of whitespace to single spaces and trims the
// result.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParseAuthors splits a single author string into multiple authors if it
// contains common delimiters. ", " takes precedence over " and ".
func ParseAuthors(authorText string) []string {
	authorText = strings.TrimSpace(authorText)
	if authorText == "" {
		return []string{}
	}

	for _, sep := range []string{", ", " and "} {
		if !strings.Contains(authorText, sep) {
			continue
		}
		authors := []string{}
		for part := range strings.SplitSeq(authorText, sep) {
			part = strings.TrimSpace(part)
			if part != "" {
				authors = append(authors, part)
			}
		}
		return authors
	}

	return []string{authorText}
}

// SplitList splits a comma-separated keyword string.
func SplitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Dedupe removes blank and repeated values (case-insensitively), keeping
// the first occurrence.
func Dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = CleanText(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// ResolveURL resolves href against base and returns the absolute http(s)
// URL without its fragment. Fragment-only, javascript:, mailto:, tel: and
// data: links are rejected.
func ResolveURL(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if abs.Host == "" {
		return "", false
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs.String(), true
}

// SameSite reports whether two hosts belong to the same site, ignoring a
// leading "www.".
func SameSite(a, b string) bool {
	a = strings.TrimPrefix(strings.ToLower(a), "www.")
	b = strings.TrimPrefix(strings.ToLower(b), "www.")
	return a != "" && a == b
}
