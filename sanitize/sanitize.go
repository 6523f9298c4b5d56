// Package sanitize rewrites HTML fragments down to the small tag set that
// Apple News body text accepts. The rewrite is pure, total and idempotent.
package sanitize

import (
	"bytes"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// allowed is the fixed tag allowlist.
var allowed = map[string]bool{
	"a": true, "b": true, "strong": true, "i": true, "em": true,
	"code": true, "del": true, "s": true, "sub": true, "sup": true,
	"br": true, "ul": true, "ol": true, "li": true, "p": true,
	"pre": true, "blockquote": true,
}

// substitutes maps disallowed tags onto an allowed equivalent.
var substitutes = map[string]string{
	"mark":   "b",
	"u":      "em",
	"ins":    "em",
	"cite":   "em",
	"dfn":    "em",
	"var":    "em",
	"strike": "s",
	"tt":     "code",
	"kbd":    "code",
	"samp":   "code",
}

// dropped elements are removed together with their content.
var dropped = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
	"object":   true,
}

var unsafeSchemes = []string{"javascript:", "vbscript:", "data:"}

// maxPasses bounds the re-sanitize loop in Clean.
const maxPasses = 4

// Allowed reports whether tag may appear in sanitized output.
func Allowed(tag string) bool {
	return allowed[tag]
}

// Sanitize returns s rewritten to the allowlist.
func Sanitize(s string) string {
	out, _ := Clean(s)
	return out
}

// Clean sanitizes s and reports whether anything was removed or rewritten.
// Serialization differences alone (entity encoding, implied end tags) do
// not count as a change.
func Clean(s string) (string, bool) {
	out, changed := pass(s)

	// Unwrapping can leave nesting the HTML parser restructures on the next
	// read, so repeat until the rendering is stable.
	for range maxPasses {
		next, more := pass(out)
		changed = changed || more
		if next == out {
			break
		}
		out = next
	}
	return out, changed
}

// Text returns the text content of an HTML fragment with all markup removed.
func Text(s string) string {
	root, err := parse(s)
	if err != nil {
		return s
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && dropped[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return b.String()
}

func pass(s string) (string, bool) {
	root, err := parse(s)
	if err != nil {
		return html.EscapeString(s), true
	}

	// The parser silently discards some tags (stray table parts, html,
	// body, frameset), which must still count as a change.
	c := &cleaner{changed: startTags(s) > elements(root)}
	c.children(root)

	var buf bytes.Buffer
	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if err := html.Render(&buf, n); err != nil {
			return html.EscapeString(Text(s)), true
		}
	}
	return buf.String(), c.changed
}

// startTags counts the start tags in s as written.
func startTags(s string) int {
	z := html.NewTokenizer(strings.NewReader(s))
	count := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return count
		case html.StartTagToken, html.SelfClosingTagToken:
			count++
		}
	}
}

// elements counts the element nodes under n.
func elements(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			count++
		}
		count += elements(c)
	}
	return count
}

// parse reads s as the content of a <body> element and returns a detached
// root holding the resulting nodes.
func parse(s string) (*html.Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), context)
	if err != nil {
		return nil, err
	}

	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

type cleaner struct {
	changed bool
}

func (c *cleaner) children(parent *html.Node) {
	for n := parent.FirstChild; n != nil; {
		next := n.NextSibling
		c.node(n)
		n = next
	}
}

func (c *cleaner) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		return
	case html.ElementNode:
	default:
		n.Parent.RemoveChild(n)
		c.changed = true
		return
	}

	if dropped[n.Data] {
		n.Parent.RemoveChild(n)
		c.changed = true
		return
	}

	// Children first, so a parent's rewrite never touches processed nodes.
	c.children(n)

	if n.Namespace == "" {
		if tag, ok := substitutes[n.Data]; ok {
			n.Data = tag
			n.DataAtom = atom.Lookup([]byte(tag))
			c.changed = true
		}
		if allowed[n.Data] {
			c.attrs(n)
			return
		}
	}

	unwrap(n)
	c.changed = true
}

func (c *cleaner) attrs(n *html.Node) {
	var kept []html.Attribute
	for _, a := range n.Attr {
		if n.Data == "a" && a.Namespace == "" && a.Key == "href" && !unsafeHref(a.Val) {
			kept = append(kept, a)
		}
	}
	if len(kept) != len(n.Attr) {
		c.changed = true
	}
	n.Attr = kept
}

// unwrap replaces n with its children.
func unwrap(n *html.Node) {
	parent := n.Parent
	for child := n.FirstChild; child != nil; child = n.FirstChild {
		n.RemoveChild(child)
		parent.InsertBefore(child, n)
	}
	parent.RemoveChild(n)
}

func unsafeHref(v string) bool {
	v = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, v)
	v = strings.ToLower(v)
	for _, scheme := range unsafeSchemes {
		if strings.HasPrefix(v, scheme) {
			return true
		}
	}
	return false
}
