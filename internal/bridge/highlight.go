package bridge

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Highlighter picks the elements of a rendered page that a change request
// probably touched. It is a visual hint only.
type Highlighter interface {
	// Mark sets HighlightAttr on matching elements and returns how many it marked.
	Mark(root *html.Node, prompt string) int
}

// KeywordHighlighter marks every body element whose text, id, class list or
// tag name contains a word of the prompt. Words shorter than MinTokenLen are
// ignored. Matching is case-insensitive.
type KeywordHighlighter struct {
	MinTokenLen int
}

// DefaultMinTokenLen keeps words longer than three characters.
const DefaultMinTokenLen = 4

// Tokens returns the distinct lowercase words of prompt that are long enough.
func (h KeywordHighlighter) Tokens(prompt string) []string {
	minLen := h.MinTokenLen
	if minLen <= 0 {
		minLen = DefaultMinTokenLen
	}
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range strings.Fields(strings.ToLower(prompt)) {
		if utf8.RuneCountInString(w) < minLen || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// Mark implements Highlighter.
func (h KeywordHighlighter) Mark(root *html.Node, prompt string) int {
	tokens := h.Tokens(prompt)
	body := findElement(root, atom.Body)
	if len(tokens) == 0 || body == nil {
		return 0
	}

	marked := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skipped(n) {
				return
			}
			if matches(n, tokens) {
				n.Attr = append(n.Attr, html.Attribute{Key: HighlightAttr})
				marked++
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)
	return marked
}

func matches(n *html.Node, tokens []string) bool {
	text := strings.ToLower(textContent(n))
	id := strings.ToLower(attr(n, "id"))
	class := strings.ToLower(attr(n, "class"))
	tag := strings.ToLower(n.Data)
	for _, t := range tokens {
		if strings.Contains(text, t) || strings.Contains(id, t) ||
			strings.Contains(class, t) || strings.Contains(tag, t) {
			return true
		}
	}
	return false
}

// skipped reports elements that never render visibly.
func skipped(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Template, atom.Noscript:
		return true
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && skipped(n):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
