// Package goquery implements sitewatch.Extractor on top of goquery.
package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/fwojciec/sitewatch"
	"golang.org/x/net/html"
)

// DefaultSelector scopes extraction when a site has no selector.
const DefaultSelector = "body"

// Ensure Extractor implements sitewatch.Extractor at compile time.
var _ sitewatch.Extractor = (*Extractor)(nil)

// Extractor extracts visible text from HTML using CSS selectors.
// Malformed markup is parsed best-effort, the way browsers do.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the text of every element matching selector, joined with
// newlines in document order. Elements without text are skipped.
func (e *Extractor) Extract(rawHTML, selector string) (string, error) {
	if strings.TrimSpace(selector) == "" {
		selector = DefaultSelector
	}

	// goquery silently matches nothing for invalid selectors, so compile
	// up front to report them.
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return "", sitewatch.Errorf(sitewatch.EPARSE, "invalid selector %q: %v", selector, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", sitewatch.Errorf(sitewatch.EPARSE, "failed to parse HTML: %v", err)
	}

	var parts []string
	for _, n := range doc.FindMatcher(matcher).Nodes {
		if text := nodeText(n); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n"), nil
}

// nodeText collects the trimmed text nodes below n in document order and
// joins them with a single space.
func nodeText(n *html.Node) string {
	var parts []string

	stack := []*html.Node{n}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.Type == html.TextNode {
			if text := strings.TrimSpace(node.Data); text != "" {
				parts = append(parts, text)
			}
			continue
		}

		// Push in reverse so the first child is visited first.
		for c := node.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}

	return strings.Join(parts, " ")
}
