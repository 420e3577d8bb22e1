package sitewatch

// Extractor extracts the visible text of a page.
type Extractor interface {
	// Extract parses html and returns the text of every element matching
	// the CSS selector, or of the page body when selector is empty.
	// Text fragments within an element are joined with a space; elements
	// are joined with a newline in document order. No match returns an
	// empty string. An invalid selector returns EPARSE.
	Extract(html, selector string) (string, error)
}
