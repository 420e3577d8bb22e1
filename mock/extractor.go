package mock

import "github.com/fwojciec/sitewatch"

var _ sitewatch.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of sitewatch.Extractor.
type Extractor struct {
	ExtractFn func(html, selector string) (string, error)
}

func (e *Extractor) Extract(html, selector string) (string, error) {
	return e.ExtractFn(html, selector)
}
