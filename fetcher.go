package sitewatch

import "context"

// Fetcher retrieves raw HTML from URLs.
type Fetcher interface {
	// Fetch retrieves the page at url and returns its body.
	// The context controls timeout and cancellation.
	// Transport failures and non-success statuses return ENETWORK.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases any resources held by the fetcher.
	Close() error
}
