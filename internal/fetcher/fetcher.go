// Package fetcher retrieves feed, archive, and document bytes over HTTP with
// bounded exponential-backoff retry.
package fetcher

import "context"

// Fetcher downloads a single URL.
type Fetcher interface {
	// Fetch returns the full response body for url.
	Fetch(ctx context.Context, url string) ([]byte, error)
}
