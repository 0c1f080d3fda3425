// Package crawler runs the crawl pipeline: it owns the fetch queue, the
// worker pool, and the dispatch of responses into the catalog walkers.
package crawler

import (
	"net/http"
	"time"
)

// RequestKind selects the handler for a fetched response.
type RequestKind string

// Request kinds processed by the engine.
const (
	KindListing RequestKind = "listing"
	KindProduct RequestKind = "product"
)

// FetchRequest captures everything needed to fetch one URL and route its
// response.
type FetchRequest struct {
	Kind RequestKind
	URL  string
	// Slug is the product correlation context, set on product requests.
	Slug string
	// Category is the seed fragment the request descends from, for logging.
	Category string
	// Page is the listing page number being fetched.
	Page int
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}
