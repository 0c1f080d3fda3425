// Package catalog implements the alkoteka catalog domain logic: building
// first-page listing URLs from category seeds, walking paginated listing
// responses, and normalizing product detail payloads into flat records.
//
// Everything in this package is pure computation over a single response
// body. HTTP dispatch, queueing and output belong to internal/crawler.
package catalog
