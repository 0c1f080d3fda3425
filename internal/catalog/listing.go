package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed reports a response body that is not the expected JSON shape.
// Callers log it and drop the response; it never aborts sibling work.
var ErrMalformed = errors.New("malformed response body")

// ProductRef points at one product detail endpoint discovered on a listing
// page. Slug travels with the request so the normalizer can rebuild the
// storefront URL.
type ProductRef struct {
	Slug string
	URL  string
}

// ListingResult is the outcome of walking one listing page.
type ListingResult struct {
	// Products are the detail fetches to schedule, in listing order.
	Products []ProductRef
	// NextPageURL is non-empty while the category has more pages.
	NextPageURL string
	// Page is the page number reported by the response meta.
	Page int
	// Empty marks a category with no results, a legitimate terminal state.
	Empty bool
}

// ParseListing walks one category listing response. pageURL must be the URL
// the page was fetched from; pagination works by rewriting its page number
// in place.
func ParseListing(body []byte, pageURL string, src SourceConfig) (ListingResult, error) {
	var page listingPage
	if err := json.Unmarshal(body, &page); err != nil {
		return ListingResult{}, fmt.Errorf("%w: %s", ErrMalformed, err)
	}

	if len(page.Results) == 0 {
		return ListingResult{Empty: true}, nil
	}

	result := ListingResult{Products: make([]ProductRef, 0, len(page.Results))}
	for _, entry := range page.Results {
		if entry.Slug == "" {
			continue
		}
		result.Products = append(result.Products, ProductRef{
			Slug: entry.Slug,
			URL:  src.ProductURL(entry.Slug),
		})
	}

	if page.Meta != nil {
		result.Page = page.Meta.CurrentPage
		if page.Meta.HasMorePages {
			result.NextPageURL = nextPageURL(pageURL, page.Meta.CurrentPage)
		}
	}
	return result, nil
}

// nextPageURL rewrites "&page=current" to "&page=current+1" in the fetch
// URL. If the marker is absent (meta out of sync with the URL) it returns
// empty rather than re-fetching the same page forever.
func nextPageURL(pageURL string, current int) string {
	if current < 1 {
		return ""
	}
	next := strings.Replace(
		pageURL,
		fmt.Sprintf("&page=%d", current),
		fmt.Sprintf("&page=%d", current+1),
		1,
	)
	if next == pageURL {
		return ""
	}
	return next
}
