package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// catalogPrefix is stripped from seed lines so the file may contain either
// bare category slugs or full storefront URLs.
const catalogPrefix = "https://alkoteka.com/catalog/"

// DefaultSeeds returns the fallback category list used when no seed file is
// available.
func DefaultSeeds() []string {
	return []string{"vino", "krepkiy-alkogol", "slaboalkogolnye-napitki-2"}
}

// LoadSeedsFile reads category fragments from a newline-delimited file. The
// caller decides the fallback policy when the file is missing.
func LoadSeedsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seeds file: %w", err)
	}
	defer f.Close()
	seeds, err := ParseSeeds(f)
	if err != nil {
		return nil, fmt.Errorf("read seeds file %s: %w", path, err)
	}
	return seeds, nil
}

// ParseSeeds extracts category fragments from newline-delimited input,
// stripping the storefront catalog prefix and surrounding whitespace.
// Blank lines are skipped.
func ParseSeeds(r io.Reader) ([]string, error) {
	var seeds []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.Replace(scanner.Text(), catalogPrefix, "", 1))
		if line == "" {
			continue
		}
		seeds = append(seeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan seeds: %w", err)
	}
	return seeds, nil
}

// ListingURL builds the first-page listing URL for a category fragment.
func (c SourceConfig) ListingURL(fragment string) string {
	return c.BaseURL + c.CityUUID + "&page=1" + c.CategoryConf + fragment
}

// ProductURL builds the detail endpoint URL for a product slug.
func (c SourceConfig) ProductURL(slug string) string {
	return c.BaseURL + "/" + slug + c.CityUUID
}

// BuildListingURLs maps category fragments to first-page listing URLs,
// preserving order.
func BuildListingURLs(c SourceConfig, fragments []string) []string {
	urls := make([]string, 0, len(fragments))
	for _, frag := range fragments {
		urls = append(urls, c.ListingURL(frag))
	}
	return urls
}
