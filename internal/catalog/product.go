package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrNoResults reports a syntactically valid product response without the
// "results" object. No record can be built from it.
var ErrNoResults = errors.New("product response has no results object")

// DescriptionKey is the synthetic metadata key holding the cleaned product
// description. The underscore prefix keeps it from colliding with natural
// block titles.
const DescriptionKey = "__description"

// unknownValue fills metadata entries whose block carries neither values nor
// a min field.
const unknownValue = "Неизвестные данные"

// storefrontProductURL is the template for reconstructed product page URLs.
const storefrontProductURL = "https://alkoteka.com/product/%s/%s"

// Tag filters recognized as marketing labels, and the volume filter used for
// title construction.
const (
	filterVolume     = "obem"
	filterExtra      = "dopolnitelno"
	filterDiscounted = "tovary-so-skidkoi"
)

// Normalizer turns raw product detail payloads into ProductRecords. It is
// stateless apart from the injected clock and safe for concurrent use.
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer builds a Normalizer. A nil clock defaults to time.Now.
func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// Normalize builds the canonical record for one product detail response.
// slug is the correlation context from the originating listing request and
// responseURL the URL the detail payload was fetched from. Missing upstream
// fields degrade to documented defaults; only an unusable body returns an
// error.
func (n *Normalizer) Normalize(body []byte, slug, responseURL string) (ProductRecord, error) {
	var envelope productEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ProductRecord{}, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	product := envelope.Results
	if product == nil {
		return ProductRecord{}, ErrNoResults
	}

	original, current := derivePrices(product)
	volume := deriveVolume(product.FilterLabels)

	var categorySlug, categoryName string
	if product.Category != nil {
		categorySlug = product.Category.Slug
		categoryName = product.Category.Name
	}

	return ProductRecord{
		Timestamp:     n.now().Unix(),
		RPC:           product.VendorCode,
		URL:           productPageURL(categorySlug, slug, responseURL),
		Title:         buildTitle(product.Name, volume),
		MarketingTags: marketingTags(product.FilterLabels),
		Brand:         deriveBrand(product.DescriptionBlocks),
		Section:       []string{categoryName},
		PriceData: PriceData{
			Original: original,
			Current:  current,
			SaleTag:  saleTag(original, current),
		},
		Stock: Stock{
			InStock: product.Available,
			Count:   product.QuantityTotal,
		},
		Assets: Assets{
			MainImage: product.ImageURL,
			SetImages: []string{},
			View360:   []string{},
			Video:     []string{},
		},
		Metadata: flattenMetadata(product),
		Variants: len(product.FilterLabels),
	}, nil
}

// derivePrices returns (original, current). The first price_details entry is
// authoritative when present; otherwise both fall back to the flat price
// field. Absent values default to zero.
func derivePrices(product *productPayload) (float64, float64) {
	if len(product.PriceDetails) == 0 {
		price := floatOrZero(product.Price)
		return price, price
	}
	detail := product.PriceDetails[0]
	original := floatOrZero(detail.PrevPrice)
	current := original
	if detail.Price != nil {
		current = *detail.Price
	}
	return original, current
}

// deriveBrand scans all description blocks; the last "brend" block wins.
func deriveBrand(blocks []descriptionBlock) string {
	brand := ""
	for _, block := range blocks {
		if block.Code == "brend" && len(block.Values) > 0 {
			brand = block.Values[0].Name
		}
	}
	return brand
}

// deriveVolume scans all filter labels; the last volume label wins.
func deriveVolume(labels []filterLabel) string {
	volume := ""
	for _, label := range labels {
		if label.Filter == filterVolume {
			volume = label.Title
		}
	}
	return volume
}

// flattenMetadata maps titled description blocks to a single value each,
// later blocks overwriting earlier ones on repeated titles, plus the cleaned
// description under DescriptionKey.
func flattenMetadata(product *productPayload) map[string]any {
	metadata := map[string]any{
		DescriptionKey: deriveDescription(product.TextBlocks),
	}
	for _, block := range product.DescriptionBlocks {
		if block.Title == "" {
			continue
		}
		switch {
		case len(block.Values) > 0:
			metadata[block.Title] = block.Values[0].Name
		case truthy(block.Min):
			metadata[block.Title] = block.Min
		default:
			metadata[block.Title] = unknownValue
		}
	}
	return metadata
}

// deriveDescription extracts and cleans the "Описание" text block; the last
// match wins.
func deriveDescription(blocks []textBlock) string {
	description := ""
	for _, block := range blocks {
		if block.Title == "Описание" {
			description = CleanText(block.Content)
		}
	}
	return description
}

// marketingTags collects titles of promo filter labels in source order,
// duplicates preserved.
func marketingTags(labels []filterLabel) []string {
	tags := []string{}
	for _, label := range labels {
		if label.Filter == filterExtra || label.Filter == filterDiscounted {
			tags = append(tags, label.Title)
		}
	}
	return tags
}

// saleTag formats the discount percentage when both prices are set and
// differ. The non-zero check doubles as the division guard.
func saleTag(original, current float64) string {
	if original == 0 || current == 0 || original == current {
		return ""
	}
	pct := math.Round((original - current) / original * 100)
	return fmt.Sprintf("Скидка %d%%", int(pct))
}

// productPageURL reconstructs the storefront URL when both slugs are known,
// falling back to the raw API URL.
func productPageURL(categorySlug, slug, responseURL string) string {
	if slug != "" && categorySlug != "" {
		return fmt.Sprintf(storefrontProductURL, categorySlug, slug)
	}
	return responseURL
}

func buildTitle(name, volume string) string {
	if volume == "" {
		return name
	}
	return fmt.Sprintf("%s, %s", name, volume)
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// truthy mirrors the loose presence check applied to the polymorphic min
// field: nil, empty string, zero and false all count as absent.
func truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case string:
		return value != ""
	case float64:
		return value != 0
	case bool:
		return value
	default:
		return true
	}
}
