package catalog

// SourceConfig describes the upstream API endpoints. CityUUID is the full
// query prefix ("?city_uuid=..."), CategoryConf the fragment inserted before
// the category slug in listing URLs ("&root_category_slug=").
type SourceConfig struct {
	BaseURL      string
	CityUUID     string
	CategoryConf string
}

// listingPage mirrors one page of a category listing response. Every field
// is optional on the wire; absent values decode to zero values.
type listingPage struct {
	Results []listingEntry `json:"results"`
	Meta    *listingMeta   `json:"meta"`
}

type listingEntry struct {
	Slug string `json:"slug"`
}

type listingMeta struct {
	CurrentPage  int  `json:"current_page"`
	HasMorePages bool `json:"has_more_pages"`
}

// productEnvelope wraps the product detail payload; the interesting data
// lives under "results".
type productEnvelope struct {
	Results *productPayload `json:"results"`
}

// productPayload mirrors the product detail object. All fields are optional;
// the normalizer substitutes documented defaults for anything missing.
type productPayload struct {
	Name              string             `json:"name"`
	VendorCode        any                `json:"vendor_code"`
	Available         bool               `json:"available"`
	QuantityTotal     int                `json:"quantity_total"`
	ImageURL          *string            `json:"image_url"`
	Price             *float64           `json:"price"`
	PriceDetails      []priceDetail      `json:"price_details"`
	DescriptionBlocks []descriptionBlock `json:"description_blocks"`
	TextBlocks        []textBlock        `json:"text_blocks"`
	FilterLabels      []filterLabel      `json:"filter_labels"`
	Category          *productCategory   `json:"category"`
}

type priceDetail struct {
	PrevPrice *float64 `json:"prev_price"`
	Price     *float64 `json:"price"`
}

type descriptionBlock struct {
	Code   string       `json:"code"`
	Title  string       `json:"title"`
	Values []blockValue `json:"values"`
	// Min is a string or a number upstream depending on the block kind.
	Min any `json:"min"`
}

type blockValue struct {
	Name string `json:"name"`
}

type textBlock struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type filterLabel struct {
	Filter string `json:"filter"`
	Title  string `json:"title"`
}

type productCategory struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// PriceData carries the derived prices for a record.
type PriceData struct {
	Original float64 `json:"original"`
	Current  float64 `json:"current"`
	SaleTag  string  `json:"sale_tag"`
}

// Stock reports availability as exposed by the upstream API.
type Stock struct {
	InStock bool `json:"in_stock"`
	Count   int  `json:"count"`
}

// Assets holds image and media references. Only the main image is populated
// by the upstream API today; the remaining slots are kept for sink schema
// stability.
type Assets struct {
	MainImage *string  `json:"main_image"`
	SetImages []string `json:"set_images"`
	View360   []string `json:"view360"`
	Video     []string `json:"video"`
}

// ProductRecord is the canonical output entity, one per product. Field names
// match the downstream contract exactly and must not change.
type ProductRecord struct {
	Timestamp     int64          `json:"timestamp"`
	RPC           any            `json:"RPC"`
	URL           string         `json:"url"`
	Title         string         `json:"title"`
	MarketingTags []string       `json:"marketing_tags"`
	Brand         string         `json:"brand"`
	Section       []string       `json:"section"`
	PriceData     PriceData      `json:"price_data"`
	Stock         Stock          `json:"stock"`
	Assets        Assets         `json:"assets"`
	Metadata      map[string]any `json:"metadata"`
	Variants      int            `json:"variants"`
}
