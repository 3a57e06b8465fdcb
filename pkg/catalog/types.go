package catalog

// Product is a list entry from /v1/products and /v1/products/hot-selling.
type Product struct {
	UUID            string   `json:"uuid"`
	SKU             string   `json:"sku"`
	Name            string   `json:"name"`
	Slug            string   `json:"slug"`
	Price           float64  `json:"price"`
	OriginalPrice   *float64 `json:"original_price"`
	Category        *string  `json:"category"`
	StockCount      int      `json:"stock_count"`
	ShortDesc       string   `json:"short_desc"`
	FullDesc        *string  `json:"full_desc"`
	PrimaryImageURL string   `json:"primary_image_url"`
	HasVariant      bool     `json:"has_variant"`
	VariantCount    int      `json:"variant_count"`
	ReadyForSale    bool     `json:"ready_for_sale"`
	ReservedCount   int      `json:"reserved_count"`
}

type Variant struct {
	UUID       string  `json:"uuid"`
	Name       string  `json:"name"`
	SKU        string  `json:"sku"`
	StockCount int     `json:"stock_count"`
	ImageURL   string  `json:"image_url"`
	Price      float64 `json:"price"`
}

type Image struct {
	URL       string `json:"url"`
	IsPrimary bool   `json:"is_primary"`
}

type Spec struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ProductDetail is the payload of /v1/products/{uuid}.
type ProductDetail struct {
	UUID          string    `json:"uuid"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Price         float64   `json:"price"`
	OriginalPrice *float64  `json:"original_price"`
	ShortDesc     string    `json:"short_desc"`
	FullDesc      string    `json:"full_desc"`
	StockCount    int       `json:"stock_count"`
	Images        []Image   `json:"images"`
	Specs         []Spec    `json:"specs"`
	Variants      []Variant `json:"variants"`
}

type productsEnvelope struct {
	Data struct {
		Products []Product `json:"products"`
	} `json:"data"`
}

type detailEnvelope struct {
	Data ProductDetail `json:"data"`
}

type variantsEnvelope struct {
	Data struct {
		Variants []Variant `json:"variants"`
	} `json:"data"`
}
