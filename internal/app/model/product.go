package model

import (
	"time"

	"github.com/lib/pq"
)

// Product is a catalog entry as returned by the external product API.
type Product struct {
	UUID          string   `json:"uuid"`
	SKU           string   `json:"sku"`
	Name          string   `json:"name"`
	Slug          string   `json:"slug"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	Image         string   `json:"image"`
	StockCount    int      `json:"stock_count"`
	InStock       bool     `json:"in_stock"`
	Description   string   `json:"description,omitempty"`
	Category      string   `json:"category,omitempty"`
	HasVariant    bool     `json:"has_variant"`
	VariantCount  int      `json:"variant_count"`
}

// ProductVariant is one purchasable variant of a product.
type ProductVariant struct {
	UUID       string  `json:"uuid"`
	Name       string  `json:"name"`
	SKU        string  `json:"sku"`
	StockCount int     `json:"stock_count"`
	ImageURL   string  `json:"image_url"`
	Price      float64 `json:"price"`
}

// ProductDetail is the single-product view.
type ProductDetail struct {
	UUID             string            `json:"uuid"`
	SKU              string            `json:"sku"`
	Name             string            `json:"name"`
	Slug             string            `json:"slug"`
	Price            float64           `json:"price"`
	OriginalPrice    *float64          `json:"original_price,omitempty"`
	ShortDescription string            `json:"short_description"`
	FullDescription  string            `json:"full_description"`
	StockCount       int               `json:"stock_count"`
	InStock          bool              `json:"in_stock"`
	Images           []string          `json:"images"`
	PrimaryImage     string            `json:"primary_image"`
	Specifications   map[string]string `json:"specifications"`
	Variants         []ProductVariant  `json:"variants"`
}

// FallbackProduct is a locally stored product shown on the homepage when the
// hot-selling endpoint is unavailable. Rows are imported by cmd/seed.
type FallbackProduct struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	UUID          string         `gorm:"size:64;uniqueIndex;not null" json:"uuid"`
	SKU           string         `gorm:"size:64" json:"sku"`
	Name          string         `gorm:"not null" json:"name"`
	Slug          string         `gorm:"size:255" json:"slug"`
	Price         float64        `gorm:"not null" json:"price"`
	OriginalPrice *float64       `json:"original_price,omitempty"`
	StockCount    int            `gorm:"default:0" json:"stock_count"`
	ShortDesc     string         `gorm:"type:text" json:"short_desc"`
	Images        pq.StringArray `gorm:"type:text" json:"images"`          // 배열 리터럴 형식으로 저장
	SortOrder     int            `gorm:"default:0;index" json:"sort_order"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (FallbackProduct) TableName() string {
	return "fallback_products"
}

// ToProduct converts the stored row to the catalog shape.
func (p FallbackProduct) ToProduct() Product {
	image := ""
	if len(p.Images) > 0 {
		image = p.Images[0]
	}
	return Product{
		UUID:          p.UUID,
		SKU:           p.SKU,
		Name:          p.Name,
		Slug:          p.Slug,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Image:         image,
		StockCount:    p.StockCount,
		InStock:       p.StockCount > 0,
		Description:   p.ShortDesc,
	}
}
