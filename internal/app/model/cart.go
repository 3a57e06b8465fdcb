package model

import (
	"time"
)

// CartSchemaVersion is the version written with every cart record.
// Records carrying an older version are dropped on read.
const CartSchemaVersion = 2

// LineItem is one product (or product variant) in a shopper's cart.
type LineItem struct {
	UUID      string    `json:"uuid"`          // 상품 또는 옵션 식별자 (장바구니 키)
	Name      string    `json:"name"`          // 표시 이름
	SKU       string    `json:"sku,omitempty"` // 재고 관리 코드
	Quantity  int       `json:"quantity"`      // 수량 (1 이상, 재고 이하)
	Price     float64   `json:"price"`         // 단가
	Image     string    `json:"image"`         // 이미지 URL
	Stock     int       `json:"stock"`         // 담을 당시 재고
	DateAdded time.Time `json:"dateAdded"`     // 마지막으로 담은 시각
}

// LineItemInput carries the caller-supplied fields of a LineItem.
// UUID and DateAdded are always assigned by the store.
type LineItemInput struct {
	Name     string  `json:"name"`
	SKU      string  `json:"sku,omitempty"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Stock    int     `json:"stock"`
}

// Subtotal returns price × quantity for the line.
func (i LineItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Cart maps a product identifier to its line item.
type Cart map[string]LineItem

// TotalPrice is the sum of price × quantity over all entries.
func (c Cart) TotalPrice() float64 {
	var total float64
	for _, item := range c {
		total += item.Subtotal()
	}
	return total
}

// TotalItems counts distinct products, not units.
func (c Cart) TotalItems() int {
	return len(c)
}

// Clone returns an independent copy of the cart.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// CartRecord is the persisted envelope: one row per shopper profile holding the
// whole cart mapping as JSON.
type CartRecord struct {
	ProfileID     string    `gorm:"primaryKey;size:64" json:"profile_id"` // 쇼퍼 프로필 ID
	SchemaVersion int       `gorm:"not null;default:2" json:"schema_version"`
	Data          string    `gorm:"type:text;not null" json:"-"` // Cart JSON
	UpdatedAt     time.Time `json:"updated_at"`
}

func (CartRecord) TableName() string {
	return "cart_records"
}

// CartState is the container view exposed to HTTP clients.
type CartState struct {
	Items      Cart    `json:"items"`
	IsLoading  bool    `json:"is_loading"`
	Error      string  `json:"error,omitempty"`
	TotalPrice float64 `json:"total_price"`
	TotalItems int     `json:"total_items"`
}
