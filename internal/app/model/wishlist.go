package model

import (
	"time"

	"gorm.io/gorm"
)

// WishlistRequest is a shopper's request for a product the shop does not carry yet.
type WishlistRequest struct {
	ID          uint           `gorm:"primaryKey" json:"id"`                    // 요청 ID
	ProfileID   string         `gorm:"size:64;not null;index" json:"-"`         // 쇼퍼 프로필 ID
	Name        string         `gorm:"not null" json:"name"`                    // 상품명
	Description string         `gorm:"type:text" json:"description,omitempty"`  // 설명
	RequestedBy string         `gorm:"size:100;not null" json:"requested_by"`   // 요청자
	ImageURL    string         `json:"image_url,omitempty"`                     // 참고 이미지
	CreatedAt   time.Time      `json:"created_at"`                              // 생성 시각
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                          // 삭제 시각(소프트 삭제)
}

func (WishlistRequest) TableName() string {
	return "wishlist_requests"
}
