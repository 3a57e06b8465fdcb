package repository

import (
	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/kikichoice/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FallbackProductRepository interface {
	FindAll(limit int) ([]model.FallbackProduct, error)
	// UpsertMany inserts products, replacing rows with the same UUID.
	UpsertMany(products []model.FallbackProduct) error
}

type fallbackProductRepository struct {
	db *gorm.DB
}

func NewFallbackProductRepository(db *gorm.DB) FallbackProductRepository {
	return &fallbackProductRepository{db: db}
}

func (r *fallbackProductRepository) FindAll(limit int) ([]model.FallbackProduct, error) {
	logger.Debug("Finding fallback products in database", map[string]interface{}{
		"limit": limit,
	})

	query := r.db.Order("sort_order ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var products []model.FallbackProduct
	if err := query.Find(&products).Error; err != nil {
		logger.Error("Failed to find fallback products in database", err, nil)
		return nil, err
	}
	return products, nil
}

func (r *fallbackProductRepository) UpsertMany(products []model.FallbackProduct) error {
	if len(products) == 0 {
		return nil
	}

	logger.Debug("Upserting fallback products in database", map[string]interface{}{
		"count": len(products),
	})

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sku", "name", "slug", "price", "original_price", "stock_count",
			"short_desc", "images", "sort_order", "updated_at",
		}),
	}).Create(&products).Error
	if err != nil {
		logger.Error("Failed to upsert fallback products in database", err, nil)
		return err
	}
	return nil
}
