package repository

import (
	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/kikichoice/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type WishlistRepository interface {
	Create(req *model.WishlistRequest) error
	FindByProfileID(profileID string) ([]model.WishlistRequest, error)
	// Delete removes the request only if it belongs to profileID.
	Delete(profileID string, id uint) error
}

type wishlistRepository struct {
	db *gorm.DB
}

func NewWishlistRepository(db *gorm.DB) WishlistRepository {
	return &wishlistRepository{db: db}
}

func (r *wishlistRepository) Create(req *model.WishlistRequest) error {
	logger.Debug("Creating wishlist request in database", map[string]interface{}{
		"profile_id": req.ProfileID,
		"name":       req.Name,
	})

	if err := r.db.Create(req).Error; err != nil {
		logger.Error("Failed to create wishlist request in database", err, map[string]interface{}{
			"profile_id": req.ProfileID,
		})
		return err
	}

	logger.Debug("Wishlist request created in database", map[string]interface{}{
		"wishlist_request_id": req.ID,
	})
	return nil
}

func (r *wishlistRepository) FindByProfileID(profileID string) ([]model.WishlistRequest, error) {
	logger.Debug("Finding wishlist requests by profile in database", map[string]interface{}{
		"profile_id": profileID,
	})

	var requests []model.WishlistRequest
	err := r.db.Where("profile_id = ?", profileID).
		Order("created_at DESC, id DESC").
		Find(&requests).Error
	if err != nil {
		logger.Error("Failed to find wishlist requests in database", err, map[string]interface{}{
			"profile_id": profileID,
		})
		return nil, err
	}
	return requests, nil
}

func (r *wishlistRepository) Delete(profileID string, id uint) error {
	logger.Debug("Deleting wishlist request from database", map[string]interface{}{
		"profile_id": profileID,
		"id":         id,
	})

	result := r.db.Where("profile_id = ? AND id = ?", profileID, id).Delete(&model.WishlistRequest{})
	if result.Error != nil {
		logger.Error("Failed to delete wishlist request from database", result.Error, map[string]interface{}{
			"id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
