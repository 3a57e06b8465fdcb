package service

import (
	"errors"
	"strings"

	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/kikichoice/storefront-backend/internal/app/repository"
	"github.com/kikichoice/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrWishlistItemNotFound = errors.New("wishlist request not found")
)

// WishlistInput is a new product request.
type WishlistInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	RequestedBy string `json:"requested_by" binding:"required"`
	ImageURL    string `json:"image_url"`
}

type WishlistService interface {
	List(profileID string) ([]model.WishlistRequest, error)
	Add(profileID string, input WishlistInput) (*model.WishlistRequest, error)
	Remove(profileID string, id uint) error
}

type wishlistService struct {
	wishlistRepo repository.WishlistRepository
}

func NewWishlistService(wishlistRepo repository.WishlistRepository) WishlistService {
	return &wishlistService{wishlistRepo: wishlistRepo}
}

func (s *wishlistService) List(profileID string) ([]model.WishlistRequest, error) {
	items, err := s.wishlistRepo.FindByProfileID(profileID)
	if err != nil {
		logger.Error("Failed to fetch wishlist", err, map[string]interface{}{
			"profile_id": profileID,
		})
		return nil, err
	}
	return items, nil
}

func (s *wishlistService) Add(profileID string, input WishlistInput) (*model.WishlistRequest, error) {
	name := strings.TrimSpace(input.Name)
	requestedBy := strings.TrimSpace(input.RequestedBy)
	if name == "" || requestedBy == "" {
		fields := make(map[string]string)
		if name == "" {
			fields["name"] = "required"
		}
		if requestedBy == "" {
			fields["requested_by"] = "required"
		}
		return nil, &ValidationError{Fields: fields}
	}

	req := &model.WishlistRequest{
		ProfileID:   profileID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		RequestedBy: requestedBy,
		ImageURL:    strings.TrimSpace(input.ImageURL),
	}
	if err := s.wishlistRepo.Create(req); err != nil {
		logger.Error("Failed to add wishlist request", err, map[string]interface{}{
			"profile_id": profileID,
		})
		return nil, err
	}

	logger.Info("Wishlist request added", map[string]interface{}{
		"profile_id": profileID,
		"request_id": req.ID,
		"name":       req.Name,
	})
	return req, nil
}

func (s *wishlistService) Remove(profileID string, id uint) error {
	if err := s.wishlistRepo.Delete(profileID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWishlistItemNotFound
		}
		logger.Error("Failed to remove wishlist request", err, map[string]interface{}{
			"profile_id": profileID,
			"request_id": id,
		})
		return err
	}

	logger.Info("Wishlist request removed", map[string]interface{}{
		"profile_id": profileID,
		"request_id": id,
	})
	return nil
}
