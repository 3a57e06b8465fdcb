package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kikichoice/storefront-backend/internal/app/service"
	apperrors "github.com/kikichoice/storefront-backend/internal/errors"
	"github.com/kikichoice/storefront-backend/internal/middleware"
)

type WishlistController struct {
	wishlistService service.WishlistService
}

func NewWishlistController(wishlistService service.WishlistService) *WishlistController {
	return &WishlistController{
		wishlistService: wishlistService,
	}
}

// GetWishlist returns the profile's product requests
// GET /api/v1/wishlist
func (ctrl *WishlistController) GetWishlist(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	profileID := middleware.GetProfileID(c)

	items, err := ctrl.wishlistService.List(profileID)
	if err != nil {
		log.Error("Failed to fetch wishlist", err, map[string]interface{}{
			"profile_id": profileID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "fetch wishlist")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wishlist_items": items,
		"count":          len(items),
	})
}

// AddToWishlist records a request for a product the shop does not carry
// POST /api/v1/wishlist
func (ctrl *WishlistController) AddToWishlist(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	profileID := middleware.GetProfileID(c)

	var req service.WishlistInput
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to wishlist request", map[string]interface{}{
			"profile_id": profileID,
			"error":      err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Product name and your name are required")
		return
	}

	item, err := ctrl.wishlistService.Add(profileID, req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			apperrors.RespondWithValidationError(c, verr.Fields)
			return
		}
		log.Error("Failed to add to wishlist", err, map[string]interface{}{
			"profile_id": profileID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "add wishlist request")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":       "Request added to wishlist",
		"wishlist_item": item,
	})
}

// RemoveFromWishlist deletes one of the profile's requests
// DELETE /api/v1/wishlist/:id
func (ctrl *WishlistController) RemoveFromWishlist(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	profileID := middleware.GetProfileID(c)

	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		log.Warn("Invalid wishlist ID format", map[string]interface{}{
			"wishlist_id": idStr,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid wishlist ID")
		return
	}

	if err := ctrl.wishlistService.Remove(profileID, uint(id)); err != nil {
		if errors.Is(err, service.ErrWishlistItemNotFound) {
			apperrors.NotFound(c, apperrors.WishlistNotFound, "Wishlist request not found")
			return
		}
		log.Error("Failed to remove from wishlist", err, map[string]interface{}{
			"profile_id":  profileID,
			"wishlist_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "remove wishlist request")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Request removed from wishlist",
	})
}
