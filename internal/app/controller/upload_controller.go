package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/kikichoice/storefront-backend/internal/errors"
	"github.com/kikichoice/storefront-backend/internal/middleware"
	"github.com/kikichoice/storefront-backend/internal/storage"
)

// ImageUploader issues presigned upload URLs for images.
type ImageUploader interface {
	PresignImageUpload(ctx context.Context, filename, contentType string) (*storage.PresignedURLResponse, error)
}

type UploadController struct {
	uploader ImageUploader
}

func NewUploadController(uploader ImageUploader) *UploadController {
	return &UploadController{
		uploader: uploader,
	}
}

type GeneratePresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// GeneratePresignedURL generates a presigned URL for a wishlist reference image
// POST /api/v1/upload/presigned-url
func (ctrl *UploadController) GeneratePresignedURL(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req GeneratePresignedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid presigned URL request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	response, err := ctrl.uploader.PresignImageUpload(c.Request.Context(), req.Filename, req.ContentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedContentType) {
			log.Warn("Invalid content type", map[string]interface{}{
				"content_type": req.ContentType,
			})
			apperrors.BadRequest(c, apperrors.FileInvalidType, "Only image files are allowed (JPEG, PNG, GIF, WEBP)")
			return
		}
		log.Error("Failed to generate presigned URL", err, map[string]interface{}{
			"filename":     req.Filename,
			"content_type": req.ContentType,
		})
		apperrors.InternalError(c, "Failed to prepare upload")
		return
	}

	log.Info("Presigned URL generated successfully", map[string]interface{}{
		"content_type": req.ContentType,
		"key":          response.Key,
	})

	c.JSON(http.StatusOK, response)
}
