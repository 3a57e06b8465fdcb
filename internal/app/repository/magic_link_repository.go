package repository

import (
	"time"

	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/kikichoice/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type MagicLinkRepository interface {
	Create(link *model.MagicLink) error
	FindByToken(token string) (*model.MagicLink, error)
	// MarkAsUsed flips the used flag once. It returns false if the link was already used.
	MarkAsUsed(id uint) (bool, error)
	DeleteExpired(now time.Time) (int64, error)
}

type magicLinkRepository struct {
	db *gorm.DB
}

func NewMagicLinkRepository(db *gorm.DB) MagicLinkRepository {
	return &magicLinkRepository{db: db}
}

func (r *magicLinkRepository) Create(link *model.MagicLink) error {
	logger.Debug("Creating magic link in database", map[string]interface{}{
		"email": link.Email,
	})

	if err := r.db.Create(link).Error; err != nil {
		logger.Error("Failed to create magic link in database", err, map[string]interface{}{
			"email": link.Email,
		})
		return err
	}
	return nil
}

func (r *magicLinkRepository) FindByToken(token string) (*model.MagicLink, error) {
	logger.Debug("Finding magic link by token in database", nil)

	var link model.MagicLink
	if err := r.db.Where("token = ?", token).First(&link).Error; err != nil {
		logger.Debug("Magic link not found by token in database", nil)
		return nil, err
	}
	return &link, nil
}

func (r *magicLinkRepository) MarkAsUsed(id uint) (bool, error) {
	logger.Debug("Marking magic link as used in database", map[string]interface{}{
		"id": id,
	})

	result := r.db.Model(&model.MagicLink{}).
		Where("id = ? AND used = ?", id, false).
		Update("used", true)
	if result.Error != nil {
		logger.Error("Failed to mark magic link as used in database", result.Error, map[string]interface{}{
			"id": id,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *magicLinkRepository) DeleteExpired(now time.Time) (int64, error) {
	logger.Debug("Deleting expired magic links from database")

	result := r.db.Where("expires_at < ?", now).Delete(&model.MagicLink{})
	if result.Error != nil {
		logger.Error("Failed to delete expired magic links from database", result.Error, nil)
		return 0, result.Error
	}

	logger.Debug("Expired magic links deleted from database", map[string]interface{}{
		"count": result.RowsAffected,
	})
	return result.RowsAffected, nil
}
