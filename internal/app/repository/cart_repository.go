package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/kikichoice/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidLineItem = errors.New("invalid line item")
	ErrExceedsStock    = errors.New("quantity exceeds available stock")
)

// legacyCartTable is the per-item table used before carts were stored as a
// single record. It is dropped on Initialize.
const legacyCartTable = "cart_items"

// StorageError reports that the cart datastore could not be read or written.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("cart storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err (or anything it wraps) is a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// CartRepository persists one cart mapping per shopper profile.
type CartRepository interface {
	Initialize(ctx context.Context) error
	GetAll(ctx context.Context, profileID string) (model.Cart, error)
	Upsert(ctx context.Context, profileID, productID string, item model.LineItem) error
	SetQuantity(ctx context.Context, profileID, productID string, quantity int) error
	Remove(ctx context.Context, profileID, productID string) error
	Clear(ctx context.Context, profileID string) error
}

// readiness lets the first caller run setup while concurrent callers wait for it.
// A failed setup leaves the guard open so the next caller retries.
type readiness struct {
	mu       sync.Mutex
	ready    bool
	attempts int
}

func (r *readiness) ensure(setup func(attempt int) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return nil
	}
	r.attempts++
	if err := setup(r.attempts); err != nil {
		return err
	}
	r.ready = true
	return nil
}

// cartMutation changes cart in place. It returns false when nothing needs writing.
type cartMutation func(cart model.Cart) (bool, error)

func upsertMutation(productID string, item model.LineItem, now time.Time) cartMutation {
	return func(cart model.Cart) (bool, error) {
		if productID == "" || item.Quantity < 1 || item.Price < 0 || item.Stock < 0 {
			return false, ErrInvalidLineItem
		}
		if item.Quantity > item.Stock {
			return false, ErrExceedsStock
		}
		item.UUID = productID
		item.DateAdded = now
		cart[productID] = item
		return true, nil
	}
}

func setQuantityMutation(productID string, quantity int) cartMutation {
	return func(cart model.Cart) (bool, error) {
		item, ok := cart[productID]
		if !ok {
			return false, nil
		}
		if quantity <= 0 {
			delete(cart, productID)
			return true, nil
		}
		if quantity > item.Stock {
			return false, ErrExceedsStock
		}
		item.Quantity = quantity
		cart[productID] = item
		return true, nil
	}
}

func removeMutation(productID string) cartMutation {
	return func(cart model.Cart) (bool, error) {
		if _, ok := cart[productID]; !ok {
			return false, nil
		}
		delete(cart, productID)
		return true, nil
	}
}

func clearMutation() cartMutation {
	return func(cart model.Cart) (bool, error) {
		for k := range cart {
			delete(cart, k)
		}
		return true, nil
	}
}

func decodeCart(version int, data []byte) (model.Cart, error) {
	cart := model.Cart{}
	if version < model.CartSchemaVersion || len(data) == 0 {
		return cart, nil
	}
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return cart, nil
}

type gormCartRepository struct {
	db    *gorm.DB
	guard readiness
	now   func() time.Time
}

// NewCartRepository returns the relational cart store.
func NewCartRepository(db *gorm.DB) CartRepository {
	return &gormCartRepository{db: db, now: time.Now}
}

func (r *gormCartRepository) Initialize(ctx context.Context) error {
	err := r.guard.ensure(func(attempt int) error {
		logger.Debug("Initializing cart store", map[string]interface{}{
			"driver":  "gorm",
			"attempt": attempt,
		})

		migrator := r.db.WithContext(ctx).Migrator()
		if migrator.HasTable(legacyCartTable) {
			logger.Info("Dropping legacy cart table", map[string]interface{}{
				"table": legacyCartTable,
			})
			if err := migrator.DropTable(legacyCartTable); err != nil {
				return err
			}
		}
		return r.db.WithContext(ctx).AutoMigrate(&model.CartRecord{})
	})
	if err != nil {
		logger.Error("Failed to initialize cart store", err)
		return &StorageError{Op: "initialize", Err: err}
	}
	return nil
}

func (r *gormCartRepository) GetAll(ctx context.Context, profileID string) (model.Cart, error) {
	if err := r.Initialize(ctx); err != nil {
		return nil, err
	}

	logger.Debug("Finding cart by profile in database", map[string]interface{}{
		"profile_id": profileID,
	})

	cart, err := r.load(r.db.WithContext(ctx), profileID)
	if err != nil {
		logger.Error("Failed to find cart by profile in database", err, map[string]interface{}{
			"profile_id": profileID,
		})
		return nil, &StorageError{Op: "get", Err: err}
	}
	return cart, nil
}

func (r *gormCartRepository) Upsert(ctx context.Context, profileID, productID string, item model.LineItem) error {
	return r.mutate(ctx, "upsert", profileID, upsertMutation(productID, item, r.now()))
}

func (r *gormCartRepository) SetQuantity(ctx context.Context, profileID, productID string, quantity int) error {
	return r.mutate(ctx, "set_quantity", profileID, setQuantityMutation(productID, quantity))
}

func (r *gormCartRepository) Remove(ctx context.Context, profileID, productID string) error {
	return r.mutate(ctx, "remove", profileID, removeMutation(productID))
}

func (r *gormCartRepository) Clear(ctx context.Context, profileID string) error {
	return r.mutate(ctx, "clear", profileID, clearMutation())
}

func (r *gormCartRepository) load(tx *gorm.DB, profileID string) (model.Cart, error) {
	var record model.CartRecord
	err := tx.Where("profile_id = ?", profileID).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeCart(record.SchemaVersion, []byte(record.Data))
}

// mutate runs a read-modify-write of the whole mapping inside one transaction.
func (r *gormCartRepository) mutate(ctx context.Context, op, profileID string, fn cartMutation) error {
	if err := r.Initialize(ctx); err != nil {
		return err
	}

	logger.Debug("Updating cart in database", map[string]interface{}{
		"profile_id": profileID,
		"op":         op,
	})

	var rejected error
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := r.load(tx.Clauses(clause.Locking{Strength: "UPDATE"}), profileID)
		if err != nil {
			return err
		}

		changed, err := fn(cart)
		if err != nil {
			rejected = err
			return err
		}
		if !changed {
			return nil
		}

		data, err := json.Marshal(cart)
		if err != nil {
			return fmt.Errorf("encode cart: %w", err)
		}
		record := model.CartRecord{
			ProfileID:     profileID,
			SchemaVersion: model.CartSchemaVersion,
			Data:          string(data),
			UpdatedAt:     r.now(),
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"schema_version", "data", "updated_at"}),
		}).Create(&record).Error
	})
	if rejected != nil {
		logger.Debug("Cart update rejected", map[string]interface{}{
			"profile_id": profileID,
			"op":         op,
			"reason":     rejected.Error(),
		})
		return rejected
	}
	if err != nil {
		logger.Error("Failed to update cart in database", err, map[string]interface{}{
			"profile_id": profileID,
			"op":         op,
		})
		return &StorageError{Op: op, Err: err}
	}

	logger.Debug("Cart updated in database", map[string]interface{}{
		"profile_id": profileID,
		"op":         op,
	})
	return nil
}
