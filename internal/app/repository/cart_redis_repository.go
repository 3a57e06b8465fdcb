package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/kikichoice/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const maxCartTxRetries = 16

var errCartContention = errors.New("cart modified concurrently, retries exhausted")

type cartEnvelope struct {
	SchemaVersion int             `json:"schema_version"`
	Data          json.RawMessage `json:"data"`
}

type redisCartRepository struct {
	client *redis.Client
	guard  readiness
	now    func() time.Time
}

// NewRedisCartRepository returns a cart store that keeps each profile's mapping
// under cart:<profileID> with no expiry.
func NewRedisCartRepository(client *redis.Client) CartRepository {
	return &redisCartRepository{client: client, now: time.Now}
}

func cartKey(profileID string) string {
	return fmt.Sprintf("cart:%s", profileID)
}

func (r *redisCartRepository) Initialize(ctx context.Context) error {
	err := r.guard.ensure(func(attempt int) error {
		logger.Debug("Initializing cart store", map[string]interface{}{
			"driver":  "redis",
			"attempt": attempt,
		})
		return r.client.Ping(ctx).Err()
	})
	if err != nil {
		logger.Error("Failed to initialize cart store", err)
		return &StorageError{Op: "initialize", Err: err}
	}
	return nil
}

func (r *redisCartRepository) GetAll(ctx context.Context, profileID string) (model.Cart, error) {
	if err := r.Initialize(ctx); err != nil {
		return nil, err
	}

	logger.Debug("Finding cart by profile in redis", map[string]interface{}{
		"profile_id": profileID,
	})

	cart, err := r.load(ctx, r.client, profileID)
	if err != nil {
		logger.Error("Failed to find cart by profile in redis", err, map[string]interface{}{
			"profile_id": profileID,
		})
		return nil, &StorageError{Op: "get", Err: err}
	}
	return cart, nil
}

func (r *redisCartRepository) Upsert(ctx context.Context, profileID, productID string, item model.LineItem) error {
	return r.mutate(ctx, "upsert", profileID, upsertMutation(productID, item, r.now()))
}

func (r *redisCartRepository) SetQuantity(ctx context.Context, profileID, productID string, quantity int) error {
	return r.mutate(ctx, "set_quantity", profileID, setQuantityMutation(productID, quantity))
}

func (r *redisCartRepository) Remove(ctx context.Context, profileID, productID string) error {
	return r.mutate(ctx, "remove", profileID, removeMutation(productID))
}

func (r *redisCartRepository) Clear(ctx context.Context, profileID string) error {
	return r.mutate(ctx, "clear", profileID, clearMutation())
}

func (r *redisCartRepository) load(ctx context.Context, c redis.Cmdable, profileID string) (model.Cart, error) {
	raw, err := c.Get(ctx, cartKey(profileID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Cart{}, nil
	}
	if err != nil {
		return nil, err
	}

	var env cartEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode cart envelope: %w", err)
	}
	return decodeCart(env.SchemaVersion, env.Data)
}

// mutate is an optimistic WATCH/MULTI transaction on the profile key, retried
// when another writer touches the key in between.
func (r *redisCartRepository) mutate(ctx context.Context, op, profileID string, fn cartMutation) error {
	if err := r.Initialize(ctx); err != nil {
		return err
	}

	key := cartKey(profileID)
	logger.Debug("Updating cart in redis", map[string]interface{}{
		"profile_id": profileID,
		"op":         op,
	})

	for attempt := 0; attempt < maxCartTxRetries; attempt++ {
		var rejected error
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			cart, err := r.load(ctx, tx, profileID)
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
			payload, err := json.Marshal(cartEnvelope{SchemaVersion: model.CartSchemaVersion, Data: data})
			if err != nil {
				return fmt.Errorf("encode cart envelope: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, payload, 0)
				return nil
			})
			return err
		}, key)

		if rejected != nil {
			return rejected
		}
		if errors.Is(err, redis.TxFailedErr) {
			logger.Debug("Cart transaction conflict, retrying", map[string]interface{}{
				"profile_id": profileID,
				"attempt":    attempt + 1,
			})
			continue
		}
		if err != nil {
			logger.Error("Failed to update cart in redis", err, map[string]interface{}{
				"profile_id": profileID,
				"op":         op,
			})
			return &StorageError{Op: op, Err: err}
		}
		return nil
	}

	logger.Warn("Cart transaction retries exhausted", map[string]interface{}{
		"profile_id": profileID,
		"op":         op,
	})
	return &StorageError{Op: op, Err: errCartContention}
}
