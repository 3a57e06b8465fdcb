package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kikichoice/storefront-backend/config"
	"github.com/kikichoice/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

var ErrStateNotFound = errors.New("oauth state not found or expired")

const (
	blacklistPrefix  = "blacklist:"
	oauthStatePrefix = "oauth_state:"
)

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		_ = c.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	client = c
	logger.Info("Redis connection established successfully", nil)
	return nil
}

// SetClient replaces the package client. Used by tests.
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

// BlacklistToken adds a token to the blacklist
func BlacklistToken(ctx context.Context, token string, expiry time.Duration) error {
	if expiry <= 0 {
		// already expired, nothing to revoke
		return nil
	}

	logger.Debug("Adding token to blacklist", map[string]interface{}{
		"expiry": expiry.String(),
	})

	err := client.Set(ctx, blacklistPrefix+token, "revoked", expiry).Err()
	if err != nil {
		logger.Error("Failed to blacklist token", err, nil)
		return err
	}

	logger.Debug("Token successfully blacklisted", nil)
	return nil
}

// IsTokenBlacklisted checks if a token is in the blacklist
func IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	val, err := client.Get(ctx, blacklistPrefix+token).Result()

	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		logger.Error("Failed to check token blacklist", err, nil)
		return false, err
	}

	return val == "revoked", nil
}

// SaveOAuthState stores the state parameter of a social login round trip.
func SaveOAuthState(ctx context.Context, state, value string, ttl time.Duration) error {
	err := client.Set(ctx, oauthStatePrefix+state, value, ttl).Err()
	if err != nil {
		logger.Error("Failed to save oauth state", err, nil)
		return err
	}
	return nil
}

// ConsumeOAuthState returns the stored value and deletes it. A state can be used once.
func ConsumeOAuthState(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrStateNotFound
	}

	val, err := client.GetDel(ctx, oauthStatePrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrStateNotFound
	}
	if err != nil {
		logger.Error("Failed to consume oauth state", err, nil)
		return "", err
	}
	return val, nil
}
