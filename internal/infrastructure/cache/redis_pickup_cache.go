package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/checkout"
	domain "github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/infrastructure/config"
)

const defaultKeyPrefix = "storefront:pickup:"

// allStatesKey addresses the unfiltered listing
const allStatesKey = "_all"

// RedisPickupCache implements checkout.PickupLocationCache using Redis.
// Instances behind a load balancer share one listing per state.
// Cache failures are logged and treated as misses.
type RedisPickupCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisPickupCache connects to Redis and verifies the connection
func NewRedisPickupCache(cfg config.RedisConfig, ttl time.Duration, keyPrefix string, logger *zap.Logger) (*RedisPickupCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisPickupCacheWithClient(client, ttl, keyPrefix, logger), nil
}

// NewRedisPickupCacheWithClient creates a cache with an existing Redis client
func NewRedisPickupCacheWithClient(client *redis.Client, ttl time.Duration, keyPrefix string, logger *zap.Logger) *RedisPickupCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPickupCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    logger,
	}
}

func (c *RedisPickupCache) key(state string) string {
	if state == "" {
		state = allStatesKey
	}
	return c.keyPrefix + state
}

// Get returns the cached listing for state
func (c *RedisPickupCache) Get(ctx context.Context, state string) ([]domain.PickupLocation, bool) {
	data, err := c.client.Get(ctx, c.key(state)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Pickup cache read failed", zap.String("state", state), zap.Error(err))
		}
		return nil, false
	}

	var locations []domain.PickupLocation
	if err := json.Unmarshal(data, &locations); err != nil {
		c.logger.Warn("Pickup cache entry undecodable", zap.String("state", state), zap.Error(err))
		return nil, false
	}
	return locations, true
}

// Set stores the listing for state with the configured TTL
func (c *RedisPickupCache) Set(ctx context.Context, state string, locations []domain.PickupLocation) {
	if c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(locations)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(state), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Pickup cache write failed", zap.String("state", state), zap.Error(err))
	}
}

// Ping checks the Redis connection
func (c *RedisPickupCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *RedisPickupCache) Close() error {
	return c.client.Close()
}

var _ checkout.PickupLocationCache = (*RedisPickupCache)(nil)
