package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/infrastructure/config"
)

// PickupCache is a closable pickup location cache
type PickupCache interface {
	checkout.PickupLocationCache
	Close() error
}

// PickupCacheFactory creates pickup caches based on configuration
type PickupCacheFactory struct {
	cacheConfig           config.CacheConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// PickupCacheFactoryOption is a functional option for configuring the factory
type PickupCacheFactoryOption func(*PickupCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) PickupCacheFactoryOption {
	return func(f *PickupCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache when Redis is unavailable.
// Default is true (allow fallback).
func WithInMemoryFallback(allow bool) PickupCacheFactoryOption {
	return func(f *PickupCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewPickupCacheFactory creates a new factory
func NewPickupCacheFactory(cacheCfg config.CacheConfig, redisCfg config.RedisConfig, opts ...PickupCacheFactoryOption) *PickupCacheFactory {
	f := &PickupCacheFactory{
		cacheConfig:           cacheCfg,
		redisConfig:           redisCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Create returns the cache selected by cache.driver. A nil cache means
// caching is disabled.
func (f *PickupCacheFactory) Create() (PickupCache, error) {
	switch f.cacheConfig.Driver {
	case "none":
		f.logger.Info("Pickup location cache disabled")
		return nil, nil
	case "redis":
		store, err := NewRedisPickupCache(f.redisConfig, f.cacheConfig.PickupTTL, f.cacheConfig.KeyPrefix, f.logger)
		if err == nil {
			f.logger.Info("Using Redis pickup location cache", zap.String("addr", f.redisConfig.Addr()))
			return store, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required for pickup cache but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory pickup cache", zap.Error(err))
		return NewInMemoryPickupCache(f.cacheConfig.PickupTTL), nil
	default:
		f.logger.Info("Using in-memory pickup location cache")
		return NewInMemoryPickupCache(f.cacheConfig.PickupTTL), nil
	}
}
