package persistence

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/williamhogman/clusterlink/attacher/internal/config"
)

// Config selects a cache implementation
type Config struct {
	Type     string
	RedisURI string
}

// NewCache creates a cluster list cache of the configured type.
// Type "none" returns a nil cache.
func NewCache(cfg Config) (ClusterListCache, error) {
	switch cfg.Type {
	case config.CacheNone:
		return nil, nil
	case config.CacheMemory, "":
		return newMemoryCache(), nil
	case config.CacheRedis:
		client, err := newRedisClient(cfg.RedisURI)
		if err != nil {
			return nil, err
		}
		cache, err := newRedisCache(client, defaultKeyPrefix)
		if err != nil {
			return nil, err
		}
		return cache, nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}

// ProvideCache creates the cache from configuration and closes it on stop
func ProvideCache(cfg *config.Config, lc fx.Lifecycle, logger *zap.Logger) (ClusterListCache, error) {
	cache, err := NewCache(Config{
		Type:     cfg.Cache.Type,
		RedisURI: cfg.Cache.RedisURI,
	})
	if err != nil {
		return nil, err
	}
	if cache == nil {
		logger.Info("Cluster list cache is disabled")
		return nil, nil
	}

	logger.Info("Using cluster list cache",
		zap.String("type", cfg.Cache.Type),
		zap.Duration("ttl", cfg.Cache.TTL))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return cache.Close()
		},
	})
	return cache, nil
}

// Module provides the persistence dependencies to the fx container
var Module = fx.Options(
	fx.Provide(ProvideCache),
)
