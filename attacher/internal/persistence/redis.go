package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/williamhogman/clusterlink/attacher/internal/models"
)

const defaultKeyPrefix = "clusterlink:"

// redisCache implements ClusterListCache using Redis so that several
// agents talking to the same gateway share one cached list
type redisCache struct {
	client    *redis.Client
	keyPrefix string
}

// newRedisClient creates a Redis client from a redis:// URI
func newRedisClient(redisURI string) (*redis.Client, error) {
	if redisURI == "" {
		return nil, errors.New("redis URI is required")
	}

	opts, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URI: %w", err)
	}

	return redis.NewClient(opts), nil
}

// newRedisCache creates a Redis-backed cluster list cache
func newRedisCache(client *redis.Client, keyPrefix string) (*redisCache, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &redisCache{
		client:    client,
		keyPrefix: keyPrefix,
	}, nil
}

// formKey creates the Redis key holding the cluster list
func (r *redisCache) formKey() string {
	return r.keyPrefix + "clusters"
}

// Get returns the cached list or ErrNotFound
func (r *redisCache) Get(ctx context.Context) (models.ClusterList, error) {
	raw, err := r.client.Get(ctx, r.formKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cached cluster list: %w", err)
	}

	var clusters models.ClusterList
	if err := json.Unmarshal(raw, &clusters); err != nil {
		return nil, fmt.Errorf("failed to decode cached cluster list: %w", err)
	}
	return clusters.Clone(), nil
}

// Set replaces the cached list with a native Redis TTL
func (r *redisCache) Set(ctx context.Context, clusters models.ClusterList, ttl time.Duration) error {
	raw, err := json.Marshal(clusters.Clone())
	if err != nil {
		return fmt.Errorf("failed to encode cluster list: %w", err)
	}
	if err := r.client.Set(ctx, r.formKey(), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache cluster list: %w", err)
	}
	return nil
}

// Invalidate deletes the cached list
func (r *redisCache) Invalidate(ctx context.Context) error {
	if err := r.client.Del(ctx, r.formKey()).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cluster list: %w", err)
	}
	return nil
}

// Close closes the Redis client connection
func (r *redisCache) Close() error {
	return r.client.Close()
}
