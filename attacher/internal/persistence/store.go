package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/williamhogman/clusterlink/attacher/internal/models"
)

// Common errors for persistence operations
var (
	// ErrNotFound is returned when no unexpired list is cached
	ErrNotFound = errors.New("cluster list not found in cache")
)

// ClusterListCache stores the most recently fetched cluster list for a
// limited time so that non-forced refreshes do not hit the backend
type ClusterListCache interface {
	// Get returns the cached list or ErrNotFound when missing or expired
	Get(ctx context.Context) (models.ClusterList, error)

	// Set replaces the cached list; it expires after ttl
	Set(ctx context.Context, clusters models.ClusterList, ttl time.Duration) error

	// Invalidate drops the cached list
	Invalidate(ctx context.Context) error

	// Close cleans up resources used by the cache
	Close() error
}
