package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/williamhogman/clusterlink/attacher/internal/models"
)

// memoryCache provides an in-memory implementation of ClusterListCache
type memoryCache struct {
	mu        sync.RWMutex
	clusters  models.ClusterList
	expiresAt time.Time
	present   bool
	now       func() time.Time
}

// newMemoryCache creates a new in-memory cluster list cache
func newMemoryCache() *memoryCache {
	return &memoryCache{now: time.Now}
}

// Get returns the cached list if it has not expired
func (m *memoryCache) Get(ctx context.Context) (models.ClusterList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.present || !m.now().Before(m.expiresAt) {
		return nil, ErrNotFound
	}
	return m.clusters.Clone(), nil
}

// Set replaces the cached list
func (m *memoryCache) Set(ctx context.Context, clusters models.ClusterList, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clusters = clusters.Clone()
	m.expiresAt = m.now().Add(ttl)
	m.present = true
	return nil
}

// Invalidate drops the cached list
func (m *memoryCache) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clusters = nil
	m.present = false
	return nil
}

// Close is a no-op for the in-memory cache
func (m *memoryCache) Close() error {
	return nil
}
