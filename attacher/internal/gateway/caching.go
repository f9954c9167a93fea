package gateway

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/williamhogman/clusterlink/attacher/internal/models"
	"github.com/williamhogman/clusterlink/attacher/internal/persistence"
	"github.com/williamhogman/clusterlink/attacher/internal/types"
)

// CachingGateway serves non-forced list requests from a shared cache so that
// several agents polling the same gateway do not each hit it
type CachingGateway struct {
	Gateway
	cache  persistence.ClusterListCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachingGateway wraps inner with cache. A nil cache disables caching.
func NewCachingGateway(inner Gateway, cache persistence.ClusterListCache, ttl time.Duration, logger *zap.Logger) Gateway {
	if cache == nil || ttl <= 0 {
		return inner
	}
	return &CachingGateway{
		Gateway: inner,
		cache:   cache,
		ttl:     ttl,
		logger:  logger.Named("gateway-cache"),
	}
}

// ListClusters returns the cached list unless forceRefresh is set
func (g *CachingGateway) ListClusters(ctx context.Context, forceRefresh bool) (models.ClusterList, error) {
	if !forceRefresh {
		cached, err := g.cache.Get(ctx)
		switch {
		case err == nil:
			g.logger.Debug("Serving cluster list from cache", zap.Int("clusters", len(cached)))
			return cached, nil
		case !errors.Is(err, persistence.ErrNotFound):
			g.logger.Warn("Failed to read cluster list cache", zap.Error(err))
		}
	}

	clusters, err := g.Gateway.ListClusters(ctx, forceRefresh)
	if err != nil {
		return nil, err
	}

	if err := g.cache.Set(ctx, clusters, g.ttl); err != nil {
		g.logger.Warn("Failed to write cluster list cache", zap.Error(err))
	}
	return clusters, nil
}

func (g *CachingGateway) ResumeCluster(ctx context.Context, uuid types.ClusterUUID) error {
	return g.invalidateAfter(ctx, g.Gateway.ResumeCluster(ctx, uuid))
}

func (g *CachingGateway) PauseCluster(ctx context.Context, uuid types.ClusterUUID) error {
	return g.invalidateAfter(ctx, g.Gateway.PauseCluster(ctx, uuid))
}

func (g *CachingGateway) StopCluster(ctx context.Context, uuid types.ClusterUUID) error {
	return g.invalidateAfter(ctx, g.Gateway.StopCluster(ctx, uuid))
}

func (g *CachingGateway) RestartCluster(ctx context.Context, uuid types.ClusterUUID) error {
	return g.invalidateAfter(ctx, g.Gateway.RestartCluster(ctx, uuid))
}

// invalidateAfter drops the cached list once an action has gone through
func (g *CachingGateway) invalidateAfter(ctx context.Context, actionErr error) error {
	if actionErr != nil {
		return actionErr
	}
	if err := g.cache.Invalidate(ctx); err != nil {
		g.logger.Warn("Failed to invalidate cluster list cache", zap.Error(err))
	}
	return nil
}
