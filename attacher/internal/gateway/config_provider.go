package gateway

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ConfigProvider returns the gateway settings
type ConfigProvider interface {
	Get(ctx context.Context) (Config, error)
}

type configFetcher interface {
	FetchConfig(ctx context.Context) (Config, error)
}

// CachedConfigProvider fetches the gateway config once. Concurrent callers
// share one in-flight request; a failed fetch is retried by the next caller.
type CachedConfigProvider struct {
	fetcher configFetcher
	logger  *zap.Logger
	group   singleflight.Group

	mu     sync.RWMutex
	cached *Config
}

// NewConfigProvider creates a provider backed by fetcher
func NewConfigProvider(fetcher configFetcher, logger *zap.Logger) *CachedConfigProvider {
	return &CachedConfigProvider{
		fetcher: fetcher,
		logger:  logger.Named("gateway-config"),
	}
}

// Get returns the memoized config, fetching it on first use
func (p *CachedConfigProvider) Get(ctx context.Context) (Config, error) {
	p.mu.RLock()
	if p.cached != nil {
		cfg := *p.cached
		p.mu.RUnlock()
		return cfg, nil
	}
	p.mu.RUnlock()

	result, err, _ := p.group.Do("config", func() (interface{}, error) {
		cfg, err := p.fetcher.FetchConfig(ctx)
		if err != nil {
			return Config{}, err
		}

		p.mu.Lock()
		p.cached = &cfg
		p.mu.Unlock()

		p.logger.Info("Gateway config loaded",
			zap.Bool("autoAttach", cfg.AutoAttach),
			zap.Bool("catalogMode", cfg.CatalogMode),
			zap.Bool("allowLocalExecution", cfg.AllowLocalExecution))
		return cfg, nil
	})
	if err != nil {
		return Config{}, err
	}
	return result.(Config), nil
}

// Reset forgets the memoized config
func (p *CachedConfigProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
}

// StaticConfigProvider always returns the same config
type StaticConfigProvider Config

// Get returns the static config
func (p StaticConfigProvider) Get(context.Context) (Config, error) {
	return Config(p), nil
}
