package gateway

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/williamhogman/clusterlink/attacher/internal/config"
	"github.com/williamhogman/clusterlink/attacher/internal/persistence"
)

// ProvideClient creates the HTTP gateway client from configuration
func ProvideClient(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	logger.Info("Using cluster gateway", zap.String("baseURL", cfg.Gateway.BaseURL))
	return NewClient(ClientConfig{
		BaseURL:   cfg.Gateway.BaseURL,
		Token:     cfg.Gateway.Token,
		Timeout:   cfg.Gateway.Timeout,
		RateLimit: cfg.Gateway.RateLimit,
		RateBurst: cfg.Gateway.RateBurst,
	}, logger)
}

// ProvideGateway puts the shared list cache in front of the client
func ProvideGateway(client *Client, cache persistence.ClusterListCache, cfg *config.Config, logger *zap.Logger) Gateway {
	return NewCachingGateway(client, cache, cfg.Cache.TTL, logger)
}

// ProvideConfigProvider memoizes the gateway config
func ProvideConfigProvider(gw Gateway, logger *zap.Logger) ConfigProvider {
	return NewConfigProvider(gw, logger)
}

// Module provides the gateway dependencies to the fx container
var Module = fx.Options(
	fx.Provide(ProvideClient),
	fx.Provide(ProvideGateway),
	fx.Provide(ProvideConfigProvider),
)
