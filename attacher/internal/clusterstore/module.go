package clusterstore

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/williamhogman/clusterlink/attacher/internal/config"
	"github.com/williamhogman/clusterlink/attacher/internal/gateway"
	"github.com/williamhogman/clusterlink/attacher/internal/metrics"
	"github.com/williamhogman/clusterlink/attacher/internal/notify"
)

// ProvideStore creates the cluster store
func ProvideStore(gw gateway.Gateway, notifier notify.Notifier, m *metrics.Metrics, logger *zap.Logger) *Store {
	return NewStore(gw, notifier, m, logger)
}

// ProvidePoller creates the poller and ties it to the application lifecycle
func ProvidePoller(store *Store, cfg *config.Config, lc fx.Lifecycle, logger *zap.Logger) *Poller {
	poller := NewPoller(store, PollerConfig{
		Interval:      cfg.Poll.Interval,
		MaxInterval:   cfg.Poll.MaxInterval,
		BackoffFactor: cfg.Poll.BackoffFactor,
	}, logger)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			poller.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			poller.Stop()
			return nil
		},
	})
	return poller
}

// Module provides the cluster store dependencies to the fx container
var Module = fx.Options(
	fx.Provide(ProvideStore),
	fx.Provide(ProvidePoller),
)
