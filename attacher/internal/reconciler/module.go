package reconciler

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/williamhogman/clusterlink/attacher/internal/clusterstore"
	"github.com/williamhogman/clusterlink/attacher/internal/gateway"
	"github.com/williamhogman/clusterlink/attacher/internal/metrics"
	"github.com/williamhogman/clusterlink/attacher/internal/notify"
	"github.com/williamhogman/clusterlink/attacher/internal/session"
)

// ProvideReconciler creates the reconciler and ties it to the application
// lifecycle
func ProvideReconciler(
	store *clusterstore.Store,
	gw gateway.Gateway,
	host session.Host,
	configs gateway.ConfigProvider,
	notifier notify.Notifier,
	m *metrics.Metrics,
	lc fx.Lifecycle,
	logger *zap.Logger,
) *Reconciler {
	r := New(store, gw, host, configs, notifier, m, logger)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// The session check on start needs a loaded list
			if err := store.Update(ctx); err != nil {
				logger.Warn("Initial cluster list fetch failed", zap.Error(err))
			}
			r.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			r.Stop()
			return nil
		},
	})
	return r
}

// Module provides the reconciler to the fx container
var Module = fx.Options(
	fx.Provide(ProvideReconciler),
)
