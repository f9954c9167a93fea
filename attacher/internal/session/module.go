package session

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/williamhogman/clusterlink/attacher/internal/config"
)

// ProvideHost creates the configured session host
func ProvideHost(cfg *config.Config, lc fx.Lifecycle, logger *zap.Logger) (Host, error) {
	if cfg.Session.Type != config.SessionJupyter {
		logger.Info("Using in-memory session host")
		return NewMemoryHost(logger), nil
	}

	host, err := NewJupyterHost(JupyterConfig{
		BaseURL:       cfg.Session.JupyterURL,
		Token:         cfg.Session.JupyterToken,
		NotebookPath:  cfg.Session.NotebookPath,
		SessionID:     cfg.Session.SessionID,
		WatchInterval: cfg.Session.WatchInterval,
	}, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			host.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			host.Stop()
			return nil
		},
	})
	return host, nil
}

// Module provides the session host to the fx container
var Module = fx.Options(
	fx.Provide(ProvideHost),
)
