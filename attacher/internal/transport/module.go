package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/williamhogman/clusterlink/attacher/internal/clusterstore"
	"github.com/williamhogman/clusterlink/attacher/internal/config"
	"github.com/williamhogman/clusterlink/attacher/internal/notify"
	"github.com/williamhogman/clusterlink/attacher/internal/reconciler"
)

// ServerParams contains the dependencies for the server
type ServerParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Config     *config.Config
	Store      *clusterstore.Store
	Poller     *clusterstore.Poller
	Reconciler *reconciler.Reconciler
	Notify     *notify.Center
	Registry   *prometheus.Registry
	Logger     *zap.Logger
}

// ProvideServer creates the API server and registers it with the lifecycle
func ProvideServer(p ServerParams) *Server {
	server := NewServer(p.Store, p.Reconciler, p.Poller, p.Notify, p.Registry, p.Logger)
	logger := p.Logger.Named("server")

	httpServer := &http.Server{
		Addr: fmt.Sprintf(":%d", p.Config.Server.Port),
		// Use h2c so we can serve HTTP/2 without TLS
		Handler:           h2c.NewHandler(server.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	httpServer.RegisterOnShutdown(server.Close)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			listener, err := net.Listen("tcp", httpServer.Addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", httpServer.Addr, err)
			}

			logger.Info("Starting attacher API",
				zap.String("address", httpServer.Addr),
				zap.String("gateway", p.Config.Gateway.BaseURL),
				zap.Duration("pollInterval", p.Config.Poll.Interval),
				zap.String("session", p.Config.Session.Type),
				zap.String("cache", p.Config.Cache.Type))

			go func() {
				if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("Server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down attacher API")
			return httpServer.Shutdown(ctx)
		},
	})
	return server
}

// Module provides the API server to the fx container
var Module = fx.Options(
	fx.Provide(ProvideServer),
	fx.Invoke(func(*Server) {}),
)
