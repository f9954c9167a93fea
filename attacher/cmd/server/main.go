package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/williamhogman/clusterlink/attacher/internal/clusterstore"
	"github.com/williamhogman/clusterlink/attacher/internal/config"
	"github.com/williamhogman/clusterlink/attacher/internal/gateway"
	"github.com/williamhogman/clusterlink/attacher/internal/logging"
	"github.com/williamhogman/clusterlink/attacher/internal/metrics"
	"github.com/williamhogman/clusterlink/attacher/internal/notify"
	"github.com/williamhogman/clusterlink/attacher/internal/persistence"
	"github.com/williamhogman/clusterlink/attacher/internal/reconciler"
	"github.com/williamhogman/clusterlink/attacher/internal/session"
	"github.com/williamhogman/clusterlink/attacher/internal/transport"
)

var Everything = fx.Options(
	config.Module,
	logging.Module,
	metrics.Module,
	notify.Module,
	persistence.Module,
	gateway.Module,
	session.Module,
	clusterstore.Module,
	reconciler.Module,
	transport.Module,
)

func main() {
	app := fx.New(
		Everything,
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	)
	app.Run()
}
