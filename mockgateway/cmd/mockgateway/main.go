package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/williamhogman/clusterlink/mockgateway/internal/config"
	"github.com/williamhogman/clusterlink/mockgateway/internal/server"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	// Create a context that will be canceled when we receive a termination signal
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var logger *zap.Logger
	app := fx.New(
		config.Module,
		fx.Provide(func(cfg *config.Config) (*zap.Logger, error) {
			l, err := newLogger(cfg)
			if err != nil {
				return nil, err
			}
			return l.Named("mockgateway"), nil
		}),
		server.Module,
		fx.Populate(&logger),
	)

	// Start the application
	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mock gateway: %v\n", err)
		os.Exit(1)
	}

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("Received termination signal", zap.String("signal", sig.String()))

	// Create a timeout context for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
	logger.Info("Mock gateway stopped")
}
