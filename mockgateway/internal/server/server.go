package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/williamhogman/clusterlink/mockgateway/internal/config"
	"github.com/williamhogman/clusterlink/mockgateway/internal/fleet"
)

// Server represents the HTTP server
type Server struct {
	router *mux.Router
	logger *zap.Logger
	server *http.Server
	fleet  *fleet.Fleet
	cfg    *config.Config
}

// NewServer creates a new HTTP server over the fleet
func NewServer(cfg *config.Config, f *fleet.Fleet, logger *zap.Logger) *Server {
	router := mux.NewRouter()

	server := &Server{
		router: router,
		logger: logger,
		fleet:  f,
		cfg:    cfg,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	// Register routes
	server.registerRoutes()

	return server
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// registerRoutes sets up all the HTTP routes
func (s *Server) registerRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	api := s.router.PathPrefix(strings.TrimSuffix(s.cfg.BasePath, "/")).Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/clusters", s.listClustersHandler).Methods(http.MethodGet)
	api.HandleFunc("/clusters/{uuid}/{action}", s.clusterActionHandler).Methods(http.MethodPut)
	api.HandleFunc("/cluster-remote-kernel/{uuid}", s.remoteKernelHandler).Methods(http.MethodPost)
	api.HandleFunc("/config", s.configHandler).Methods(http.MethodGet)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
			s.logger.Warn("Rejected unauthenticated request", zap.String("path", r.URL.Path))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// healthHandler returns a 200 OK for health checks
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) listClustersHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Listing clusters", zap.String("forceRefresh", r.URL.Query().Get("forceRefresh")))
	s.writeJSON(w, map[string]any{"clusters": s.fleet.List()})
}

func (s *Server) clusterActionHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.fleet.Apply(vars["uuid"], vars["action"]); err != nil {
		s.logger.Info("Rejected cluster action",
			zap.String("uuid", vars["uuid"]),
			zap.String("action", vars["action"]),
			zap.Error(err))
		s.writeApplicationError(w, err)
		return
	}
	s.writeJSON(w, map[string]any{})
}

func (s *Server) remoteKernelHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["uuid"]
	cluster, err := s.fleet.Get(id)
	if err != nil {
		s.writeApplicationError(w, err)
		return
	}
	if cluster.Status != "RUNNING" {
		s.writeApplicationError(w, fmt.Errorf("cluster %s is %s", cluster.Name, cluster.Status))
		return
	}

	name := "bodo_remote_" + strings.ReplaceAll(id, "-", "")[:8]
	s.logger.Info("Created remote kernel", zap.String("uuid", id), zap.String("kernel", name))
	s.writeJSON(w, map[string]any{"remote_kernel_name": name})
}

func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{
		"auto_attach":         s.cfg.AutoAttach,
		"catalog_mode":        s.cfg.CatalogMode,
		"allowLocalExecution": s.cfg.AllowLocalExecution,
	})
}

// writeApplicationError answers 200 with an "e" field, the way the real
// gateway reports failures
func (s *Server) writeApplicationError(w http.ResponseWriter, err error) {
	message := err.Error()
	if errors.Is(err, fleet.ErrNotFound) {
		message = "cluster not found"
	}
	s.writeJSON(w, map[string]any{"e": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

// Start starts the HTTP server
func (s *Server) Start(lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.logger.Info("Starting mock gateway",
				zap.String("address", s.server.Addr),
				zap.String("basePath", s.cfg.BasePath),
				zap.Duration("transitionDelay", s.cfg.TransitionDelay))

			// Start the server in a goroutine
			go func() {
				if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.logger.Error("Server error", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.logger.Info("Stopping HTTP server")
			s.fleet.Stop()

			// Create a context with timeout for graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			// Attempt graceful shutdown
			if err := s.server.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("Error during server shutdown", zap.Error(err))
				return err
			}

			s.logger.Info("HTTP server stopped")
			return nil
		},
	})
}

// ProvideFleet seeds the fleet from configuration
func ProvideFleet(cfg *config.Config, logger *zap.Logger) (*fleet.Fleet, error) {
	f := fleet.New(cfg.TransitionDelay, logger)
	if err := f.Seed(cfg.Clusters); err != nil {
		return nil, err
	}
	return f, nil
}

// Module exports the server module for fx
var Module = fx.Options(
	fx.Provide(ProvideFleet),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server, lc fx.Lifecycle) {
		s.Start(lc)
	}),
)
