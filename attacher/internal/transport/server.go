package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/williamhogman/clusterlink/attacher/internal/clusterstore"
	"github.com/williamhogman/clusterlink/attacher/internal/gateway"
	"github.com/williamhogman/clusterlink/attacher/internal/models"
	"github.com/williamhogman/clusterlink/attacher/internal/notify"
	"github.com/williamhogman/clusterlink/attacher/internal/reconciler"
	"github.com/williamhogman/clusterlink/attacher/internal/types"
)

// ClusterService is the cluster store as exposed over HTTP
type ClusterService interface {
	Clusters() models.ClusterList
	ForceUpdate(ctx context.Context)
	Apply(ctx context.Context, uuid types.ClusterUUID, action models.Action) error
	Subscribe(listener func(clusterstore.Change)) func()
}

// AttachmentService is the reconciler as exposed over HTTP
type AttachmentService interface {
	Attachment() reconciler.Attachment
	StartKernelForCluster(ctx context.Context, uuid types.ClusterUUID) bool
	Subscribe(listener func(reconciler.Attachment)) func()
}

// VisibilityService pauses polling while no presentation layer is visible
type VisibilityService interface {
	SetVisible(visible bool)
	Visible() bool
}

// NotificationSource streams user notifications
type NotificationSource interface {
	Subscribe(listener func(notify.Notification)) func()
}

// Server serves the attacher API used by presentation layers
type Server struct {
	clusters      ClusterService
	attachments   AttachmentService
	visibility    VisibilityService
	notifications NotificationSource
	gatherer      prometheus.Gatherer
	logger        *zap.Logger
	router        *mux.Router

	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer creates the server and registers its routes
func NewServer(
	clusters ClusterService,
	attachments AttachmentService,
	visibility VisibilityService,
	notifications NotificationSource,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *Server {
	s := &Server{
		clusters:      clusters,
		attachments:   attachments,
		visibility:    visibility,
		notifications: notifications,
		gatherer:      gatherer,
		logger:        logger.Named("http"),
		router:        mux.NewRouter(),
		closing:       make(chan struct{}),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close ends every open events stream. http.Server.Shutdown does not
// track hijacked connections.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.closing)
	})
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/clusters", s.listClustersHandler).Methods(http.MethodGet)
	api.HandleFunc("/clusters/refresh", s.refreshClustersHandler).Methods(http.MethodPost)
	api.HandleFunc("/clusters/{uuid}/{action}", s.clusterActionHandler).Methods(http.MethodPut)
	api.HandleFunc("/attachment", s.getAttachmentHandler).Methods(http.MethodGet)
	api.HandleFunc("/attachment", s.putAttachmentHandler).Methods(http.MethodPut)
	api.HandleFunc("/visibility", s.getVisibilityHandler).Methods(http.MethodGet)
	api.HandleFunc("/visibility", s.putVisibilityHandler).Methods(http.MethodPut)
	api.HandleFunc("/events", s.eventsHandler).Methods(http.MethodGet)
}

// ClustersResponse lists clusters ordered by status
type ClustersResponse struct {
	Clusters models.ClusterList `json:"clusters"`
}

// AttachRequest selects the cluster to attach to; "", "0" or "none" detach
type AttachRequest struct {
	ClusterUUID string `json:"clusterUuid"`
}

// AttachResponse reports the outcome of an attach request
type AttachResponse struct {
	OK         bool                  `json:"ok"`
	Attachment reconciler.Attachment `json:"attachment"`
}

// VisibilityRequest tells the agent whether anyone is looking
type VisibilityRequest struct {
	Visible bool `json:"visible"`
}

// ErrorResponse carries a failure message
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) listClustersHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, ClustersResponse{Clusters: s.clusters.Clusters().SortedByStatus()})
}

func (s *Server) refreshClustersHandler(w http.ResponseWriter, r *http.Request) {
	s.clusters.ForceUpdate(r.Context())
	s.listClustersHandler(w, r)
}

func (s *Server) clusterActionHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	uuid, err := types.NewClusterUUID(vars["uuid"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	action, err := models.ParseAction(vars["action"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.clusters.Apply(r.Context(), uuid, action); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, gateway.ErrGateway) {
			status = http.StatusBadGateway
		}
		s.writeError(w, status, err)
		return
	}

	s.listClustersHandler(w, r)
}

func (s *Server) getAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.attachments.Attachment())
}

func (s *Server) putAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	var req AttachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	uuid := types.ParseClusterUUID(req.ClusterUUID)
	s.logger.Info("Attach requested", uuid.ZapField())

	ok := s.attachments.StartKernelForCluster(r.Context(), uuid)
	s.writeJSON(w, http.StatusOK, AttachResponse{OK: ok, Attachment: s.attachments.Attachment()})
}

func (s *Server) getVisibilityHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, VisibilityRequest{Visible: s.visibility.Visible()})
}

func (s *Server) putVisibilityHandler(w http.ResponseWriter, r *http.Request) {
	var req VisibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.visibility.SetVisible(req.Visible)
	s.writeJSON(w, http.StatusOK, req)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
