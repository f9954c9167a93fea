package clusterstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/williamhogman/clusterlink/attacher/internal/events"
	"github.com/williamhogman/clusterlink/attacher/internal/gateway"
	"github.com/williamhogman/clusterlink/attacher/internal/metrics"
	"github.com/williamhogman/clusterlink/attacher/internal/models"
	"github.com/williamhogman/clusterlink/attacher/internal/notify"
	"github.com/williamhogman/clusterlink/attacher/internal/types"
)

// fetchErrorTitle is shown to the user the first time a fetch fails
const fetchErrorTitle = "Failed to fetch the cluster list"

// Change describes a replaced cluster list
type Change struct {
	Old models.ClusterList
	New models.ClusterList
}

// Backend is the part of the gateway the store needs
type Backend interface {
	gateway.ClusterLister
	gateway.ClusterController
}

// Store keeps the last known cluster list and announces when it changes
type Store struct {
	backend  Backend
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger

	// updateMu serializes fetches and the publication that follows them
	updateMu sync.Mutex

	mu       sync.RWMutex
	clusters models.ClusterList

	changes       *events.Broadcaster[Change]
	errorNotified atomic.Bool
}

// NewStore creates a store with an empty list
func NewStore(backend Backend, notifier notify.Notifier, m *metrics.Metrics, logger *zap.Logger) *Store {
	return &Store{
		backend:  backend,
		notifier: notifier,
		metrics:  m,
		logger:   logger.Named("cluster-store"),
		clusters: models.ClusterList{},
		changes:  events.NewBroadcaster[Change](),
	}
}

// Clusters returns a copy of the last fetched list
func (s *Store) Clusters() models.ClusterList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clusters.Clone()
}

// Subscribe registers a listener for list changes. Listeners are called
// with the update lock held and must not call back into Update.
func (s *Store) Subscribe(listener func(Change)) func() {
	return s.changes.Subscribe(listener)
}

// Update fetches the list through the gateway cache. The returned error is
// the fetch failure, if any; the list has been updated regardless.
func (s *Store) Update(ctx context.Context) error {
	return s.refresh(ctx, false)
}

// ForceUpdate fetches the list bypassing every cache
func (s *Store) ForceUpdate(ctx context.Context) {
	_ = s.refresh(ctx, true)
}

// Apply runs a lifecycle action on a cluster and refreshes the list
func (s *Store) Apply(ctx context.Context, uuid types.ClusterUUID, action models.Action) error {
	logger := s.logger.With(uuid.ZapField(), zap.String("action", action.String()))

	if err := gateway.Apply(ctx, s.backend, uuid, action); err != nil {
		logger.Warn("Cluster action failed", zap.Error(err))
		if !errors.Is(err, gateway.ErrGateway) {
			err = fmt.Errorf("%w: %w", gateway.ErrGateway, err)
		}
		return err
	}

	logger.Info("Cluster action accepted")
	s.ForceUpdate(ctx)
	return nil
}

func (s *Store) refresh(ctx context.Context, force bool) error {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	fetched, fetchErr := s.backend.ListClusters(ctx, force)
	if fetchErr != nil {
		if ctx.Err() != nil {
			// Shutting down, keep what we have
			return fetchErr
		}
		s.metrics.Polls.WithLabelValues(metrics.ResultError).Inc()
		s.logger.Warn("Failed to fetch cluster list", zap.Bool("force", force), zap.Error(fetchErr))
		if s.errorNotified.CompareAndSwap(false, true) {
			s.notifier.Error(fetchErrorTitle, fetchErr)
		}
		fetched = models.ClusterList{}
	} else {
		s.metrics.Polls.WithLabelValues(metrics.ResultOK).Inc()
	}
	s.metrics.ObserveClusters(fetched)

	s.mu.Lock()
	old := s.clusters
	if old.Equal(fetched) {
		s.mu.Unlock()
		return fetchErr
	}
	s.clusters = fetched.Clone()
	s.mu.Unlock()

	s.metrics.ListChanges.Inc()
	s.logger.Info("Cluster list changed",
		zap.Int("before", len(old)),
		zap.Int("after", len(fetched)),
		zap.Int("running", len(fetched.Running())))

	s.changes.Publish(Change{Old: old.Clone(), New: fetched.Clone()})
	return fetchErr
}
