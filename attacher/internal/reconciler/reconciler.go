package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/williamhogman/clusterlink/attacher/internal/clusterstore"
	"github.com/williamhogman/clusterlink/attacher/internal/events"
	"github.com/williamhogman/clusterlink/attacher/internal/gateway"
	"github.com/williamhogman/clusterlink/attacher/internal/metrics"
	"github.com/williamhogman/clusterlink/attacher/internal/models"
	"github.com/williamhogman/clusterlink/attacher/internal/notify"
	"github.com/williamhogman/clusterlink/attacher/internal/session"
	"github.com/williamhogman/clusterlink/attacher/internal/types"
)

// Notification texts
const (
	staleTitle         = "Cluster detached"
	staleMessage       = "The cluster was removed or is being modified."
	attachFailedTitle  = "Failed to attach to cluster"
	localDisabledTitle = "Local execution is disabled"
	localDisabledText  = "The local kernel was shut down. Attach to a cluster to run code."
)

// ErrNotRunning is reported when an attach targets a cluster that is not
// RUNNING in the last fetched list
var ErrNotRunning = errors.New("cluster is not running")

// ClusterSource is the cluster store as seen by the reconciler
type ClusterSource interface {
	Clusters() models.ClusterList
	Subscribe(listener func(clusterstore.Change)) func()
}

type attachRequest struct {
	uuid  types.ClusterUUID
	reply chan bool
}

// Reconciler keeps the session kernel bound to a RUNNING cluster. List
// changes, session changes and user requests are all handled on one
// goroutine, so at most one attach or detach is in flight.
type Reconciler struct {
	store    ClusterSource
	kernels  gateway.KernelCreator
	host     session.Host
	configs  gateway.ConfigProvider
	notifier notify.Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu         sync.RWMutex
	attachment Attachment
	changes    *events.Broadcaster[Attachment]

	listKick    chan struct{}
	sessionKick chan struct{}
	requests    chan attachRequest
	running     atomic.Bool

	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	unsubscribes []func()
}

// New creates a reconciler in the detached state
func New(
	store ClusterSource,
	kernels gateway.KernelCreator,
	host session.Host,
	configs gateway.ConfigProvider,
	notifier notify.Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Reconciler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		store:       store,
		kernels:     kernels,
		host:        host,
		configs:     configs,
		notifier:    notifier,
		metrics:     m,
		logger:      logger.Named("reconciler"),
		attachment:  detached(),
		changes:     events.NewBroadcaster[Attachment](),
		listKick:    make(chan struct{}, 1),
		sessionKick: make(chan struct{}, 1),
		requests:    make(chan attachRequest),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Start subscribes to the store and the session and starts the event loop.
// The loop first derives the attachment from the session's current kernel
// and then checks whether it should auto-attach.
func (r *Reconciler) Start() {
	r.logger.Info("Starting attachment reconciler")

	r.unsubscribes = append(r.unsubscribes,
		r.store.Subscribe(func(clusterstore.Change) { kick(r.listKick) }),
		r.host.Subscribe(func(session.Change) { kick(r.sessionKick) }),
	)

	r.running.Store(true)
	go r.loop()
}

// Stop stops the event loop and waits for the current operation to finish
func (r *Reconciler) Stop() {
	r.logger.Info("Stopping attachment reconciler")
	for _, unsubscribe := range r.unsubscribes {
		unsubscribe()
	}
	r.cancel()
	if r.running.Swap(false) {
		<-r.done
	}
}

// Attachment returns the current attachment
func (r *Reconciler) Attachment() Attachment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.attachment
}

// Subscribe registers a listener for attachment changes
func (r *Reconciler) Subscribe(listener func(Attachment)) func() {
	return r.changes.Subscribe(listener)
}

// StartKernelForCluster attaches the session to uuid, or detaches it when
// uuid is empty. It waits for the event loop to run the request and
// reports whether it succeeded. ctx only bounds the wait for the loop to
// accept the request. Failures are shown through the notifier.
func (r *Reconciler) StartKernelForCluster(ctx context.Context, uuid types.ClusterUUID) bool {
	if !r.running.Load() {
		r.logger.Warn("Attach requested while the reconciler is not running", uuid.ZapField())
		return false
	}

	req := attachRequest{uuid: uuid, reply: make(chan bool, 1)}
	select {
	case r.requests <- req:
	case <-ctx.Done():
		return false
	case <-r.ctx.Done():
		return false
	}

	// An accepted request runs to completion
	select {
	case ok := <-req.reply:
		return ok
	case <-r.ctx.Done():
		return false
	}
}

// GetClusterUUIDFromKernel returns the cluster a kernel spec is bound to
func (r *Reconciler) GetClusterUUIDFromKernel(ctx context.Context, kernel types.KernelName) (types.ClusterUUID, bool) {
	if !kernel.IsValid() {
		return "", false
	}
	metadata, err := r.host.KernelMetadata(ctx, kernel)
	if err != nil {
		r.logger.Debug("No metadata for kernel", kernel.ZapField(), zap.Error(err))
		return "", false
	}
	return session.ClusterFromMetadata(metadata)
}

func kick(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (r *Reconciler) loop() {
	defer close(r.done)

	r.handleSessionChange()
	r.autoAttach(r.store.Clusters())

	for {
		select {
		case <-r.ctx.Done():
			return
		case req := <-r.requests:
			req.reply <- r.startKernel(req.uuid, metrics.TriggerUser)
		case <-r.listKick:
			r.handleListChange()
		case <-r.sessionKick:
			r.handleSessionChange()
		}
	}
}

// handleListChange detaches from a cluster that went away or left RUNNING
// and then runs the auto-attach check against the latest list
func (r *Reconciler) handleListChange() {
	clusters := r.store.Clusters()

	current := r.Attachment()
	if current.ClusterUUID.IsValid() {
		cluster, found := clusters.Find(current.ClusterUUID)
		if !found || !cluster.Status.IsRunning() {
			r.detachStale(current.ClusterUUID, cluster, found)
		}
	}

	r.autoAttach(clusters)
}

// detachStale detaches from the bound cluster after it disappeared or left
// RUNNING and tells the user once
func (r *Reconciler) detachStale(uuid types.ClusterUUID, cluster models.Cluster, found bool) {
	r.logger.Info("Attached cluster is gone or not running",
		uuid.ZapField(),
		zap.Bool("found", found),
		zap.String("status", cluster.Status.String()))

	r.detach(uuid)
	r.metrics.StaleDetaches.Inc()
	r.notifier.Notice(staleTitle, staleMessage)
}

// handleSessionChange derives the attachment from the session's kernel
func (r *Reconciler) handleSessionChange() {
	kernel, err := r.host.CurrentKernel(r.ctx)
	if err != nil {
		if r.ctx.Err() == nil {
			r.logger.Warn("Failed to read the session kernel", zap.Error(err))
		}
		return
	}

	if !kernel.IsValid() {
		r.set(detached())
		return
	}

	uuid, remote := r.GetClusterUUIDFromKernel(r.ctx, kernel)
	if !remote {
		r.handleLocalKernel(kernel)
		return
	}

	cluster, found := r.store.Clusters().Find(uuid)
	if found && cluster.Status.IsRunning() {
		if r.Attachment().ClusterUUID != uuid {
			r.logger.Info("Session kernel runs on a cluster", uuid.ZapField(), kernel.ZapField())
		}
		r.set(Attachment{ClusterUUID: uuid, State: StateAttached})
		return
	}

	// The list moved on while the session was being read
	if r.Attachment().ClusterUUID == uuid {
		r.detachStale(uuid, cluster, found)
		return
	}

	r.logger.Info("Session kernel belongs to a cluster that is not running",
		uuid.ZapField(), kernel.ZapField(), zap.Bool("found", found))
	r.detach(uuid)
}

func (r *Reconciler) handleLocalKernel(kernel types.KernelName) {
	r.set(detached())

	cfg, err := r.configs.Get(r.ctx)
	if err != nil {
		r.logger.Warn("Gateway config unavailable, keeping local kernel", kernel.ZapField(), zap.Error(err))
		return
	}
	if cfg.AllowLocalExecution {
		return
	}

	r.logger.Info("Shutting down local kernel", kernel.ZapField())
	if err := r.host.ShutdownSession(r.ctx); err != nil {
		r.logger.Warn("Failed to shut down local kernel", zap.Error(err))
		return
	}
	r.notifier.Notice(localDisabledTitle, localDisabledText)
}

// autoAttach attaches when detached and exactly one cluster is RUNNING
func (r *Reconciler) autoAttach(clusters models.ClusterList) {
	if r.Attachment().ClusterUUID.IsValid() {
		return
	}
	running := clusters.Running()
	if len(running) != 1 {
		return
	}

	cfg, err := r.configs.Get(r.ctx)
	if err != nil {
		r.logger.Warn("Gateway config unavailable, skipping auto-attach", zap.Error(err))
		return
	}
	if !cfg.AutoAttach {
		return
	}

	r.logger.Info("Auto-attaching to the only running cluster", running[0].UUID.ZapField())
	r.startKernel(running[0].UUID, metrics.TriggerAuto)
}

// startKernel binds the session to a new remote kernel on uuid. An empty
// uuid shuts the session down instead.
func (r *Reconciler) startKernel(uuid types.ClusterUUID, trigger string) bool {
	logger := r.logger.With(uuid.ZapField(), zap.String("trigger", trigger))

	if !uuid.IsValid() {
		logger.Info("Detaching session")
		r.detach("")
		return true
	}

	if cluster, found := r.store.Clusters().Find(uuid); !found || !cluster.Status.IsRunning() {
		err := fmt.Errorf("%w: %s", ErrNotRunning, uuid)
		logger.Warn("Refusing to attach", zap.Error(err))
		r.metrics.AttachAttempts.WithLabelValues(trigger, metrics.ResultError).Inc()
		r.notifier.Error(attachFailedTitle, err)
		return false
	}

	r.set(Attachment{ClusterUUID: uuid, State: StateAttaching, Loading: true})

	if err := r.attachKernel(uuid); err != nil {
		logger.Error("Failed to attach", zap.Error(err))
		r.metrics.AttachAttempts.WithLabelValues(trigger, metrics.ResultError).Inc()
		r.notifier.Error(attachFailedTitle, err)

		if err := r.host.ShutdownSession(r.ctx); err != nil {
			logger.Warn("Failed to shut down session after failed attach", zap.Error(err))
		}
		r.set(detached())
		return false
	}

	logger.Info("Attached session to cluster")
	r.metrics.AttachAttempts.WithLabelValues(trigger, metrics.ResultOK).Inc()
	r.set(Attachment{ClusterUUID: uuid, State: StateAttached})
	return true
}

func (r *Reconciler) attachKernel(uuid types.ClusterUUID) error {
	kernel, err := r.kernels.CreateRemoteKernel(r.ctx, uuid)
	if err != nil {
		return fmt.Errorf("create remote kernel: %w", err)
	}
	if err := r.host.RefreshKernelSpecs(r.ctx); err != nil {
		return fmt.Errorf("refresh kernel specs: %w", err)
	}
	if err := r.host.ChangeKernel(r.ctx, kernel); err != nil {
		return fmt.Errorf("change kernel to %s: %w", kernel, err)
	}
	return nil
}

// detach shuts down the session and clears the attachment
func (r *Reconciler) detach(uuid types.ClusterUUID) {
	r.set(Attachment{ClusterUUID: uuid, State: StateDetaching, Loading: true})
	if err := r.host.ShutdownSession(r.ctx); err != nil {
		r.logger.Warn("Failed to shut down session", uuid.ZapField(), zap.Error(err))
	}
	r.set(detached())
}

// set replaces the attachment and publishes it when it changed
func (r *Reconciler) set(next Attachment) {
	r.mu.Lock()
	if r.attachment == next {
		r.mu.Unlock()
		return
	}
	r.attachment = next
	r.mu.Unlock()

	r.metrics.ObserveAttached(next.IsAttached())
	r.changes.Publish(next)
}
