package session

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/williamhogman/clusterlink/attacher/internal/events"
	"github.com/williamhogman/clusterlink/attacher/internal/types"
)

// MemoryHost is an in-process session host. Kernel specs added with
// AddKernelSpec become usable after RefreshKernelSpecs, like a notebook
// server that has to rescan its kernel spec directory.
type MemoryHost struct {
	mu        sync.Mutex
	logger    *zap.Logger
	pending   map[types.KernelName]map[string]any
	specs     map[types.KernelName]map[string]any
	kernel    types.KernelName
	sessionID string
	changes   *events.Broadcaster[Change]
}

// NewMemoryHost creates a host with no session
func NewMemoryHost(logger *zap.Logger) *MemoryHost {
	return &MemoryHost{
		logger:  logger.Named("memory-host"),
		pending: make(map[types.KernelName]map[string]any),
		specs:   make(map[types.KernelName]map[string]any),
		changes: events.NewBroadcaster[Change](),
	}
}

// AddKernelSpec registers a kernel spec; it is visible after the next refresh
func (h *MemoryHost) AddKernelSpec(name types.KernelName, metadata map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending[name] = maps.Clone(metadata)
}

// SetKernel switches the kernel as if the user picked it in the notebook
func (h *MemoryHost) SetKernel(name types.KernelName) {
	h.mu.Lock()
	changed := h.setKernelLocked(name)
	h.mu.Unlock()

	if changed {
		h.changes.Publish(Change{Kernel: name})
	}
}

// SessionID returns the id of the current session, empty when none exists
func (h *MemoryHost) SessionID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessionID
}

func (h *MemoryHost) CurrentKernel(context.Context) (types.KernelName, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.kernel, nil
}

func (h *MemoryHost) ShutdownSession(context.Context) error {
	h.SetKernel("")
	return nil
}

func (h *MemoryHost) RefreshKernelSpecs(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	maps.Copy(h.specs, h.pending)
	return nil
}

func (h *MemoryHost) ChangeKernel(_ context.Context, name types.KernelName) error {
	h.mu.Lock()
	if _, ok := h.specs[name]; !ok {
		h.mu.Unlock()
		return fmt.Errorf("change kernel to %q: %w", name, ErrUnknownKernel)
	}
	changed := h.setKernelLocked(name)
	h.mu.Unlock()

	if changed {
		h.changes.Publish(Change{Kernel: name})
	}
	return nil
}

func (h *MemoryHost) KernelMetadata(_ context.Context, name types.KernelName) (map[string]any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	metadata, ok := h.specs[name]
	if !ok {
		return nil, fmt.Errorf("kernel metadata for %q: %w", name, ErrUnknownKernel)
	}
	return maps.Clone(metadata), nil
}

func (h *MemoryHost) Subscribe(listener func(Change)) func() {
	return h.changes.Subscribe(listener)
}

// setKernelLocked updates the kernel and session id, reporting whether the
// kernel changed
func (h *MemoryHost) setKernelLocked(name types.KernelName) bool {
	if h.kernel == name {
		return false
	}
	switch {
	case !name.IsValid():
		h.sessionID = ""
	case h.sessionID == "":
		h.sessionID = uuid.New().String()
	}
	h.kernel = name
	h.logger.Debug("Session kernel changed", name.ZapField(), zap.String("sessionID", h.sessionID))
	return true
}
