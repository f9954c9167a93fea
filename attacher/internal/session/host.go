package session

import (
	"context"
	"errors"

	"github.com/williamhogman/clusterlink/attacher/internal/types"
)

// MetadataClusterUUID is the kernel spec metadata key naming the cluster a
// remote kernel runs on
const MetadataClusterUUID = "cluster_uuid"

// Common errors for session operations
var (
	// ErrUnknownKernel is returned when a kernel spec is not known to the host
	ErrUnknownKernel = errors.New("unknown kernel spec")
)

// Change is published whenever the session's kernel changes.
// An empty Kernel means the session has no kernel.
type Change struct {
	Kernel types.KernelName
}

// Host is the notebook session the attacher manages
type Host interface {
	// CurrentKernel returns the session's kernel, empty when there is none
	CurrentKernel(ctx context.Context) (types.KernelName, error)

	// ShutdownSession stops the session's kernel
	ShutdownSession(ctx context.Context) error

	// RefreshKernelSpecs reloads the available kernel specs
	RefreshKernelSpecs(ctx context.Context) error

	// ChangeKernel switches the session to the named kernel spec
	ChangeKernel(ctx context.Context, name types.KernelName) error

	// KernelMetadata returns the metadata of the named kernel spec
	KernelMetadata(ctx context.Context, name types.KernelName) (map[string]any, error)

	// Subscribe registers a listener for kernel changes
	Subscribe(listener func(Change)) func()
}

// ClusterFromMetadata extracts the cluster uuid from kernel spec metadata
func ClusterFromMetadata(metadata map[string]any) (types.ClusterUUID, bool) {
	raw, ok := metadata[MetadataClusterUUID]
	if !ok {
		return "", false
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return "", false
	}
	return types.ClusterUUID(value), true
}
