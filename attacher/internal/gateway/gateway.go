package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/williamhogman/clusterlink/attacher/internal/models"
	"github.com/williamhogman/clusterlink/attacher/internal/types"
)

// ErrGateway is wrapped by every error returned from a gateway call, whether
// the gateway was unreachable or answered with an application error
var ErrGateway = errors.New("cluster gateway request failed")

// Error describes a failed gateway call
type Error struct {
	// Operation is a short description such as "list clusters"
	Operation string
	// StatusCode is the HTTP status, 0 when no response was received
	StatusCode int
	// Message is the application error text from the "e" field, if any
	Message string
	// Err is the underlying transport error, if any
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Operation, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Operation, e.Err)
	default:
		return fmt.Sprintf("%s: unexpected status %d", e.Operation, e.StatusCode)
	}
}

// Unwrap exposes both ErrGateway and the transport error to errors.Is
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrGateway, e.Err}
	}
	return []error{ErrGateway}
}

// Config is the small settings object served by the gateway
type Config struct {
	AutoAttach          bool `json:"auto_attach"`
	CatalogMode         bool `json:"catalog_mode"`
	AllowLocalExecution bool `json:"allowLocalExecution"`
}

// ClusterLister fetches the current cluster list
type ClusterLister interface {
	ListClusters(ctx context.Context, forceRefresh bool) (models.ClusterList, error)
}

// ClusterController changes the lifecycle state of a cluster
type ClusterController interface {
	ResumeCluster(ctx context.Context, uuid types.ClusterUUID) error
	PauseCluster(ctx context.Context, uuid types.ClusterUUID) error
	StopCluster(ctx context.Context, uuid types.ClusterUUID) error
	RestartCluster(ctx context.Context, uuid types.ClusterUUID) error
}

// KernelCreator creates remote kernels bound to a cluster
type KernelCreator interface {
	CreateRemoteKernel(ctx context.Context, uuid types.ClusterUUID) (types.KernelName, error)
}

// Gateway is the remote cluster gateway
type Gateway interface {
	ClusterLister
	ClusterController
	KernelCreator
	FetchConfig(ctx context.Context) (Config, error)
}

// Apply dispatches a lifecycle action to the matching controller method
func Apply(ctx context.Context, c ClusterController, uuid types.ClusterUUID, action models.Action) error {
	switch action {
	case models.ActionResume:
		return c.ResumeCluster(ctx, uuid)
	case models.ActionPause:
		return c.PauseCluster(ctx, uuid)
	case models.ActionStop:
		return c.StopCluster(ctx, uuid)
	case models.ActionRestart:
		return c.RestartCluster(ctx, uuid)
	default:
		return fmt.Errorf("unknown cluster action %q", action)
	}
}
