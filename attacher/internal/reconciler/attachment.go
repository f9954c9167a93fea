package reconciler

import (
	"github.com/williamhogman/clusterlink/attacher/internal/types"
)

// State is the attach lifecycle of the session kernel
type State string

const (
	StateDetached  State = "detached"
	StateAttaching State = "attaching"
	StateAttached  State = "attached"
	StateDetaching State = "detaching"
)

// Attachment is the cluster the session kernel is bound to
type Attachment struct {
	ClusterUUID types.ClusterUUID `json:"clusterUuid"`
	State       State             `json:"state"`
	Loading     bool              `json:"loading"`
}

func detached() Attachment {
	return Attachment{State: StateDetached}
}

// IsAttached reports whether a cluster is bound
func (a Attachment) IsAttached() bool {
	return a.State == StateAttached && a.ClusterUUID.IsValid()
}
