package models

import (
	"slices"
	"strings"

	"github.com/williamhogman/clusterlink/attacher/internal/types"
)

// Cluster represents one remote compute cluster as reported by the gateway
type Cluster struct {
	// Stable unique identifier of the cluster
	UUID types.ClusterUUID `json:"uuid"`
	// Display name
	Name string `json:"name"`
	// Lifecycle phase
	Status Status `json:"status"`
	// Descriptive metadata, not used by the attachment logic
	WorkersQuantity int      `json:"workersQuantity"`
	InstanceType    string   `json:"instanceType"`
	BodoVersion     string   `json:"bodoVersion"`
	NodesIP         []string `json:"nodesIp"`
}

// NewCluster creates a new cluster instance with no descriptive metadata
func NewCluster(uuid types.ClusterUUID, name string, status Status) Cluster {
	return Cluster{
		UUID:   uuid,
		Name:   name,
		Status: status,
	}
}

// Equal reports whether every field of c and other is identical
func (c Cluster) Equal(other Cluster) bool {
	return c.UUID == other.UUID &&
		c.Name == other.Name &&
		c.Status == other.Status &&
		c.WorkersQuantity == other.WorkersQuantity &&
		c.InstanceType == other.InstanceType &&
		c.BodoVersion == other.BodoVersion &&
		slices.Equal(c.NodesIP, other.NodesIP)
}

// Clone returns a copy that shares no memory with c
func (c Cluster) Clone() Cluster {
	c.NodesIP = slices.Clone(c.NodesIP)
	return c
}

// CompareStatus orders clusters for display: RUNNING first, then
// INITIALIZING, everything else unordered.
func CompareStatus(a, b Cluster) int {
	if a.Status == b.Status {
		return 0
	}
	if a.Status == StatusRunning {
		return -1
	}
	if b.Status == StatusRunning {
		return 1
	}
	if a.Status == StatusInitializing {
		return -1
	}
	if b.Status == StatusInitializing {
		return 1
	}
	return 0
}

func compareUUID(a, b Cluster) int {
	return strings.Compare(a.UUID.String(), b.UUID.String())
}
