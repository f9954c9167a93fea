package types

import (
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Values a user can send to mean "attach to nothing"
const (
	DetachZero = "0"
	DetachNone = "none"
)

// Common errors for ID validation
var (
	ErrEmptyID = errors.New("ID cannot be empty")
)

// ClusterUUID is a typed wrapper for cluster identifiers.
// The gateway treats it as opaque; the empty value means "no cluster".
type ClusterUUID string

// KernelName is a typed wrapper for kernel spec names
type KernelName string

// ParseClusterUUID converts a user supplied selection into a ClusterUUID.
// "", "0" and "none" all select no cluster.
func ParseClusterUUID(raw string) ClusterUUID {
	clean := strings.TrimSpace(raw)
	if clean == DetachZero || strings.EqualFold(clean, DetachNone) {
		return ""
	}
	return ClusterUUID(clean)
}

// NewClusterUUID creates a ClusterUUID, rejecting empty input
func NewClusterUUID(id string) (ClusterUUID, error) {
	clean := strings.TrimSpace(id)
	if clean == "" {
		return "", ErrEmptyID
	}
	return ClusterUUID(clean), nil
}

// IsValid returns true if the cluster UUID is set
func (c ClusterUUID) IsValid() bool {
	return c != ""
}

// String returns the raw cluster UUID
func (c ClusterUUID) String() string {
	return string(c)
}

func (c ClusterUUID) ZapField() zap.Field {
	if !c.IsValid() {
		return zap.Skip()
	}
	return zap.String("clusterUUID", string(c))
}

// NewKernelName creates a KernelName, rejecting empty input
func NewKernelName(name string) (KernelName, error) {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return "", ErrEmptyID
	}
	return KernelName(clean), nil
}

func (k KernelName) IsValid() bool {
	return k != ""
}

// String returns the raw kernel name
func (k KernelName) String() string {
	return string(k)
}

func (k KernelName) ZapField() zap.Field {
	if !k.IsValid() {
		return zap.Skip()
	}
	return zap.String("kernel", string(k))
}
