package models

// Status is the lifecycle phase of a remote cluster as reported by the gateway
type Status string

const (
	StatusNew          Status = "NEW"
	StatusInProgress   Status = "INPROGRESS"
	StatusASGCreated   Status = "ASGCREATED"
	StatusInitializing Status = "INITIALIZING"
	StatusScaling      Status = "SCALING"
	StatusRunning      Status = "RUNNING"
	StatusFailed       Status = "FAILED"
	StatusTerminating  Status = "TERMINATING"
	StatusTerminated   Status = "TERMINATED"
	StatusPausing      Status = "PAUSING"
	StatusPaused       Status = "PAUSED"
	StatusResuming     Status = "RESUMING"
	StatusStopping     Status = "STOPPING"
	StatusStopped      Status = "STOPPED"
)

// AllStatuses lists every known status in lifecycle order
var AllStatuses = []Status{
	StatusNew,
	StatusInProgress,
	StatusASGCreated,
	StatusInitializing,
	StatusScaling,
	StatusRunning,
	StatusFailed,
	StatusTerminating,
	StatusTerminated,
	StatusPausing,
	StatusPaused,
	StatusResuming,
	StatusStopping,
	StatusStopped,
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsRunning reports whether a kernel may be attached to a cluster in this status
func (s Status) IsRunning() bool {
	return s == StatusRunning
}

// IsTransitional reports whether the cluster is moving between two stable states
func (s Status) IsTransitional() bool {
	switch s {
	case StatusInProgress, StatusASGCreated, StatusInitializing, StatusScaling,
		StatusTerminating, StatusPausing, StatusResuming, StatusStopping:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
