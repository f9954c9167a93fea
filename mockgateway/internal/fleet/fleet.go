package fleet

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Common errors for fleet operations
var (
	ErrNotFound          = errors.New("cluster not found")
	ErrInvalidTransition = errors.New("invalid cluster transition")
	ErrUnknownAction     = errors.New("unknown cluster action")
)

// Cluster is a simulated cluster as served by the gateway
type Cluster struct {
	UUID            string   `json:"uuid"`
	Name            string   `json:"name"`
	Status          string   `json:"status"`
	WorkersQuantity int      `json:"workersQuantity"`
	InstanceType    string   `json:"instanceType"`
	BodoVersion     string   `json:"bodoVersion"`
	NodesIP         []string `json:"nodesIp"`
}

// transition is the path an action takes: allowed source statuses, the
// status held while the action runs and the final status
type transition struct {
	from    []string
	via     string
	settled string
}

var transitions = map[string]transition{
	"resume":  {from: []string{"PAUSED"}, via: "RESUMING", settled: "RUNNING"},
	"pause":   {from: []string{"RUNNING"}, via: "PAUSING", settled: "PAUSED"},
	"stop":    {from: []string{"RUNNING", "PAUSED"}, via: "STOPPING", settled: "STOPPED"},
	"restart": {from: []string{"RUNNING", "STOPPED"}, via: "INITIALIZING", settled: "RUNNING"},
}

var knownStatuses = []string{
	"NEW", "INPROGRESS", "ASGCREATED", "INITIALIZING", "SCALING", "RUNNING", "FAILED",
	"TERMINATING", "TERMINATED", "PAUSING", "PAUSED", "RESUMING", "STOPPING", "STOPPED",
}

// Fleet holds the simulated clusters
type Fleet struct {
	mu       sync.Mutex
	clusters map[string]*Cluster
	order    []string
	delay    time.Duration
	timers   map[string]*time.Timer
	logger   *zap.Logger
	stopped  bool
}

// New creates an empty fleet; transitions settle after delay
func New(delay time.Duration, logger *zap.Logger) *Fleet {
	return &Fleet{
		clusters: make(map[string]*Cluster),
		delay:    delay,
		timers:   make(map[string]*time.Timer),
		logger:   logger.Named("fleet"),
	}
}

// Seed adds clusters described as name:STATUS pairs
func (f *Fleet) Seed(specs []string) error {
	for _, spec := range specs {
		name, status, ok := strings.Cut(strings.TrimSpace(spec), ":")
		if !ok || name == "" {
			return fmt.Errorf("invalid cluster spec %q, want name:STATUS", spec)
		}
		status = strings.ToUpper(strings.TrimSpace(status))
		if !slices.Contains(knownStatuses, status) {
			return fmt.Errorf("invalid status %q for cluster %q", status, name)
		}
		f.Add(name, status)
	}
	return nil
}

// Add creates a cluster and returns its uuid
func (f *Fleet) Add(name, status string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := uuid.New().String()
	f.clusters[id] = &Cluster{
		UUID:            id,
		Name:            name,
		Status:          status,
		WorkersQuantity: 2,
		InstanceType:    "c5.2xlarge",
		BodoVersion:     "2024.5",
		NodesIP:         nodeIPs(len(f.order), status),
	}
	f.order = append(f.order, id)
	f.logger.Info("Cluster added", zap.String("uuid", id), zap.String("name", name), zap.String("status", status))
	return id
}

// List returns copies of every cluster in creation order
func (f *Fleet) List() []Cluster {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]Cluster, 0, len(f.order))
	for _, id := range f.order {
		c := *f.clusters[id]
		c.NodesIP = slices.Clone(c.NodesIP)
		result = append(result, c)
	}
	return result
}

// Get returns a copy of one cluster
func (f *Fleet) Get(id string) (Cluster, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.clusters[id]
	if !ok {
		return Cluster{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	copied := *c
	copied.NodesIP = slices.Clone(c.NodesIP)
	return copied, nil
}

// Apply starts a lifecycle action. The cluster moves to the transitional
// status at once and settles after the configured delay.
func (f *Fleet) Apply(id, action string) error {
	t, ok := transitions[action]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.clusters[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !slices.Contains(t.from, c.Status) {
		return fmt.Errorf("%w: cannot %s a cluster in status %s", ErrInvalidTransition, action, c.Status)
	}

	f.logger.Info("Cluster transition started",
		zap.String("uuid", id),
		zap.String("action", action),
		zap.String("from", c.Status),
		zap.String("to", t.settled))

	c.Status = t.via
	c.NodesIP = nil
	if existing, ok := f.timers[id]; ok {
		existing.Stop()
	}
	f.timers[id] = time.AfterFunc(f.delay, func() { f.settle(id, t.settled) })
	return nil
}

func (f *Fleet) settle(id, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped {
		return
	}
	c, ok := f.clusters[id]
	if !ok {
		return
	}
	c.Status = status
	c.NodesIP = nodeIPs(slices.Index(f.order, id), status)
	delete(f.timers, id)
	f.logger.Info("Cluster transition finished", zap.String("uuid", id), zap.String("status", status))
}

// Stop cancels pending transitions
func (f *Fleet) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopped = true
	for id, timer := range f.timers {
		timer.Stop()
		delete(f.timers, id)
	}
}

func nodeIPs(index int, status string) []string {
	if status != "RUNNING" {
		return nil
	}
	return []string{fmt.Sprintf("10.0.%d.10", index), fmt.Sprintf("10.0.%d.11", index)}
}
