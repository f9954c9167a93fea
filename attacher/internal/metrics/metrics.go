package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"

	"github.com/williamhogman/clusterlink/attacher/internal/models"
)

const namespace = "clusterlink"

// Result label values
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Trigger label values for attach attempts
const (
	TriggerAuto = "auto"
	TriggerUser = "user"
)

// Metrics holds the collectors exported by the attacher
type Metrics struct {
	Polls          *prometheus.CounterVec
	ListChanges    prometheus.Counter
	Clusters       *prometheus.GaugeVec
	AttachAttempts *prometheus.CounterVec
	StaleDetaches  prometheus.Counter
	Attached       prometheus.Gauge
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cluster_list_fetches_total",
			Help:      "Cluster list fetches from the gateway by result.",
		}, []string{"result"}),
		ListChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cluster_list_changes_total",
			Help:      "Fetches that produced a different cluster list.",
		}),
		Clusters: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clusters",
			Help:      "Clusters in the last fetched list by status.",
		}, []string{"status"}),
		AttachAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attach_attempts_total",
			Help:      "Kernel attach attempts by trigger and result.",
		}, []string{"trigger", "result"}),
		StaleDetaches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_detaches_total",
			Help:      "Detaches caused by the attached cluster disappearing or leaving RUNNING.",
		}),
		Attached: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "attached",
			Help:      "1 while the session kernel is attached to a cluster.",
		}),
	}

	reg.MustRegister(m.Polls, m.ListChanges, m.Clusters, m.AttachAttempts, m.StaleDetaches, m.Attached)
	return m
}

// NewNop creates collectors that are not registered anywhere
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObserveClusters replaces the per-status gauge values
func (m *Metrics) ObserveClusters(clusters models.ClusterList) {
	counts := clusters.CountByStatus()
	for _, status := range models.AllStatuses {
		m.Clusters.WithLabelValues(status.String()).Set(float64(counts[status]))
	}
}

// ObserveAttached records whether a cluster is attached
func (m *Metrics) ObserveAttached(attached bool) {
	if attached {
		m.Attached.Set(1)
		return
	}
	m.Attached.Set(0)
}

// ProvideRegistry creates the registry served on /metrics
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics registers the attacher collectors
func ProvideMetrics(reg *prometheus.Registry) *Metrics {
	return New(reg)
}

// Module provides the metrics dependencies to the fx container
var Module = fx.Options(
	fx.Provide(ProvideRegistry),
	fx.Provide(ProvideMetrics),
)
