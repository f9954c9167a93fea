package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williamhogman/clusterlink/attacher/internal/models"
)

func TestObserveClusters(t *testing.T) {
	m := NewNop()

	m.ObserveClusters(models.ClusterList{
		{UUID: "a", Status: models.StatusRunning},
		{UUID: "b", Status: models.StatusRunning},
		{UUID: "c", Status: models.StatusPaused},
	})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Clusters.WithLabelValues("RUNNING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Clusters.WithLabelValues("PAUSED")))

	// Statuses that disappear drop back to zero
	m.ObserveClusters(models.ClusterList{{UUID: "c", Status: models.StatusPaused}})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Clusters.WithLabelValues("RUNNING")))
}

func TestObserveAttached(t *testing.T) {
	m := NewNop()

	m.ObserveAttached(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Attached))
	m.ObserveAttached(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Attached))
}

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Polls.WithLabelValues(ResultOK).Inc()
	m.AttachAttempts.WithLabelValues(TriggerAuto, ResultError).Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "clusterlink_cluster_list_fetches_total")
	assert.Contains(t, names, "clusterlink_attach_attempts_total")
	assert.Contains(t, names, "clusterlink_attached")

	assert.Panics(t, func() { New(reg) }, "registering twice must fail")
}
