package clusterstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingUpdater struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (u *countingUpdater) Update(context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	return u.err
}

func (u *countingUpdater) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}

func TestNextInterval(t *testing.T) {
	cfg := PollerConfig{Interval: 10 * time.Second, MaxInterval: time.Minute, BackoffFactor: 2}

	tests := []struct {
		name    string
		current time.Duration
		failed  bool
		want    time.Duration
	}{
		{"success resets", 40 * time.Second, false, 10 * time.Second},
		{"first failure doubles", 10 * time.Second, true, 20 * time.Second},
		{"second failure doubles", 20 * time.Second, true, 40 * time.Second},
		{"capped", 40 * time.Second, true, time.Minute},
		{"stays capped", time.Minute, true, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextInterval(cfg, tt.current, tt.failed))
		})
	}
}

func TestPoller_ImmediateFirstUpdate(t *testing.T) {
	updater := &countingUpdater{}
	poller := NewPoller(updater, PollerConfig{Interval: time.Hour, MaxInterval: time.Hour, BackoffFactor: 2}, zaptest.NewLogger(t))

	poller.Start()
	defer poller.Stop()

	require.Eventually(t, func() bool { return updater.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPoller_PollsOnInterval(t *testing.T) {
	updater := &countingUpdater{}
	poller := NewPoller(updater, PollerConfig{Interval: 10 * time.Millisecond, MaxInterval: 10 * time.Millisecond, BackoffFactor: 2}, zaptest.NewLogger(t))

	poller.Start()
	defer poller.Stop()

	require.Eventually(t, func() bool { return updater.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestPoller_HiddenSkipsAndVisibleWakes(t *testing.T) {
	updater := &countingUpdater{}
	poller := NewPoller(updater, PollerConfig{Interval: 10 * time.Millisecond, MaxInterval: 10 * time.Millisecond, BackoffFactor: 1}, zaptest.NewLogger(t))
	poller.SetVisible(false)
	assert.False(t, poller.Visible())

	poller.Start()
	defer poller.Stop()

	// Only the initial update runs while hidden
	require.Eventually(t, func() bool { return updater.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, updater.count())

	poller.SetVisible(true)
	require.Eventually(t, func() bool { return updater.count() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestPoller_VisibleAgainTriggersImmediateCycle(t *testing.T) {
	updater := &countingUpdater{}
	poller := NewPoller(updater, PollerConfig{Interval: time.Hour, MaxInterval: time.Hour, BackoffFactor: 2}, zaptest.NewLogger(t))

	poller.Start()
	defer poller.Stop()
	require.Eventually(t, func() bool { return updater.count() == 1 }, time.Second, 5*time.Millisecond)

	// Repeated visible calls do not wake the loop
	poller.SetVisible(true)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, updater.count())

	poller.SetVisible(false)
	poller.SetVisible(true)
	require.Eventually(t, func() bool { return updater.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestPoller_StopWaitsForLoop(t *testing.T) {
	updater := &countingUpdater{}
	poller := NewPoller(updater, PollerConfig{Interval: time.Millisecond, MaxInterval: time.Millisecond, BackoffFactor: 1}, zaptest.NewLogger(t))

	poller.Start()
	require.Eventually(t, func() bool { return updater.count() >= 2 }, time.Second, time.Millisecond)
	poller.Stop()

	after := updater.count()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, updater.count())
}

func TestNewPoller_Defaults(t *testing.T) {
	poller := NewPoller(&countingUpdater{}, PollerConfig{}, zaptest.NewLogger(t))
	assert.Equal(t, 10*time.Second, poller.cfg.Interval)
	assert.Equal(t, 10*time.Second, poller.cfg.MaxInterval)
	assert.Equal(t, 1.0, poller.cfg.BackoffFactor)
}
