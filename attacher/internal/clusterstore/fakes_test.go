package clusterstore

import (
	"context"
	"errors"
	"sync"

	"github.com/williamhogman/clusterlink/attacher/internal/models"
	"github.com/williamhogman/clusterlink/attacher/internal/types"
)

var errUnavailable = errors.New("gateway unavailable")

type fakeBackend struct {
	mu        sync.Mutex
	clusters  models.ClusterList
	err       error
	forced    []bool
	actions   []string
	actionErr error
}

func (f *fakeBackend) setClusters(clusters models.ClusterList) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clusters = clusters
}

func (f *fakeBackend) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeBackend) calls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.forced...)
}

func (f *fakeBackend) ListClusters(_ context.Context, forceRefresh bool) (models.ClusterList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forced = append(f.forced, forceRefresh)
	if f.err != nil {
		return nil, f.err
	}
	return f.clusters.Clone(), nil
}

func (f *fakeBackend) record(action string, uuid types.ClusterUUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action+":"+uuid.String())
	return f.actionErr
}

func (f *fakeBackend) ResumeCluster(_ context.Context, uuid types.ClusterUUID) error {
	return f.record("resume", uuid)
}

func (f *fakeBackend) PauseCluster(_ context.Context, uuid types.ClusterUUID) error {
	return f.record("pause", uuid)
}

func (f *fakeBackend) StopCluster(_ context.Context, uuid types.ClusterUUID) error {
	return f.record("stop", uuid)
}

func (f *fakeBackend) RestartCluster(_ context.Context, uuid types.ClusterUUID) error {
	return f.record("restart", uuid)
}

type recordingNotifier struct {
	mu     sync.Mutex
	errors []string
}

func (n *recordingNotifier) Error(title string, _ error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, title)
}

func (n *recordingNotifier) Notice(string, string) {}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}

func cluster(uuid string, status models.Status) models.Cluster {
	return models.Cluster{UUID: types.ClusterUUID(uuid), Name: "cluster-" + uuid, Status: status}
}
