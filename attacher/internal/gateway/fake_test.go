package gateway

import (
	"context"
	"errors"
	"sync"

	"github.com/williamhogman/clusterlink/attacher/internal/models"
	"github.com/williamhogman/clusterlink/attacher/internal/types"
)

// fakeGateway records calls and returns canned values
type fakeGateway struct {
	mu        sync.Mutex
	clusters  models.ClusterList
	listCalls int
	forced    []bool
	actions   []string
	actionErr error
	config    Config
	configErr error
	configs   int
	release   chan struct{}
}

func (f *fakeGateway) ListClusters(_ context.Context, forceRefresh bool) (models.ClusterList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.forced = append(f.forced, forceRefresh)
	return f.clusters.Clone(), nil
}

func (f *fakeGateway) record(action string, uuid types.ClusterUUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action+":"+uuid.String())
	return f.actionErr
}

func (f *fakeGateway) ResumeCluster(_ context.Context, uuid types.ClusterUUID) error {
	return f.record("resume", uuid)
}

func (f *fakeGateway) PauseCluster(_ context.Context, uuid types.ClusterUUID) error {
	return f.record("pause", uuid)
}

func (f *fakeGateway) StopCluster(_ context.Context, uuid types.ClusterUUID) error {
	return f.record("stop", uuid)
}

func (f *fakeGateway) RestartCluster(_ context.Context, uuid types.ClusterUUID) error {
	return f.record("restart", uuid)
}

func (f *fakeGateway) CreateRemoteKernel(_ context.Context, uuid types.ClusterUUID) (types.KernelName, error) {
	return types.KernelName("remote-" + uuid.String()), nil
}

func (f *fakeGateway) FetchConfig(ctx context.Context) (Config, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return Config{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs++
	return f.config, f.configErr
}

var errFake = errors.New("fake failure")
