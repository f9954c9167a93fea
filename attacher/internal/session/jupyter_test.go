package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/williamhogman/clusterlink/attacher/internal/types"
)

// fakeJupyter is a minimal Jupyter Server sessions and kernelspecs API
type fakeJupyter struct {
	mu       sync.Mutex
	sessions map[string]*jupyterSession
	specs    map[string]map[string]any
	nextID   int
	auth     []string
}

func newFakeJupyter(t *testing.T) (*fakeJupyter, *httptest.Server) {
	f := &fakeJupyter{
		sessions: make(map[string]*jupyterSession),
		specs: map[string]map[string]any{
			"python3":  nil,
			"remote-a": {MetadataClusterUUID: "a"},
		},
	}

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			f.auth = append(f.auth, req.Header.Get("Authorization"))
			f.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	r.HandleFunc("/api/sessions", f.listSessions).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions", f.createSession).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}", f.getSession).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}", f.patchSession).Methods(http.MethodPatch)
	r.HandleFunc("/api/sessions/{id}", f.deleteSession).Methods(http.MethodDelete)
	r.HandleFunc("/api/kernelspecs", f.kernelSpecs).Methods(http.MethodGet)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeJupyter) listSessions(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := make([]*jupyterSession, 0, len(f.sessions))
	for _, s := range f.sessions {
		list = append(list, s)
	}
	_ = json.NewEncoder(w).Encode(list)
}

func (f *fakeJupyter) createSession(w http.ResponseWriter, r *http.Request) {
	var body jupyterSession
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	body.ID = "session-" + string(rune('0'+f.nextID))
	f.sessions[body.ID] = &body
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeJupyter) getSession(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[mux.Vars(r)["id"]]
	if !ok {
		http.NotFound(w, r)
		return
	}
	_ = json.NewEncoder(w).Encode(s)
}

func (f *fakeJupyter) patchSession(w http.ResponseWriter, r *http.Request) {
	var body jupyterSession
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[mux.Vars(r)["id"]]
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.Kernel = body.Kernel
	_ = json.NewEncoder(w).Encode(s)
}

func (f *fakeJupyter) deleteSession(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := mux.Vars(r)["id"]
	if _, ok := f.sessions[id]; !ok {
		http.NotFound(w, r)
		return
	}
	delete(f.sessions, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeJupyter) kernelSpecs(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	specs := make(map[string]any, len(f.specs))
	for name, metadata := range f.specs {
		specs[name] = map[string]any{
			"name": name,
			"spec": map[string]any{"display_name": name, "language": "python", "metadata": metadata},
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"default": "python3", "kernelspecs": specs})
}

// setKernel changes the kernel server side, as a user in the notebook would
func (f *fakeJupyter) setKernel(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		s.Kernel = &jupyterKernel{Name: name}
	}
}

func newTestJupyterHost(t *testing.T, srv *httptest.Server) *JupyterHost {
	host, err := NewJupyterHost(JupyterConfig{
		BaseURL:       srv.URL,
		Token:         "tok",
		NotebookPath:  "work/analysis.ipynb",
		WatchInterval: 10 * time.Millisecond,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return host
}

func TestJupyterHost_NoSession(t *testing.T) {
	_, srv := newFakeJupyter(t)
	host := newTestJupyterHost(t, srv)

	kernel, err := host.CurrentKernel(context.Background())
	require.NoError(t, err)
	assert.Empty(t, kernel)

	assert.NoError(t, host.ShutdownSession(context.Background()))
}

func TestJupyterHost_ChangeKernelCreatesThenPatches(t *testing.T) {
	fake, srv := newFakeJupyter(t)
	host := newTestJupyterHost(t, srv)
	ctx := context.Background()

	err := host.ChangeKernel(ctx, "remote-a")
	assert.ErrorIs(t, err, ErrUnknownKernel)

	require.NoError(t, host.RefreshKernelSpecs(ctx))
	require.NoError(t, host.ChangeKernel(ctx, "remote-a"))
	require.Len(t, fake.sessions, 1)

	require.NoError(t, host.ChangeKernel(ctx, "python3"))
	require.Len(t, fake.sessions, 1)

	kernel, err := host.CurrentKernel(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.KernelName("python3"), kernel)

	for _, auth := range fake.auth {
		assert.Equal(t, "token tok", auth)
	}
}

func TestJupyterHost_Shutdown(t *testing.T) {
	fake, srv := newFakeJupyter(t)
	host := newTestJupyterHost(t, srv)
	ctx := context.Background()

	require.NoError(t, host.RefreshKernelSpecs(ctx))
	require.NoError(t, host.ChangeKernel(ctx, "python3"))
	require.NoError(t, host.ShutdownSession(ctx))

	assert.Empty(t, fake.sessions)
	kernel, err := host.CurrentKernel(ctx)
	require.NoError(t, err)
	assert.Empty(t, kernel)
}

func TestJupyterHost_KernelMetadataRefreshesOnMiss(t *testing.T) {
	_, srv := newFakeJupyter(t)
	host := newTestJupyterHost(t, srv)

	metadata, err := host.KernelMetadata(context.Background(), "remote-a")
	require.NoError(t, err)
	uuid, ok := ClusterFromMetadata(metadata)
	assert.True(t, ok)
	assert.Equal(t, types.ClusterUUID("a"), uuid)

	_, err = host.KernelMetadata(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownKernel)
}

func TestJupyterHost_WatcherPublishesChanges(t *testing.T) {
	fake, srv := newFakeJupyter(t)
	host := newTestJupyterHost(t, srv)
	ctx := context.Background()

	require.NoError(t, host.RefreshKernelSpecs(ctx))
	require.NoError(t, host.ChangeKernel(ctx, "python3"))

	var mu sync.Mutex
	var seen []types.KernelName
	host.Subscribe(func(c Change) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, c.Kernel)
	})

	host.Start()
	defer host.Stop()

	fake.setKernel("remote-a")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] == "remote-a"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJupyterHost_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	host := newTestJupyterHost(t, srv)
	_, err := host.CurrentKernel(context.Background())
	assert.ErrorIs(t, err, ErrJupyter)
}
