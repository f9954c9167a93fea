package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/williamhogman/clusterlink/attacher/internal/events"
	"github.com/williamhogman/clusterlink/attacher/internal/types"
)

// ErrJupyter is wrapped by errors from the Jupyter Server API
var ErrJupyter = errors.New("jupyter server request failed")

var errSessionNotFound = errors.New("session not found")

// JupyterConfig contains the Jupyter Server connection settings
type JupyterConfig struct {
	BaseURL       string
	Token         string
	NotebookPath  string
	SessionID     string
	WatchInterval time.Duration
}

type jupyterKernel struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type jupyterSession struct {
	ID     string         `json:"id,omitempty"`
	Path   string         `json:"path"`
	Name   string         `json:"name"`
	Type   string         `json:"type"`
	Kernel *jupyterKernel `json:"kernel,omitempty"`
}

type jupyterKernelSpecs struct {
	Default     string `json:"default"`
	KernelSpecs map[string]struct {
		Name string `json:"name"`
		Spec struct {
			DisplayName string         `json:"display_name"`
			Language    string         `json:"language"`
			Metadata    map[string]any `json:"metadata"`
		} `json:"spec"`
	} `json:"kernelspecs"`
}

// JupyterHost manages one notebook session on a Jupyter Server through its
// REST API. The session is watched by polling.
type JupyterHost struct {
	baseURL    *url.URL
	token      string
	path       string
	interval   time.Duration
	httpClient *http.Client
	logger     *zap.Logger
	changes    *events.Broadcaster[Change]

	mu         sync.Mutex
	sessionID  string
	specs      map[types.KernelName]map[string]any
	lastKernel types.KernelName
	observed   bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewJupyterHost creates a host for the notebook at cfg.NotebookPath
func NewJupyterHost(cfg JupyterConfig, logger *zap.Logger) (*JupyterHost, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid jupyter URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("jupyter URL %q must be absolute", cfg.BaseURL)
	}
	interval := cfg.WatchInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &JupyterHost{
		baseURL:    base,
		token:      cfg.Token,
		path:       cfg.NotebookPath,
		interval:   interval,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.Named("jupyter-host"),
		changes:    events.NewBroadcaster[Change](),
		sessionID:  cfg.SessionID,
		specs:      make(map[types.KernelName]map[string]any),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start begins watching the session for kernel changes
func (h *JupyterHost) Start() {
	h.logger.Info("Starting session watcher",
		zap.String("path", h.path),
		zap.Duration("interval", h.interval))

	h.done = make(chan struct{})
	go h.watch()
}

// Stop stops the watcher and waits for it to exit
func (h *JupyterHost) Stop() {
	h.logger.Info("Stopping session watcher")
	h.cancel()
	if h.done != nil {
		<-h.done
	}
}

func (h *JupyterHost) watch() {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			if _, err := h.CurrentKernel(h.ctx); err != nil && h.ctx.Err() == nil {
				h.logger.Warn("Failed to poll session", zap.Error(err))
			}
		}
	}
}

// CurrentKernel returns the kernel of the watched session
func (h *JupyterHost) CurrentKernel(ctx context.Context) (types.KernelName, error) {
	session, err := h.findSession(ctx)
	if errors.Is(err, errSessionNotFound) {
		h.observe("", "")
		return "", nil
	}
	if err != nil {
		return "", err
	}

	var kernel types.KernelName
	if session.Kernel != nil {
		kernel = types.KernelName(session.Kernel.Name)
	}
	h.observe(session.ID, kernel)
	return kernel, nil
}

func (h *JupyterHost) findSession(ctx context.Context) (*jupyterSession, error) {
	h.mu.Lock()
	id := h.sessionID
	h.mu.Unlock()

	if id != "" {
		var session jupyterSession
		err := h.do(ctx, http.MethodGet, "api/sessions/"+url.PathEscape(id), nil, &session)
		if err == nil {
			return &session, nil
		}
		if !errors.Is(err, errSessionNotFound) {
			return nil, err
		}
	}

	var sessions []jupyterSession
	if err := h.do(ctx, http.MethodGet, "api/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].Path == h.path {
			return &sessions[i], nil
		}
	}
	return nil, errSessionNotFound
}

// ShutdownSession deletes the session along with its kernel
func (h *JupyterHost) ShutdownSession(ctx context.Context) error {
	session, err := h.findSession(ctx)
	if errors.Is(err, errSessionNotFound) {
		h.observe("", "")
		return nil
	}
	if err != nil {
		return err
	}

	err = h.do(ctx, http.MethodDelete, "api/sessions/"+url.PathEscape(session.ID), nil, nil)
	if err != nil && !errors.Is(err, errSessionNotFound) {
		return err
	}
	h.logger.Info("Session shut down", zap.String("sessionID", session.ID))
	h.observe("", "")
	return nil
}

// RefreshKernelSpecs reloads the kernel specs from the server
func (h *JupyterHost) RefreshKernelSpecs(ctx context.Context) error {
	var resp jupyterKernelSpecs
	if err := h.do(ctx, http.MethodGet, "api/kernelspecs", nil, &resp); err != nil {
		return err
	}

	specs := make(map[types.KernelName]map[string]any, len(resp.KernelSpecs))
	for name, spec := range resp.KernelSpecs {
		specs[types.KernelName(name)] = spec.Spec.Metadata
	}

	h.mu.Lock()
	h.specs = specs
	h.mu.Unlock()

	h.logger.Debug("Kernel specs refreshed", zap.Int("count", len(specs)))
	return nil
}

// ChangeKernel switches the session kernel, creating the session if needed
func (h *JupyterHost) ChangeKernel(ctx context.Context, name types.KernelName) error {
	h.mu.Lock()
	_, known := h.specs[name]
	h.mu.Unlock()
	if !known {
		return fmt.Errorf("change kernel to %q: %w", name, ErrUnknownKernel)
	}

	body := jupyterSession{
		Path:   h.path,
		Type:   "notebook",
		Kernel: &jupyterKernel{Name: name.String()},
	}

	var result jupyterSession
	existing, err := h.findSession(ctx)
	switch {
	case err == nil:
		err = h.do(ctx, http.MethodPatch, "api/sessions/"+url.PathEscape(existing.ID), body, &result)
	case errors.Is(err, errSessionNotFound):
		err = h.do(ctx, http.MethodPost, "api/sessions", body, &result)
	}
	if err != nil {
		return err
	}

	h.logger.Info("Session kernel changed", name.ZapField(), zap.String("sessionID", result.ID))
	h.observe(result.ID, name)
	return nil
}

// KernelMetadata returns the metadata of a kernel spec, refreshing the specs
// once when the name is unknown
func (h *JupyterHost) KernelMetadata(ctx context.Context, name types.KernelName) (map[string]any, error) {
	if metadata, ok := h.cachedMetadata(name); ok {
		return metadata, nil
	}
	if err := h.RefreshKernelSpecs(ctx); err != nil {
		return nil, err
	}
	if metadata, ok := h.cachedMetadata(name); ok {
		return metadata, nil
	}
	return nil, fmt.Errorf("kernel metadata for %q: %w", name, ErrUnknownKernel)
}

func (h *JupyterHost) cachedMetadata(name types.KernelName) (map[string]any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	metadata, ok := h.specs[name]
	return maps.Clone(metadata), ok
}

func (h *JupyterHost) Subscribe(listener func(Change)) func() {
	return h.changes.Subscribe(listener)
}

// observe records the session state and publishes when the kernel changed
func (h *JupyterHost) observe(sessionID string, kernel types.KernelName) {
	h.mu.Lock()
	if sessionID != "" {
		h.sessionID = sessionID
	}
	changed := !h.observed || h.lastKernel != kernel
	h.lastKernel = kernel
	h.observed = true
	h.mu.Unlock()

	if changed {
		h.changes.Publish(Change{Kernel: kernel})
	}
}

func (h *JupyterHost) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	target := h.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.token != "" {
		req.Header.Set("Authorization", "token "+h.token)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrJupyter, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errSessionNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s: status %d", ErrJupyter, method, path, resp.StatusCode)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrJupyter, path, err)
	}
	return nil
}
