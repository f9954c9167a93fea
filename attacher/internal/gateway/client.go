package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/williamhogman/clusterlink/attacher/internal/models"
	"github.com/williamhogman/clusterlink/attacher/internal/types"
)

// maxResponseBytes bounds how much of a gateway response is read
const maxResponseBytes = 4 << 20

// ClientConfig contains the HTTP client settings
type ClientConfig struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
}

// Client talks to the remote cluster gateway over HTTP
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a new gateway client
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid gateway base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("gateway base URL %q must be absolute", cfg.BaseURL)
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: base,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.Named("gateway-client"),
	}, nil
}

// envelope is the common response shape; a non-empty E marks an
// application error regardless of the HTTP status
type envelope struct {
	E json.RawMessage `json:"e,omitempty"`
}

type listClustersResponse struct {
	envelope
	Clusters models.ClusterList `json:"clusters"`
}

type remoteKernelResponse struct {
	envelope
	RemoteKernelName string `json:"remote_kernel_name"`
}

type configResponse struct {
	envelope
	Config
}

// applicationError extracts the message carried in the "e" field
func (e envelope) applicationError() (string, bool) {
	raw := bytes.TrimSpace(e.E)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var message string
	if err := json.Unmarshal(raw, &message); err == nil {
		return message, true
	}
	return string(raw), true
}

type failable interface {
	applicationError() (string, bool)
}

// ListClusters fetches the cluster list. FAILED clusters are dropped.
func (c *Client) ListClusters(ctx context.Context, forceRefresh bool) (models.ClusterList, error) {
	query := url.Values{}
	query.Set("forceRefresh", strconv.FormatBool(forceRefresh))

	var resp listClustersResponse
	if err := c.do(ctx, "list clusters", http.MethodGet, "clusters", query, &resp); err != nil {
		return nil, err
	}

	clusters := resp.Clusters.Filter(func(cl models.Cluster) bool {
		return cl.Status != models.StatusFailed
	})

	c.logger.Debug("Cluster list received from gateway",
		zap.Bool("forceRefresh", forceRefresh),
		zap.Int("received", len(resp.Clusters)),
		zap.Int("kept", len(clusters)))
	return clusters, nil
}

// ResumeCluster resumes a paused cluster
func (c *Client) ResumeCluster(ctx context.Context, uuid types.ClusterUUID) error {
	return c.clusterAction(ctx, uuid, models.ActionResume)
}

// PauseCluster pauses a running cluster
func (c *Client) PauseCluster(ctx context.Context, uuid types.ClusterUUID) error {
	return c.clusterAction(ctx, uuid, models.ActionPause)
}

// StopCluster stops a cluster
func (c *Client) StopCluster(ctx context.Context, uuid types.ClusterUUID) error {
	return c.clusterAction(ctx, uuid, models.ActionStop)
}

// RestartCluster restarts a cluster
func (c *Client) RestartCluster(ctx context.Context, uuid types.ClusterUUID) error {
	return c.clusterAction(ctx, uuid, models.ActionRestart)
}

func (c *Client) clusterAction(ctx context.Context, uuid types.ClusterUUID, action models.Action) error {
	if !uuid.IsValid() {
		return &Error{Operation: action.String() + " cluster", Err: types.ErrEmptyID}
	}

	c.logger.Info("Requesting cluster action", uuid.ZapField(), zap.String("action", action.String()))

	var resp envelope
	path := "clusters/" + url.PathEscape(uuid.String()) + "/" + action.String()
	return c.do(ctx, action.String()+" cluster", http.MethodPut, path, nil, &resp)
}

// CreateRemoteKernel asks the gateway for a kernel spec bound to the cluster
func (c *Client) CreateRemoteKernel(ctx context.Context, uuid types.ClusterUUID) (types.KernelName, error) {
	const operation = "create remote kernel"
	if !uuid.IsValid() {
		return "", &Error{Operation: operation, Err: types.ErrEmptyID}
	}

	var resp remoteKernelResponse
	path := "cluster-remote-kernel/" + url.PathEscape(uuid.String())
	if err := c.do(ctx, operation, http.MethodPost, path, nil, &resp); err != nil {
		return "", err
	}

	name, err := types.NewKernelName(resp.RemoteKernelName)
	if err != nil {
		return "", &Error{Operation: operation, Message: "gateway returned an empty kernel name"}
	}
	return name, nil
}

// FetchConfig fetches the gateway settings
func (c *Client) FetchConfig(ctx context.Context) (Config, error) {
	var resp configResponse
	if err := c.do(ctx, "fetch config", http.MethodGet, "config", nil, &resp); err != nil {
		return Config{}, err
	}
	return resp.Config, nil
}

// do performs one request and decodes the JSON body into out
func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, out failable) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Operation: operation, Err: err}
	}

	target := c.baseURL.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return &Error{Operation: operation, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Gateway request failed",
			zap.String("operation", operation),
			zap.String("url", target.String()),
			zap.Error(err))
		return &Error{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Operation: operation, StatusCode: resp.StatusCode, Err: err}
	}

	// Application errors are reported in the body, even on 200
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return &Error{Operation: operation, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
			}
		} else if message, failed := out.applicationError(); failed {
			c.logger.Warn("Gateway returned an application error",
				zap.String("operation", operation),
				zap.Int("status", resp.StatusCode),
				zap.String("error", message))
			return &Error{Operation: operation, StatusCode: resp.StatusCode, Message: message}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Gateway returned an unexpected status",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode))
		return &Error{Operation: operation, StatusCode: resp.StatusCode}
	}

	return nil
}
