package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/williamhogman/clusterlink/attacher/internal/reconciler"
	"github.com/williamhogman/clusterlink/attacher/internal/transport"
)

// agentClient talks to a running attacher
type agentClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAgentClient(baseURL string, timeout time.Duration) *agentClient {
	return &agentClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *agentClient) do(ctx context.Context, method, path string, in, out any) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("attacher unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure transport.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&failure) == nil && failure.Error != "" {
			return fmt.Errorf("attacher: %s", failure.Error)
		}
		return fmt.Errorf("attacher: unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *agentClient) Attach(ctx context.Context, uuid string) (transport.AttachResponse, error) {
	var resp transport.AttachResponse
	err := c.do(ctx, http.MethodPut, "/api/attachment", transport.AttachRequest{ClusterUUID: uuid}, &resp)
	return resp, err
}

func (c *agentClient) Attachment(ctx context.Context) (reconciler.Attachment, error) {
	var resp reconciler.Attachment
	err := c.do(ctx, http.MethodGet, "/api/attachment", nil, &resp)
	return resp, err
}

func (c *agentClient) Clusters(ctx context.Context) (transport.ClustersResponse, error) {
	var resp transport.ClustersResponse
	err := c.do(ctx, http.MethodGet, "/api/clusters", nil, &resp)
	return resp, err
}

// Watch streams events until ctx is done or the connection drops
func (c *agentClient) Watch(ctx context.Context, handle func(transport.Event, json.RawMessage)) error {
	url := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", url, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var raw struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&raw); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		handle(transport.Event{Type: raw.Type}, raw.Data)
	}
}
