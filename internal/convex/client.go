// Package convex queries a Convex deployment over its HTTP API.
package convex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client runs named queries against one Convex deployment.
type Client struct {
	deploymentURL string
	httpClient    *http.Client
}

// NewClient creates a client for the deployment at deploymentURL
// (e.g. "https://next-frog-231.convex.cloud").
func NewClient(deploymentURL string) *Client {
	return &Client{
		deploymentURL: strings.TrimRight(deploymentURL, "/"),
		httpClient:    &http.Client{Timeout: defaultTimeout},
	}
}

type queryRequest struct {
	Path   string         `json:"path"`
	Args   map[string]any `json:"args"`
	Format string         `json:"format"`
}

type queryResponse struct {
	Status       string          `json:"status"`
	Value        json.RawMessage `json:"value"`
	ErrorMessage string          `json:"errorMessage"`
}

// Query runs the named query function with args and returns its value.
// Function-level errors reported by Convex come back as Go errors.
func (c *Client) Query(ctx context.Context, path string, args map[string]any) (json.RawMessage, error) {
	if c.deploymentURL == "" {
		return nil, fmt.Errorf("no Convex deployment configured")
	}
	if args == nil {
		args = map[string]any{}
	}

	body, err := json.Marshal(queryRequest{Path: path, Args: args, Format: "json"})
	if err != nil {
		return nil, fmt.Errorf("marshaling query: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.deploymentURL+"/api/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("convex returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing query response: %w", err)
	}
	if parsed.Status != "success" {
		return nil, fmt.Errorf("query %s failed: %s", path, parsed.ErrorMessage)
	}
	return parsed.Value, nil
}
