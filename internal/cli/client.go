package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/vibematch/internal/models"
	"github.com/hyperjump/vibematch/internal/server"
)

// Client talks to a running vibematch server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL (for example http://localhost:8001).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Search runs a vibe search.
func (c *Client) Search(ctx context.Context, query *models.VibeQuery) (*models.SearchResponse, error) {
	var resp models.SearchResponse
	if err := c.do(ctx, http.MethodPost, "/api/search", query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Seed loads the sample catalog.
func (c *Client) Seed(ctx context.Context) (*server.SeedResponse, error) {
	var resp server.SeedResponse
	if err := c.do(ctx, http.MethodPost, "/api/products/seed", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Metrics returns recent query metrics, newest first.
func (c *Client) Metrics(ctx context.Context) ([]*models.QueryMetric, error) {
	var resp []*models.QueryMetric
	if err := c.do(ctx, http.MethodGet, "/api/metrics", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Status returns store and embedding status.
func (c *Client) Status(ctx context.Context) (*server.StatusResponse, error) {
	var resp server.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		var e struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(b, &e) == nil && e.Detail != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Detail)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
