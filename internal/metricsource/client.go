package metricsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/plantpulse/plantpulse-backend/config"
)

// ErrNotConfigured is returned when no upstream metrics backend is set.
var ErrNotConfigured = errors.New("metrics source not configured")

// Client talks to the external metrics backend (Prometheus-compatible range
// queries plus a datasource catalog). Two HTTP clients because range queries
// can legitimately run for a minute while health checks must fail fast.
type Client struct {
	baseURL  string
	apiToken string

	defaultHTTP *http.Client
	queryHTTP   *http.Client

	calls     atomic.Int64
	errorsCnt atomic.Int64
	// totalLatencyMs accumulates call latency for the status endpoint.
	totalLatencyMs atomic.Int64
}

func NewClient(cfg config.MetricsSourceConfig) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.URL, "/"),
		apiToken:    cfg.APIToken,
		defaultHTTP: &http.Client{Timeout: 10 * time.Second},
		queryHTTP:   &http.Client{Timeout: 90 * time.Second},
	}
}

// Configured reports whether an upstream URL was provided.
func (c *Client) Configured() bool { return c.baseURL != "" }

// Stats is the counter snapshot surfaced at the status endpoint.
type Stats struct {
	Configured   bool    `json:"configured"`
	Calls        int64   `json:"calls"`
	Errors       int64   `json:"errors"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

func (c *Client) Stats() Stats {
	calls := c.calls.Load()
	s := Stats{
		Configured: c.Configured(),
		Calls:      calls,
		Errors:     c.errorsCnt.Load(),
	}
	if calls > 0 {
		s.AvgLatencyMs = float64(c.totalLatencyMs.Load()) / float64(calls)
	}
	return s
}

func (c *Client) do(ctx context.Context, cl *http.Client, path string, query url.Values) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	start := time.Now()
	resp, err := cl.Do(req)
	c.calls.Add(1)
	c.totalLatencyMs.Add(time.Since(start).Milliseconds())
	if err != nil {
		c.errorsCnt.Add(1)
		log.Printf("[metricsource] %s failed after %s: %v", path, time.Since(start).Round(time.Millisecond), err)
		return nil, fmt.Errorf("metrics source: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.errorsCnt.Add(1)
		return nil, fmt.Errorf("metrics source: read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.errorsCnt.Add(1)
		return nil, fmt.Errorf("metrics source: status %d", resp.StatusCode)
	}
	return body, nil
}

// Health pings the upstream backend.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, c.defaultHTTP, "/api/health", nil)
	return err
}

// Datasources returns the upstream datasource catalog as raw JSON.
func (c *Client) Datasources(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, c.defaultHTTP, "/api/datasources", nil)
}

// QueryRange proxies a range query. Uses the long-timeout client.
func (c *Client) QueryRange(ctx context.Context, query, start, end, step string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("start", start)
	q.Set("end", end)
	if step != "" {
		q.Set("step", step)
	}
	return c.do(ctx, c.queryHTTP, "/api/v1/query_range", q)
}
