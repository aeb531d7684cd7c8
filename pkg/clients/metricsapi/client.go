// Package metricsapi is the HTTP client for the engagement metrics service.
package metricsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"github.com/Obel-arg/catch-influencer-sub003/pkg/clients"
)

const upstreamName = "metrics-api"

// ContentMetrics is the wire form of one content item's engagement.
type ContentMetrics struct {
	ContentID      string  `json:"content_id"`
	Views          int64   `json:"views"`
	Likes          int64   `json:"likes"`
	Comments       int64   `json:"comments"`
	Shares         int64   `json:"shares"`
	EngagementRate float64 `json:"engagement_rate"`
}

type batchRequest struct {
	ContentIDs []string `json:"content_ids"`
}

type batchResponse struct {
	Metrics map[string]ContentMetrics `json:"metrics"`
}

type Client struct {
	baseURL      string
	token        string
	client       *http.Client
	httpExecutor failsafe.Executor[*http.Response]
	shouldRetry  func(resp *http.Response, err error) bool
}

type Option func(*Client)

func NewClient(baseURL string, opts ...Option) *Client {
	cfg := clients.DefaultHTTPExecutorConfig(upstreamName)
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       clients.NewHTTPClient(10 * time.Second),
		httpExecutor: clients.NewHTTPExecutor(cfg),
		shouldRetry:  cfg.ShouldRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.client = httpClient
		}
	}
}

func WithHTTPExecutorConfig(cfg clients.HTTPExecutorConfig) Option {
	return func(c *Client) {
		if cfg.Name == "" {
			cfg.Name = upstreamName
		}
		c.httpExecutor = clients.NewHTTPExecutor(cfg)
		c.shouldRetry = cfg.ShouldRetry
	}
}

// WithoutRetries sends every request exactly once.
func WithoutRetries() Option {
	return func(c *Client) {
		c.httpExecutor = nil
		c.shouldRetry = nil
	}
}

// WithToken sets a bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func (c *Client) doRequest(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	send := func() (*http.Response, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.client.Do(req)
		if c.shouldRetry != nil && c.shouldRetry(resp, err) && resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return resp, err
	}
	if c.httpExecutor == nil {
		return send()
	}
	return clients.ExecuteHTTP(ctx, c.httpExecutor, send)
}

// GetMetrics fetches metrics for a single content item.
func (c *Client) GetMetrics(ctx context.Context, contentID string) (*ContentMetrics, error) {
	endpoint := fmt.Sprintf("%s/api/content/%s/metrics", c.baseURL, url.PathEscape(contentID))
	resp, err := c.doRequest(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &clients.APIError{Upstream: upstreamName, StatusCode: resp.StatusCode}
	}
	var out ContentMetrics
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	if out.ContentID == "" {
		out.ContentID = contentID
	}
	return &out, nil
}

// GetMetricsBatch fetches metrics for several items in one round trip. Ids the
// service has no data for are missing from the map.
func (c *Client) GetMetricsBatch(ctx context.Context, contentIDs []string) (map[string]ContentMetrics, error) {
	body, err := json.Marshal(batchRequest{ContentIDs: contentIDs})
	if err != nil {
		return nil, err
	}
	endpoint := c.baseURL + "/api/content/metrics/batch"
	resp, err := c.doRequest(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &clients.APIError{Upstream: upstreamName, StatusCode: resp.StatusCode}
	}
	var out batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode metrics batch: %w", err)
	}
	if out.Metrics == nil {
		out.Metrics = map[string]ContentMetrics{}
	}
	return out.Metrics, nil
}
