// Package scheduleapi reads campaign schedules from the campaign management API.
package scheduleapi

import (
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

const upstreamName = "schedule-api"

type Influencer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

type Objective struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Target          string   `json:"target"`
	Current         string   `json:"current"`
	Status          string   `json:"status"`
	PercentComplete *float64 `json:"percent_complete,omitempty"`
}

// Schedule is one scheduled content entry as the API returns it.
type Schedule struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	ContentURL  string      `json:"content_url"`
	Influencer  Influencer  `json:"influencer"`
	StartDate   string      `json:"start_date"`
	EndDate     string      `json:"end_date"`
	Platform    string      `json:"platform"`
	ContentType string      `json:"content_type"`
	Status      string      `json:"status"`
	Objectives  []Objective `json:"objectives"`
}

type listResponse struct {
	Schedules []Schedule `json:"schedules"`
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
		client:       clients.NewHTTPClient(15 * time.Second),
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

func WithoutRetries() Option {
	return func(c *Client) {
		c.httpExecutor = nil
		c.shouldRetry = nil
	}
}

func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// ListSchedules returns every schedule entry of a campaign in API order.
func (c *Client) ListSchedules(ctx context.Context, campaignID string) ([]Schedule, error) {
	endpoint := fmt.Sprintf("%s/api/campaigns/%s/schedules", c.baseURL, url.PathEscape(campaignID))
	send := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		resp, err := c.client.Do(req)
		if c.shouldRetry != nil && c.shouldRetry(resp, err) && resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return resp, err
	}

	var (
		resp *http.Response
		err  error
	)
	if c.httpExecutor == nil {
		resp, err = send()
	} else {
		resp, err = clients.ExecuteHTTP(ctx, c.httpExecutor, send)
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &clients.APIError{Upstream: upstreamName, StatusCode: resp.StatusCode}
	}
	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode schedules: %w", err)
	}
	return out.Schedules, nil
}
