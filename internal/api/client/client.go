// Package client provides a thin HTTP client for the marketplace-sync API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"

	"github.com/donaldgifford/marketplace-sync/internal/api/handlers"
	"github.com/donaldgifford/marketplace-sync/internal/engine"
	"github.com/donaldgifford/marketplace-sync/internal/sink"
	"github.com/donaldgifford/marketplace-sync/internal/store"
)

// Client is a thin HTTP client for the marketplace-sync API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client targeting the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s", e.StatusCode, e.Body)
}

// Credentials returns the token state of every configured platform.
func (c *Client) Credentials(ctx context.Context) ([]handlers.CredentialStatus, error) {
	var out []handlers.CredentialStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/credentials", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RefreshCredential forces a token refresh on the server.
func (c *Client) RefreshCredential(ctx context.Context, platform string) (*handlers.CredentialStatus, error) {
	var out handlers.CredentialStatus
	path := "/api/v1/credentials/" + url.PathEscape(platform) + "/refresh"
	if err := c.do(ctx, http.MethodPost, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SinkBudget returns the spreadsheet sink's rate state.
func (c *Client) SinkBudget(ctx context.Context) (*sink.Budget, error) {
	var out sink.Budget
	if err := c.do(ctx, http.MethodGet, "/api/v1/sink/budget", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SyncOrders runs an order sync on the server.
func (c *Client) SyncOrders(ctx context.Context, platform, status string, days int) (*engine.Summary, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	path := "/api/v1/sync/orders/" + url.PathEscape(platform) + encode(q)

	var out engine.Summary
	if err := c.do(ctx, http.MethodPost, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SyncWallet runs a wallet sync on the server.
func (c *Client) SyncWallet(ctx context.Context, month, year int, tab string) (*engine.Summary, error) {
	q := url.Values{}
	q.Set("month", strconv.Itoa(month))
	q.Set("year", strconv.Itoa(year))
	if tab != "" {
		q.Set("tab", tab)
	}

	var out engine.Summary
	if err := c.do(ctx, http.MethodPost, "/api/v1/sync/wallet"+encode(q), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListJobs returns the most recent run for each scheduled job.
func (c *Client) ListJobs(ctx context.Context) ([]store.JobRun, error) {
	var runs []store.JobRun
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs", &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// JobHistory returns up to limit runs of one scheduled job. A zero limit
// uses the server default.
func (c *Client) JobHistory(ctx context.Context, jobName string, limit int) ([]store.JobRun, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var runs []store.JobRun
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+url.PathEscape(jobName)+encode(q), &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func encode(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return fmt.Errorf("API server not running at %s", c.baseURL)
		}
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if dst != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, dst); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
