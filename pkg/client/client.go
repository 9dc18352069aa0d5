// Package client talks to a running relaunchd over its HTTP API.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/psantana5/relaunch/internal/server"
)

// APIError is a non-success response from the server
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Client manages communication with one relaunchd instance
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithToken sends token as a bearer token on restart requests
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTLSConfig uses cfg for HTTPS connections
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *Client) {
		c.httpClient.Transport = &http.Transport{TLSClientConfig: cfg}
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health fetches GET /health
func (c *Client) Health(ctx context.Context) (*server.HealthResponse, error) {
	var out server.HealthResponse
	if _, err := c.do(ctx, http.MethodGet, "/health", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Restart asks the server to relaunch itself. The response is returned
// alongside an *APIError for 409 and 500 so callers can inspect the result.
func (c *Client) Restart(ctx context.Context, reason string) (*server.RestartResponse, error) {
	body, err := json.Marshal(server.RestartRequest{Reason: reason})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var out server.RestartResponse
	status, err := c.do(ctx, http.MethodPost, "/restart", body, &out, http.StatusAccepted)
	if err != nil {
		if status == http.StatusConflict || status == http.StatusInternalServerError {
			return &out, err
		}
		return nil, err
	}
	return &out, nil
}

// Failures fetches up to limit recent failures; limit <= 0 fetches all
func (c *Client) Failures(ctx context.Context, limit int) (*server.FailuresResponse, error) {
	path := "/restart/failures"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}

	var out server.FailuresResponse
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends one request and decodes the JSON body into out. A status other
// than want yields an *APIError; the body is still decoded when it is JSON.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}, want int) (int, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to relaunchd: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	isJSON := strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json")
	if isJSON && out != nil {
		if err := json.Unmarshal(data, out); err != nil && resp.StatusCode == want {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	if resp.StatusCode != want {
		return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return resp.StatusCode, nil
}
