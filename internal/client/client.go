// Package client is the HTTP client for the switcheroo daemon API, used by
// the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/krzko/proxy-switcheroo/internal/engine"
	"github.com/krzko/proxy-switcheroo/internal/proxy"
	"github.com/krzko/proxy-switcheroo/internal/rules"
	"github.com/krzko/proxy-switcheroo/internal/store"
)

// Client is an HTTP client for the daemon API
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			// Evaluation passes run live probes; leave headroom.
			Timeout: 90 * time.Second,
		},
	}
}

// PassResult mirrors the daemon's evaluate response.
type PassResult struct {
	Status     string                  `json:"status"`
	Error      string                  `json:"error,omitempty"`
	Evaluation engine.EvaluationResult `json:"evaluation"`
	State      store.State             `json:"state"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// GetState retrieves the current switch state
func (c *Client) GetState(ctx context.Context) (*store.State, error) {
	var s store.State
	if err := c.do(ctx, "GET", "/v1/state", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SetAutoMode enables or disables automatic switching
func (c *Client) SetAutoMode(ctx context.Context, enabled bool) (*store.State, error) {
	var s store.State
	in := map[string]bool{"enabled": enabled}
	if err := c.do(ctx, "POST", "/v1/auto", in, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Evaluate triggers one evaluation pass on the daemon
func (c *Client) Evaluate(ctx context.Context, force, bypassCache bool) (*PassResult, error) {
	var res PassResult
	in := map[string]bool{"force": force, "bypassCache": bypassCache}
	if err := c.do(ctx, "POST", "/v1/evaluate", in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListRules retrieves all rules
func (c *Client) ListRules(ctx context.Context) ([]rules.Rule, error) {
	var out []rules.Rule
	if err := c.do(ctx, "GET", "/v1/rules", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRule retrieves a single rule by id
func (c *Client) GetRule(ctx context.Context, id string) (*rules.Rule, error) {
	var r rules.Rule
	if err := c.do(ctx, "GET", "/v1/rules/"+id, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpsertRule creates or replaces a rule
func (c *Client) UpsertRule(ctx context.Context, r rules.Rule) (*rules.Rule, error) {
	var out rules.Rule
	if err := c.do(ctx, "POST", "/v1/rules", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRule removes a rule by id
func (c *Client) DeleteRule(ctx context.Context, id string) error {
	return c.do(ctx, "DELETE", "/v1/rules/"+id, nil, nil)
}

// TestRule evaluates an ad-hoc rule without persisting it
func (c *Client) TestRule(ctx context.Context, r rules.Rule) (*engine.TestResult, error) {
	var out engine.TestResult
	if err := c.do(ctx, "POST", "/v1/rules/test", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProfiles retrieves all proxy profiles
func (c *Client) ListProfiles(ctx context.Context) ([]proxy.Profile, error) {
	var out []proxy.Profile
	if err := c.do(ctx, "GET", "/v1/profiles", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProfile retrieves a single profile by id
func (c *Client) GetProfile(ctx context.Context, id string) (*proxy.Profile, error) {
	var p proxy.Profile
	if err := c.do(ctx, "GET", "/v1/profiles/"+id, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertProfile creates or replaces a profile
func (c *Client) UpsertProfile(ctx context.Context, p proxy.Profile) (*proxy.Profile, error) {
	var out proxy.Profile
	if err := c.do(ctx, "POST", "/v1/profiles", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProfile removes a profile by id
func (c *Client) DeleteProfile(ctx context.Context, id string) error {
	return c.do(ctx, "DELETE", "/v1/profiles/"+id, nil, nil)
}
