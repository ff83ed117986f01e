package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lumingya/universal-web-api/workflow"
)

// Client talks to a remote profile registry over its HTTP API. It covers
// the same operations as an in-process Registry, so the editor can use
// either interchangeably.
type Client struct {
	endpoint string // e.g. "http://localhost:8470"
	token    string
	client   *http.Client
}

// NewClient creates a Client for the registry at endpoint. The token is
// sent in X-Auth-Token on write requests; empty when auth is disabled.
func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Get fetches the profile for a host. Returns ErrNotFound when the
// registry has none.
func (c *Client) Get(ctx context.Context, host string) (*workflow.SiteProfile, error) {
	var p workflow.SiteProfile
	if err := c.do(ctx, http.MethodGet, c.hostURL(host), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Put stores a complete profile for a host.
func (c *Client) Put(ctx context.Context, host string, p *workflow.SiteProfile) error {
	return c.do(ctx, http.MethodPut, c.hostURL(host), p, nil)
}

// ReplaceWorkflow swaps the host's workflow and merges new selector entries.
func (c *Client) ReplaceWorkflow(ctx context.Context, host string, records []workflow.ActionRecord, added map[string]string) error {
	body := ReplaceWorkflowRequest{Workflow: records, Selectors: added}
	return c.do(ctx, http.MethodPut, c.hostURL(host)+"/workflow", body, nil)
}

// Delete removes the profile for a host.
func (c *Client) Delete(ctx context.Context, host string) error {
	return c.do(ctx, http.MethodDelete, c.hostURL(host), nil, nil)
}

// List returns profile summaries from the registry.
func (c *Client) List(ctx context.Context, limit int) ([]*Entry, error) {
	u := c.endpoint + "/api/profiles"
	if limit > 0 {
		u += fmt.Sprintf("?limit=%d", limit)
	}
	var entries []*Entry
	if err := c.do(ctx, http.MethodGet, u, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) hostURL(host string) string {
	return c.endpoint + "/api/profiles/" + url.PathEscape(host)
}

func (c *Client) do(ctx context.Context, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("profile: marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("X-Auth-Token", c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("profile: %s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("profile: HTTP %d from %s: %s", resp.StatusCode, u, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("profile: decode response: %w", err)
		}
	}
	return nil
}
