package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shelf/internal/api"
	"shelf/internal/media/probe"
)

// Client talks to a running shelf daemon over its HTTP API.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// New constructs a client for the daemon bound at address (host:port).
func New(address, token string) *Client {
	base := strings.TrimSpace(address)
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.get(ctx, "/api/status", nil, &status)
	return status, err
}

// Probe fetches the cached stream inspection for a library file. The
// path is relative to the daemon's library directory.
func (c *Client) Probe(ctx context.Context, libraryPath string) (probe.Result, error) {
	var result probe.Result
	escaped := (&url.URL{Path: "/api/resources/probe/" + strings.TrimPrefix(libraryPath, "/")}).EscapedPath()
	err := c.get(ctx, escaped, nil, &result)
	return result, err
}

// Journal fetches up to limit recent invocations, newest first.
func (c *Client) Journal(ctx context.Context, limit int) ([]api.JournalEntry, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var response api.JournalResponse
	if err := c.get(ctx, "/api/journal", query, &response); err != nil {
		return nil, err
	}
	return response.Entries, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp api.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
