package api

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
	"time"
)

// ErrDaemonUnavailable indicates the control API could not be reached.
var ErrDaemonUnavailable = errors.New("daemon not reachable")

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client calls the daemon control API.
type Client struct {
	baseURL string
	token   string
	http    HTTPDoer
}

// NewClient builds a client for the API bound at bind (host:port or URL).
func NewClient(bind, token string, doer HTTPDoer) *Client {
	base := strings.TrimRight(strings.TrimSpace(bind), "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	if doer == nil {
		doer = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{baseURL: base, token: strings.TrimSpace(token), http: doer}
}

// Status fetches the daemon status.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var status DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Reset clears the reference tempo.
func (c *Client) Reset(ctx context.Context) (*ResetResponse, error) {
	var resp ResetResponse
	if err := c.do(ctx, http.MethodPost, "/api/reset", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History fetches up to limit recent adjustments.
func (c *Client) History(ctx context.Context, limit int) (*HistoryResponse, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var resp HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/api/history", query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("%w: api bind not configured", ErrDaemonUnavailable)
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build api request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDaemonUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		var apiErr ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("api %s %s returned %d: %s", method, path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api %s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode api response: %w", err)
	}
	return nil
}
