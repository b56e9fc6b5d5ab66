package vlc

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

	"bpmsync/internal/config"
)

const statusPath = "/requests/status.json"

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 3 * time.Second

// ErrUnexpectedStatus is returned when the player answers with a non-200 code.
var ErrUnexpectedStatus = errors.New("unexpected player response status")

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client queries and commands a VLC instance.
type Client struct {
	baseURL  string
	password string
	timeout  time.Duration
	http     HTTPDoer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP backend.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// New constructs a client for the VLC HTTP interface at baseURL.
func New(baseURL, password string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		password: password,
		timeout:  DefaultTimeout,
		http:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig constructs a client from the [player] section.
func NewFromConfig(cfg *config.Config, opts ...Option) *Client {
	if cfg == nil {
		return New("", "", opts...)
	}
	base := []Option{WithTimeout(cfg.RequestTimeout())}
	return New(cfg.Player.URL, cfg.Player.Password, append(base, opts...)...)
}

// BaseURL returns the normalized player address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetStatus fetches the current playback status.
func (c *Client) GetStatus(ctx context.Context) (Status, error) {
	body, err := c.get(ctx, nil)
	if err != nil {
		return Status{}, err
	}
	var doc statusDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return Status{}, fmt.Errorf("decode player status: %w", err)
	}
	return doc.status(), nil
}

// SetRate sets the playback rate. Non-positive rates are rejected without
// contacting the player.
func (c *Client) SetRate(ctx context.Context, rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("set rate: rate must be positive, got %v", rate)
	}
	query := url.Values{}
	query.Set("command", "rate")
	query.Set("val", strconv.FormatFloat(rate, 'f', -1, 64))
	if _, err := c.get(ctx, query); err != nil {
		return fmt.Errorf("set rate: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, query url.Values) ([]byte, error) {
	if c.baseURL == "" {
		return nil, errors.New("player url not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + statusPath
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build player request: %w", err)
	}
	req.SetBasicAuth("", c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("player request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		detail := strings.TrimSpace(string(snippet))
		if detail == "" {
			return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, detail)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read player response: %w", err)
	}
	return body, nil
}
