package elk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Response is an undecoded gateway answer.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client talks to the gateway with the credentials it was built with.
// It holds no mutable state and can be shared between goroutines.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request tracing and sender warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient builds a gateway client. Credentials are not checked here;
// bad ones surface as ErrAuth on the first request.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config {
	return c.cfg
}

// BaseURL returns https://{username}:{password}@{domain}/{version}.
// Credentials are inserted as given, without escaping.
func (c *Client) BaseURL() string {
	return fmt.Sprintf("https://%s:%s@%s/%s", c.cfg.Username, c.cfg.Password, c.cfg.domain(), APIVersion)
}

// Get issues a GET for path with params as the query string.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (*Response, error) {
	target := c.BaseURL() + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("elk: build GET %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, path)
}

// Post issues a form-encoded POST of params to path.
func (c *Client) Post(ctx context.Context, path string, params url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL()+path, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("elk: build POST %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	return c.do(req, path)
}

func (c *Client) do(req *http.Request, path string) (*Response, error) {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("elk: %s %s timeout or canceled: %w", req.Method, path, err)
		}
		return nil, fmt.Errorf("elk: %s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elk: read %s response: %w", path, err)
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("gateway request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
