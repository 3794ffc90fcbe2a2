// Package client provides the HTTP client shared by registry backends.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/git-pkgs/tsmm/fetch"
)

const defaultUserAgent = "tsmm"

// Client is an HTTP client with retry logic and circuit breaking for registry APIs.
type Client struct {
	fetcher    fetch.FetcherInterface
	userAgent  string
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxRetries sets the maximum number of retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBaseDelay sets the first retry delay.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger handed to the transport.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithFetcher replaces the transport. Timeout, retry and user agent options
// are ignored when a custom fetcher is supplied.
func WithFetcher(f fetch.FetcherInterface) Option {
	return func(c *Client) {
		c.fetcher = f
	}
}

// DefaultClient returns a client with sensible defaults:
// - 2m timeout, since full game listings run to tens of megabytes
// - 3 retries with exponential backoff
// - Retry on 429 and 5xx responses
// - Per-host circuit breaking
func DefaultClient() *Client {
	return NewClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		userAgent:  defaultUserAgent,
		timeout:    2 * time.Minute,
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.fetcher == nil {
		fetchOpts := []fetch.Option{
			fetch.WithUserAgent(c.userAgent),
			fetch.WithTimeout(c.timeout),
			fetch.WithMaxRetries(c.maxRetries),
			fetch.WithBaseDelay(c.baseDelay),
		}
		if c.logger != nil {
			fetchOpts = append(fetchOpts, fetch.WithLogger(c.logger))
		}
		c.fetcher = fetch.NewCircuitBreakerFetcher(fetch.NewFetcher(fetchOpts...))
	}
	return c
}

// GetJSON fetches url and decodes the JSON response into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	resp, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return translate(url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

// Head returns the size reported for url, or -1 if unknown. Redirects are
// followed, so download URLs report the size of the archive they point at.
func (c *Client) Head(ctx context.Context, url string) (int64, error) {
	size, _, err := c.fetcher.Head(ctx, url)
	if err != nil {
		return 0, translate(url, err)
	}
	return size, nil
}

// BreakerStates reports "open" or "closed" per upstream host contacted so
// far. It is empty when the transport does no circuit breaking.
func (c *Client) BreakerStates() map[string]string {
	if b, ok := c.fetcher.(interface{ BreakerStates() map[string]string }); ok {
		return b.BreakerStates()
	}
	return map[string]string{}
}

// translate maps transport errors onto the client's error types.
func translate(url string, err error) error {
	var statusErr *fetch.StatusError
	switch {
	case errors.Is(err, fetch.ErrNotFound):
		return &HTTPError{StatusCode: 404, URL: url}
	case errors.Is(err, fetch.ErrRateLimited):
		return &RateLimitError{URL: url}
	case errors.As(err, &statusErr):
		return &HTTPError{StatusCode: statusErr.StatusCode, URL: url, Body: statusErr.Body}
	default:
		return err
	}
}
