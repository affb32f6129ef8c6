// Package fetch downloads registry artifacts with a bounded wait.
//
// Every call performs exactly one HTTP GET. There are no retries and no
// mirror fallbacks: a failing URL is reported as a typed *Error so callers
// can turn it into a verdict instead of aborting.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Client configuration defaults.
const (
	DefaultMaxIdleConns        = 50
	DefaultMaxIdleConnsPerHost = 20
	DefaultIdleConnTimeout     = 90 * time.Second
	DefaultTimeout             = 5 * time.Second
	DefaultMaxBytes            = 1 << 30
	DefaultUserAgent           = "bcr-audit"
)

// Kind classifies a fetch failure.
type Kind string

const (
	// KindTimeout means the request did not finish within the timeout.
	KindTimeout Kind = "timeout"
	// KindTransport covers DNS, TLS, connection and body read failures.
	KindTransport Kind = "transport"
	// KindStatus means the server answered with a status other than 200.
	KindStatus Kind = "status"
	// KindInvalidURL means the URL could not be turned into a request.
	KindInvalidURL Kind = "invalid_url"
)

// Error describes a failed fetch.
type Error struct {
	URL        string
	Kind       Kind
	StatusCode int   // set for KindStatus
	Err        error // underlying cause, nil for KindStatus
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("HTTP Error %d", e.StatusCode)
	case KindTimeout:
		return fmt.Sprintf("timed out fetching %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client fetches artifacts over HTTP(S).
type Client struct {
	client    *http.Client
	timeout   time.Duration
	maxBytes  int64
	userAgent string
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each fetch. Zero or negative values fall back to
// DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		} else {
			c.timeout = DefaultTimeout
		}
	}
}

// WithHTTPClient sets a custom HTTP client. Its own Timeout is left alone;
// the per-fetch bound is still applied through the request context.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithMaxBytes caps the artifact size. Larger bodies fail as transport errors.
func WithMaxBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets a logger for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Client with a pooled transport and a 5 second timeout.
func NewClient(opts ...Option) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		DisableCompression:  false,
	}

	c := &Client{
		client:    &http.Client{Transport: transport},
		timeout:   DefaultTimeout,
		maxBytes:  DefaultMaxBytes,
		userAgent: DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	return c
}

// Timeout returns the per-fetch bound.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Fetch performs a single GET of rawURL and returns the body.
// Only status 200 counts as success. All failures are *Error.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if u, err := url.Parse(rawURL); err != nil || u.Scheme == "" || u.Host == "" {
		if err == nil {
			err = errors.New("missing scheme or host")
		}
		return nil, &Error{URL: rawURL, Kind: KindInvalidURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, &Error{URL: rawURL, Kind: KindInvalidURL, Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.classify(rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("fetched artifact headers", "url", rawURL, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{URL: rawURL, Kind: KindStatus, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, c.classify(rawURL, err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, &Error{URL: rawURL, Kind: KindTransport, Err: fmt.Errorf("artifact exceeds %d bytes", c.maxBytes)}
	}

	return data, nil
}

// classify maps a transport error onto a Kind.
func (c *Client) classify(rawURL string, err error) *Error {
	if isTimeout(err) {
		return &Error{URL: rawURL, Kind: KindTimeout, Err: err}
	}
	return &Error{URL: rawURL, Kind: KindTransport, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
