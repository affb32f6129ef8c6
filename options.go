package bcraudit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Option configures an audit.
type Option func(*config) error

// config holds all audit configuration.
type config struct {
	timeout         time.Duration
	httpClient      *http.Client
	fetcher         Fetcher
	concurrency     int
	checkModuleFile bool
	strictSchema    bool
	modules         []string
	onProgress      func(Verdict)

	// logger is the structured logger for debug/info output.
	// If nil, logging is disabled.
	logger *slog.Logger
}

// WithTimeout bounds each artifact fetch. Defaults to 5 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *config) error {
		c.timeout = d
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for artifact fetches.
// Ignored when WithFetcher is given.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) error {
		c.httpClient = client
		return nil
	}
}

// WithFetcher replaces the artifact fetcher entirely.
func WithFetcher(f Fetcher) Option {
	return func(c *config) error {
		c.fetcher = f
		return nil
	}
}

// WithConcurrency validates up to n versions at once. The default of 1
// runs strictly one check at a time. Verdict order is unaffected.
func WithConcurrency(n int) Option {
	return func(c *config) error {
		c.concurrency = n
		return nil
	}
}

// WithModuleFileCheck cross-checks each version's MODULE.bazel against the
// registry path. Findings are notes and never fail a version.
func WithModuleFileCheck(enabled bool) Option {
	return func(c *config) error {
		c.checkModuleFile = enabled
		return nil
	}
}

// WithStrictSchema applies the BCR lint rules to metadata.json and
// source.json. Findings are notes and never fail a version.
func WithStrictSchema(enabled bool) Option {
	return func(c *config) error {
		c.strictSchema = enabled
		return nil
	}
}

// WithModules restricts the audit to the named modules.
func WithModules(names ...string) Option {
	return func(c *config) error {
		c.modules = append(c.modules, names...)
		return nil
	}
}

// WithProgress sets a callback invoked once per verdict, in enumeration order.
func WithProgress(fn func(Verdict)) Option {
	return func(c *config) error {
		c.onProgress = fn
		return nil
	}
}

// WithLogger sets a structured logger for audit diagnostics.
// If not set, logging is disabled (silent mode).
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("component", "bcr-audit")
//	Audit(ctx, root, WithLogger(logger))
func WithLogger(l *slog.Logger) Option {
	return func(c *config) error {
		c.logger = l
		return nil
	}
}

// validate checks the configuration for logical consistency.
func (c *config) validate() error {
	if c.timeout < 0 {
		return errors.New("timeout must be positive")
	}
	if c.concurrency < 0 {
		return errors.New("concurrency must be positive")
	}
	return nil
}

// log returns the configured logger, or a no-op logger if none was set.
func (c *config) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(discardHandler{})
}

// discardHandler is a slog.Handler that discards all log records.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// newConfig applies opts over the defaults and validates the result.
func newConfig(opts ...Option) (*config, error) {
	c := &config{}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	if c.concurrency == 0 {
		c.concurrency = 1
	}

	return c, nil
}
