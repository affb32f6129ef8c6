package bcraudit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/albertocavalcante/go-bcr-audit/fetch"
	"github.com/albertocavalcante/go-bcr-audit/integrity"
	"github.com/albertocavalcante/go-bcr-audit/registry"
)

// Fetcher retrieves artifact bytes. Implementations must bound their wait
// and report failures as errors; *fetch.Client is the default.
//
//go:generate mockgen -destination=mock_fetcher_test.go -package=bcraudit github.com/albertocavalcante/go-bcr-audit Fetcher
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

var _ Fetcher = (*fetch.Client)(nil)

// Validator checks a single module version. It holds no state between
// calls, so one Validator may serve concurrent checks.
type Validator struct {
	reg             *registry.Local
	fetcher         Fetcher
	logger          *slog.Logger
	checkModuleFile bool
	strictSchema    bool
}

// NewValidator creates a Validator for the registry rooted at root.
func NewValidator(root string, opts ...Option) (*Validator, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	return newValidator(registry.NewLocal(root), cfg), nil
}

func newValidator(reg *registry.Local, cfg *config) *Validator {
	f := cfg.fetcher
	if f == nil {
		fopts := []fetch.Option{fetch.WithTimeout(cfg.timeout), fetch.WithLogger(cfg.logger)}
		if cfg.httpClient != nil {
			fopts = append(fopts, fetch.WithHTTPClient(cfg.httpClient))
		}
		f = fetch.NewClient(fopts...)
	}
	return &Validator{
		reg:             reg,
		fetcher:         f,
		logger:          cfg.log(),
		checkModuleFile: cfg.checkModuleFile,
		strictSchema:    cfg.strictSchema,
	}
}

// Validate runs the descriptor, fetch and digest checks for one version and
// returns its verdict. It never panics or returns an error: every failure
// becomes a verdict.
func (v *Validator) Validate(ctx context.Context, module, version string) Verdict {
	verdict := v.validate(ctx, module, version)
	if v.checkModuleFile {
		verdict = verdict.withNotes(checkModuleFile(ctx, v.reg, module, version)...)
	}

	log := v.logger.With("module", module, "version", version, "kind", string(verdict.Kind))
	switch {
	case verdict.Kind.IsHardFailure():
		log.Debug("version failed", "reason", verdict.Reason)
	case verdict.Kind.IsSoftPass():
		log.Debug("version passed with warning", "reason", verdict.Reason)
	default:
		log.Debug("version healthy")
	}
	return verdict
}

func (v *Validator) validate(ctx context.Context, module, version string) Verdict {
	base := Verdict{Module: module, Version: version}

	src, err := v.reg.LoadSource(ctx, module, version)
	if err != nil {
		base.Err = err
		if errors.Is(err, registry.ErrFileNotFound) {
			base.Kind = MissingDescriptor
			base.Reason = "Missing source.json"
			return base
		}
		base.Kind = MalformedDescriptor
		base.Reason = "Invalid JSON format in source.json"
		return base
	}

	if v.strictSchema {
		base = base.withNotes(registry.Findings(src.Validate())...)
	}

	if src.URL == "" {
		base.Kind = MissingURL
		base.Reason = "Missing 'url' field"
		return base
	}
	base.URL = src.URL

	data, err := v.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		base.Kind = FetchFailed
		base.Err = err
		var fetchErr *fetch.Error
		if errors.As(err, &fetchErr) && fetchErr.Kind == fetch.KindStatus {
			base.StatusCode = fetchErr.StatusCode
			base.Reason = fmt.Sprintf("HTTP Error %d", fetchErr.StatusCode)
			return base
		}
		base.Reason = fmt.Sprintf("Connection failed - %v", err)
		return base
	}
	base.Actual = integrity.Digest(data)

	if !src.HasIntegrity() {
		base.Kind = HealthyNoIntegrity
		base.Reason = "No integrity hash defined (insecure)"
		return base
	}

	expected, ok := integrity.Parse(src.Integrity)
	if !ok {
		base.Kind = UnknownIntegrityFormat
		base.Reason = "Unknown integrity format (expected sha256-)"
		return base
	}
	base.Expected = expected

	if expected != base.Actual {
		base.Kind = ChecksumMismatch
		base.Reason = "Checksum Mismatch!"
		return base
	}

	base.Kind = Healthy
	base.Reason = "Healthy (Verified SHA256)"
	return base
}
