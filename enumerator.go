package bcraudit

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/albertocavalcante/go-bcr-audit/internal/modver"
	"github.com/albertocavalcante/go-bcr-audit/registry"
)

// EntryKind distinguishes the items an Enumerator yields.
type EntryKind int

const (
	// EntryVersion is a module version to validate.
	EntryVersion EntryKind = iota
	// EntryModuleFailure is a module whose metadata could not be read.
	EntryModuleFailure
	// EntryNotice carries module warnings for a module without versions.
	EntryNotice
)

// Entry is one item of enumeration.
type Entry struct {
	Kind    EntryKind
	Module  string
	Version string

	// Verdict is set for EntryModuleFailure. Such a module contributes
	// no versions.
	Verdict *Verdict

	// YankReason is set when metadata marks the version as yanked.
	YankReason string

	// Warnings are soft findings about the module as a whole, attached to
	// the module's first entry only.
	Warnings []string
}

// Enumerator discovers validation targets from registry metadata.
type Enumerator struct {
	reg          *registry.Local
	modules      map[string]bool
	strictSchema bool
	logger       *slog.Logger
}

// NewEnumerator creates an Enumerator for the registry rooted at root.
func NewEnumerator(root string, opts ...Option) (*Enumerator, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	return newEnumerator(registry.NewLocal(root), cfg), nil
}

func newEnumerator(reg *registry.Local, cfg *config) *Enumerator {
	e := &Enumerator{reg: reg, strictSchema: cfg.strictSchema, logger: cfg.log()}
	if len(cfg.modules) > 0 {
		e.modules = make(map[string]bool, len(cfg.modules))
		for _, m := range cfg.modules {
			e.modules[m] = true
		}
	}
	return e
}

// Modules lists the module directories to visit, sorted by name.
// It returns ErrModulesDirNotFound when the registry has no modules directory.
func (e *Enumerator) Modules(ctx context.Context) ([]string, error) {
	names, err := e.reg.ListModules(ctx)
	if err != nil {
		return nil, err
	}
	if e.modules == nil {
		return names, nil
	}
	filtered := names[:0]
	for _, n := range names {
		if e.modules[n] {
			filtered = append(filtered, n)
		}
	}
	return filtered, nil
}

// Entries yields validation targets: modules in name order, versions in
// the order metadata declares them. Each call re-reads the registry.
// A failure to list modules ends the sequence; call Modules first to
// detect it.
func (e *Enumerator) Entries(ctx context.Context) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		names, err := e.Modules(ctx)
		if err != nil {
			e.logger.Debug("module listing failed", "error", err)
			return
		}
		for _, name := range names {
			if !e.moduleEntries(ctx, name, yield) {
				return
			}
		}
	}
}

// moduleEntries yields one module's entries and reports whether to continue.
func (e *Enumerator) moduleEntries(ctx context.Context, name string, yield func(Entry) bool) bool {
	metadata, err := e.reg.LoadMetadata(ctx, name)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		v := Verdict{Module: name, Err: err}
		if errors.Is(err, registry.ErrFileNotFound) {
			v.Kind = MissingMetadata
			v.Reason = "Missing metadata.json"
		} else {
			v.Kind = MalformedMetadata
			v.Reason = "Invalid metadata.json"
		}
		e.logger.Debug("module metadata unusable", "module", name, "kind", string(v.Kind), "error", err)
		return yield(Entry{Kind: EntryModuleFailure, Module: name, Verdict: &v})
	}

	warnings := moduleWarnings(name, metadata, e.strictSchema)
	if len(metadata.Versions) == 0 {
		e.logger.Debug("module declares no versions", "module", name)
		if len(warnings) > 0 {
			return yield(Entry{Kind: EntryNotice, Module: name, Warnings: warnings})
		}
		return true
	}
	for i, version := range metadata.Versions {
		entry := Entry{Module: name, Version: version, YankReason: metadata.YankReason(version)}
		if i == 0 {
			entry.Warnings = warnings
		}
		if !yield(entry) {
			return false
		}
	}
	return true
}

func moduleWarnings(name string, metadata *registry.Metadata, strict bool) []string {
	var warnings []string
	if metadata.IsDeprecated() {
		warnings = append(warnings, fmt.Sprintf("%s: deprecated: %s", name, metadata.Deprecated))
	}
	if strict {
		if err := modver.ValidModuleName(name); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", name, err))
		}
		for _, f := range registry.Findings(metadata.Validate()) {
			warnings = append(warnings, fmt.Sprintf("%s: metadata.json: %s", name, f))
		}
	}
	return warnings
}
