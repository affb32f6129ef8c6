package bcraudit

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/albertocavalcante/go-bcr-audit/registry"
)

// Auditor drives enumeration and per-version validation over a registry
// and folds the verdicts into a Summary.
type Auditor struct {
	reg        *registry.Local
	enumerator *Enumerator
	validator  *Validator
	cfg        *config
	logger     *slog.Logger
}

// New creates an Auditor for the registry rooted at root.
func New(root string, opts ...Option) (*Auditor, error) {
	if root == "" {
		return nil, ErrNoRoot
	}
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	reg := registry.NewLocal(root)
	return &Auditor{
		reg:        reg,
		enumerator: newEnumerator(reg, cfg),
		validator:  newValidator(reg, cfg),
		cfg:        cfg,
		logger:     cfg.log(),
	}, nil
}

// Audit is a convenience wrapper around New and Run.
func Audit(ctx context.Context, root string, opts ...Option) (*Summary, error) {
	a, err := New(root, opts...)
	if err != nil {
		return nil, err
	}
	return a.Run(ctx)
}

// Root returns the registry root being audited.
func (a *Auditor) Root() string {
	return a.reg.Root()
}

// ModulesDir returns the modules directory being audited.
func (a *Auditor) ModulesDir() string {
	return a.reg.ModulesDir()
}

// Run audits the registry once.
//
// A missing modules directory is returned as a *RegistryError wrapping
// ErrModulesDirNotFound before any check runs. Every other problem becomes
// a verdict. If ctx is canceled the partial summary is returned with the
// context error.
func (a *Auditor) Run(ctx context.Context) (*Summary, error) {
	names, err := a.enumerator.Modules(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &RegistryError{Root: a.reg.Root(), Err: err}
	}

	a.logger.Info("auditing registry", "root", a.reg.Root(), "modules", len(names), "concurrency", a.cfg.concurrency)

	summary := newSummary(a.reg.Root())
	summary.Modules = len(names)

	if a.cfg.concurrency <= 1 {
		err = a.runSequential(ctx, summary)
	} else {
		err = a.runParallel(ctx, summary)
	}
	if err != nil {
		return summary, err
	}

	a.logger.Info("audit finished",
		"checked", summary.Checked,
		"healthy", summary.Healthy,
		"soft_passes", summary.SoftPasses,
		"hard_failures", summary.HardFailures,
		"state", string(summary.State()))
	return summary, nil
}

func (a *Auditor) runSequential(ctx context.Context, summary *Summary) error {
	for entry := range a.enumerator.Entries(ctx) {
		if err := ctx.Err(); err != nil {
			return err
		}
		var v Verdict
		if entry.Kind == EntryVersion {
			v = a.check(ctx, entry)
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		a.fold(summary, entry, v)
	}
	return ctx.Err()
}

// pending is a scheduled entry awaiting its fold turn.
type pending struct {
	entry Entry
	done  chan struct{}
	v     Verdict
}

// runParallel validates up to cfg.concurrency versions at once while
// folding verdicts strictly in enumeration order. Entries are scheduled as
// they are enumerated; read-ahead is bounded by the worker limit and the
// queue depth.
func (a *Auditor) runParallel(ctx context.Context, summary *Summary) error {
	var g errgroup.Group
	g.SetLimit(a.cfg.concurrency)

	queue := make(chan *pending, a.cfg.concurrency)
	go func() {
		defer close(queue)
		for entry := range a.enumerator.Entries(ctx) {
			p := &pending{entry: entry, done: make(chan struct{})}
			if entry.Kind != EntryVersion || ctx.Err() != nil {
				close(p.done)
			} else {
				g.Go(func() error {
					defer close(p.done)
					p.v = a.check(ctx, entry)
					return nil
				})
			}
			select {
			case queue <- p:
			case <-ctx.Done():
				return
			}
		}
	}()

	for p := range queue {
		<-p.done
		if ctx.Err() != nil {
			break
		}
		a.fold(summary, p.entry, p.v)
	}
	// Drain so the scheduler can finish before Wait.
	for range queue {
	}
	_ = g.Wait()
	return ctx.Err()
}

// check validates one version entry and attaches entry-level notes.
func (a *Auditor) check(ctx context.Context, entry Entry) Verdict {
	v := a.validator.Validate(ctx, entry.Module, entry.Version)
	if entry.YankReason != "" {
		v = v.withNotes(fmt.Sprintf("yanked: %s", entry.YankReason))
	}
	return v
}

// fold records an entry's outcome in the summary and reports progress.
func (a *Auditor) fold(summary *Summary, entry Entry, v Verdict) {
	summary.Warnings = append(summary.Warnings, entry.Warnings...)

	switch entry.Kind {
	case EntryNotice:
		return
	case EntryModuleFailure:
		v = *entry.Verdict
		a.logger.Warn("module skipped", "module", v.Module, "kind", string(v.Kind), "reason", v.Reason)
	}

	summary.add(v)
	if a.cfg.onProgress != nil {
		a.cfg.onProgress(v)
	}
}
