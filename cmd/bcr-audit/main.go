// Command bcr-audit checks that every artifact a Bazel registry mirror
// declares is reachable and matches its sha256 integrity value.
//
// Usage:
//
//	bcr-audit -registry infrastructure/bcr-playground
//	bcr-audit -registry ./mirror -format json -concurrency 8
//	bcr-audit -registry ./mirror -sbom cyclonedx -sbom-out sbom.cdx.json
//	bcr-audit -registry ./mirror -watch
//
// Exit status is 0 when the registry is healthy (or empty, unless
// -fail-on-empty is given), 1 when any check failed or the registry has no
// modules directory, and 2 for usage or configuration errors.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	bcraudit "github.com/albertocavalcante/go-bcr-audit"
	"github.com/albertocavalcante/go-bcr-audit/internal/config"
	"github.com/albertocavalcante/go-bcr-audit/internal/watch"
	"github.com/albertocavalcante/go-bcr-audit/report"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const defaultSBOMOut = "bcr-audit-sbom.json"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.LookupEnv)
	stop()
	os.Exit(code)
}

// options is the fully resolved command line.
type options struct {
	config.Config
	watch   bool
	verbose bool
}

func parseArgs(args []string, stderr io.Writer, lookup func(string) (string, bool)) (*options, error) {
	fs := flag.NewFlagSet("bcr-audit", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "YAML config file (default "+config.DefaultFile+" if present)")
	registry := fs.String("registry", config.DefaultRegistry, "Path to registry")
	timeout := fs.Duration("timeout", config.DefaultTimeout, "Per-artifact fetch timeout")
	concurrency := fs.Int("concurrency", 1, "Number of versions checked in parallel")
	modules := fs.String("module", "", "Comma-separated list of modules to audit (default all)")
	format := fs.String("format", "text", "Report format: text or json")
	sbom := fs.String("sbom", "", "Also write an SBOM of verified artifacts: cyclonedx or spdx")
	sbomOut := fs.String("sbom-out", defaultSBOMOut, "SBOM output file")
	checkModuleFile := fs.Bool("check-module-file", false, "Cross-check MODULE.bazel name and version (notes only)")
	strict := fs.Bool("strict", false, "Apply BCR lint rules to metadata.json and source.json (notes only)")
	failOnEmpty := fs.Bool("fail-on-empty", false, "Exit 1 when no version was checked")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	watchMode := fs.Bool("watch", false, "Re-run the audit when registry files change")
	verbose := fs.Bool("v", false, "Verbose logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg, err := config.Load(config.Sources{File: *configPath, Lookup: lookup})
	if err != nil {
		return nil, err
	}

	// Flags given on the command line win over every other source.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "registry":
			cfg.Registry = *registry
		case "timeout":
			cfg.Timeout = *timeout
		case "concurrency":
			cfg.Concurrency = *concurrency
		case "module":
			cfg.Modules = config.SplitList(*modules)
		case "format":
			cfg.Format = *format
		case "sbom":
			cfg.SBOM = *sbom
		case "sbom-out":
			cfg.SBOMOut = *sbomOut
		case "check-module-file":
			cfg.CheckModuleFile = *checkModuleFile
		case "strict":
			cfg.Strict = *strict
		case "fail-on-empty":
			cfg.FailOnEmpty = *failOnEmpty
		case "no-color":
			cfg.NoColor = *noColor
		}
	})
	if cfg.SBOMOut == "" {
		cfg.SBOMOut = defaultSBOMOut
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &options{Config: cfg, watch: *watchMode, verbose: *verbose}, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, lookup func(string) (string, bool)) int {
	opts, err := parseArgs(args, stderr, lookup)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return report.ExitHealthy
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return report.ExitUsage
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	c := &cli{
		opts:   opts,
		stdout: stdout,
		logger: logger,
		color:  !opts.NoColor && isTerminal(stdout),
	}

	code := c.once(ctx)
	if !opts.watch {
		return code
	}

	w := watch.New(filepath.Join(opts.Registry, "modules"), watch.WithLogger(logger))
	err = w.Run(ctx, func(ctx context.Context) error {
		code = c.once(ctx)
		if code != report.ExitHealthy {
			return fmt.Errorf("audit exited with status %d", code)
		}
		return nil
	})
	if err != nil {
		logger.Error("watch failed", "error", err)
		return report.ExitUnhealthy
	}
	return code
}

type cli struct {
	opts   *options
	stdout io.Writer
	logger *slog.Logger
	color  bool
}

// once runs a single audit and writes its report. It returns the exit code.
func (c *cli) once(ctx context.Context) int {
	root := c.opts.Registry
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}

	auditOpts := []bcraudit.Option{
		bcraudit.WithTimeout(c.opts.Timeout),
		bcraudit.WithConcurrency(c.opts.Concurrency),
		bcraudit.WithModuleFileCheck(c.opts.CheckModuleFile),
		bcraudit.WithStrictSchema(c.opts.Strict),
		bcraudit.WithModules(c.opts.Modules...),
		bcraudit.WithLogger(c.logger),
	}

	var printer *report.Printer
	if c.opts.Format == "text" {
		printer = report.NewPrinter(c.stdout, c.color)
		printer.Header(absRoot)
		auditOpts = append(auditOpts, bcraudit.WithProgress(printer.Verdict))
	}

	auditor, err := bcraudit.New(root, auditOpts...)
	if err != nil {
		c.logger.Error("invalid audit configuration", "error", err)
		return report.ExitUsage
	}

	summary, err := auditor.Run(ctx)
	if err != nil {
		if errors.Is(err, bcraudit.ErrModulesDirNotFound) {
			if printer != nil {
				printer.Critical(auditor.ModulesDir())
			} else {
				c.logger.Error("registry modules directory not found", "path", auditor.ModulesDir())
			}
			return report.ExitUnhealthy
		}
		c.logger.Error("audit aborted", "error", err)
		return report.ExitUnhealthy
	}

	if printer != nil {
		printer.Footer(summary)
	} else {
		out, err := report.JSON(summary, time.Now())
		if err != nil {
			c.logger.Error("cannot render report", "error", err)
			return report.ExitUnhealthy
		}
		fmt.Fprintln(c.stdout, string(out))
	}

	if c.opts.SBOM != "" {
		if err := c.writeSBOM(summary); err != nil {
			c.logger.Error("cannot write SBOM", "error", err)
			return report.ExitUnhealthy
		}
	}

	return report.ExitCode(summary, c.opts.FailOnEmpty)
}

func (c *cli) writeSBOM(summary *bcraudit.Summary) error {
	format, err := report.ParseSBOMFormat(c.opts.SBOM)
	if err != nil {
		return err
	}
	data, err := report.SBOM(summary, format, report.SBOMOptions{
		Name:        filepath.Base(summary.Root),
		ToolVersion: version,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.opts.SBOMOut, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", c.opts.SBOMOut, err)
	}
	c.logger.Info("wrote SBOM", "path", c.opts.SBOMOut, "format", string(format), "components", len(report.Artifacts(summary)))
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
