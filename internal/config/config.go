// Package config resolves CLI settings from defaults, a YAML file, a .env
// file and BCR_AUDIT_* environment variables. Flags are applied on top by
// the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default locations, relative to the working directory.
const (
	DefaultFile     = ".bcr-audit.yaml"
	DefaultDotEnv   = ".env"
	DefaultRegistry = "infrastructure/bcr-playground"
	DefaultTimeout  = 5 * time.Second

	// EnvPrefix is prepended to every environment key.
	EnvPrefix = "BCR_AUDIT_"
)

// Config is the resolved CLI configuration.
type Config struct {
	Registry        string        `yaml:"registry"`
	Timeout         time.Duration `yaml:"timeout"`
	Concurrency     int           `yaml:"concurrency"`
	Modules         []string      `yaml:"modules"`
	Format          string        `yaml:"format"`
	SBOM            string        `yaml:"sbom"`
	SBOMOut         string        `yaml:"sbom_out"`
	CheckModuleFile bool          `yaml:"check_module_file"`
	Strict          bool          `yaml:"strict"`
	FailOnEmpty     bool          `yaml:"fail_on_empty"`
	NoColor         bool          `yaml:"no_color"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Registry:    DefaultRegistry,
		Timeout:     DefaultTimeout,
		Concurrency: 1,
		Format:      "text",
	}
}

// Sources names where configuration is read from.
type Sources struct {
	// File is the YAML config path. Empty means DefaultFile, which may be
	// absent; an explicitly named file must exist.
	File string

	// DotEnv is the .env path. Empty means DefaultDotEnv. A missing file
	// is ignored.
	DotEnv string

	// Lookup reads the process environment. Nil means os.LookupEnv.
	Lookup func(key string) (string, bool)
}

// Load resolves the configuration: defaults, then the YAML file, then
// .env values, then the process environment. Values that do not parse are
// errors; the result is not validated, so callers can layer command-line
// overrides first and call Validate once.
func Load(src Sources) (Config, error) {
	cfg := Default()

	file, explicit := src.File, true
	if file == "" {
		file, explicit = DefaultFile, false
	}
	if err := cfg.mergeFile(file, explicit); err != nil {
		return Config{}, err
	}

	dotenv := src.DotEnv
	if dotenv == "" {
		dotenv = DefaultDotEnv
	}
	values, err := readDotEnv(dotenv)
	if err != nil {
		return Config{}, err
	}

	lookup := src.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}
	if err := cfg.mergeEnv(env); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// readDotEnv returns the key/value pairs of a .env file without touching
// the process environment.
func readDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return values, nil
}

func (c *Config) mergeEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("REGISTRY", &c.Registry)
	str("FORMAT", &c.Format)
	str("SBOM", &c.SBOM)
	str("SBOM_OUT", &c.SBOMOut)

	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Timeout = d
	}
	if v, ok := lookup(EnvPrefix + "CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sCONCURRENCY: %w", EnvPrefix, err)
		}
		c.Concurrency = n
	}
	if v, ok := lookup(EnvPrefix + "MODULES"); ok && v != "" {
		c.Modules = SplitList(v)
	}

	for name, dst := range map[string]*bool{
		"CHECK_MODULE_FILE": &c.CheckModuleFile,
		"STRICT":            &c.Strict,
		"FAIL_ON_EMPTY":     &c.FailOnEmpty,
		"NO_COLOR":          &c.NoColor,
	} {
		if err := boolean(name, dst); err != nil {
			return err
		}
	}

	// https://no-color.org: any non-empty value disables color.
	if v, ok := lookup("NO_COLOR"); ok && v != "" {
		c.NoColor = true
	}
	return nil
}

// Validate checks the configuration for logical consistency.
func (c *Config) Validate() error {
	if c.Registry == "" {
		return errors.New("registry path is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown format %q (want text or json)", c.Format)
	}
	switch strings.ToLower(c.SBOM) {
	case "", "cyclonedx", "spdx":
	default:
		return fmt.Errorf("unknown SBOM format %q (want cyclonedx or spdx)", c.SBOM)
	}
	return nil
}

// SplitList parses a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
