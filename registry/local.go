package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// File and directory names of the registry layout.
const (
	ModulesDirName   = "modules"
	MetadataFileName = "metadata.json"
	SourceFileName   = "source.json"
	ModuleFileName   = "MODULE.bazel"
)

// Load failure kinds. Use errors.Is against a *LoadError.
var (
	// ErrFileNotFound indicates the document does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrMalformed indicates the document exists but is not readable as
	// JSON of the expected shape.
	ErrMalformed = errors.New("malformed document")

	// ErrModulesDirNotFound indicates the registry has no modules directory.
	ErrModulesDirNotFound = errors.New("registry modules directory not found")
)

// LoadError describes a document that could not be loaded.
type LoadError struct {
	Path string
	Kind error // ErrFileNotFound or ErrMalformed
	Err  error // underlying cause, may be nil
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Kind)
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Local reads registry documents from a directory tree. It never writes.
// Local holds no cache, so repeated loads observe the current files.
type Local struct {
	root string
}

// NewLocal creates a reader for the registry rooted at root.
func NewLocal(root string) *Local {
	return &Local{root: filepath.Clean(root)}
}

// Root returns the registry root path.
func (l *Local) Root() string {
	return l.root
}

// ModulesDir returns the path of the modules directory.
func (l *Local) ModulesDir() string {
	return filepath.Join(l.root, ModulesDirName)
}

// MetadataPath returns the path of a module's metadata.json.
func (l *Local) MetadataPath(module string) string {
	return filepath.Join(l.ModulesDir(), module, MetadataFileName)
}

// SourcePath returns the path of a version's source.json.
func (l *Local) SourcePath(module, version string) string {
	return filepath.Join(l.ModulesDir(), module, version, SourceFileName)
}

// ModuleFilePath returns the path of a version's MODULE.bazel.
func (l *Local) ModuleFilePath(module, version string) string {
	return filepath.Join(l.ModulesDir(), module, version, ModuleFileName)
}

// ListModules returns the names of module directories, sorted by name.
// Entries that are not directories are skipped. Symlinks are followed.
func (l *Local) ListModules(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := l.ModulesDir()
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModulesDirNotFound, dir)
		}
		return nil, fmt.Errorf("cannot access modules directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrModulesDirNotFound, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read modules directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		fi, err := os.Stat(filepath.Join(dir, entry.Name()))
		if err != nil || !fi.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	slices.Sort(names)
	return names, nil
}

// LoadMetadata reads and decodes a module's metadata.json.
// A document without "versions" yields an empty version list.
func (l *Local) LoadMetadata(ctx context.Context, module string) (*Metadata, error) {
	path := l.MetadataPath(module)
	data, err := l.read(ctx, path)
	if err != nil {
		return nil, err
	}

	v, err := sharedValidator()
	if err != nil {
		return nil, err
	}
	if err := v.ValidateMetadata(data); err != nil {
		return nil, &LoadError{Path: path, Kind: ErrMalformed, Err: err}
	}

	var metadata Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, &LoadError{Path: path, Kind: ErrMalformed, Err: err}
	}
	return &metadata, nil
}

// LoadSource reads and decodes a version's source.json.
// The returned Source may lack a URL; judging usability is up to the caller.
func (l *Local) LoadSource(ctx context.Context, module, version string) (*Source, error) {
	path := l.SourcePath(module, version)
	if !validPathElement(version) {
		return nil, &LoadError{Path: path, Kind: ErrFileNotFound, Err: fmt.Errorf("version %q is not a directory name", version)}
	}
	data, err := l.read(ctx, path)
	if err != nil {
		return nil, err
	}

	v, err := sharedValidator()
	if err != nil {
		return nil, err
	}
	if err := v.ValidateSource(data); err != nil {
		return nil, &LoadError{Path: path, Kind: ErrMalformed, Err: err}
	}

	var source Source
	if err := json.Unmarshal(data, &source); err != nil {
		return nil, &LoadError{Path: path, Kind: ErrMalformed, Err: err}
	}
	return &source, nil
}

// ReadModuleFile returns the raw MODULE.bazel of a version.
func (l *Local) ReadModuleFile(ctx context.Context, module, version string) ([]byte, error) {
	if !validPathElement(version) {
		return nil, &LoadError{Path: l.ModuleFilePath(module, version), Kind: ErrFileNotFound}
	}
	return l.read(ctx, l.ModuleFilePath(module, version))
}

// read loads a file, mapping absence to ErrFileNotFound and any other
// read failure (a directory in place of the file, permissions) to ErrMalformed.
func (l *Local) read(ctx context.Context, path string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Path: path, Kind: ErrFileNotFound}
		}
		return nil, &LoadError{Path: path, Kind: ErrMalformed, Err: err}
	}
	return data, nil
}

// validPathElement reports whether name stays inside its parent directory.
func validPathElement(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
