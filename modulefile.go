package bcraudit

import (
	"context"
	"errors"
	"fmt"

	"github.com/bazelbuild/buildtools/build"

	"github.com/albertocavalcante/go-bcr-audit/internal/buildutil"
	"github.com/albertocavalcante/go-bcr-audit/registry"
)

// moduleDecl is the module() call of a MODULE.bazel file.
type moduleDecl struct {
	Name    string
	Version string
	Found   bool
}

// parseModuleDecl extracts the module() declaration from MODULE.bazel content.
func parseModuleDecl(content []byte) (moduleDecl, error) {
	f, err := build.ParseModule("MODULE.bazel", content)
	if err != nil {
		return moduleDecl{}, fmt.Errorf("failed to parse MODULE.bazel: %w", err)
	}

	call := buildutil.FirstCall(f, "module")
	if call == nil {
		return moduleDecl{}, nil
	}
	return moduleDecl{
		Name:    buildutil.String(call, "name"),
		Version: buildutil.String(call, "version"),
		Found:   true,
	}, nil
}

// checkModuleFile compares a version's MODULE.bazel against its registry
// path and returns one note per disagreement.
func checkModuleFile(ctx context.Context, reg *registry.Local, module, version string) []string {
	data, err := reg.ReadModuleFile(ctx, module, version)
	if err != nil {
		if errors.Is(err, registry.ErrFileNotFound) {
			return []string{"MODULE.bazel not found"}
		}
		return []string{fmt.Sprintf("MODULE.bazel unreadable: %v", err)}
	}

	decl, err := parseModuleDecl(data)
	if err != nil {
		return []string{err.Error()}
	}
	if !decl.Found {
		return []string{"MODULE.bazel has no module() declaration"}
	}

	var notes []string
	if decl.Name != module {
		notes = append(notes, fmt.Sprintf("MODULE.bazel declares name %q, registry path says %q", decl.Name, module))
	}
	if decl.Version != version {
		notes = append(notes, fmt.Sprintf("MODULE.bazel declares version %q, registry path says %q", decl.Version, version))
	}
	return notes
}
