package bcraudit

import (
	"errors"
	"fmt"

	"github.com/albertocavalcante/go-bcr-audit/registry"
)

// Sentinel errors for conditions that stop an audit before any check runs.
var (
	// ErrModulesDirNotFound indicates the registry root has no modules directory.
	ErrModulesDirNotFound = registry.ErrModulesDirNotFound

	// ErrNoRoot indicates an empty registry root path was given.
	ErrNoRoot = errors.New("registry root is required")
)

// RegistryError is a critical failure tied to a registry path.
type RegistryError struct {
	Root string
	Err  error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("registry %s: %v", e.Root, e.Err)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}
