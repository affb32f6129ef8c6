// Package modver parses and orders Bazel module versions and checks
// module names.
//
// Versions follow MAJOR[.MINOR[.PATCH]][.SUFFIX...][-PRERELEASE][+BUILD],
// the relaxed form found in registries (for example "29.0", "8.2.1.1",
// "1.3.1.bcr.7", "0.0.0-20241220-5e258e33"). A 40-character commit hash is
// also accepted and compares only by its text.
package modver

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	versionPattern    = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?((?:\.[a-zA-Z0-9]+)*)(?:-([a-zA-Z0-9._-]+))?(?:\+([a-zA-Z0-9._-]+))?$`)
	commitPattern     = regexp.MustCompile(`^[0-9a-f]{40}$`)
	moduleNamePattern = regexp.MustCompile(`^[a-z]([a-z0-9._-]*[a-z0-9])?$`)
)

// Version is a parsed module version. The zero value is the empty version.
type Version struct {
	raw        string
	release    [3]int
	suffix     []string
	prerelease []string
	commit     bool
}

// Parse validates s as a module version.
func Parse(s string) (Version, error) {
	if s == "" {
		return Version{}, fmt.Errorf("empty version")
	}
	if commitPattern.MatchString(s) {
		return Version{raw: s, commit: true}, nil
	}
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}

	v := Version{raw: s}
	for i, part := range m[1:4] {
		if part != "" {
			n, err := strconv.Atoi(part)
			if err != nil {
				return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
			}
			v.release[i] = n
		}
	}
	if m[4] != "" {
		v.suffix = strings.Split(strings.TrimPrefix(m[4], "."), ".")
	}
	if m[5] != "" {
		v.prerelease = strings.Split(m[5], ".")
	}
	// Build metadata (m[6]) never affects ordering.
	return v, nil
}

// String returns the version as written.
func (v Version) String() string {
	return v.raw
}

// Compare orders two versions: release numbers, then suffix, then
// prerelease, where a prerelease sorts before its release. Commit
// versions sort before numbered ones and among themselves by text.
func Compare(a, b Version) int {
	if a.commit || b.commit {
		switch {
		case a.commit && b.commit:
			return strings.Compare(a.raw, b.raw)
		case a.commit:
			return -1
		default:
			return 1
		}
	}
	for i := range a.release {
		if c := cmp.Compare(a.release[i], b.release[i]); c != 0 {
			return c
		}
	}
	if c := compareIdents(a.suffix, b.suffix); c != 0 {
		return c
	}
	switch {
	case len(a.prerelease) == 0 && len(b.prerelease) == 0:
		return 0
	case len(a.prerelease) == 0:
		return 1
	case len(b.prerelease) == 0:
		return -1
	}
	return compareIdents(a.prerelease, b.prerelease)
}

// compareIdents orders dot-separated identifiers: numeric ones
// numerically and before alphanumeric ones, a shorter list first on a tie.
func compareIdents(a, b []string) int {
	for i := range min(len(a), len(b)) {
		an, aErr := strconv.Atoi(a[i])
		bn, bErr := strconv.Atoi(b[i])
		switch {
		case aErr == nil && bErr == nil:
			if c := cmp.Compare(an, bn); c != 0 {
				return c
			}
		case aErr == nil:
			return -1
		case bErr == nil:
			return 1
		default:
			if c := strings.Compare(a[i], b[i]); c != 0 {
				return c
			}
		}
	}
	return cmp.Compare(len(a), len(b))
}

// ValidModuleName reports whether name is a legal module name:
// lowercase, starting with a letter and ending with a letter or digit.
func ValidModuleName(name string) error {
	if name == "" {
		return fmt.Errorf("module name cannot be empty")
	}
	if !moduleNamePattern.MatchString(name) {
		return fmt.Errorf("invalid module name %q: must match [a-z]([a-z0-9._-]*[a-z0-9])?", name)
	}
	return nil
}
