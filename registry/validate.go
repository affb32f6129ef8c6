package registry

import (
	"cmp"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/albertocavalcante/go-bcr-audit/integrity"
	"github.com/albertocavalcante/go-bcr-audit/internal/modver"
)

// FieldError is one lint finding, tied to a field path such as
// "maintainers[0].github".
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ValidationErrors collects the findings of one Validate call.
type ValidationErrors struct {
	Errors []*FieldError
}

func (e *ValidationErrors) Error() string {
	switch len(e.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return e.Errors[0].Error()
	}
	lines := make([]string, 0, len(e.Errors)+1)
	lines = append(lines, fmt.Sprintf("%d validation errors:", len(e.Errors)))
	for _, fe := range e.Errors {
		lines = append(lines, "  - "+fe.Error())
	}
	return strings.Join(lines, "\n")
}

// Unwrap exposes each finding to errors.Is/As.
func (e *ValidationErrors) Unwrap() []error {
	out := make([]error, len(e.Errors))
	for i, fe := range e.Errors {
		out[i] = fe
	}
	return out
}

// Add records a finding.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &FieldError{Field: field, Message: message})
}

// ToError returns nil when nothing was found.
func (e *ValidationErrors) ToError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Findings flattens the result of a Validate call into one line per finding.
// It returns nil for a nil error.
func Findings(err error) []string {
	if err == nil {
		return nil
	}
	var verrs *ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, len(verrs.Errors))
	for i, fe := range verrs.Errors {
		out[i] = fe.Error()
	}
	return out
}

var (
	githubUserPattern = regexp.MustCompile(`^[-a-zA-Z0-9]*$`)
	commitPattern     = regexp.MustCompile(`^[a-f0-9]{40}$`)
)

// Validate lints metadata.json against BCR conventions. Findings are
// sorted by field so repeated runs report them identically.
func (m *Metadata) Validate() error {
	errs := ValidationErrors{Errors: slices.Clone(m.issues)}

	if m.Homepage == "" {
		errs.Add("homepage", "required field is missing")
	}
	if len(m.Repository) == 0 {
		errs.Add("repository", "required field is missing or empty")
	}

	if len(m.Maintainers) == 0 {
		errs.Add("maintainers", "required field is missing or empty")
	}
	for i, mt := range m.Maintainers {
		field := fmt.Sprintf("maintainers[%d]", i)
		switch {
		case mt.GitHub != "" && !githubUserPattern.MatchString(mt.GitHub):
			errs.Add(field+".github", "must contain only alphanumeric characters and hyphens")
		case mt.GitHub == "" && mt.Email == "" && mt.Name == "":
			errs.Add(field, "maintainer should have at least one of: github, email, or name")
		}
	}

	lintVersions(&errs, m.Versions)

	for version := range m.YankedVersions {
		if !m.HasVersion(version) {
			errs.Add(fmt.Sprintf("yanked_versions[%q]", version), "yanked version does not exist in versions list")
		}
	}

	slices.SortStableFunc(errs.Errors, func(a, b *FieldError) int {
		return cmp.Compare(a.Field, b.Field)
	})
	return errs.ToError()
}

// lintVersions flags an empty list, duplicates, unparseable entries and
// entries out of ascending order.
func lintVersions(errs *ValidationErrors, versions []string) {
	if len(versions) == 0 {
		errs.Add("versions", "required field is missing or empty")
		return
	}

	seen := make(map[string]bool, len(versions))
	var prev *modver.Version
	for i, raw := range versions {
		if seen[raw] {
			errs.Add("versions", fmt.Sprintf("version %q is listed more than once", raw))
		}
		seen[raw] = true

		v, err := modver.Parse(raw)
		if err != nil {
			errs.Add(fmt.Sprintf("versions[%d]", i), err.Error())
			prev = nil
			continue
		}
		if prev != nil && modver.Compare(*prev, v) > 0 {
			errs.Add("versions", fmt.Sprintf("%q is listed after %q, expected ascending order", raw, prev.String()))
		}
		prev = &v
	}
}

// Validate lints source.json against BCR conventions. Fields dropped for
// their type while decoding come first. A missing url or integrity is not a
// finding here: the audit itself reports those.
func (s *Source) Validate() error {
	errs := ValidationErrors{Errors: slices.Clone(s.issues)}

	if s.IsGitRepository() {
		if s.Remote == "" {
			errs.Add("remote", "required field is missing for git_repository")
		}
		switch {
		case s.Commit == "" && s.Tag == "":
			errs.Add("commit", "either 'commit' or 'tag' is required for git_repository")
		case s.Commit != "" && !commitPattern.MatchString(s.Commit):
			errs.Add("commit", "must be a 40-character hex SHA")
		}
		if len(s.Overlay) != 0 {
			errs.Add("overlay", "should not be set for git_repository type")
		}
	} else {
		if !s.IsArchive() {
			errs.Add("type", fmt.Sprintf("expected 'archive' or empty, got %q", s.Type))
		}
		if _, ok := integrity.Parse(s.Integrity); ok && !integrity.WellFormed(s.Integrity) {
			errs.Add("integrity", fmt.Sprintf("must be %q followed by %d lowercase hex characters", integrity.Prefix, integrity.HexLen))
		}
		for _, f := range []struct{ name, value string }{
			{"remote", s.Remote}, {"commit", s.Commit}, {"tag", s.Tag},
		} {
			if f.value != "" {
				errs.Add(f.name, "should not be set for archive type")
			}
		}
	}

	if s.PatchStrip < 0 {
		errs.Add("patch_strip", "must be non-negative")
	}
	return errs.ToError()
}
