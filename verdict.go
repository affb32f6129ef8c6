package bcraudit

import (
	"fmt"
)

// VerdictKind is the outcome class of one check.
type VerdictKind string

// Verdict kinds. Module-level kinds (MissingMetadata, MalformedMetadata)
// carry an empty Version.
const (
	Healthy                VerdictKind = "healthy"
	HealthyNoIntegrity     VerdictKind = "healthy_no_integrity"
	UnknownIntegrityFormat VerdictKind = "unknown_integrity_format"
	MissingDescriptor      VerdictKind = "missing_descriptor"
	MalformedDescriptor    VerdictKind = "malformed_descriptor"
	MissingURL             VerdictKind = "missing_url"
	FetchFailed            VerdictKind = "fetch_failed"
	ChecksumMismatch       VerdictKind = "checksum_mismatch"
	MalformedMetadata      VerdictKind = "malformed_metadata"
	MissingMetadata        VerdictKind = "missing_metadata"
)

// IsSoftPass reports whether the kind passes with a warning.
func (k VerdictKind) IsSoftPass() bool {
	return k == HealthyNoIntegrity || k == UnknownIntegrityFormat
}

// IsHardFailure reports whether the kind fails the version and the audit.
func (k VerdictKind) IsHardFailure() bool {
	return k != Healthy && !k.IsSoftPass()
}

// IsModuleLevel reports whether the kind describes a whole module.
func (k VerdictKind) IsModuleLevel() bool {
	return k == MissingMetadata || k == MalformedMetadata
}

// Verdict is the immutable result of checking one version (or one module,
// for metadata failures).
type Verdict struct {
	Kind    VerdictKind `json:"kind"`
	Module  string      `json:"module"`
	Version string      `json:"version,omitempty"`

	// Reason is a short human-readable explanation.
	Reason string `json:"reason"`

	// URL is the artifact URL from the descriptor, when one was read.
	URL string `json:"url,omitempty"`

	// Expected is the declared hex digest, Actual the digest of the fetched
	// bytes. Actual is set whenever the fetch succeeded.
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`

	// StatusCode is the HTTP status of a FetchFailed caused by a bad status.
	StatusCode int `json:"status_code,omitempty"`

	// Notes are soft findings from optional checks. They never change Kind.
	Notes []string `json:"notes,omitempty"`

	// Err is the underlying failure, if any.
	Err error `json:"-"`
}

// Subject returns "module@version", or just the module for module-level verdicts.
func (v Verdict) Subject() string {
	if v.Version == "" {
		return v.Module
	}
	return v.Module + "@" + v.Version
}

// String renders a single plain report line.
func (v Verdict) String() string {
	return fmt.Sprintf("%s: %s", v.Subject(), v.Reason)
}

// withNotes returns a copy of v with notes appended.
func (v Verdict) withNotes(notes ...string) Verdict {
	if len(notes) == 0 {
		return v
	}
	merged := make([]string, 0, len(v.Notes)+len(notes))
	merged = append(merged, v.Notes...)
	merged = append(merged, notes...)
	v.Notes = merged
	return v
}

// State is the overall outcome of an audit run.
type State string

const (
	// StateHealthy means at least one version was checked and nothing failed.
	StateHealthy State = "healthy"
	// StateUnhealthy means at least one hard failure was recorded.
	StateUnhealthy State = "unhealthy"
	// StateEmpty means nothing was checked and nothing failed.
	StateEmpty State = "empty"
)

// Summary aggregates the verdicts of one audit run.
type Summary struct {
	// Root is the registry root that was audited.
	Root string `json:"root"`

	// Modules is the number of module directories visited.
	Modules int `json:"modules"`

	// Checked is the number of versions examined. Module-level failures
	// are not counted.
	Checked int `json:"checked"`

	Healthy      int `json:"healthy"`
	SoftPasses   int `json:"soft_passes"`
	HardFailures int `json:"hard_failures"`

	// OverallHealthy is false once any hard failure occurred.
	OverallHealthy bool `json:"overall_healthy"`

	// Verdicts holds every verdict in enumeration order.
	Verdicts []Verdict `json:"verdicts"`

	// Warnings are registry-wide soft findings (deprecations, lint).
	Warnings []string `json:"warnings,omitempty"`
}

// newSummary returns an empty summary that is healthy until proven otherwise.
func newSummary(root string) *Summary {
	return &Summary{Root: root, OverallHealthy: true, Verdicts: []Verdict{}}
}

// add folds one verdict into the summary.
func (s *Summary) add(v Verdict) {
	s.Verdicts = append(s.Verdicts, v)
	if !v.Kind.IsModuleLevel() {
		s.Checked++
	}
	switch {
	case v.Kind.IsHardFailure():
		s.HardFailures++
		s.OverallHealthy = false
	case v.Kind.IsSoftPass():
		s.SoftPasses++
	default:
		s.Healthy++
	}
}

// State classifies the run.
func (s *Summary) State() State {
	switch {
	case s.HardFailures > 0:
		return StateUnhealthy
	case s.Checked == 0:
		return StateEmpty
	default:
		return StateHealthy
	}
}

// Failures returns the hard-failure verdicts in order.
func (s *Summary) Failures() []Verdict {
	var out []Verdict
	for _, v := range s.Verdicts {
		if v.Kind.IsHardFailure() {
			out = append(out, v)
		}
	}
	return out
}
