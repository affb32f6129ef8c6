package registry

import "slices"

// Metadata represents the metadata.json file for a module in the registry.
// Only Versions drives the audit; the remaining fields feed strict linting.
type Metadata struct {
	// Homepage is the URL to the project's homepage.
	Homepage string `json:"homepage,omitempty"`

	// Maintainers lists individuals who can be notified about the module.
	Maintainers []Maintainer `json:"maintainers,omitempty"`

	// Repository is an allowlist of source URLs.
	Repository []string `json:"repository,omitempty"`

	// Versions lists the versions published in the registry, in declared
	// order. It is the sole source of truth for which versions are audited.
	Versions []string `json:"versions"`

	// YankedVersions maps version strings to yank reasons.
	YankedVersions map[string]string `json:"yanked_versions,omitempty"`

	// Deprecated explains why the module should not be used.
	Deprecated string `json:"deprecated,omitempty"`

	// issues records lint-only fields dropped during decoding.
	issues []*FieldError
}

// Maintainer represents a module maintainer in metadata.json.
type Maintainer struct {
	GitHub       string `json:"github,omitempty"`
	GitHubUserID int64  `json:"github_user_id,omitempty"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	DoNotNotify  bool   `json:"do_not_notify,omitempty"`
}

// Source represents the source.json descriptor of one module version.
type Source struct {
	// Type is the source type: "archive" (default) or "git_repository".
	Type string `json:"type,omitempty"`

	// URL is the download URL for the archive. An empty URL makes the
	// descriptor unusable regardless of Integrity.
	URL string `json:"url,omitempty"`

	// Integrity is the expected digest, "sha256-" followed by lowercase hex.
	// Empty means no integrity was declared.
	Integrity string `json:"integrity,omitempty"`

	StripPrefix string            `json:"strip_prefix,omitempty"`
	Patches     map[string]string `json:"patches,omitempty"`
	PatchStrip  int               `json:"patch_strip,omitempty"`
	Overlay     map[string]string `json:"overlay,omitempty"`

	// Git repository fields, set only when Type is "git_repository".
	Remote string `json:"remote,omitempty"`
	Commit string `json:"commit,omitempty"`
	Tag    string `json:"tag,omitempty"`

	issues []*FieldError
}

// IsArchive reports whether the source is an archive download, the
// default when type is omitted. Any other unknown type is neither.
func (s *Source) IsArchive() bool {
	return s.Type == "" || s.Type == "archive"
}

// IsGitRepository reports whether the source is a git checkout.
func (s *Source) IsGitRepository() bool {
	return s.Type == "git_repository"
}

// HasIntegrity reports whether an integrity value was declared. The
// prefix is not judged here.
func (s *Source) HasIntegrity() bool {
	return s.Integrity != ""
}

// YankReason returns why version was yanked, or "".
func (m *Metadata) YankReason(version string) string {
	return m.YankedVersions[version]
}

// IsDeprecated reports whether the module carries a deprecation notice.
func (m *Metadata) IsDeprecated() bool {
	return m.Deprecated != ""
}

// HasVersion reports whether version is declared.
func (m *Metadata) HasVersion(version string) bool {
	return slices.Contains(m.Versions, version)
}
