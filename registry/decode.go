package registry

import (
	"encoding/json"
	"errors"
	"fmt"
)

// document is a decoded JSON object keyed by field name.
type document map[string]json.RawMessage

func parseDocument(data []byte) (document, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// required decodes a field the audit depends on. A type error fails the
// whole document. Absent and null fields leave dst untouched.
func required[T any](doc document, name string, dst *T) error {
	raw, ok := doc[name]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// optional decodes a field only strict lint looks at. A value of the wrong
// type is dropped and recorded in issues instead of failing the document.
func optional[T any](doc document, name string, dst *T, issues *[]*FieldError) {
	raw, ok := doc[name]
	if !ok {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		*issues = append(*issues, &FieldError{Field: name, Message: typeIssue(err)})
		return
	}
	*dst = v
}

func typeIssue(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("ignored: unexpected JSON %s value", typeErr.Value)
	}
	return "ignored: " + err.Error()
}

// UnmarshalJSON decodes url and integrity strictly and every other field
// leniently. JSON null counts as absent.
func (s *Source) UnmarshalJSON(data []byte) error {
	doc, err := parseDocument(data)
	if err != nil {
		return err
	}
	var out Source
	if err := required(doc, "url", &out.URL); err != nil {
		return err
	}
	if err := required(doc, "integrity", &out.Integrity); err != nil {
		return err
	}
	optional(doc, "type", &out.Type, &out.issues)
	optional(doc, "strip_prefix", &out.StripPrefix, &out.issues)
	optional(doc, "patches", &out.Patches, &out.issues)
	optional(doc, "patch_strip", &out.PatchStrip, &out.issues)
	optional(doc, "overlay", &out.Overlay, &out.issues)
	optional(doc, "remote", &out.Remote, &out.issues)
	optional(doc, "commit", &out.Commit, &out.issues)
	optional(doc, "tag", &out.Tag, &out.issues)
	*s = out
	return nil
}

// UnmarshalJSON decodes versions strictly and every other field leniently.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	doc, err := parseDocument(data)
	if err != nil {
		return err
	}
	var out Metadata
	if err := required(doc, "versions", &out.Versions); err != nil {
		return err
	}
	optional(doc, "homepage", &out.Homepage, &out.issues)
	optional(doc, "maintainers", &out.Maintainers, &out.issues)
	optional(doc, "repository", &out.Repository, &out.issues)
	optional(doc, "yanked_versions", &out.YankedVersions, &out.issues)
	optional(doc, "deprecated", &out.Deprecated, &out.issues)
	*m = out
	return nil
}
