package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gowebpki/jcs"

	bcraudit "github.com/albertocavalcante/go-bcr-audit"
	"github.com/albertocavalcante/go-bcr-audit/integrity"
)

// SchemaVersion identifies the JSON report layout.
const SchemaVersion = "bcr-audit.report/v1"

// Document is the machine-readable report.
type Document struct {
	SchemaVersion string `json:"schema_version"`
	Root          string `json:"root"`
	State         string `json:"state"`
	GeneratedAt   string `json:"generated_at,omitempty"`

	Modules      int  `json:"modules"`
	Checked      int  `json:"checked"`
	Healthy      int  `json:"healthy"`
	SoftPasses   int  `json:"soft_passes"`
	HardFailures int  `json:"hard_failures"`
	Overall      bool `json:"overall_healthy"`

	Verdicts []bcraudit.Verdict `json:"verdicts"`
	Warnings []string           `json:"warnings,omitempty"`

	// VerdictsDigest is the SHA-256 of the canonical verdict list. Two
	// runs that reach the same verdicts share it.
	VerdictsDigest string `json:"verdicts_digest"`
}

// NewDocument builds the report document for s. A zero generatedAt is
// omitted from the output.
func NewDocument(s *bcraudit.Summary, generatedAt time.Time) (*Document, error) {
	digest, err := VerdictsDigest(s.Verdicts)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		SchemaVersion:  SchemaVersion,
		Root:           s.Root,
		State:          string(s.State()),
		Modules:        s.Modules,
		Checked:        s.Checked,
		Healthy:        s.Healthy,
		SoftPasses:     s.SoftPasses,
		HardFailures:   s.HardFailures,
		Overall:        s.OverallHealthy,
		Verdicts:       s.Verdicts,
		Warnings:       s.Warnings,
		VerdictsDigest: digest,
	}
	if doc.Verdicts == nil {
		doc.Verdicts = []bcraudit.Verdict{}
	}
	if !generatedAt.IsZero() {
		doc.GeneratedAt = generatedAt.UTC().Format(time.RFC3339)
	}
	return doc, nil
}

// JSON renders s as RFC 8785 canonical JSON.
func JSON(s *bcraudit.Summary, generatedAt time.Time) ([]byte, error) {
	doc, err := NewDocument(s, generatedAt)
	if err != nil {
		return nil, err
	}
	return canonical(doc)
}

// VerdictsDigest returns the lowercase hex SHA-256 of the canonical JSON
// encoding of verdicts.
func VerdictsDigest(verdicts []bcraudit.Verdict) (string, error) {
	if verdicts == nil {
		verdicts = []bcraudit.Verdict{}
	}
	data, err := canonical(verdicts)
	if err != nil {
		return "", err
	}
	return integrity.Digest(data), nil
}

func canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize report: %w", err)
	}
	return out, nil
}
