package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"
	"github.com/spdx/tools-golang/spdx"
	"github.com/spdx/tools-golang/spdx/v2/common"
	spdx23 "github.com/spdx/tools-golang/spdx/v2/v2_3"

	bcraudit "github.com/albertocavalcante/go-bcr-audit"
)

// SBOMFormat represents supported SBOM output formats.
type SBOMFormat string

const (
	// SBOMCycloneDX is the CycloneDX JSON format.
	SBOMCycloneDX SBOMFormat = "cyclonedx"
	// SBOMSPDX is the SPDX 2.3 JSON format.
	SBOMSPDX SBOMFormat = "spdx"
)

// ParseSBOMFormat validates a format name.
func ParseSBOMFormat(s string) (SBOMFormat, error) {
	switch f := SBOMFormat(strings.ToLower(s)); f {
	case SBOMCycloneDX, SBOMSPDX:
		return f, nil
	default:
		return "", fmt.Errorf("unknown SBOM format %q (want cyclonedx or spdx)", s)
	}
}

// SBOMOptions controls document identity. Zero values get fresh defaults.
type SBOMOptions struct {
	Name        string
	ToolVersion string
	Created     time.Time
	Serial      uuid.UUID
}

func (o SBOMOptions) withDefaults() SBOMOptions {
	if o.Name == "" {
		o.Name = "bcr-registry"
	}
	if o.ToolVersion == "" {
		o.ToolVersion = "dev"
	}
	if o.Created.IsZero() {
		o.Created = time.Now()
	}
	if o.Serial == uuid.Nil {
		o.Serial = uuid.New()
	}
	return o
}

// Artifacts returns the verdicts whose bytes were fetched and matched, or
// had nothing to match against. Mismatched and unreachable artifacts are
// not part of the bill of materials.
func Artifacts(s *bcraudit.Summary) []bcraudit.Verdict {
	var out []bcraudit.Verdict
	for _, v := range s.Verdicts {
		if v.Actual != "" && !v.Kind.IsHardFailure() {
			out = append(out, v)
		}
	}
	return out
}

// SBOM renders the verified artifacts of s in the requested format.
func SBOM(s *bcraudit.Summary, format SBOMFormat, opts SBOMOptions) ([]byte, error) {
	opts = opts.withDefaults()
	switch format {
	case SBOMCycloneDX:
		return cycloneDX(s, opts)
	case SBOMSPDX:
		return spdxDocument(s, opts)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

func purl(v bcraudit.Verdict) string {
	return fmt.Sprintf("pkg:bazel/%s@%s", v.Module, v.Version)
}

func cycloneDX(s *bcraudit.Summary, opts SBOMOptions) ([]byte, error) {
	bom := cdx.NewBOM()
	bom.SerialNumber = "urn:uuid:" + opts.Serial.String()
	bom.Version = 1
	bom.Metadata = &cdx.Metadata{
		Timestamp: opts.Created.UTC().Format(time.RFC3339),
		Tools: &cdx.ToolsChoice{
			Tools: &[]cdx.Tool{
				{Vendor: "bcr-audit", Name: "bcr-audit", Version: opts.ToolVersion},
			},
		},
		Component: &cdx.Component{
			Type:    cdx.ComponentTypeApplication,
			Name:    opts.Name,
			Version: "local",
		},
	}

	artifacts := Artifacts(s)
	components := make([]cdx.Component, 0, len(artifacts))
	for _, v := range artifacts {
		components = append(components, cdx.Component{
			Type:       cdx.ComponentTypeLibrary,
			BOMRef:     v.Subject(),
			Name:       v.Module,
			Version:    v.Version,
			PackageURL: purl(v),
			Hashes: &[]cdx.Hash{
				{Algorithm: cdx.HashAlgoSHA256, Value: v.Actual},
			},
			ExternalReferences: &[]cdx.ExternalReference{
				{Type: cdx.ERTypeDistribution, URL: v.URL},
			},
			Properties: &[]cdx.Property{
				{Name: "bcr-audit:verdict", Value: string(v.Kind)},
			},
		})
	}
	bom.Components = &components

	var buf bytes.Buffer
	encoder := cdx.NewBOMEncoder(&buf, cdx.BOMFileFormatJSON)
	encoder.SetPretty(true)
	if err := encoder.Encode(bom); err != nil {
		return nil, fmt.Errorf("encode CycloneDX: %w", err)
	}
	return buf.Bytes(), nil
}

func spdxDocument(s *bcraudit.Summary, opts SBOMOptions) ([]byte, error) {
	doc := &spdx23.Document{
		SPDXVersion:       spdx.Version,
		DataLicense:       spdx.DataLicense,
		SPDXIdentifier:    common.ElementID("DOCUMENT"),
		DocumentName:      opts.Name + "-sbom",
		DocumentNamespace: fmt.Sprintf("https://bcr-audit.dev/spdx/%s/%s", opts.Name, opts.Serial),
		CreationInfo: &spdx23.CreationInfo{
			Created: opts.Created.UTC().Format(time.RFC3339),
			Creators: []common.Creator{
				{CreatorType: "Tool", Creator: "bcr-audit-" + opts.ToolVersion},
			},
		},
	}

	artifacts := Artifacts(s)
	packages := make([]*spdx23.Package, 0, len(artifacts))
	relationships := make([]*spdx23.Relationship, 0, len(artifacts))
	for _, v := range artifacts {
		id := "Package-" + sanitizeSPDXID(v.Subject())
		packages = append(packages, &spdx23.Package{
			PackageName:             v.Module,
			PackageSPDXIdentifier:   common.ElementID(id),
			PackageVersion:          v.Version,
			PackageDownloadLocation: v.URL,
			FilesAnalyzed:           false,
			PackageChecksums: []common.Checksum{
				{Algorithm: common.SHA256, Value: v.Actual},
			},
			PackageLicenseConcluded: "NOASSERTION",
			PackageLicenseDeclared:  "NOASSERTION",
			PackageCopyrightText:    "NOASSERTION",
			PackageExternalReferences: []*spdx23.PackageExternalReference{
				{Category: common.CategoryPackageManager, RefType: "purl", Locator: purl(v)},
			},
			PackageComment: "verdict=" + string(v.Kind),
		})
		relationships = append(relationships, &spdx23.Relationship{
			RefA:         common.MakeDocElementID("", "DOCUMENT"),
			RefB:         common.MakeDocElementID("", id),
			Relationship: "DESCRIBES",
		})
	}
	doc.Packages = packages
	doc.Relationships = relationships

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode SPDX: %w", err)
	}
	return append(out, '\n'), nil
}

// sanitizeSPDXID maps s onto the SPDX identifier alphabet [a-zA-Z0-9.-].
func sanitizeSPDXID(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '-'
		}
	}, s)
}
