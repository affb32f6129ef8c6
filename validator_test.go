package bcraudit

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"

	"github.com/albertocavalcante/go-bcr-audit/fetch"
	"github.com/albertocavalcante/go-bcr-audit/integrity"
	"github.com/albertocavalcante/go-bcr-audit/registry"
)

func TestValidator_Verdicts(t *testing.T) {
	const body = "acme-archive-bytes"
	srv := artifactServer(t, map[string]string{"/acme.tar.gz": body})

	reg := newTestRegistry(t)
	reg.module("acme", "1.0.0")

	upperHex := strings.ToUpper(integrity.Digest([]byte(body)))
	altered := "sha256-" + strings.Repeat("0", integrity.HexLen)

	tests := []struct {
		name       string
		write      func()
		wantKind   VerdictKind
		wantReason string
		wantStatus int
	}{
		{
			name:       "healthy",
			write:      func() { reg.source("acme", "1.0.0", map[string]any{"url": srv.URL + "/acme.tar.gz", "integrity": sha(body)}) },
			wantKind:   Healthy,
			wantReason: "Healthy (Verified SHA256)",
		},
		{
			name:       "mismatch",
			write:      func() { reg.source("acme", "1.0.0", map[string]any{"url": srv.URL + "/acme.tar.gz", "integrity": altered}) },
			wantKind:   ChecksumMismatch,
			wantReason: "Checksum Mismatch!",
		},
		{
			name:       "uppercase hex is a mismatch",
			write:      func() { reg.source("acme", "1.0.0", map[string]any{"url": srv.URL + "/acme.tar.gz", "integrity": "sha256-" + upperHex}) },
			wantKind:   ChecksumMismatch,
			wantReason: "Checksum Mismatch!",
		},
		{
			name:       "no integrity",
			write:      func() { reg.source("acme", "1.0.0", map[string]any{"url": srv.URL + "/acme.tar.gz"}) },
			wantKind:   HealthyNoIntegrity,
			wantReason: "No integrity hash defined (insecure)",
		},
		{
			name:       "empty integrity",
			write:      func() { reg.source("acme", "1.0.0", map[string]any{"url": srv.URL + "/acme.tar.gz", "integrity": ""}) },
			wantKind:   HealthyNoIntegrity,
			wantReason: "No integrity hash defined (insecure)",
		},
		{
			name:       "unknown integrity format",
			write:      func() { reg.source("acme", "1.0.0", map[string]any{"url": srv.URL + "/acme.tar.gz", "integrity": "sha512-abc"}) },
			wantKind:   UnknownIntegrityFormat,
			wantReason: "Unknown integrity format (expected sha256-)",
		},
		{
			name:       "missing url",
			write:      func() { reg.source("acme", "1.0.0", map[string]any{"integrity": sha(body)}) },
			wantKind:   MissingURL,
			wantReason: "Missing 'url' field",
		},
		{
			name:       "empty url",
			write:      func() { reg.source("acme", "1.0.0", map[string]any{"url": ""}) },
			wantKind:   MissingURL,
			wantReason: "Missing 'url' field",
		},
		{
			name:       "null integrity",
			write:      func() { reg.source("acme", "1.0.0", map[string]any{"url": srv.URL + "/acme.tar.gz", "integrity": nil}) },
			wantKind:   HealthyNoIntegrity,
			wantReason: "No integrity hash defined (insecure)",
		},
		{
			name:       "null url",
			write:      func() { reg.source("acme", "1.0.0", map[string]any{"url": nil, "integrity": sha(body)}) },
			wantKind:   MissingURL,
			wantReason: "Missing 'url' field",
		},
		{
			name: "ill-typed lint-only fields",
			write: func() {
				reg.source("acme", "1.0.0", map[string]any{"url": srv.URL + "/acme.tar.gz", "integrity": sha(body), "patch_strip": "1", "patches": []string{"x"}})
			},
			wantKind:   Healthy,
			wantReason: "Healthy (Verified SHA256)",
		},
		{
			name:       "not found",
			write:      func() { reg.source("acme", "1.0.0", map[string]any{"url": srv.URL + "/missing.tar.gz", "integrity": sha(body)}) },
			wantKind:   FetchFailed,
			wantReason: "HTTP Error 404",
			wantStatus: 404,
		},
		{
			name:       "malformed descriptor",
			write:      func() { reg.write("acme/1.0.0/source.json", `{"url": `) },
			wantKind:   MalformedDescriptor,
			wantReason: "Invalid JSON format in source.json",
		},
		{
			name:       "wrongly shaped descriptor",
			write:      func() { reg.write("acme/1.0.0/source.json", `{"url": 5}`) },
			wantKind:   MalformedDescriptor,
			wantReason: "Invalid JSON format in source.json",
		},
	}

	v, err := NewValidator(reg.root, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.write()
			got := v.Validate(context.Background(), "acme", "1.0.0")
			if got.Kind != tt.wantKind {
				t.Fatalf("Kind = %q, want %q (reason %q)", got.Kind, tt.wantKind, got.Reason)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
			if got.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, tt.wantStatus)
			}
			if got.Module != "acme" || got.Version != "1.0.0" {
				t.Errorf("Subject() = %q", got.Subject())
			}
		})
	}
}

func TestValidator_MismatchDigests(t *testing.T) {
	const body = "payload"
	srv := artifactServer(t, map[string]string{"/a": body})
	reg := newTestRegistry(t)
	declared := strings.Repeat("ab", 32)
	reg.source("m", "1", map[string]any{"url": srv.URL + "/a", "integrity": "sha256-" + declared})

	v, err := NewValidator(reg.root)
	if err != nil {
		t.Fatal(err)
	}
	got := v.Validate(context.Background(), "m", "1")
	if got.Kind != ChecksumMismatch {
		t.Fatalf("Kind = %q, want %q", got.Kind, ChecksumMismatch)
	}
	if got.Expected != declared {
		t.Errorf("Expected = %q, want %q", got.Expected, declared)
	}
	if want := integrity.Digest([]byte(body)); got.Actual != want {
		t.Errorf("Actual = %q, want %q", got.Actual, want)
	}
	if got.URL != srv.URL+"/a" {
		t.Errorf("URL = %q", got.URL)
	}
}

func TestValidator_MissingDescriptor(t *testing.T) {
	reg := newTestRegistry(t)
	reg.module("acme", "1.0.0")

	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)
	// The fetcher must not be consulted without a descriptor.

	v, err := NewValidator(reg.root, WithFetcher(fetcher))
	if err != nil {
		t.Fatal(err)
	}

	for _, version := range []string{"1.0.0", "../escape", "a/b"} {
		got := v.Validate(context.Background(), "acme", version)
		if got.Kind != MissingDescriptor {
			t.Errorf("Validate(%q).Kind = %q, want %q", version, got.Kind, MissingDescriptor)
		}
		if got.Reason != "Missing source.json" {
			t.Errorf("Validate(%q).Reason = %q", version, got.Reason)
		}
		if !errors.Is(got.Err, registry.ErrFileNotFound) {
			t.Errorf("Validate(%q).Err = %v, want ErrFileNotFound", version, got.Err)
		}
	}
}

func TestValidator_FetcherErrors(t *testing.T) {
	reg := newTestRegistry(t)
	reg.source("acme", "1.0.0", map[string]any{"url": "https://example.invalid/a.tar.gz", "integrity": sha("x")})

	refused := &fetch.Error{
		URL:  "https://example.invalid/a.tar.gz",
		Kind: fetch.KindTransport,
		Err:  &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
	}

	tests := []struct {
		name       string
		err        error
		wantReason string
		wantStatus int
	}{
		{
			name:       "status",
			err:        &fetch.Error{Kind: fetch.KindStatus, StatusCode: 503},
			wantReason: "HTTP Error 503",
			wantStatus: 503,
		},
		{
			name:       "transport",
			err:        refused,
			wantReason: "Connection failed - " + refused.Error(),
		},
		{
			name:       "timeout",
			err:        &fetch.Error{Kind: fetch.KindTimeout, Err: context.DeadlineExceeded},
			wantReason: "Connection failed - ",
		},
		{
			name:       "foreign error",
			err:        errors.New("boom"),
			wantReason: "Connection failed - boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			fetcher := NewMockFetcher(ctrl)
			fetcher.EXPECT().
				Fetch(gomock.Any(), "https://example.invalid/a.tar.gz").
				Return(nil, tt.err).
				Times(1)

			v, err := NewValidator(reg.root, WithFetcher(fetcher))
			if err != nil {
				t.Fatal(err)
			}
			got := v.Validate(context.Background(), "acme", "1.0.0")
			if got.Kind != FetchFailed {
				t.Fatalf("Kind = %q, want %q", got.Kind, FetchFailed)
			}
			if !strings.HasPrefix(got.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want prefix %q", got.Reason, tt.wantReason)
			}
			if got.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, tt.wantStatus)
			}
			if got.Actual != "" {
				t.Errorf("Actual = %q, want empty after a failed fetch", got.Actual)
			}
			if !errors.Is(got.Err, tt.err) {
				t.Errorf("Err = %v, want %v", got.Err, tt.err)
			}
		})
	}
}

func TestValidator_FetchOnce(t *testing.T) {
	reg := newTestRegistry(t)
	reg.source("acme", "1.0.0", map[string]any{"url": "https://mirror.test/a", "integrity": sha("bytes")})

	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), "https://mirror.test/a").Return([]byte("bytes"), nil).Times(1)

	v, err := NewValidator(reg.root, WithFetcher(fetcher))
	if err != nil {
		t.Fatal(err)
	}
	if got := v.Validate(context.Background(), "acme", "1.0.0"); got.Kind != Healthy {
		t.Fatalf("Kind = %q, want %q", got.Kind, Healthy)
	}
}

func TestValidator_SoftNotesKeepKind(t *testing.T) {
	reg := newTestRegistry(t)
	reg.source("acme", "1.0.0", map[string]any{
		"url":         "https://mirror.test/a",
		"integrity":   sha("bytes"),
		"remote":      "https://github.com/acme/acme.git",
		"patch_strip": -1,
	})
	reg.write("acme/1.0.0/MODULE.bazel", `module(name = "acme_core", version = "1.0.1")`)

	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return([]byte("bytes"), nil).AnyTimes()

	plain, err := NewValidator(reg.root, WithFetcher(fetcher))
	if err != nil {
		t.Fatal(err)
	}
	if got := plain.Validate(context.Background(), "acme", "1.0.0"); len(got.Notes) != 0 {
		t.Errorf("Notes without optional checks = %v, want none", got.Notes)
	}

	strict, err := NewValidator(reg.root, WithFetcher(fetcher), WithStrictSchema(true), WithModuleFileCheck(true))
	if err != nil {
		t.Fatal(err)
	}
	got := strict.Validate(context.Background(), "acme", "1.0.0")
	if got.Kind != Healthy {
		t.Fatalf("Kind = %q, want %q", got.Kind, Healthy)
	}

	want := []string{
		"remote: should not be set for archive type",
		"patch_strip: must be non-negative",
		`MODULE.bazel declares name "acme_core", registry path says "acme"`,
		`MODULE.bazel declares version "1.0.1", registry path says "1.0.0"`,
	}
	if diff := cmp.Diff(want, got.Notes); diff != "" {
		t.Errorf("Notes mismatch (-want +got):\n%s", diff)
	}
}

func TestValidator_DroppedFieldsAreStrictNotes(t *testing.T) {
	reg := newTestRegistry(t)
	reg.module("acme", "1.0.0")
	reg.write("acme/1.0.0/source.json", `{"url": "https://example.com/a.tgz", "integrity": null, "patch_strip": "1"}`)

	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), "https://example.com/a.tgz").Return([]byte("bytes"), nil).Times(1)

	v, err := NewValidator(reg.root, WithFetcher(fetcher), WithStrictSchema(true))
	if err != nil {
		t.Fatal(err)
	}
	got := v.Validate(context.Background(), "acme", "1.0.0")
	if got.Kind != HealthyNoIntegrity {
		t.Fatalf("Kind = %q, want %q", got.Kind, HealthyNoIntegrity)
	}
	want := []string{"patch_strip: ignored: unexpected JSON string value"}
	if diff := cmp.Diff(want, got.Notes); diff != "" {
		t.Errorf("Notes mismatch (-want +got):\n%s", diff)
	}
}

func TestNewValidator_InvalidOptions(t *testing.T) {
	if _, err := NewValidator(t.TempDir(), WithTimeout(-time.Second)); err == nil {
		t.Error("NewValidator() with negative timeout should fail")
	}
}
