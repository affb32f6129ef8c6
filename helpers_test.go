package bcraudit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/albertocavalcante/go-bcr-audit/integrity"
)

// testRegistry builds a registry tree under a temporary directory.
type testRegistry struct {
	t    *testing.T
	root string
}

func newTestRegistry(t *testing.T) *testRegistry {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "modules"), 0755); err != nil {
		t.Fatal(err)
	}
	return &testRegistry{t: t, root: root}
}

// write creates parent directories and writes content relative to the
// modules directory.
func (r *testRegistry) write(rel, content string) {
	r.t.Helper()
	path := filepath.Join(r.root, "modules", filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		r.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		r.t.Fatal(err)
	}
}

// module writes metadata.json declaring versions.
func (r *testRegistry) module(name string, versions ...string) {
	r.t.Helper()
	if versions == nil {
		versions = []string{}
	}
	r.write(name+"/metadata.json", mustJSON(r.t, map[string]any{"versions": versions}))
}

// source writes a version's source.json from fields.
func (r *testRegistry) source(name, version string, fields map[string]any) {
	r.t.Helper()
	r.write(name+"/"+version+"/source.json", mustJSON(r.t, fields))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// artifactServer serves fixed bodies by path; unknown paths return 404.
func artifactServer(t *testing.T, bodies map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// sha returns the integrity string of body.
func sha(body string) string {
	return integrity.Of([]byte(body))
}
