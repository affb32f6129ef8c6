package buildutil

import (
	"testing"

	"github.com/bazelbuild/buildtools/build"
)

func parse(t *testing.T, content string) *build.File {
	t.Helper()
	f, err := build.ParseModule("MODULE.bazel", []byte(content))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return f
}

func TestFirstCall(t *testing.T) {
	f := parse(t, `
bazel_dep(name = "platforms", version = "0.0.10")
module(name = "first")
module(name = "second")
`)
	call := FirstCall(f, "module")
	if call == nil {
		t.Fatal("FirstCall() = nil")
	}
	if got := String(call, "name"); got != "first" {
		t.Errorf("name = %q, want %q", got, "first")
	}
	if FirstCall(f, "use_extension") != nil {
		t.Error("FirstCall() for an absent function should be nil")
	}
}

func TestFuncName(t *testing.T) {
	f := parse(t, "module()\nfoo.bar()\n")
	if got := FuncName(f.Stmt[0].(*build.CallExpr)); got != "module" {
		t.Errorf("FuncName() = %q", got)
	}
	if got := FuncName(f.Stmt[1].(*build.CallExpr)); got != "" {
		t.Errorf("FuncName() for a method call = %q, want empty", got)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"string attribute", `module(version = "1.2.3")`, "1.2.3"},
		{"missing attribute", `module(name = "x")`, ""},
		{"non-string attribute", `module(version = 123)`, ""},
		{"positional ignored", `module("1.2.3")`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := FirstCall(parse(t, tt.input), "module")
			if got := String(call, "version"); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
