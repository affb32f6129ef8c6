// Package buildutil reads calls and attributes out of parsed Starlark files.
package buildutil

import "github.com/bazelbuild/buildtools/build"

// FuncName returns the name of a plain function call, or "" for method
// calls such as foo.bar().
func FuncName(call *build.CallExpr) string {
	if ident, ok := call.X.(*build.Ident); ok {
		return ident.Name
	}
	return ""
}

// FirstCall returns the first top-level call to name in f, or nil.
func FirstCall(f *build.File, name string) *build.CallExpr {
	for _, stmt := range f.Stmt {
		if call, ok := stmt.(*build.CallExpr); ok && FuncName(call) == name {
			return call
		}
	}
	return nil
}

// attr returns the value of keyword argument name, or nil.
func attr(call *build.CallExpr, name string) build.Expr {
	for _, arg := range call.List {
		assign, ok := arg.(*build.AssignExpr)
		if !ok {
			continue
		}
		if lhs, ok := assign.LHS.(*build.Ident); ok && lhs.Name == name {
			return assign.RHS
		}
	}
	return nil
}

// String returns a string keyword argument, or "" if it is absent or not
// a string literal.
func String(call *build.CallExpr, name string) string {
	if str, ok := attr(call, name).(*build.StringExpr); ok {
		return str.Value
	}
	return ""
}
