// Package bcraudit audits a Bazel-style registry mirror: it confirms that
// every declared source artifact is reachable and that its bytes match the
// declared SHA-256 integrity value.
//
// # Overview
//
// An audit walks registry/modules/{name}/metadata.json in name order,
// validates each declared version in metadata order, and folds the
// per-version verdicts into a Summary:
//
//	summary, err := bcraudit.Audit(ctx, "/srv/bcr-mirror",
//	    bcraudit.WithTimeout(5*time.Second),
//	    bcraudit.WithProgress(func(v bcraudit.Verdict) { fmt.Println(v) }),
//	)
//	if errors.Is(err, bcraudit.ErrModulesDirNotFound) {
//	    // critical: the registry has no modules directory
//	}
//	if !summary.OverallHealthy {
//	    // at least one hard failure
//	}
//
// # Verdict policy
//
// Each version is checked as a short-circuiting sequence: descriptor
// present, descriptor well-formed, url present, artifact fetched with
// status 200, then integrity. A reachable artifact without integrity, or
// with a non-sha256 integrity prefix, is a soft pass: reported, but not
// failing. A declared sha256 digest that does not match the fetched bytes
// is always a hard failure.
//
// Module metadata that is missing or malformed yields one module-level
// hard failure and contributes no versions; the audit continues with the
// next module.
//
// # Concurrency
//
// By default checks run one at a time. WithConcurrency enables a bounded
// worker pool; verdicts are still delivered in enumeration order.
package bcraudit
