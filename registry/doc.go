// Package registry reads the on-disk layout of a Bazel-style module registry.
//
// The layout consumed is:
//
//	registry/
//	└── modules/
//	    └── {name}/
//	        ├── metadata.json     # {"versions": [...], ...}
//	        └── {version}/
//	            ├── MODULE.bazel  # optional, cross-checked on request
//	            └── source.json   # {"url": ..., "integrity"?: ...}
//
// Loading distinguishes "can this file be read" from "is this record usable":
// a missing file is ErrFileNotFound, a file that is not JSON of the expected
// shape is ErrMalformed, and anything else (including a source.json without
// a url) is returned to the caller to judge.
//
// # Usage
//
//	reg := registry.NewLocal("/srv/bcr-mirror")
//	names, err := reg.ListModules(ctx)
//	if errors.Is(err, registry.ErrModulesDirNotFound) {
//	    // critical: nothing to audit
//	}
//	meta, err := reg.LoadMetadata(ctx, names[0])
//	src, err := reg.LoadSource(ctx, names[0], meta.Versions[0])
//
// The BCR lint rules (Metadata.Validate, Source.Validate) are independent of
// loading and report findings as ValidationErrors.
package registry
