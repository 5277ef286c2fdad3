// SPDX-License-Identifier: MPL-2.0

// Package config holds the hierarchical training configuration handed to a
// trainer.
//
// A configuration is loaded from a TOML, YAML, JSON, CUE or HCL file into a
// Tree, a nested map addressed with dotted paths such as "training.batch_size".
// Overrides are flat dotted-key mappings merged on top of a base tree:
//
//	base, err := config.NewFileSource().Load(ctx, "examples/fewshot.toml")
//	if err != nil {
//	    return err // *ConfigLoadError
//	}
//	merged, err := config.Merge(base, config.DefaultOverrides())
//	if err != nil {
//	    return err // *ConfigMergeError
//	}
//
// Merging is right-biased and never mutates its inputs. Keys missing from the
// base are created; an override that would descend into a scalar, or replace a
// section with a scalar, is rejected with a ConfigMergeError.
//
// After merging, string values may be resolved with Resolve (${path} and
// ${env:NAME} references) and the tree may be validated against a CUE schema
// with ValidateSchema.
package config
