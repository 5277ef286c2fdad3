// SPDX-License-Identifier: MPL-2.0

// Package cueutil wraps the CUE calls shared by configuration loading and
// schema validation.
//
// Decode turns a CUE document into plain Go values:
//
//	m, err := cueutil.Decode(data, cueutil.WithFilename("fewshot.cue"))
//
// Validate checks an already-decoded value against a definition of a schema:
//
//	err := cueutil.Validate(schemaBytes, "#Config", m, cueutil.WithFilename("schema.cue"))
//
// Errors from both carry the offending field path in dotted form
// (data.kwargs.embed_key, layers[2].size).
package cueutil
