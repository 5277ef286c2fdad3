// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Decode compiles a CUE document and decodes it into a map. The document
// must evaluate to a struct; with the default options every field must be
// concrete.
func Decode(data []byte, opts ...Option) (map[string]any, error) {
	o := applyOptions(opts)

	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(o.filename))
	if v.Err() != nil {
		return nil, FormatError(v.Err(), o.filename)
	}
	if err := v.Validate(cue.Concrete(o.concrete)); err != nil {
		return nil, FormatError(err, o.filename)
	}
	if k := v.IncompleteKind(); k != cue.StructKind {
		return nil, fmt.Errorf("%s: top level must be a struct, got %s", o.filename, k)
	}

	var out map[string]any
	if err := v.Decode(&out); err != nil {
		return nil, FormatError(err, o.filename)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// Validate unifies value with the definition at schemaPath (e.g. "#Config")
// of schema and reports every violation. value is any Go value CUE can
// encode, typically a map[string]any.
//
// The schema is compiled on each call.
func Validate(schema []byte, schemaPath string, value any, opts ...Option) error {
	o := applyOptions(opts)

	if err := CheckFileSize(schema, o.maxFileSize, o.filename); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema, cue.Filename(o.filename))
	if schemaValue.Err() != nil {
		return FormatError(schemaValue.Err(), o.filename)
	}

	root := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if !root.Exists() {
		return fmt.Errorf("%s: schema definition %s not found", o.filename, schemaPath)
	}
	if root.Err() != nil {
		return FormatError(root.Err(), o.filename)
	}

	data := ctx.Encode(value)
	if data.Err() != nil {
		return fmt.Errorf("encode value for %s: %w", o.filename, data.Err())
	}

	unified := root.Unify(data)
	if err := unified.Validate(cue.Concrete(o.concrete)); err != nil {
		return FormatError(err, o.filename)
	}
	return nil
}
