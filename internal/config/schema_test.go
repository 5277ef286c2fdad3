// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/trainrun/trainrun/pkg/cueutil"
)

func TestValidateSchema(t *testing.T) {
	t.Parallel()

	schema := filepath.Join("testdata", "schema.cue")
	base, err := NewFileSource().Load(context.Background(), filepath.Join("testdata", "fewshot.toml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	merged, err := Merge(base, DefaultOverrides())
	if err != nil {
		t.Fatalf("Merge() returned error: %v", err)
	}
	if err := ValidateSchema(context.Background(), merged, schema, ""); err != nil {
		t.Errorf("ValidateSchema() returned error for the merged fewshot config: %v", err)
	}

	tests := []struct {
		name string
		ov   Overrides
	}{
		{name: "batch size not positive", ov: Overrides{"training.batch_size": 0}},
		{name: "batch size not an integer", ov: Overrides{"training.batch_size": "64"}},
		{name: "learning rate too large", ov: Overrides{"training.lr": 2.5}},
		{name: "embed key pattern", ov: Overrides{"data.kwargs.embed_key": "hvg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bad, err := Merge(base, tt.ov)
			if err != nil {
				t.Fatalf("Merge() returned error: %v", err)
			}
			err = ValidateSchema(context.Background(), bad, schema, DefaultSchemaDefinition)
			if !errors.Is(err, ErrSchemaValidation) {
				t.Fatalf("expected ErrSchemaValidation, got: %v", err)
			}
			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) || schemaErr.SchemaPath != schema {
				t.Errorf("expected *SchemaError for %s, got %#v", schema, err)
			}
			var cueErr *cueutil.Error
			if !errors.As(err, &cueErr) || len(cueErr.Issues) == 0 {
				t.Errorf("expected wrapped *cueutil.Error with issues, got %v", err)
			}
		})
	}
}

func TestValidateSchema_MissingFile(t *testing.T) {
	t.Parallel()

	err := ValidateSchema(context.Background(), mustTree(t, nil), filepath.Join(t.TempDir(), "none.cue"), "")
	if !errors.Is(err, ErrSchemaValidation) || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected SchemaError wrapping fs.ErrNotExist, got: %v", err)
	}
}
