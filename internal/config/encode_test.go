// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestEncode_RoundTrip(t *testing.T) {
	t.Parallel()

	src := NewFileSource()
	base, err := src.Load(context.Background(), filepath.Join("testdata", "fewshot.toml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	merged, err := src.Merge(base, DefaultOverrides())
	if err != nil {
		t.Fatalf("Merge() returned error: %v", err)
	}

	for _, f := range []Format{FormatTOML, FormatYAML, FormatJSON, FormatCUE, FormatHCL} {
		t.Run(string(f), func(t *testing.T) {
			t.Parallel()

			data, err := Encode(merged, f)
			if err != nil {
				t.Fatalf("Encode(%s) returned error: %v", f, err)
			}
			back, err := src.LoadBytes(data, f, "encoded."+string(f))
			if err != nil {
				t.Fatalf("LoadBytes(%s) returned error: %v\n%s", f, err, data)
			}
			if !reflect.DeepEqual(back.Map(), merged.Map()) {
				t.Errorf("%s round trip differs:\n got: %#v\nwant: %#v\n%s", f, back.Map(), merged.Map(), data)
			}
		})
	}
}

func TestEncode_TOMLSections(t *testing.T) {
	t.Parallel()

	tree := mustTree(t, map[string]any{"training": map[string]any{"batch_size": 64}})
	data, err := Encode(tree, FormatTOML)
	if err != nil {
		t.Fatalf("Encode() returned error: %v", err)
	}
	if !strings.Contains(string(data), "[training]") || !strings.Contains(string(data), "batch_size = 64") {
		t.Errorf("unexpected TOML output:\n%s", data)
	}
}

func TestEncode_UnknownFormat(t *testing.T) {
	t.Parallel()

	if _, err := Encode(mustTree(t, nil), Format("ini")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Encode(ini) error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestEncode_TOMLOmitsNulls(t *testing.T) {
	t.Parallel()

	tree := mustTree(t, map[string]any{
		"ckpt_path": nil,
		"training": map[string]any{
			"batch_size": 64,
			"resume":     nil,
			"sched":      map[string]any{"warmup": nil},
		},
		"data": map[string]any{"splits": []any{"train", "val"}},
	})
	data, err := Encode(tree, FormatTOML)
	if err != nil {
		t.Fatalf("Encode() returned error: %v", err)
	}

	back, err := NewFileSource().LoadBytes(data, FormatTOML, "nulls.toml")
	if err != nil {
		t.Fatalf("LoadBytes() returned error: %v\n%s", err, data)
	}
	want := map[string]any{
		"training": map[string]any{
			"batch_size": int64(64),
			"sched":      map[string]any{},
		},
		"data": map[string]any{"splits": []any{"train", "val"}},
	}
	if !reflect.DeepEqual(back.Map(), want) {
		t.Errorf("TOML without nulls = %#v, want %#v\n%s", back.Map(), want, data)
	}

	// The tree itself keeps its null values.
	if v, ok := tree.Get("ckpt_path"); !ok || v != nil {
		t.Errorf("Encode() modified its input: ckpt_path = %#v, %v", v, ok)
	}
}

func TestEncode_TOMLNullListElement(t *testing.T) {
	t.Parallel()

	tree := mustTree(t, map[string]any{"a": nil, "b": []any{1, nil}, "c": 2})
	_, err := Encode(tree, FormatTOML)
	if err == nil {
		t.Fatal("Encode() should reject a null list element")
	}
	if !strings.Contains(err.Error(), "b[1]") {
		t.Errorf("error %q should name b[1]", err)
	}
}
