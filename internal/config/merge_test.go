// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"reflect"
	"testing"
)

func mustTree(t *testing.T, m map[string]any) *Tree {
	t.Helper()
	tree, err := NewTree(m)
	if err != nil {
		t.Fatalf("NewTree() returned error: %v", err)
	}
	return tree
}

func fewshotBase(t *testing.T) *Tree {
	t.Helper()
	return mustTree(t, map[string]any{
		"training": map[string]any{
			"batch_size": 16,
			"lr":         3e-4,
			"max_steps":  40000,
		},
		"data": map[string]any{
			"name": "replogle",
			"kwargs": map[string]any{
				"embed_key":   "X_pca",
				"num_workers": 8,
			},
		},
		"model": map[string]any{"name": "state_sm"},
	})
}

func TestMerge_DefaultOverrides(t *testing.T) {
	t.Parallel()

	base := fewshotBase(t)
	merged, err := Merge(base, DefaultOverrides())
	if err != nil {
		t.Fatalf("Merge() returned error: %v", err)
	}

	for key, want := range DefaultOverrides() {
		got, ok := merged.Get(key)
		if !ok {
			t.Errorf("%s missing after merge", key)
			continue
		}
		if got != want {
			t.Errorf("%s = %#v, want %#v", key, got, want)
		}
	}

	untouched := map[string]any{
		"training.max_steps":      int64(40000),
		"data.name":               "replogle",
		"data.kwargs.num_workers": int64(8),
		"model.name":              "state_sm",
	}
	for key, want := range untouched {
		got, ok := merged.Get(key)
		if !ok || got != want {
			t.Errorf("%s = %#v (present=%v), want %#v", key, got, ok, want)
		}
	}
}

func TestMerge_BatchSizeIsInteger(t *testing.T) {
	t.Parallel()

	for _, baseValue := range []any{16, 128.5, "auto", nil, []any{1, 2}} {
		base := mustTree(t, map[string]any{"training": map[string]any{"batch_size": baseValue}})
		merged, err := Merge(base, Overrides{"training.batch_size": 64})
		if err != nil {
			t.Fatalf("Merge() over %#v returned error: %v", baseValue, err)
		}
		got, _ := merged.Get("training.batch_size")
		if got != int64(64) {
			t.Errorf("training.batch_size over %#v = %#v (%T), want int64(64)", baseValue, got, got)
		}
	}
}

func TestMerge_Idempotent(t *testing.T) {
	t.Parallel()

	base := fewshotBase(t)
	ov := Overrides{
		"training.batch_size":   64,
		"training.lr":           1e-4,
		"data.kwargs.embed_key": "X_hvg",
		"data.kwargs.extra":     []any{"a", "b"},
		"new.section.value":     true,
	}

	once, err := Merge(base, ov)
	if err != nil {
		t.Fatalf("first Merge() returned error: %v", err)
	}
	twice, err := Merge(once, ov)
	if err != nil {
		t.Fatalf("second Merge() returned error: %v", err)
	}
	if !reflect.DeepEqual(once.Map(), twice.Map()) {
		t.Errorf("merging twice differs from merging once:\nonce:  %#v\ntwice: %#v", once.Map(), twice.Map())
	}
}

func TestMerge_CreatesMissingSection(t *testing.T) {
	t.Parallel()

	base := mustTree(t, map[string]any{"model": map[string]any{"name": "state_sm"}})
	merged, err := Merge(base, Overrides{"training.lr": 1e-4})
	if err != nil {
		t.Fatalf("Merge() returned error: %v", err)
	}
	if lr, _ := merged.Get("training.lr"); lr != 1e-4 {
		t.Errorf("training.lr = %#v, want 1e-4", lr)
	}
	if name, _ := merged.GetString("model.name"); name != "state_sm" {
		t.Errorf("model.name = %q, want state_sm", name)
	}
}

func TestMerge_SectionReplacesNull(t *testing.T) {
	t.Parallel()

	base := mustTree(t, map[string]any{"training": nil, "ckpt": map[string]any{"path": nil}})
	merged, err := Merge(base, Overrides{"training.lr": 1e-4, "ckpt.path.dir": "runs"})
	if err != nil {
		t.Fatalf("Merge() returned error: %v", err)
	}
	want := map[string]any{
		"training": map[string]any{"lr": 1e-4},
		"ckpt":     map[string]any{"path": map[string]any{"dir": "runs"}},
	}
	if !reflect.DeepEqual(merged.Map(), want) {
		t.Errorf("Merge() = %#v, want %#v", merged.Map(), want)
	}
}

func TestMerge_EmptyBase(t *testing.T) {
	t.Parallel()

	merged, err := Merge(mustTree(t, nil), DefaultOverrides())
	if err != nil {
		t.Fatalf("Merge() returned error: %v", err)
	}
	if merged.Len() != 2 {
		t.Errorf("expected sections data and training, got keys %v", merged.Keys())
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	base := fewshotBase(t)
	before := base.Map()
	list := []any{"a"}
	ov := Overrides{"training.batch_size": 64, "data.kwargs.list": list}

	merged, err := Merge(base, ov)
	if err != nil {
		t.Fatalf("Merge() returned error: %v", err)
	}
	if !reflect.DeepEqual(base.Map(), before) {
		t.Error("Merge() modified the base tree")
	}

	if err := merged.Set("data.kwargs.list", []any{"changed"}); err != nil {
		t.Fatalf("Set() returned error: %v", err)
	}
	if list[0] != "a" {
		t.Error("merged tree aliases the override list")
	}
}

func TestMerge_StructuralConflicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		base     map[string]any
		ov       Overrides
		wantPath string
	}{
		{
			name:     "sub-key of scalar",
			base:     map[string]any{"training": map[string]any{"lr": 0.1}},
			ov:       Overrides{"training.lr.warmup": 10},
			wantPath: "training.lr",
		},
		{
			name:     "sub-key of top-level scalar",
			base:     map[string]any{"training": 5},
			ov:       Overrides{"training.batch_size": 64},
			wantPath: "training",
		},
		{
			name:     "sub-key of list",
			base:     map[string]any{"layers": []any{1, 2}},
			ov:       Overrides{"layers.first": 1},
			wantPath: "layers",
		},
		{
			name:     "scalar replaces section",
			base:     map[string]any{"data": map[string]any{"kwargs": map[string]any{"a": 1}}},
			ov:       Overrides{"data.kwargs": "flat"},
			wantPath: "data.kwargs",
		},
		{
			name:     "null replaces section",
			base:     map[string]any{"data": map[string]any{"kwargs": map[string]any{"a": 1}}},
			ov:       Overrides{"data.kwargs": nil},
			wantPath: "data.kwargs",
		},
		{
			name:     "overrides disagree with each other",
			base:     map[string]any{},
			ov:       Overrides{"a": 1, "a.b": 2},
			wantPath: "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Merge(mustTree(t, tt.base), tt.ov)
			if err == nil {
				t.Fatal("Merge() should fail")
			}
			if !errors.Is(err, ErrConfigMerge) {
				t.Errorf("error should wrap ErrConfigMerge, got: %v", err)
			}
			var mergeErr *ConfigMergeError
			if !errors.As(err, &mergeErr) {
				t.Fatalf("error should be *ConfigMergeError, got %T", err)
			}
			if mergeErr.Path != tt.wantPath {
				t.Errorf("ConfigMergeError.Path = %q, want %q", mergeErr.Path, tt.wantPath)
			}
		})
	}
}

func TestMerge_InvalidOverrideKey(t *testing.T) {
	t.Parallel()

	_, err := Merge(mustTree(t, nil), Overrides{"training..lr": 1})
	if !errors.Is(err, ErrConfigMerge) || !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ConfigMergeError wrapping ErrInvalidPath, got: %v", err)
	}
}

func TestMerge_SectionsMergeAndListsReplace(t *testing.T) {
	t.Parallel()

	base := mustTree(t, map[string]any{
		"data": map[string]any{"kwargs": map[string]any{"a": 1, "b": 2}, "splits": []any{"train", "val", "test"}},
	})
	top := mustTree(t, map[string]any{
		"data": map[string]any{"kwargs": map[string]any{"b": 3, "c": 4}, "splits": []any{"train"}},
	})

	merged, err := MergeTrees(base, top)
	if err != nil {
		t.Fatalf("MergeTrees() returned error: %v", err)
	}
	want := map[string]any{
		"data": map[string]any{
			"kwargs": map[string]any{"a": int64(1), "b": int64(3), "c": int64(4)},
			"splits": []any{"train"},
		},
	}
	if !reflect.DeepEqual(merged.Map(), want) {
		t.Errorf("MergeTrees() = %#v, want %#v", merged.Map(), want)
	}
}
