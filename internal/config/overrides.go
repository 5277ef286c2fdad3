// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Overrides is a flat mapping from dotted keys to replacement values.
type Overrides map[string]any

// DefaultOverrides returns the built-in overrides applied to every run unless
// disabled.
func DefaultOverrides() Overrides {
	return Overrides{
		"training.batch_size":   int64(64),
		"training.lr":           1e-4,
		"data.kwargs.embed_key": "X_hvg",
	}
}

// Keys returns the override keys in sorted order.
func (o Overrides) Keys() []string {
	keys := maps.Keys(o)
	slices.Sort(keys)
	return keys
}

// Expand turns the flat overrides into a nested Tree. Two overrides that
// disagree about the structure of a key ("a" = 1 and "a.b" = 2) produce a
// *ConfigMergeError.
func (o Overrides) Expand() (*Tree, error) {
	root := map[string]any{}
	for _, key := range o.Keys() {
		p, err := ParsePath(key)
		if err != nil {
			return nil, &ConfigMergeError{Path: key, Reason: "invalid override key", Cause: err}
		}
		v, err := normalizeValue(o[key])
		if err != nil {
			return nil, &ConfigMergeError{Path: key, Reason: "unsupported override value", Cause: err}
		}
		if err := setPath(root, p, v); err != nil {
			return nil, err
		}
	}
	return &Tree{root: root}, nil
}

// OverridesFromTree flattens t into dotted-key overrides.
func OverridesFromTree(t *Tree) Overrides {
	return Overrides(t.Flatten())
}

// ParseAssignment parses a "key=value" override. The value is read as a YAML
// flow scalar, so "64" is an integer, "1e-4" a float, "true" a bool, "[1, 2]"
// a list and "X_hvg" a string. An empty value is the empty string; use "null"
// or "~" for an explicit null.
func ParseAssignment(s string) (string, any, error) {
	key, raw, ok := strings.Cut(s, "=")
	if !ok {
		return "", nil, fmt.Errorf("override %q: expected key=value", s)
	}
	key = strings.TrimSpace(key)
	if _, err := ParsePath(key); err != nil {
		return "", nil, fmt.Errorf("override %q: %w", s, err)
	}
	if strings.TrimSpace(raw) == "" {
		return key, raw, nil
	}

	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return "", nil, fmt.Errorf("override %q: parse value: %w", s, err)
	}
	norm, err := normalizeValue(v)
	if err != nil {
		return "", nil, fmt.Errorf("override %q: %w", s, err)
	}
	return key, norm, nil
}

// ParseAssignments parses a list of "key=value" overrides. When a key repeats,
// the last assignment wins.
func ParseAssignments(assignments []string) (Overrides, error) {
	out := make(Overrides, len(assignments))
	for _, a := range assignments {
		k, v, err := ParseAssignment(a)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
