// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"

	"github.com/spf13/cast"
	"golang.org/x/exp/slices"
)

// Tree is an in-memory configuration: a nested map whose leaves are
// string, bool, int64, float64, []any or nil. Sections are map[string]any.
//
// A Tree is not safe for concurrent mutation. Trainers receive the merged
// *Tree and may read or modify it.
type Tree struct {
	root   map[string]any
	source string
}

// NewTree wraps m (after normalizing its values) in a Tree. A nil map yields
// an empty tree. The map is copied.
func NewTree(m map[string]any) (*Tree, error) {
	if m == nil {
		return &Tree{root: map[string]any{}}, nil
	}
	norm, err := normalizeValue(m)
	if err != nil {
		return nil, err
	}
	section, ok := norm.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("config root must be a mapping, got %T", norm)
	}
	return &Tree{root: section}, nil
}

// Source returns the file the tree was loaded from, or "" for trees built in memory.
func (t *Tree) Source() string {
	return t.source
}

// Map returns a deep copy of the underlying map.
func (t *Tree) Map() map[string]any {
	return cloneSection(t.root)
}

// Clone returns a deep copy of t.
func (t *Tree) Clone() *Tree {
	return &Tree{root: cloneSection(t.root), source: t.source}
}

// Len returns the number of top-level keys.
func (t *Tree) Len() int {
	return len(t.root)
}

// Keys returns the sorted top-level keys.
func (t *Tree) Keys() []string {
	return sortedKeys(t.root)
}

// Lookup returns the value at path and whether it exists. Sections are
// returned as deep copies so the caller cannot alter the tree through them.
func (t *Tree) Lookup(path Path) (any, bool) {
	var cur any = t.root
	for _, seg := range path {
		section, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = section[seg]
		if !ok {
			return nil, false
		}
	}
	return cloneValue(cur), true
}

// Get looks up a dotted key. Invalid keys are reported as missing.
func (t *Tree) Get(key string) (any, bool) {
	p, err := ParsePath(key)
	if err != nil {
		return nil, false
	}
	return t.Lookup(p)
}

// GetString returns the value at key converted to a string.
func (t *Tree) GetString(key string) (string, error) {
	v, err := t.require(key)
	if err != nil {
		return "", err
	}
	return cast.ToStringE(v)
}

func (t *Tree) require(key string) (any, error) {
	p, err := ParsePath(key)
	if err != nil {
		return nil, err
	}
	v, ok := t.Lookup(p)
	if !ok {
		return nil, fmt.Errorf("config key %s not set", p)
	}
	return v, nil
}

// Set writes value at a dotted key, creating missing sections. It applies the
// same structural rules as Merge: it fails with a ConfigMergeError when the
// key would descend into a scalar or replace a section with a scalar.
func (t *Tree) Set(key string, value any) error {
	p, err := ParsePath(key)
	if err != nil {
		return &ConfigMergeError{Path: key, Reason: "invalid key", Cause: err}
	}
	norm, err := normalizeValue(value)
	if err != nil {
		return &ConfigMergeError{Path: key, Reason: "unsupported value", Cause: err}
	}
	return setPath(t.root, p, norm)
}

// Delete removes the value at a dotted key. It reports whether a value was removed.
func (t *Tree) Delete(key string) bool {
	p, err := ParsePath(key)
	if err != nil {
		return false
	}
	section := t.root
	for _, seg := range p[:len(p)-1] {
		next, ok := section[seg].(map[string]any)
		if !ok {
			return false
		}
		section = next
	}
	last := p[len(p)-1]
	if _, ok := section[last]; !ok {
		return false
	}
	delete(section, last)
	return true
}

// Flatten returns every leaf keyed by its dotted path. Empty sections are
// reported as empty maps so they survive a round trip through Overrides.
func (t *Tree) Flatten() map[string]any {
	out := make(map[string]any)
	flattenInto(out, nil, t.root)
	return out
}

func flattenInto(out map[string]any, prefix Path, section map[string]any) {
	for k, v := range section {
		p := prefix.Child(k)
		if sub, ok := v.(map[string]any); ok && len(sub) > 0 {
			flattenInto(out, p, sub)
			continue
		}
		out[p.String()] = cloneValue(v)
	}
}

// setPath stores value at p below root, creating sections as needed.
// It follows the structural rules of Merge.
func setPath(root map[string]any, p Path, value any) error {
	section := root
	for i, seg := range p[:len(p)-1] {
		existing, ok := section[seg]
		if !ok || existing == nil {
			next := map[string]any{}
			section[seg] = next
			section = next
			continue
		}
		next, ok := existing.(map[string]any)
		if !ok {
			return mergeError(p[:i+1], "cannot set sub-key %q of %s value", p[i+1], kindOf(existing))
		}
		section = next
	}

	last := p[len(p)-1]
	existing, ok := section[last]
	if !ok {
		section[last] = value
		return nil
	}
	return mergeValue(section, last, existing, value, p)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func cloneSection(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneSection(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// kindOf names the structural kind of a normalized value for error messages.
func kindOf(v any) string {
	switch v.(type) {
	case map[string]any:
		return "section"
	case []any:
		return "list"
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int64:
		return "integer"
	case float64:
		return "float"
	default:
		return fmt.Sprintf("%T", v)
	}
}
