// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const envRefPrefix = "env:"

type (
	// ResolveOption configures Resolve.
	ResolveOption func(*resolver)

	resolver struct {
		src      *Tree
		lookup   func(string) (string, bool)
		done     map[string]any
		visiting map[string]bool
	}
)

// WithEnvLookup replaces os.LookupEnv for ${env:NAME} references.
func WithEnvLookup(fn func(string) (string, bool)) ResolveOption {
	return func(r *resolver) {
		r.lookup = fn
	}
}

// Resolve returns a copy of t with ${...} references in string values
// replaced:
//
//	${training.lr}          value of another key
//	${env:DATA_DIR}         environment variable, required
//	${env:DATA_DIR,/data}   environment variable with default
//	$${literal}             the text ${literal}
//
// A string made of a single reference takes the referenced value with its
// type, so lr = "${training.lr}" stays a float. References embedded in longer
// strings are formatted as text and must point at scalars. Missing keys,
// unset variables without default, and reference cycles fail with a
// *ConfigMergeError naming the key that holds the reference.
func Resolve(t *Tree, opts ...ResolveOption) (*Tree, error) {
	r := &resolver{
		src:      t,
		lookup:   os.LookupEnv,
		done:     map[string]any{},
		visiting: map[string]bool{},
	}
	for _, opt := range opts {
		opt(r)
	}

	root := make(map[string]any, len(t.root))
	for _, k := range sortedKeys(t.root) {
		v, err := r.resolveKey(Path{k}, nil)
		if err != nil {
			return nil, err
		}
		root[k] = v
	}
	return &Tree{root: root, source: t.source}, nil
}

// resolveKey resolves the value stored at p. from is the key whose value
// referenced p, nil for the top-level walk.
func (r *resolver) resolveKey(p, from Path) (any, error) {
	id := p.String()
	if v, ok := r.done[id]; ok {
		return cloneValue(v), nil
	}
	if r.visiting[id] {
		return nil, mergeError(from, "reference cycle through %s", id)
	}
	raw, ok := r.src.Lookup(p)
	if !ok {
		return nil, mergeError(from, "reference to unknown key %s", id)
	}

	r.visiting[id] = true
	v, err := r.resolveValue(p, raw)
	delete(r.visiting, id)
	if err != nil {
		return nil, err
	}
	r.done[id] = v
	return cloneValue(v), nil
}

func (r *resolver) resolveValue(p Path, v any) (any, error) {
	switch x := v.(type) {
	case string:
		return r.resolveString(p, x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for _, k := range sortedKeys(x) {
			rv, err := r.resolveKey(p.Child(k), p)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			rv, err := r.resolveValue(p, e)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}

func (r *resolver) resolveString(p Path, s string) (any, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}

	var sb strings.Builder
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "$${"):
			sb.WriteString("${")
			i += 3
		case strings.HasPrefix(s[i:], "${"):
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				return nil, mergeError(p, "unterminated reference in %q", s)
			}
			expr := strings.TrimSpace(s[i+2 : i+2+end])
			v, err := r.evalRef(p, expr)
			if err != nil {
				return nil, err
			}
			// A string that is exactly one reference keeps the value's type.
			if i == 0 && i+3+end == len(s) {
				return v, nil
			}
			text, err := refText(v)
			if err != nil {
				return nil, mergeError(p, "reference ${%s}: %v", expr, err)
			}
			sb.WriteString(text)
			i += 3 + end
		default:
			sb.WriteByte(s[i])
			i++
		}
	}
	return sb.String(), nil
}

func (r *resolver) evalRef(p Path, expr string) (any, error) {
	if rest, ok := strings.CutPrefix(expr, envRefPrefix); ok {
		name, def, hasDef := strings.Cut(rest, ",")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, mergeError(p, "empty environment variable name")
		}
		if v, ok := r.lookup(name); ok {
			return v, nil
		}
		if hasDef {
			return strings.TrimSpace(def), nil
		}
		return nil, mergeError(p, "environment variable %s is not set", name)
	}

	ref, err := ParsePath(expr)
	if err != nil {
		return nil, &ConfigMergeError{Path: p.String(), Reason: "invalid reference", Cause: err}
	}
	return r.resolveKey(ref, p)
}

func refText(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case nil:
		return "null", nil
	default:
		return "", fmt.Errorf("cannot embed %s value in a string", kindOf(v))
	}
}
