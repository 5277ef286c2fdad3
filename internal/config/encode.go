// SPDX-License-Identifier: MPL-2.0

package config

import (
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/pelletier/go-toml/v2"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Encode renders t in the given format. Keys are sorted in every format.
// TOML has no null: null values are omitted from TOML output, and a null
// element inside a list is an error.
func Encode(t *Tree, f Format) ([]byte, error) {
	switch f {
	case FormatTOML:
		root, err := sectionWithoutNulls(t.root, nil)
		if err != nil {
			return nil, err
		}
		return toml.Marshal(root)
	case FormatYAML:
		return yaml.Marshal(t.root)
	case FormatJSON:
		b, err := json.MarshalIndent(t.root, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case FormatCUE:
		return encodeCUE(t.root)
	case FormatHCL:
		return encodeHCL(t.root)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// sectionWithoutNulls returns a copy of section with null entries removed
// at every depth.
func sectionWithoutNulls(section map[string]any, prefix Path) (map[string]any, error) {
	out := make(map[string]any, len(section))
	for k, v := range section {
		if v == nil {
			continue
		}
		cv, err := valueWithoutNulls(v, prefix.Child(k))
		if err != nil {
			return nil, err
		}
		out[k] = cv
	}
	return out, nil
}

func valueWithoutNulls(v any, p Path) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		return sectionWithoutNulls(x, p)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			if e == nil {
				return nil, fmt.Errorf("%s[%d]: TOML cannot represent a null list element", p, i)
			}
			ce, err := valueWithoutNulls(e, p)
			if err != nil {
				return nil, err
			}
			out[i] = ce
		}
		return out, nil
	default:
		return v, nil
	}
}

func encodeCUE(root map[string]any) ([]byte, error) {
	v := cuecontext.New().Encode(root)
	if v.Err() != nil {
		return nil, v.Err()
	}
	b, err := format.Node(v.Syntax(cue.Concrete(true)))
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// encodeHCL writes sections as blocks and everything else as attributes,
// the inverse of decodeHCL for label-free documents.
func encodeHCL(root map[string]any) ([]byte, error) {
	f := hclwrite.NewEmptyFile()
	if err := writeHCLBody(f.Body(), root); err != nil {
		return nil, err
	}
	return f.Bytes(), nil
}

func writeHCLBody(body *hclwrite.Body, section map[string]any) error {
	var blocks []string
	for _, k := range sortedKeys(section) {
		v := section[k]
		if _, ok := v.(map[string]any); ok {
			blocks = append(blocks, k)
			continue
		}
		cv, err := goToCty(v)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		body.SetAttributeValue(k, cv)
	}
	for _, k := range blocks {
		body.AppendNewline()
		block := body.AppendNewBlock(k, nil)
		if err := writeHCLBody(block.Body(), section[k].(map[string]any)); err != nil {
			return fmt.Errorf("%s.%w", k, err)
		}
	}
	return nil
}

func goToCty(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(x), nil
	case bool:
		return cty.BoolVal(x), nil
	case int64:
		return cty.NumberIntVal(x), nil
	case float64:
		return cty.NumberFloatVal(x), nil
	case []any:
		elems := make([]cty.Value, len(x))
		for i, e := range x {
			cv, err := goToCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = cv
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		attrs := make(map[string]cty.Value, len(x))
		for k, e := range x {
			cv, err := goToCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k] = cv
		}
		return cty.ObjectVal(attrs), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported value type %T", v)
	}
}
