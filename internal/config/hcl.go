// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// decodeHCL reads an HCL document without a schema. Attributes become keys,
// blocks become sections, and block labels add one nesting level each:
//
//	training { batch_size = 32 }
//	data "kwargs" { embed_key = "X_pca" }
//
// decodes to {training: {batch_size: 32}, data: {kwargs: {embed_key: "X_pca"}}}.
// Expressions are evaluated without variables or functions.
func decodeHCL(data []byte, filename string) (map[string]any, error) {
	file, diags := hclsyntax.ParseConfig(data, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected HCL body type %T", filename, file.Body)
	}
	out := map[string]any{}
	if err := decodeHCLBody(body, out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeHCLBody(body *hclsyntax.Body, out map[string]any, prefix Path) error {
	for name, attr := range body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return diags
		}
		v, err := ctyToGo(val)
		if err != nil {
			return fmt.Errorf("%s: %w", prefix.Child(name), err)
		}
		if _, dup := out[name]; dup {
			return fmt.Errorf("%s: attribute defined more than once", prefix.Child(name))
		}
		out[name] = v
	}

	for _, block := range body.Blocks {
		p := prefix.Child(block.Type)
		section, err := hclSection(out, block.Type, p)
		if err != nil {
			return err
		}
		for _, label := range block.Labels {
			p = p.Child(label)
			section, err = hclSection(section, label, p)
			if err != nil {
				return err
			}
		}
		if err := decodeHCLBody(block.Body, section, p); err != nil {
			return err
		}
	}
	return nil
}

// hclSection returns the section stored at parent[key], creating it when
// missing. Repeated blocks with the same type and labels share one section.
func hclSection(parent map[string]any, key string, p Path) (map[string]any, error) {
	existing, ok := parent[key]
	if !ok {
		section := map[string]any{}
		parent[key] = section
		return section, nil
	}
	section, ok := existing.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: block conflicts with attribute of the same name", p)
	}
	return section, nil
}

// ctyToGo converts an evaluated HCL value into plain Go values. Whole numbers
// that fit in int64 become int64, other numbers float64.
func ctyToGo(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}

	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty == cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			gv, err := ctyToGo(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k.AsString(), err)
			}
			out[k.AsString()] = gv
		}
		return out, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			gv, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out = append(out, gv)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported HCL value type %s", ty.FriendlyName())
	}
}
