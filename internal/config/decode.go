// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Decode copies the section at key (the whole tree when key is empty) into
// out, which must be a pointer to a struct or map. Struct fields are matched
// by their `mapstructure` tag, or by name case-insensitively. Numeric and
// string values are converted where the conversion is lossless in intent
// ("64" into an int field, 64 into a float field).
func (t *Tree) Decode(key string, out any) error {
	var in any = t.root
	if key != "" {
		p, err := ParsePath(key)
		if err != nil {
			return err
		}
		v, ok := t.Lookup(p)
		if !ok {
			return fmt.Errorf("config key %s not set", p)
		}
		in = v
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("decode config %s: %w", displayKey(key), err)
	}
	return nil
}

func displayKey(key string) string {
	if key == "" {
		return "<root>"
	}
	return key
}
