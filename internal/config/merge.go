// SPDX-License-Identifier: MPL-2.0

package config

// Merge returns a new tree holding base with overrides applied on top.
// Neither input is modified.
//
// Rules, applied key by key:
//   - section onto section merges recursively
//   - any non-section value replaces a non-section value (lists are replaced wholesale)
//   - keys missing from base are created, including whole sections
//   - a non-section value (null included) cannot replace a section
//   - a section replaces a null value, as if the key were missing
//   - a section cannot be merged into a scalar or list
//
// Violations return a *ConfigMergeError naming the conflicting key.
func Merge(base *Tree, overrides Overrides) (*Tree, error) {
	top, err := overrides.Expand()
	if err != nil {
		return nil, err
	}
	return MergeTrees(base, top)
}

// MergeTrees merges top onto base with the same rules as Merge.
func MergeTrees(base, top *Tree) (*Tree, error) {
	out := base.Clone()
	if err := mergeSection(out.root, top.root, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// mergeSection merges src into dst in place. src values are cloned before
// they are stored so dst never aliases src.
func mergeSection(dst, src map[string]any, prefix Path) error {
	for _, k := range sortedKeys(src) {
		incoming := src[k]
		existing, ok := dst[k]
		if !ok {
			dst[k] = cloneValue(incoming)
			continue
		}
		if err := mergeValue(dst, k, existing, incoming, prefix.Child(k)); err != nil {
			return err
		}
	}
	return nil
}

// mergeValue resolves a collision at dst[key] between existing and incoming.
func mergeValue(dst map[string]any, key string, existing, incoming any, p Path) error {
	exSection, exIsSection := existing.(map[string]any)
	inSection, inIsSection := incoming.(map[string]any)

	switch {
	case exIsSection && inIsSection:
		return mergeSection(exSection, inSection, p)
	case exIsSection:
		return mergeError(p, "cannot replace section with %s value", kindOf(incoming))
	case inIsSection && existing == nil:
		dst[key] = cloneValue(incoming)
		return nil
	case inIsSection:
		if len(inSection) == 0 {
			return mergeError(p, "cannot replace %s value with a section", kindOf(existing))
		}
		sub := sortedKeys(inSection)[0]
		return mergeError(p, "cannot set sub-key %q of %s value", sub, kindOf(existing))
	default:
		dst[key] = cloneValue(incoming)
		return nil
	}
}
