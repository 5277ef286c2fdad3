// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"
)

// Path is a parsed dotted key. Each element is one segment name.
type Path []string

// ParsePath splits a dotted key such as "data.kwargs.embed_key" into segments.
// A segment wrapped in double quotes may contain dots: `data."a.b".c`. Inside
// quotes, a backslash escapes the next character, so `"a\"b"` is the
// segment a"b. Empty keys, empty segments and unterminated quotes are
// rejected.
func ParsePath(key string) (Path, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidPath)
	}

	var (
		segs   Path
		cur    strings.Builder
		quoted bool
		// closed marks a segment that ended with a closing quote; only a dot
		// or the end of the key may follow it.
		closed bool
	)
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case quoted && c == '\\' && i+1 < len(key):
			i++
			cur.WriteByte(key[i])
		case quoted && c == '"':
			quoted = false
			closed = true
		case quoted:
			cur.WriteByte(c)
		case c == '"':
			if cur.Len() > 0 || closed {
				return nil, fmt.Errorf("%w: %q: quote inside segment at offset %d", ErrInvalidPath, key, i)
			}
			quoted = true
		case c == '.':
			if cur.Len() == 0 {
				return nil, fmt.Errorf("%w: %q: empty segment at offset %d", ErrInvalidPath, key, i)
			}
			segs = append(segs, cur.String())
			cur.Reset()
			closed = false
		default:
			if closed {
				return nil, fmt.Errorf("%w: %q: unexpected %q after quoted segment", ErrInvalidPath, key, c)
			}
			cur.WriteByte(c)
		}
	}
	if quoted {
		return nil, fmt.Errorf("%w: %q: unterminated quote", ErrInvalidPath, key)
	}
	if cur.Len() == 0 {
		return nil, fmt.Errorf("%w: %q: empty trailing segment", ErrInvalidPath, key)
	}
	return append(segs, cur.String()), nil
}

// String renders the path back into dotted form. Segments containing a dot
// or a double quote are quoted, with quotes and backslashes escaped, so that
// ParsePath(p.String()) returns p.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		if strings.ContainsAny(seg, `."`) {
			parts[i] = `"` + segmentEscaper.Replace(seg) + `"`
		} else {
			parts[i] = seg
		}
	}
	return strings.Join(parts, ".")
}

var segmentEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Child returns a new path with seg appended. The receiver is not modified.
func (p Path) Child(seg string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}
