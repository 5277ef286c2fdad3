// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
)

type (
	// Issue is a single CUE error located at a field path.
	Issue struct {
		// Path is the field path in dotted form with list indices in brackets
		// (e.g. "layers[2].size"). Empty for document-level errors.
		Path    string
		Message string
	}

	// Error collects every issue CUE reported for one document.
	Error struct {
		File   string
		Issues []Issue
		cause  error
	}
)

// Error implements the error interface.
//
// One issue:      <file>: <path>: <message>
// Several issues: <file>: validation failed: followed by one indented line per issue.
func (e *Error) Error() string {
	lines := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		if is.Path != "" {
			lines[i] = is.Path + ": " + is.Message
		} else {
			lines[i] = is.Message
		}
	}
	if len(lines) == 1 {
		return fmt.Sprintf("%s: %s", e.File, lines[0])
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", e.File, strings.Join(lines, "\n  "))
}

// Unwrap returns the original CUE error.
func (e *Error) Unwrap() error {
	return e.cause
}

// FormatError converts a CUE error into an *Error naming the field paths.
// Non-CUE errors are wrapped with the file name. A nil error returns nil.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	cueErrors := errors.Errors(err)
	if len(cueErrors) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	out := &Error{File: filePath, cause: err}
	for _, e := range cueErrors {
		pathStr := formatPath(errors.Path(e))
		msg := e.Error()

		// CUE sometimes repeats the path at the start of the message.
		if pathStr != "" {
			for _, prefix := range []string{pathStr, strings.Join(errors.Path(e), ".")} {
				if strings.HasPrefix(msg, prefix) {
					msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, prefix), ":"))
					break
				}
			}
		}
		out.Issues = append(out.Issues, Issue{Path: pathStr, Message: msg})
	}
	return out
}

// formatPath joins CUE path elements with dots, rendering purely numeric
// elements as list indices: ["layers", "2", "size"] becomes "layers[2].size".
func formatPath(path []string) string {
	var result strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			result.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			result.WriteString(".")
		}
		result.WriteString(part)
	}
	return result.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize returns an error when data is larger than maxSize bytes.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes",
			filename, len(data), maxSize)
	}
	return nil
}
