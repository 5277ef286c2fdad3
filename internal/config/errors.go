// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigLoad is the sentinel error wrapped by ConfigLoadError.
	ErrConfigLoad = errors.New("config load failed")
	// ErrConfigMerge is the sentinel error wrapped by ConfigMergeError.
	ErrConfigMerge = errors.New("config merge failed")
	// ErrSchemaValidation is the sentinel error wrapped by SchemaError.
	ErrSchemaValidation = errors.New("config schema validation failed")
	// ErrInvalidPath is returned when a dotted path is empty or has empty segments.
	ErrInvalidPath = errors.New("invalid config path")
	// ErrUnsupportedFormat is returned when a file extension maps to no known format.
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

type (
	// ConfigLoadError is returned when a base configuration file is missing,
	// unreadable, too large, of unknown format, or malformed.
	// It wraps ErrConfigLoad for errors.Is() compatibility.
	//
	//nolint:revive // ConfigLoadError reads better than LoadError at call sites in other packages
	ConfigLoadError struct {
		Path  string
		Cause error
	}

	// ConfigMergeError is returned when an override path is structurally
	// incompatible with the configuration it is merged onto.
	// It wraps ErrConfigMerge for errors.Is() compatibility.
	//
	//nolint:revive // see ConfigLoadError
	ConfigMergeError struct {
		// Path is the dotted key at which the conflict was detected.
		Path string
		// Reason describes the conflict.
		Reason string
		// Cause is an optional underlying error (e.g. an invalid path).
		Cause error
	}

	// SchemaError is returned when a merged configuration does not satisfy
	// a CUE schema. It wraps ErrSchemaValidation.
	SchemaError struct {
		SchemaPath string
		Cause      error
	}
)

// Error implements the error interface.
func (e *ConfigLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("load config %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("load config %s", e.Path)
}

// Unwrap returns both the sentinel and the cause so that errors.Is matches
// ErrConfigLoad as well as the underlying os or parser error.
func (e *ConfigLoadError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrConfigLoad}
	}
	return []error{ErrConfigLoad, e.Cause}
}

// Error implements the error interface.
func (e *ConfigMergeError) Error() string {
	msg := "merge config"
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns ErrConfigMerge and the cause, if any.
func (e *ConfigMergeError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrConfigMerge}
	}
	return []error{ErrConfigMerge, e.Cause}
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("validate config against %s: %v", e.SchemaPath, e.Cause)
}

// Unwrap returns ErrSchemaValidation and the cause.
func (e *SchemaError) Unwrap() []error {
	return []error{ErrSchemaValidation, e.Cause}
}

func loadError(path string, cause error) error {
	return &ConfigLoadError{Path: path, Cause: cause}
}

func mergeError(path Path, format string, args ...any) error {
	return &ConfigMergeError{Path: path.String(), Reason: fmt.Sprintf(format, args...)}
}
