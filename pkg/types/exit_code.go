// SPDX-License-Identifier: MPL-2.0

// Package types defines small value types shared by the CLI and the
// packages it drives. It imports only the standard library.
package types

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// ExitSuccess is returned when the run completed.
	ExitSuccess ExitCode = 0
	// ExitFailure is returned for errors that carry no exit code of their own.
	ExitFailure ExitCode = 1
	// ExitUsage is returned for invalid command-line usage.
	ExitUsage ExitCode = 2
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode represents a process exit status code.
	// Exit codes are in the range 0-255 on POSIX systems.
	// The zero value (0) means success.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside the
	// valid range (0-255).
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode so callers can use errors.Is for programmatic detection.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside the valid range (0-255).
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// IsCommandNotFound reports the shell convention for a missing (127) or
// non-executable (126) command.
func (c ExitCode) IsCommandNotFound() bool { return c == 126 || c == 127 }

// ExitCodeOf returns the exit code a process should end with after err.
// A nil error is ExitSuccess. Errors anywhere in the chain that report an
// exit code, such as *exec.ExitError, yield that code; codes outside 0-255
// (a child killed by a signal reports -1) and all other errors yield
// ExitFailure.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		code := ExitCode(coder.ExitCode())
		if code.Validate() == nil && !code.IsSuccess() {
			return code
		}
	}
	return ExitFailure
}

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
