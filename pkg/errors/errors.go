// Package errors provides structured error types for kudsight.
//
// Every failure the user can see carries a [Code] so the CLI, the dataset
// server and the notification center can react to it without matching
// message text.
//
// # Error Codes
//
//   - LOAD_FAILED: the primary dataset could not be fetched or decoded
//   - OVERLAY_SKIPPED: no saved layout was applied (informational)
//   - PERSISTENCE_FAILED: a layout flush was rejected or unreachable
//   - ASSET_MISSING: no diagram exists for a dataset
//   - INVALID_*: input validation failures
//   - NOT_FOUND, NETWORK_ERROR, INTERNAL_ERROR, UNSUPPORTED
//
// Validation drops (duplicate nodes, dangling links) are counted, never
// raised as errors.
//
// # Usage
//
//	err := errors.Wrap(errors.ErrCodeLoadFailed, cause, "load %s", name)
//	if errors.Is(err, errors.ErrCodeLoadFailed) {
//	    // show a load failure
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Session failures
	ErrCodeLoadFailed        Code = "LOAD_FAILED"
	ErrCodeOverlaySkipped    Code = "OVERLAY_SKIPPED"
	ErrCodePersistenceFailed Code = "PERSISTENCE_FAILED"
	ErrCodeAssetMissing      Code = "ASSET_MISSING"

	// Input validation errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidPath  Code = "INVALID_PATH"

	// Resource errors
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeNetwork  Code = "NETWORK_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a failure with a [Code]. Message is what a user is shown; Cause,
// when set, is the lower-level error it came from.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an *Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return Wrap(code, nil, format, args...)
}

// Wrap returns an *Error with a formatted message and cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	return code != "" && GetCode(err) == code
}

// GetCode returns the code of the outermost *Error in err's chain, or "".
func GetCode(err error) Code {
	if e, ok := asError(err); ok {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the outermost *Error in err's chain
// without its code, or err.Error() for uncoded errors.
func UserMessage(err error) string {
	if e, ok := asError(err); ok {
		return e.Message
	}
	return err.Error()
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
