// Package errors provides structured error types for buckaroo.
//
// Every failure the resolver surfaces to a caller can be classified by a
// machine-readable [Code], so the CLI and the HTTP API can render a message
// (for example "no releases found" or "did you mean…") without re-deriving
// context from the resolver.
//
// # Error Codes
//
// Codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures (identifiers, versions, ranges, manifests)
//   - RECIPE_NOT_FOUND, FETCH_RECIPE, CONFLICT: Resolution failures
//   - NETWORK_*, TIMEOUT, RATE_LIMITED: Transport failures
//   - IO, EXTRACT: Local filesystem failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidIdentifier, "invalid identifier: %s", s)
//	if errors.Is(err, errors.ErrCodeInvalidIdentifier) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "failed to fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidIdentifier Code = "INVALID_IDENTIFIER"
	ErrCodeInvalidVersion    Code = "INVALID_VERSION"
	ErrCodeInvalidRange      Code = "INVALID_RANGE"
	ErrCodeInvalidManifest   Code = "INVALID_MANIFEST"
	ErrCodeInvalidRecipe     Code = "INVALID_RECIPE"
	ErrCodeInvalidPath       Code = "INVALID_PATH"

	// Resolution errors
	ErrCodeRecipeNotFound Code = "RECIPE_NOT_FOUND"
	ErrCodeFetchRecipe    Code = "FETCH_RECIPE"
	ErrCodeConflict       Code = "CONFLICT"

	// Network errors
	ErrCodeNetwork     Code = "NETWORK_ERROR"
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeRateLimited Code = "RATE_LIMITED"

	// Local filesystem errors
	ErrCodeIO      Code = "IO"
	ErrCodeExtract Code = "EXTRACT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code,
// so an outer error with a different code does not hide an inner match.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error chain holds no *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// RateLimitedError provides additional information for rate-limited responses.
type RateLimitedError struct {
	RetryAfter int // Seconds to wait before retrying
	Message    string
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: retry after %d seconds", e.RetryAfter)
	}
	if e.Message != "" {
		return "rate limited: " + e.Message
	}
	return "rate limited"
}

// Code returns the error code for this error type.
func (e *RateLimitedError) Code() Code {
	return ErrCodeRateLimited
}
