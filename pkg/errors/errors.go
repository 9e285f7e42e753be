// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed error handling with rich context for Switchyard.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode classifies Switchyard errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotFound indicates a registry entry was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeFetch indicates an agent card fetch failed: unreachable
	// endpoint, non-2xx response, or schema-invalid card.
	CodeFetch ErrorCode = "FETCH_ERROR"

	// CodeProtocol indicates the remote task protocol misbehaved:
	// HTTP-level failure, an error envelope, a missing result, or an
	// unrecognized result shape.
	CodeProtocol ErrorCode = "PROTOCOL_ERROR"

	// CodeTimeout indicates the poll budget was exhausted without the
	// remote task reaching a terminal state.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodePipeline indicates the routing pipeline broke between stages,
	// e.g. the selected agent vanished from the registry before route.
	CodePipeline ErrorCode = "PIPELINE_ERROR"
)

// Error is a typed error with context attached for observability.
// It implements the error interface and supports errors.As/errors.Is.
type Error struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]any
	Recoverable bool
	StatusCode  int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *Error) MarshalJSON() ([]byte, error) {
	payload := struct {
		Message     string         `json:"message"`
		Code        string         `json:"code"`
		Err         string         `json:"error,omitempty"`
		Recoverable bool           `json:"recoverable"`
		Context     map[string]any `json:"context,omitempty"`
	}{
		Message:     e.Message,
		Code:        string(e.Code),
		Recoverable: e.Recoverable,
		Context:     e.Context,
	}
	if e.Err != nil {
		payload.Err = e.Err.Error()
	}
	return json.Marshal(payload)
}

// New creates a new Error with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *Error {
	return &Error{
		Code:       code,
		Message:    msg,
		Err:        cause,
		StatusCode: codeToStatusCode(code),
	}
}

// Newf creates a new Error with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *Error) WithRecoverable(recoverable bool) *Error {
	e.Recoverable = recoverable
	return e
}

// CodeOf returns the Switchyard error code of err, or CodeInternal for
// errors that did not originate here.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if se, ok := err.(*Error); ok {
		return se.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given Switchyard code anywhere
// in its chain.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if se, ok := err.(*Error); ok && se.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// codeToStatusCode maps error codes to HTTP status codes.
func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return 404
	case CodeInvalidInput:
		return 400
	case CodeTimeout:
		return 408
	case CodeFetch, CodeProtocol:
		return 502
	default:
		return 500
	}
}
