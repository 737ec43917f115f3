package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies failures across the service.
type ErrorCode string

const (
	// ErrValidation marks a malformed request, rejected before any node runs.
	ErrValidation ErrorCode = "VALIDATION"
	// ErrClassifierParse marks classifier output that did not match the
	// two-line contract. Non-fatal: it maps to an error verdict, never to
	// a block or an abort.
	ErrClassifierParse ErrorCode = "CLASSIFIER_PARSE"
	// ErrAdapterFailure marks a failed classifier or generation call.
	// Fatal to the run; surfaced as a generic internal error.
	ErrAdapterFailure ErrorCode = "ADAPTER_FAILURE"
	// ErrToolFailure marks a failed tool invocation. Converted into an
	// in-band tool-role error message rather than aborting the run.
	ErrToolFailure ErrorCode = "TOOL_FAILURE"
	// ErrToolLoopExceeded marks a run that hit the tool round-trip cap.
	ErrToolLoopExceeded ErrorCode = "TOOL_LOOP_EXCEEDED"
	// ErrNotFound marks an unknown thread id.
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrUnauthorized marks a failed bearer token check.
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrConflict marks a thread whose lease is already held by another run.
	ErrConflict ErrorCode = "CONFLICT"
	// ErrInternal marks any other failure.
	ErrInternal ErrorCode = "INTERNAL"
)

// Error is a structured error with a stable code, HTTP mapping, and an
// optional wrapped cause.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable,omitempty"`
	Cause      error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause attaches a wrapped cause.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// AsError extracts a *Error from err's chain, if present.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	if e, ok := AsError(err); ok {
		return e.Code == code
	}
	return false
}

// HTTPStatusFor maps an error to a wire status. Unknown errors map to 500
// so internals never leak through the API surface.
func HTTPStatusFor(err error) int {
	e, ok := AsError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	switch e.Code {
	case ErrValidation:
		return http.StatusUnprocessableEntity
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
