// Package errors provides the error kinds used across circli.
//
// Every failure a command can report falls into one of three kinds:
//
//   - validation errors, raised before a request is sent (ErrInvalid)
//   - HTTP errors, for non-2xx responses from the API (*HTTPError)
//   - cancellation errors, when the caller aborted the call (ErrCanceled)
//
// Transport failures that are none of these are wrapped in *RequestError,
// and configuration problems in *ConfigError.
//
// # Usage
//
//	// Reject bad input before any network activity
//	return &errors.ValidationError{Op: "workflow.cancel", Field: "id", Err: err}
//
//	// Check kinds
//	if errors.IsCanceled(err) {
//	    // caller aborted
//	}
//	if he, ok := errors.AsHTTPError(err); ok && he.Status == 404 {
//	    // handle not found
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Base error types (sentinel errors).
var (
	// ErrInvalid indicates validation failed before a request was sent.
	ErrInvalid = baseError("invalid")

	// ErrCanceled indicates the caller canceled the operation.
	ErrCanceled = baseError("canceled")

	// ErrHTTP indicates the API answered with a non-2xx status.
	ErrHTTP = baseError("http error")

	// ErrNotFound indicates a 404 response.
	ErrNotFound = baseError("not found")

	// ErrUnauthorized indicates a 401 or 403 response.
	ErrUnauthorized = baseError("unauthorized")

	// ErrRateLimited indicates a 429 response.
	ErrRateLimited = baseError("rate limited")

	// ErrNoToken indicates no API token could be resolved.
	ErrNoToken = baseError("API token not found")
)

// baseError is a string that implements error.
type baseError string

func (e baseError) Error() string { return string(e) }

// ValidationError reports input that was rejected before a request was sent.
type ValidationError struct {
	// Op is the operation being prepared (e.g., "pipeline.list").
	Op string
	// Field is the offending parameter name (optional).
	Field string
	// Err is the underlying error.
	Err error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: invalid %s: %s", e.Op, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() []error { return []error{ErrInvalid, e.Err} }

// Invalid builds a ValidationError from a format string.
func Invalid(op, field, format string, args ...any) error {
	return &ValidationError{Op: op, Field: field, Err: fmt.Errorf(format, args...)}
}

// HTTPError is a non-2xx response from the API.
type HTTPError struct {
	Method     string
	URL        string
	Status     int
	StatusText string
	// Body is the raw response body.
	Body []byte
	// Message is the human-readable description chosen for Status.
	Message string
	// Detail is the server supplied "message" field, if any.
	Detail string
}

func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Detail != "" && e.Detail != msg {
		return fmt.Sprintf("%s (%d): %s", msg, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s (%d)", msg, e.Status)
}

// Unwrap lets errors.Is match ErrHTTP plus the sentinel for well-known statuses.
func (e *HTTPError) Unwrap() []error {
	errs := []error{ErrHTTP}
	switch e.Status {
	case http.StatusNotFound:
		errs = append(errs, ErrNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		errs = append(errs, ErrUnauthorized)
	case http.StatusTooManyRequests:
		errs = append(errs, ErrRateLimited)
	}
	return errs
}

// CanceledError reports that a call was aborted by its caller.
type CanceledError struct {
	// Op is the operation that was canceled.
	Op string
	// Cause is the context error that triggered the cancellation (optional).
	Cause error
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("%s: canceled", e.Op)
}

func (e *CanceledError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrCanceled, e.Cause}
	}
	return []error{ErrCanceled}
}

// RequestError wraps a transport failure (DNS, connection reset, bad body).
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string { return fmt.Sprintf("%s: %s", e.Op, e.Err) }

func (e *RequestError) Unwrap() error { return e.Err }

// ConfigError represents an error related to configuration.
type ConfigError struct {
	// Path is the configuration file path (optional).
	Path string
	// Err is the underlying error.
	Err error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %s", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %s", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Wrap adds context to an error by wrapping it with an operation name.
// The returned error implements Unwrap() allowing errors.Is and errors.As
// to work with the wrapped error.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{op: op, err: err}
}

// wrappedError is an error with an operation context.
type wrappedError struct {
	op  string
	err error
}

func (e *wrappedError) Error() string { return fmt.Sprintf("%s: %s", e.op, e.err) }
func (e *wrappedError) Unwrap() error { return e.err }

// IsInvalid reports whether err is or wraps ErrInvalid.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}

// IsCanceled reports whether err is or wraps ErrCanceled.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// IsHTTP reports whether err is or wraps an HTTP error.
func IsHTTP(err error) bool {
	return errors.Is(err, ErrHTTP)
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized reports whether err is or wraps ErrUnauthorized.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// AsHTTPError reports whether err can be typed as a *HTTPError.
func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// AsValidationError reports whether err can be typed as a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsConfigError reports whether err can be typed as a *ConfigError.
func AsConfigError(err error) (*ConfigError, bool) {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Exit codes returned by the CLI for each error kind.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitValidation = 2
	ExitCanceled   = 130
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsCanceled(err):
		return ExitCanceled
	case IsInvalid(err):
		return ExitValidation
	default:
		return ExitFailure
	}
}
