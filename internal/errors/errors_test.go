package errors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	clierrors "github.com/chazuruo/circli/internal/errors"
)

// TestBaseErrors verifies that all base error types have correct messages.
func TestBaseErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrInvalid", clierrors.ErrInvalid, "invalid"},
		{"ErrCanceled", clierrors.ErrCanceled, "canceled"},
		{"ErrHTTP", clierrors.ErrHTTP, "http error"},
		{"ErrNotFound", clierrors.ErrNotFound, "not found"},
		{"ErrUnauthorized", clierrors.ErrUnauthorized, "unauthorized"},
		{"ErrRateLimited", clierrors.ErrRateLimited, "rate limited"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestValidationError verifies ValidationError formatting and unwrapping.
func TestValidationError(t *testing.T) {
	err := clierrors.Invalid("workflow.cancel", "id", "%q is not a UUID", "abc")
	want := `workflow.cancel: invalid id: "abc" is not a UUID`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !clierrors.IsInvalid(err) {
		t.Error("IsInvalid() = false, want true")
	}
	if clierrors.IsCanceled(err) || clierrors.IsHTTP(err) {
		t.Error("validation error matched another kind")
	}

	ve, ok := clierrors.AsValidationError(fmt.Errorf("outer: %w", err))
	if !ok || ve.Field != "id" {
		t.Errorf("AsValidationError() = %v, %v", ve, ok)
	}
}

// TestHTTPError verifies message selection and status sentinels.
func TestHTTPError(t *testing.T) {
	tests := []struct {
		name       string
		err        *clierrors.HTTPError
		want       string
		notFound   bool
		unauthzed  bool
	}{
		{
			name:     "mapped message",
			err:      &clierrors.HTTPError{Status: 404, Message: "Entity not found."},
			want:     "Entity not found. (404)",
			notFound: true,
		},
		{
			name:      "with detail",
			err:       &clierrors.HTTPError{Status: 401, Message: "Credentials provided are invalid.", Detail: "token expired"},
			want:      "Credentials provided are invalid. (401): token expired",
			unauthzed: true,
		},
		{
			name:      "forbidden",
			err:       &clierrors.HTTPError{Status: 403, Message: "Forbidden"},
			want:      "Forbidden (403)",
			unauthzed: true,
		},
		{
			name: "no message falls back to status text",
			err:  &clierrors.HTTPError{Status: 502},
			want: "Bad Gateway (502)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !clierrors.IsHTTP(tt.err) {
				t.Error("IsHTTP() = false, want true")
			}
			if got := clierrors.IsNotFound(tt.err); got != tt.notFound {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.notFound)
			}
			if got := clierrors.IsUnauthorized(tt.err); got != tt.unauthzed {
				t.Errorf("IsUnauthorized() = %v, want %v", got, tt.unauthzed)
			}
			if clierrors.IsCanceled(tt.err) {
				t.Error("HTTP error matched canceled")
			}
		})
	}
}

// TestCanceledError verifies cancellation is its own kind.
func TestCanceledError(t *testing.T) {
	err := &clierrors.CanceledError{Op: "workflow.cancel", Cause: context.Canceled}
	if got := err.Error(); got != "workflow.cancel: canceled" {
		t.Errorf("Error() = %q", got)
	}
	if !clierrors.IsCanceled(err) {
		t.Error("IsCanceled() = false, want true")
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("errors.Is(err, context.Canceled) = false, want true")
	}
	if clierrors.IsHTTP(err) || clierrors.IsInvalid(err) {
		t.Error("canceled error matched another kind")
	}
}

// TestWrap verifies the Wrap helper.
func TestWrap(t *testing.T) {
	if clierrors.Wrap(nil, "op") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	wrapped := clierrors.Wrap(clierrors.ErrNotFound, "get")
	if got := wrapped.Error(); got != "get: not found" {
		t.Errorf("Error() = %q", got)
	}
	if !clierrors.IsNotFound(wrapped) {
		t.Error("IsNotFound() = false through Wrap")
	}
}

// TestConfigError verifies ConfigError formatting.
func TestConfigError(t *testing.T) {
	err := &clierrors.ConfigError{Path: "/tmp/config.yml", Err: clierrors.ErrInvalid}
	if got := err.Error(); got != "config /tmp/config.yml: invalid" {
		t.Errorf("Error() = %q", got)
	}
	ce, ok := clierrors.AsConfigError(fmt.Errorf("load: %w", err))
	if !ok || ce.Path != "/tmp/config.yml" {
		t.Errorf("AsConfigError() = %v, %v", ce, ok)
	}
}

// TestExitCode verifies the exit code mapping for each kind.
func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, clierrors.ExitOK},
		{"validation", clierrors.Invalid("op", "", "bad"), clierrors.ExitValidation},
		{"canceled", &clierrors.CanceledError{Op: "op"}, clierrors.ExitCanceled},
		{"http", &clierrors.HTTPError{Status: 500}, clierrors.ExitFailure},
		{"other", errors.New("boom"), clierrors.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clierrors.ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
