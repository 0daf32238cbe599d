// Package errors tests for error code definitions and error handling.
package errors

import (
	"errors"
	"fmt"
	"testing"
)

// TestAppError_Error verifies error message formatting.
func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name:     "error without underlying error",
			appError: &AppError{Code: ErrInternal, Message: "something failed"},
			want:     "[INTERNAL_ERROR] something failed",
		},
		{
			name:     "error with underlying error",
			appError: &AppError{Code: ErrStorageFault, Message: "insert failed", Err: errors.New("disk I/O error")},
			want:     "[STORAGE_FAULT] insert failed: disk I/O error",
		},
		{
			name:     "decode fault",
			appError: &AppError{Code: ErrDecodeFault, Message: "bad image"},
			want:     "[DECODE_FAULT] bad image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appError.Error()
			if got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestWrap verifies error wrapping.
func TestWrap(t *testing.T) {
	underlyingErr := errors.New("underlying")

	err := Wrap(ErrUploadError, "upload failed", underlyingErr)
	if err.Code != ErrUploadError {
		t.Errorf("Wrap() code = %q, want %q", err.Code, ErrUploadError)
	}
	if err.Unwrap() != underlyingErr {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), underlyingErr)
	}
	if !errors.Is(err, underlyingErr) {
		t.Error("errors.Is should find the wrapped error")
	}
}

// TestIs verifies error code checking through wrapped chains.
func TestIs(t *testing.T) {
	inner := Wrap(ErrAuthFault, "session expired", nil)

	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching AppError", New(ErrNotFound, "missing"), ErrNotFound, true},
		{"non-matching AppError", New(ErrNotFound, "missing"), ErrInternal, false},
		{"non-AppError", errors.New("standard error"), ErrInternal, false},
		{"nil error", nil, ErrInternal, false},
		{"fmt wrapped", fmt.Errorf("submit: %w", inner), ErrAuthFault, true},
		{"nested AppError", Wrap(ErrRemoteError, "submit failed", inner), ErrAuthFault, true},
		{"nested outer code", Wrap(ErrRemoteError, "submit failed", inner), ErrRemoteError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestCodeOf verifies the outermost code is reported.
func TestCodeOf(t *testing.T) {
	if got := CodeOf(Wrap(ErrSyncInProgress, "busy", nil)); got != ErrSyncInProgress {
		t.Errorf("CodeOf() = %q, want %q", got, ErrSyncInProgress)
	}
	if got := CodeOf(errors.New("plain")); got != ErrInternal {
		t.Errorf("CodeOf(plain) = %q, want %q", got, ErrInternal)
	}
}

// TestIsRemote verifies auth faults count as remote failures.
func TestIsRemote(t *testing.T) {
	for _, code := range []ErrorCode{ErrRemoteError, ErrUploadError, ErrAuthFault} {
		if !IsRemote(New(code, "x")) {
			t.Errorf("IsRemote(%s) = false, want true", code)
		}
	}
	if IsRemote(New(ErrStorageFault, "x")) {
		t.Error("storage faults are not remote")
	}
}
