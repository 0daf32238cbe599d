// Package errors provides coded errors shared by the capture, queue and sync layers.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique error code that can be bridged to the UI layer.
type ErrorCode string

const (
	// General errors
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	ErrInvalid  ErrorCode = "INVALID_INPUT"
	ErrNotFound ErrorCode = "NOT_FOUND"
	ErrConfig   ErrorCode = "CONFIG_ERROR"

	// Local queue errors
	ErrStorageFault ErrorCode = "STORAGE_FAULT"
	ErrMigration    ErrorCode = "MIGRATION_FAILED"

	// Media errors
	ErrDecodeFault ErrorCode = "DECODE_FAULT"
	ErrEncodeFault ErrorCode = "ENCODE_FAULT"

	// Remote errors
	ErrUploadError ErrorCode = "UPLOAD_ERROR"
	ErrRemoteError ErrorCode = "REMOTE_ERROR"
	ErrAuthFault   ErrorCode = "AUTH_FAULT"

	// Sync errors
	ErrSyncInProgress ErrorCode = "SYNC_IN_PROGRESS"
	ErrSyncFailed     ErrorCode = "SYNC_FAILED"
	ErrOffline        ErrorCode = "OFFLINE"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is reports whether any error in err's chain carries the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Err
	}
	return false
}

// CodeOf returns the outermost code in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

// IsRemote reports whether err came from the remote side (network, remote
// service or expired session). Auth faults are treated as remote errors at
// the sync layer; renewing the session is the session provider's job.
func IsRemote(err error) bool {
	return Is(err, ErrRemoteError) || Is(err, ErrUploadError) || Is(err, ErrAuthFault)
}
