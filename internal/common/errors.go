package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error taxonomy for the comparison pipeline.
var (
	// ErrInvalidArchive: the uploaded blob is not a readable archive or
	// holds zero eligible spreadsheet files.
	ErrInvalidArchive = errors.New("invalid archive")
	// ErrMalformedSheet: required columns could not be located in one
	// spreadsheet. Per-file and recoverable; the job carries on.
	ErrMalformedSheet = errors.New("malformed sheet")
	// ErrNoUsableData: zero staffing records survived parsing and the
	// date filter across the whole submission.
	ErrNoUsableData = errors.New("no usable data")
	// ErrNotReady: the artifact was requested before the job completed.
	ErrNotReady = errors.New("result not ready")
	// ErrNotFound: unknown or already purged job id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput: synchronous submission validation failure.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal: unexpected fault during any stage.
	ErrInternal = errors.New("internal error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
