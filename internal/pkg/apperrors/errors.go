package apperrors

import (
	"errors"
	"fmt"
)

// Error classes callers branch on with errors.Is
var (
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrValidationFailed      = errors.New("validation failed")

	// ErrStorageFault marks an unexpected failure of the persistence layer.
	ErrStorageFault = errors.New("storage fault")
)

// Student Errors
var (
	ErrStudentNotFound = fmt.Errorf("student %w", ErrResourceNotFound)
	// ErrStudentIDAlreadyExists is reported by repositories on a key collision.
	// The service retries and never lets it reach a caller.
	ErrStudentIDAlreadyExists = fmt.Errorf("student ID %w", ErrResourceAlreadyExists)
)

// CustomError pairs an error class with the message shown to callers
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// NewValidationError creates a validation error carrying a caller-facing message
func NewValidationError(message string) *CustomError {
	return NewCustomError(ErrValidationFailed, message)
}

// NewStorageFault creates a storage fault with a generic, operation-specific message.
// The underlying cause is not part of the error.
func NewStorageFault(message string) *CustomError {
	return NewCustomError(ErrStorageFault, message)
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// Message extracts the caller-facing message of err, falling back to err.Error().
func Message(err error) string {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Error()
	}
	return err.Error()
}

// Details extracts the details attached to a CustomError in the chain, if any.
func Details(err error) map[string]interface{} {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Details
	}
	return nil
}
