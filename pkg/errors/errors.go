// Package errors defines common error types for the application.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown          = "UNKNOWN_ERROR"
	CodeStructural       = "STRUCTURAL_ERROR"
	CodeGraphConsistency = "GRAPH_CONSISTENCY_ERROR"
	CodeSerialization    = "SERIALIZATION_ERROR"
	CodeParseError       = "PARSE_ERROR"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeAnalysisError    = "ANALYSIS_ERROR"
	CodeStorageError     = "STORAGE_ERROR"
	CodeDatabaseError    = "DATABASE_ERROR"
	CodeConfigError      = "CONFIG_ERROR"
	CodeNotFound         = "NOT_FOUND"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
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

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code string, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances.
var (
	ErrStructural       = New(CodeStructural, "structural error")
	ErrGraphConsistency = New(CodeGraphConsistency, "graph consistency error")
	ErrSerialization    = New(CodeSerialization, "serialization error")
	ErrParseError       = New(CodeParseError, "parse error")
	ErrInvalidInput     = New(CodeInvalidInput, "invalid input")
	ErrAnalysisError    = New(CodeAnalysisError, "analysis error")
	ErrStorageError     = New(CodeStorageError, "storage error")
	ErrDatabaseError    = New(CodeDatabaseError, "database error")
	ErrConfigError      = New(CodeConfigError, "configuration error")
	ErrNotFound         = New(CodeNotFound, "resource not found")
)

// IsStructuralError checks if the error is a structural (undecodable input) error.
func IsStructuralError(err error) bool {
	return errors.Is(err, ErrStructural)
}

// IsGraphConsistencyError checks if the error reports a dangling item reference.
func IsGraphConsistencyError(err error) bool {
	return errors.Is(err, ErrGraphConsistency)
}

// IsSerializationError checks if the error is a serialization error.
func IsSerializationError(err error) bool {
	return errors.Is(err, ErrSerialization)
}

// IsParseError checks if the error is a tape parse error.
func IsParseError(err error) bool {
	return errors.Is(err, ErrParseError)
}

// IsInvalidInput checks if the error is an option validation error.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConfigError checks if the error is a configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfigError)
}

// IsStorageError checks if the error is a storage error.
func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorageError)
}

// IsDatabaseError checks if the error is a database error.
func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabaseError)
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// As is errors.As from the standard library.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
