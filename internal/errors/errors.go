package errors

import (
	"fmt"
)

// SemaError is the structured error type for sema.
// It provides rich context for error handling, logging, and user presentation.
type SemaError struct {
	// Code is the unique error code (e.g., "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Storage, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *SemaError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SemaError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with SemaError.
func (e *SemaError) Is(target error) bool {
	if t, ok := target.(*SemaError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *SemaError) WithDetail(key, value string) *SemaError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *SemaError) WithSuggestion(suggestion string) *SemaError {
	e.Suggestion = suggestion
	return e
}

// New creates a new SemaError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SemaError {
	return &SemaError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SemaError from an existing error.
// The error's message becomes the SemaError message.
func Wrap(code string, err error) *SemaError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *SemaError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *SemaError {
	return New(ErrCodeFileNotFound, message, cause)
}

// StorageError creates a database or index error.
func StorageError(message string, cause error) *SemaError {
	return New(ErrCodeTxFailed, message, cause)
}

// QueryError creates a query parsing or validation error.
func QueryError(message string, cause error) *SemaError {
	return New(ErrCodeInvalidQuery, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *SemaError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a SemaError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := err.(*SemaError); ok {
		return se.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := err.(*SemaError); ok {
		return se.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a SemaError.
// Returns empty string if not a SemaError.
func GetCode(err error) string {
	if se, ok := err.(*SemaError); ok {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from a SemaError.
// Returns empty string if not a SemaError.
func GetCategory(err error) Category {
	if se, ok := err.(*SemaError); ok {
		return se.Category
	}
	return ""
}
