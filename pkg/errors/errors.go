package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates insufficient permissions
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")

	// ErrLocked indicates a resource is held by another owner
	ErrLocked = errors.New("resource locked")
)

// Provider errors. Every provider client wraps exactly one of these so the
// fallback orchestrator can branch with Is.

var (
	// ErrProviderRateLimited indicates the provider throttled the request (HTTP 429)
	ErrProviderRateLimited = errors.New("provider rate limited")

	// ErrProviderUnauthorized indicates the provider rejected our credentials
	ErrProviderUnauthorized = errors.New("provider unauthorized")

	// ErrProviderMalformed indicates the provider returned a body we could not decode
	ErrProviderMalformed = errors.New("provider malformed response")

	// ErrProviderRejected indicates the provider refused one request (HTTP 400, 422 and other 4xx),
	// typically an unknown series or symbol; the provider stays usable for other requests
	ErrProviderRejected = errors.New("provider rejected request")

	// ErrProviderUnavailable indicates transport failure, 5xx, or exhausted rate-limit retries
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// Pipeline errors

var (
	// ErrStorageWrite indicates a single record or a whole batch could not be persisted
	ErrStorageWrite = errors.New("storage write failed")

	// ErrRunFatal indicates a configuration-level failure that aborts a sync run
	ErrRunFatal = errors.New("sync run fatal")

	// ErrNoProvider indicates no provider is left to serve a request in the current run
	ErrNoProvider = errors.New("no usable provider")
)

// Retryable reports whether a provider error is worth retrying against the same provider.
func Retryable(err error) bool {
	return errors.Is(err, ErrProviderRateLimited)
}

// Disabling reports whether a provider error rules the provider out for the rest of a run.
func Disabling(err error) bool {
	return errors.Is(err, ErrProviderUnauthorized) || errors.Is(err, ErrProviderMalformed)
}

// DomainError wraps an error with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap lets validation failures match ErrInvalidInput
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// MultiError wraps multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors (%d): %v", len(m.Errors), m.Errors[0])
}

// Unwrap exposes the collected errors to errors.Is / errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the list
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if no errors
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join combines errors, see errors.Join
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
