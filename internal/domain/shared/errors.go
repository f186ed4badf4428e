// Package shared contains common domain types, errors and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrPastTimestamp   = errors.New("timestamp cannot be in the past")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState = errors.New("invalid state")
	ErrDisabled     = errors.New("feature disabled")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "student", "psychology", "advisor"
	Op      string // Operation that failed, e.g., "Validate", "Append"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// ValidationError builds a validation error for a single field.
func ValidationError(domain, field, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      "Validate",
		Kind:    ErrValidation,
		Message: fmt.Sprintf("%s: %s", field, message),
	}
}

// Student domain errors
var (
	ErrStudentNotFound      = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrStudentAlreadyExists = NewDomainError("student", "Create", ErrAlreadyExists, "student already exists")
	ErrInvalidStudentID     = NewDomainError("student", "Validate", ErrInvalidID, "invalid student ID")
	ErrClassNotFound        = NewDomainError("student", "FindClass", ErrNotFound, "class not found")
)

// Psychology domain errors
var (
	ErrReferralNotFound    = NewDomainError("psychology", "FindReferral", ErrNotFound, "referral not found")
	ErrInvalidUrgency      = NewDomainError("psychology", "Validate", ErrValidation, "urgency must be low, medium or high")
	ErrInvalidReasonType   = NewDomainError("psychology", "Validate", ErrValidation, "unknown referral reason type")
	ErrEmptyNote           = NewDomainError("psychology", "Validate", ErrEmptyValue, "note cannot be empty")
	ErrAppointmentInPast   = NewDomainError("psychology", "Schedule", ErrPastTimestamp, "appointment must be in the future")
	ErrAppointmentConflict = NewDomainError("psychology", "Schedule", ErrAlreadyExists, "student already has an appointment at this time")
)

// Advisor (external AI) errors
var (
	ErrAdvisorDisabled        = NewDomainError("advisor", "Advise", ErrDisabled, "AI advisor is disabled")
	ErrAdvisorUnavailable     = NewDomainError("advisor", "Request", ErrServiceUnavailable, "AI advisor is unavailable")
	ErrAdvisorRateLimited     = NewDomainError("advisor", "Request", ErrRateLimited, "AI advisor rate limit exceeded")
	ErrAdvisorTimeout         = NewDomainError("advisor", "Request", ErrTimeout, "AI advisor request timeout")
	ErrAdvisorInvalidResponse = NewDomainError("advisor", "Parse", ErrInvalidFormat, "invalid response from AI advisor")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrPastTimestamp)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}
