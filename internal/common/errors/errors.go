// Package errors provides the standardized error taxonomy for the
// notification engine: missing delivery targets, ownership violations,
// invalid registrations and store failures.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeNoActiveSubscriptions ErrorCode = "NO_ACTIVE_SUBSCRIPTIONS"
	ErrCodeAccessDenied          ErrorCode = "ACCESS_DENIED"
	ErrCodeNotFound              ErrorCode = "NOT_FOUND"

	ErrCodeTemplateNotFound    ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeInvalidSubscription ErrorCode = "INVALID_SUBSCRIPTION"
	ErrCodeStoreUnavailable    ErrorCode = "STORE_UNAVAILABLE"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// HasCode reports whether err is a StandardError carrying code.
func HasCode(err error, code ErrorCode) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsRetryable reports whether err is a StandardError marked retryable.
func IsRetryable(err error) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// NewAccessDeniedError creates a non-retryable ownership violation error,
// returned when a caller touches notifications it does not own.
func NewAccessDeniedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAccessDenied,
		Message:   "Notification does not belong to the caller",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoActiveSubscriptionsError marks a dispatch that had nowhere to go.
func NewNoActiveSubscriptionsError(recipientID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoActiveSubscriptions,
		Message:   "Recipient has no active push subscriptions",
		Details:   recipientID,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError creates a non-retryable rendering error.
func NewTemplateNotFoundError(category string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "No template registered for category",
		Details:   category,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidSubscriptionError rejects a malformed registration request.
func NewInvalidSubscriptionError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidSubscription,
		Message:   "Subscription registration payload is invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreUnavailableError wraps a data-store failure; the triggering tick
// is abandoned and retried at the next natural firing.
func NewStoreUnavailableError(op string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreUnavailable,
		Message:   "Data store operation failed",
		Details:   fmt.Sprintf("%s: %v", op, cause),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError reports a missing row for direct API actions.
func NewNotFoundError(what string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   "Requested entity was not found",
		Details:   what,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
