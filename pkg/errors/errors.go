package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Commission lifecycle policy errors.
var (
	ErrQueueFull           = New("QUEUE_FULL", http.StatusConflict, "artist queue is full")
	ErrCommissionsPaused   = New("COMMISSIONS_PAUSED", http.StatusForbidden, "artist is not accepting commissions")
	ErrMilestoneLocked     = New("MILESTONE_LOCKED", http.StatusConflict, "milestone is locked until the previous one is paid")
	ErrDuplicateSubmission = New("DUPLICATE_SUBMISSION", http.StatusConflict, "milestone already has a pending checkpoint")
	ErrDuplicateBid        = New("DUPLICATE_BID", http.StatusConflict, "artist already has a pending bid on this request")
	ErrCancellationBlocked = New("CANCELLATION_BLOCKED", http.StatusPreconditionFailed, "commission can no longer be cancelled")
	ErrDependency          = New("DEPENDENCY_FAILURE", http.StatusBadGateway, "upstream dependency failed")
	ErrInsufficientFunds   = New("INSUFFICIENT_FUNDS", http.StatusPaymentRequired, "payment capture declined")
	ErrTerminalCommission  = New("TERMINAL_STATE", http.StatusConflict, "commission is in a terminal state")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithDetails returns a copy carrying structured detail fields so callers can
// render an explanation (e.g. cancellation refusal figures).
func WithDetails(err *Error, details map[string]interface{}) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Details = details
	return &clone
}

// Is reports whether err carries the same code as the predefined target.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}
