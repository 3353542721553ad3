package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
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
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Scheduling and lifecycle errors. These are validation failures returned
// synchronously to the caller and are never retried; only
// ErrStorageUnavailable marks a transient condition safe to retry.
var (
	ErrInvalidFormat          = New("INVALID_FORMAT", http.StatusBadRequest, "time must be in H:MM AM/PM format")
	ErrMissingField           = New("MISSING_FIELD", http.StatusBadRequest, "required field is missing")
	ErrDurationTooShort       = New("DURATION_TOO_SHORT", http.StatusBadRequest, "time slot must be at least 45 minutes")
	ErrEndBeforeStart         = New("END_BEFORE_START", http.StatusBadRequest, "end time must be after start time")
	ErrSlotConflict           = New("SLOT_CONFLICT", http.StatusConflict, "time slot overlaps with an existing slot")
	ErrCannotModifyBooked     = New("CANNOT_MODIFY_BOOKED_SLOT", http.StatusConflict, "booked time slots cannot be changed or removed")
	ErrLockedByBooking        = New("LOCKED_BY_BOOKING", http.StatusConflict, "offering details are locked while a slot is booked")
	ErrInvalidTransition      = New("INVALID_TRANSITION", http.StatusConflict, "transition not allowed from the current status")
	ErrReasonRequired         = New("REASON_REQUIRED", http.StatusBadRequest, "cancellation reason is required")
	ErrAlreadyRated           = New("ALREADY_RATED", http.StatusConflict, "booking has already been rated")
	ErrNotReadyForFeedback    = New("NOT_READY_FOR_FEEDBACK", http.StatusConflict, "assignment is not ready for feedback")
	ErrConcurrentModification = New("CONCURRENT_MODIFICATION", http.StatusConflict, "resource was modified by another request")
	ErrStorageUnavailable     = New("STORAGE_UNAVAILABLE", http.StatusServiceUnavailable, "storage temporarily unavailable")
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

// HasCode reports whether err carries the same domain code as target.
func HasCode(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}
