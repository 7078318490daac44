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
)

// ErrCacheMiss signals a missing cache entry. Callers treat it as a miss,
// not a failure.
var ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache entry not found")

// Valuation and catalog query errors.
var (
	ErrInvalidCategory  = New("INVALID_CATEGORY", http.StatusBadRequest, "unknown item category")
	ErrInvalidCondition = New("INVALID_CONDITION", http.StatusBadRequest, "unknown item condition")
	ErrNegativePoints   = New("NEGATIVE_POINTS", http.StatusBadRequest, "points value must not be negative")
	ErrInvalidRange     = New("INVALID_RANGE", http.StatusBadRequest, "min points exceeds max points")
	ErrInvalidSort      = New("INVALID_SORT", http.StatusBadRequest, "unknown sort field")
)

// Swap lifecycle errors.
var (
	ErrSameUser           = New("SAME_USER", http.StatusBadRequest, "cannot request a swap on your own item")
	ErrItemNotActive      = New("ITEM_NOT_ACTIVE", http.StatusConflict, "item is not available for swapping")
	ErrNoSettlement       = New("NO_SETTLEMENT", http.StatusBadRequest, "swap requires an offered item or a positive points offer")
	ErrInvalidTransition  = New("INVALID_TRANSITION", http.StatusConflict, "action does not apply to the swap's current state")
	ErrInsufficientPoints = New("INSUFFICIENT_POINTS", http.StatusUnprocessableEntity, "insufficient points balance")
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
