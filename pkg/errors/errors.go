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
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrInactive     = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrLinkInvalid  = New("AUTH_FAILED", http.StatusUnauthorized, "sign-in link expired or invalid")
)

// Enrollment flow errors.
var (
	ErrOfferNotFound      = New("OFFER_NOT_FOUND", http.StatusNotFound, "Cohort not found")
	ErrOfferUnavailable   = New("OFFER_UNAVAILABLE", http.StatusBadRequest, "Enrollment is not open for this cohort")
	ErrCheckoutFailed     = New("CHECKOUT_FAILED", http.StatusInternalServerError, "Failed to create checkout session")
	ErrSignatureInvalid   = New("SIGNATURE_INVALID", http.StatusBadRequest, "invalid signature")
	ErrMalformedEvent     = New("MALFORMED_EVENT", http.StatusBadRequest, "payment event is missing required fields")
	ErrProvisioningFailed = New("PROVISIONING_FAILED", http.StatusInternalServerError, "failed to provision account")
	ErrStorageConflict    = New("STORAGE_CONFLICT", http.StatusConflict, "record already exists")
	ErrStorage            = New("STORAGE_ERROR", http.StatusInternalServerError, "failed to persist enrollment")
	ErrNotificationFailed = New("NOTIFICATION_FAILED", http.StatusBadGateway, "failed to dispatch notification")
)

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code == target.Code
	}
	return false
}

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
