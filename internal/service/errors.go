package service

import (
	"errors"

	"booking-service/internal/models"
)

// Error kinds. Every error returned by the services wraps exactly one of these.
var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrPaymentDeclined = errors.New("payment declined")
	ErrInternal        = errors.New("internal error")
)

// Error is a classified service error with a caller-facing message
type Error struct {
	Kind    error
	Message string
	// Booking is set when the failed operation still changed the booking,
	// e.g. a declined payment recorded as FAILED.
	Booking *models.Booking
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause to errors.Is
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

func validationError(msg string) error { return &Error{Kind: ErrValidation, Message: msg} }
func forbiddenError(msg string) error  { return &Error{Kind: ErrForbidden, Message: msg} }
func notFoundError(msg string) error   { return &Error{Kind: ErrNotFound, Message: msg} }
func conflictError(msg string) error   { return &Error{Kind: ErrConflict, Message: msg} }

func internalError(msg string, cause error) error {
	return &Error{Kind: ErrInternal, Message: msg, cause: cause}
}

// PublicMessage returns the message safe to show to callers
func PublicMessage(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		if errors.Is(svcErr.Kind, ErrInternal) {
			return "internal error"
		}
		return svcErr.Message
	}
	return "internal error"
}
