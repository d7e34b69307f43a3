package domain

import (
	"context"
	"errors"
)

// Kind classifies an Error so transports can map it to a status.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindAuth
	KindForbidden
	KindRateLimited
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	default:
		return "internal"
	}
}

// Error is a classified failure whose Msg is safe to show to API callers.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// NewError returns an Error of the given kind.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same kind and message, so a sentinel
// still matches after Wrap.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == e.Msg
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Msg: e.Msg, Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain. Deadline
// expiry is reported as KindTimeout; anything else is KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// Message returns the caller-safe message of err, or "" when err is not
// classified.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ""
}

var (
	ErrMissingRegistration = NewError(KindValidation, "Name, email, and password are required")
	ErrMissingClientFields = NewError(KindValidation, "Name and email are required")
	ErrInvalidEmail        = NewError(KindValidation, "Invalid email format")
	ErrPasswordTooShort    = NewError(KindValidation, "Password must be at least 8 characters")
	ErrPasswordTooLong     = NewError(KindValidation, "Password must be at most 72 bytes")
	ErrInvalidRole         = NewError(KindValidation, "Role must be admin or client")
	ErrEmailExists         = NewError(KindConflict, "Email already exists")
	ErrPhoneExists         = NewError(KindConflict, "Phone already exists")
	ErrClientNotFound      = NewError(KindNotFound, "Client not found")

	ErrMissingCredentials = NewError(KindValidation, "Email and password are required")
	ErrInvalidCredentials = NewError(KindAuth, "Invalid credentials")
	ErrTooManyAttempts    = NewError(KindRateLimited, "Too many login attempts. Please try again later.")
	ErrUnauthenticated    = NewError(KindAuth, "Missing or invalid token")
	ErrUnverifiedIdentity = NewError(KindAuth, "Email not verified by identity provider")
	ErrForbidden          = NewError(KindForbidden, "Admin access required")

	ErrMissingProductFields = NewError(KindValidation, "Name and price are required")
	ErrInvalidProductName   = NewError(KindValidation, "Name must not be empty")
	ErrInvalidPrice         = NewError(KindValidation, "Price must be between 0 and 9999999999.99 with at most two decimal places")
	ErrInvalidStock         = NewError(KindValidation, "Stock must be a non-negative integer")
	ErrProductNotFound      = NewError(KindNotFound, "Product not found")
	ErrProductInUse         = NewError(KindConflict, "Product has existing orders")
	ErrValueOutOfRange      = NewError(KindValidation, "Value out of range")

	ErrMissingOrderFields = NewError(KindValidation, "Client ID, product ID, and quantity are required")
	ErrInvalidQuantity    = NewError(KindValidation, "Quantity must be a positive integer")
	ErrInvalidReference   = NewError(KindValidation, "Invalid client or product ID")
	ErrInsufficientStock  = NewError(KindValidation, "Not enough stock available")
	ErrOrderNotFound      = NewError(KindNotFound, "Order not found")
	ErrOrderTotalTooLarge = NewError(KindValidation, "Order total exceeds the maximum amount")
)
