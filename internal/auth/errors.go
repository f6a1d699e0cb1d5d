package auth

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures. The HTTP layer maps each kind to a
// status code; nothing else about an error is meant for clients.
type Kind int

const (
	KindInternal Kind = iota
	KindConflict
	KindInvalidCredentials
	KindAccountDisabled
	KindAccountLocked
	KindTokenInvalid
	KindNotFound
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindAccountDisabled:
		return "account_disabled"
	case KindAccountLocked:
		return "account_locked"
	case KindTokenInvalid:
		return "token_invalid"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

// Error is the error type returned by every engine operation. Message is
// safe to show to a client; Err, when set, is the underlying cause and is
// only meant for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrTokenInvalid)
// holds regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrConflict           = &Error{Kind: KindConflict, Message: "User already exists"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "Invalid email or password"}
	ErrAccountDisabled    = &Error{Kind: KindAccountDisabled, Message: "User account is disabled"}
	ErrAccountLocked      = &Error{Kind: KindAccountLocked, Message: "Account is temporarily locked. Please try again later"}
	ErrTokenInvalid       = &Error{Kind: KindTokenInvalid, Message: "Invalid or expired token"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "User not found"}
	ErrInternal           = &Error{Kind: KindInternal, Message: "Internal server error"}
)

// validation builds a KindValidation error with a client-facing message.
func validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// internal wraps a store, hashing or signing failure. The op names the
// step for logs; the message returned to clients stays generic.
func internal(op string, err error) error {
	return &Error{Kind: KindInternal, Message: ErrInternal.Message, Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf reports the kind of err. Errors that did not come from the
// engine are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage returns the client-facing message for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ErrInternal.Message
}
