package game

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by an Engine operation either wraps
// one of these or is an unexpected failure (for example, persistence).
var (
	ErrValidation   = errors.New("validation")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// errNotDue is returned internally when the scheduler finds no expired deadline.
var errNotDue = errors.New("game: no phase deadline has elapsed")

// Error is a classified engine error. Msg is safe to show to players.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Msg: msg}
}

func notFound(msg string) error {
	return &Error{Kind: ErrNotFound, Msg: msg}
}

// Unauthorized builds an authorization error for callers outside the engine
// (session checks in the transport layer).
func Unauthorized(msg string) error {
	return &Error{Kind: ErrUnauthorized, Msg: msg}
}

// Kind names the category of err for responses and metrics:
// "validation", "unauthorized", "forbidden", "not_found" or "internal".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
