package lending

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a lending failure.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// Error is returned by every Engine operation. Message is safe to show to a
// caller; Err holds the underlying storage cause and is meant for logs.
type Error struct {
	Kind    Kind
	Message string
	IDs     []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err. Errors that are not *Error count as
// internal; a nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindInternal
}

// Message returns the caller-facing message of err.
func Message(err error) string {
	var le *Error
	if errors.As(err, &le) {
		return le.Message
	}
	return "internal error"
}

func validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func unauthorized() *Error {
	return &Error{Kind: KindAuth, Message: "invalid trainer password"}
}

func notFound(what string, ids ...string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found: " + strings.Join(ids, ", "), IDs: ids}
}

func conflict(message string, ids ...string) *Error {
	return &Error{Kind: KindConflict, Message: message, IDs: ids}
}

func internal(err error, doing string) *Error {
	return &Error{Kind: KindInternal, Message: "internal error while " + doing, Err: err}
}
