// Package apperr defines the failure taxonomy exposed by the sync layer.
// Gateway and store operations classify every underlying failure into one
// of these kinds; raw transport errors never reach a consumer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies a failure class.
type Kind string

const (
	KindNetworkUnreachable Kind = "network-unreachable"
	KindTimeout            Kind = "timeout"
	KindNotFound           Kind = "not-found"
	KindServerError        Kind = "server-error"
	KindValidation         Kind = "validation"
	KindConflict           Kind = "conflict"
)

// Error is a classified failure with a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of a classified error, or an empty kind for
// unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Kind("")
}

// IsTransient reports whether the error is a transient transport failure
// that counts toward the unavailable escalation.
func IsTransient(err error) bool {
	k := KindOf(err)
	return k == KindNetworkUnreachable || k == KindTimeout
}

// IsNotFound reports whether the error is a not-found failure.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsValidation reports whether the error is a validation failure.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsConflict reports whether the error is a conflict or stale-write failure.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }
