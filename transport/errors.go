package transport

import (
	"errors"
	"fmt"
)

// Code classifies a transport failure.
type Code int

const (
	// CodeInternal is any store or network failure that is neither a missing
	// document nor a constraint conflict.
	CodeInternal Code = iota

	// CodeNotFound means the addressed document (or table) does not exist.
	CodeNotFound

	// CodeConflict means the store rejected a write against a constraint,
	// e.g. a duplicate identity.
	CodeConflict
)

func (c Code) String() string {
	switch c {
	case CodeNotFound:
		return "not_found"
	case CodeConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified transport failure.
type Error struct {
	Code Code

	// Detail carries store-specific context, e.g. the implicated fields of a
	// conflict or the index of the failing batch item.
	Detail string

	// Fields are the attribute names implicated in a conflict, when the
	// store reports them.
	Fields []string

	cause error
}

// NewError builds a classified transport error wrapping its cause.
func NewError(code Code, detail string, cause error) *Error {
	return &Error{Code: code, Detail: detail, cause: cause}
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("transport: %s: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("transport: %s", e.Code)
}

func (e *Error) Unwrap() error { return e.cause }

// IsConflict reports whether err is a transport constraint conflict.
func IsConflict(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Code == CodeConflict
}

// IsNotFound reports whether err is a transport not-found failure.
func IsNotFound(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Code == CodeNotFound
}
