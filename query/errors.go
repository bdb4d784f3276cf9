package query

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedNamespace is returned when a query or write names a
	// storage namespace. The engine cannot express namespaces in the target
	// store and fails loudly rather than silently ignoring one.
	ErrUnsupportedNamespace = errors.New("quarry: storage namespaces are not supported by the target store")

	// ErrUnknownField is returned when a filter, projection or ordering
	// names a field the query's declared collection does not have.
	ErrUnknownField = errors.New("quarry: unknown field")

	// ErrBadLimit is returned for a negative limit or offset.
	ErrBadLimit = errors.New("quarry: limit and offset must be >= 0")

	// ErrNoSource is returned when a query has no collection source.
	ErrNoSource = errors.New("quarry: query has no source collection")
)

// CompileError reports a malformed query. It is always raised before any
// network call; a query that fails to compile is never partially executed.
type CompileError struct {
	// Element is the offending query element, e.g. a field or namespace name.
	Element string

	err error
}

func compileErr(element string, err error) *CompileError {
	return &CompileError{Element: element, err: err}
}

func (e *CompileError) Error() string {
	if e.Element != "" {
		return fmt.Sprintf("%s: %q", e.err, e.Element)
	}
	return e.err.Error()
}

func (e *CompileError) Unwrap() error { return e.err }
