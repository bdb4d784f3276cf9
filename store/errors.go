package store

import "errors"

var (
	// ErrNotFound is returned by the Must* read variants when no document
	// matches.
	ErrNotFound = errors.New("quarry: entity not found")

	// ErrMissingKey is returned when an update or delete runs against an
	// entity whose identity is not known.
	ErrMissingKey = errors.New("quarry: entity identity is not set")

	// ErrImmutableKey is returned when an update change set tries to rewrite
	// the identity field.
	ErrImmutableKey = errors.New("quarry: entity identity is immutable")

	// ErrUntypedWrite is returned when a single-entity write has no
	// collection descriptor. Raw documents go through InsertAll.
	ErrUntypedWrite = errors.New("quarry: single-entity writes require a collection descriptor")
)
