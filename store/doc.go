// Package store executes relational-style reads and writes against a
// document store through a transport collaborator.
//
// Reads are described with [github.com/jacentio/quarry/query] values,
// compiled to the store's query language and materialized back into typed
// entities, projected rows or raw field maps. Writes are described with
// change sets: an explicit, ordered list of changed fields over an immutable
// entity snapshot. Only change-set entries are ever persisted; fields
// mutated directly on an entity object are deliberately never written.
//
// # Lifecycle
//
// An entity moves through pending → persisted → deleted. Identity, once
// assigned, is immutable; the revision field and every other
// populate-after-write field is re-read from each write response and
// overwrites whatever the caller held.
//
// # Errors
//
//   - [ErrNotFound] - a must-return-one read matched nothing
//   - [ErrMissingKey] - a write required a known identity
//   - [ErrImmutableKey] - an update tried to change the identity
//   - [ErrUntypedWrite] - a single-entity write without a descriptor
//   - [*ConstraintViolation] - the store rejected a write against a constraint
//
// Compile failures and transport failures propagate unchanged. The store
// never retries and never downgrades one error kind into another.
//
// The Store is stateless and reentrant: calls may run concurrently with no
// coordination, and no locks are held across a store round trip.
package store
