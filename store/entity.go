package store

import (
	"github.com/jacentio/quarry/schema"
)

// State is an entity's lifecycle marker.
type State int

const (
	// Pending means the entity has not been persisted.
	Pending State = iota

	// Persisted means the entity reflects a successful write or read.
	Persisted

	// Deleted means the entity was removed from the store.
	Deleted
)

func (s State) String() string {
	switch s {
	case Persisted:
		return "persisted"
	case Deleted:
		return "deleted"
	default:
		return "pending"
	}
}

// Row is a materialized document or projection: field name to decoded value.
type Row map[string]any

// Entity is an immutable snapshot of one document. Writes never mutate an
// Entity in place; the executor returns a new snapshot with the write
// response merged in.
type Entity struct {
	// Collection is the descriptor the entity decodes against, nil for raw
	// documents read from an untyped source.
	Collection *schema.Collection

	// Fields holds the entity's field values.
	Fields Row

	// State is the lifecycle marker.
	State State
}

// NewEntity creates a pending entity for a collection with the given default
// field values. The defaults participate in inserts only where the change
// set does not override them.
func NewEntity(c *schema.Collection, defaults Row) *Entity {
	fields := make(Row, len(defaults))
	for k, v := range defaults {
		fields[k] = v
	}
	return &Entity{Collection: c, Fields: fields}
}

// Key returns the entity's identity value, or nil if not yet assigned.
func (e *Entity) Key() any {
	if e.Collection == nil {
		return e.Fields[schema.DefaultKeyField]
	}
	return e.Fields[e.Collection.Key()]
}

// Rev returns the entity's revision token, or nil.
func (e *Entity) Rev() any {
	if e.Collection == nil {
		return e.Fields[schema.DefaultRevField]
	}
	rev := e.Collection.Rev()
	if rev == "" {
		return nil
	}
	return e.Fields[rev]
}

// clone copies the snapshot so merged-back writes never alias the original.
func (e *Entity) clone() *Entity {
	fields := make(Row, len(e.Fields))
	for k, v := range e.Fields {
		fields[k] = v
	}
	return &Entity{Collection: e.Collection, Fields: fields, State: e.State}
}

// Change is one (field, new value) pair of a change set.
type Change struct {
	Field string
	Value any
}

// Changeset is the ordered list of fields the caller explicitly changed for
// one write attempt. It is created per attempt and discarded afterwards; the
// executor never inspects the entity's live field values for an update, only
// this list.
type Changeset struct {
	entity    *Entity
	changes   []Change
	changed   map[string]int
	namespace string
}

// NewChangeset starts a change set over an entity snapshot.
func NewChangeset(e *Entity) *Changeset {
	return &Changeset{entity: e, changed: make(map[string]int)}
}

// Set records a changed field. Setting the same field again replaces the
// earlier value while keeping its position in the order.
func (cs *Changeset) Set(field string, value any) *Changeset {
	if i, ok := cs.changed[field]; ok {
		cs.changes[i].Value = value
		return cs
	}
	cs.changed[field] = len(cs.changes)
	cs.changes = append(cs.changes, Change{Field: field, Value: value})
	return cs
}

// Namespace scopes the write to a storage namespace. Mirrors the query
// compiler: the target store cannot express namespaces, so the write fails
// before any network call.
func (cs *Changeset) Namespace(ns string) *Changeset {
	cs.namespace = ns
	return cs
}

// Changes returns the recorded changes in order.
func (cs *Changeset) Changes() []Change { return cs.changes }

// Entity returns the snapshot the change set was built over.
func (cs *Changeset) Entity() *Entity { return cs.entity }
