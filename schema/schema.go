// Package schema defines collection descriptors for the quarry engine.
//
// A Collection maps a logical name to a set of typed fields and designates
// the identity field, the revision field, and any fields whose value is only
// known after the store processes a write. Descriptors are immutable once
// registered; queries and writes that name a registered collection are
// resolved against its descriptor exactly once, at compile time.
package schema

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultKeyField is the document identity attribute.
const DefaultKeyField = "_key"

// DefaultRevField is the opaque revision attribute assigned on every write.
const DefaultRevField = "_rev"

// Kind is the declared type of a field.
type Kind int

const (
	// Any accepts whatever value the caller supplies.
	Any Kind = iota
	String
	Int
	Float
	Bool
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	default:
		return "any"
	}
}

// Field is a single declared field of a collection.
type Field struct {
	Name string
	Kind Kind
}

// Constraint names a store-side constraint over a set of fields.
// Constraints are declarative only: they improve the error reported when the
// store rejects a write, they do not add enforcement of their own.
type Constraint struct {
	// Name is the caller-facing constraint name (e.g. "users_email_unique").
	Name string

	// Kind describes the violation class, e.g. "unique".
	Kind string

	// Fields are the implicated field names.
	Fields []string
}

// Covers reports whether the constraint's field set contains every given field.
func (c Constraint) Covers(fields ...string) bool {
	for _, want := range fields {
		found := false
		for _, f := range c.Fields {
			if f == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return len(fields) > 0
}

// Collection describes one logical collection of documents.
type Collection struct {
	// Name is the collection (table) name, resolved once at registration.
	Name string

	// Fields are the declared fields in declaration order. Fields do not
	// include KeyField or RevField unless the caller lists them explicitly;
	// both are always resolvable by name regardless.
	Fields []Field

	// KeyField is the identity attribute. Empty means DefaultKeyField.
	KeyField string

	// KeyKind is the declared identity type. String when unset.
	KeyKind Kind

	// RevField is the revision attribute, reassigned by the store on every
	// successful write. Empty means DefaultRevField; set to "-" to disable.
	RevField string

	// PopulateAfterWrite lists fields whose authoritative value is only known
	// after a write (server timestamps and the like). The revision field is
	// always treated as populate-after-write and need not be listed.
	PopulateAfterWrite []string

	// Constraints are the declared store-side constraints.
	Constraints []Constraint

	norm    sync.Once
	normErr error
	fields  map[string]Field
}

// NoRevision disables the revision field for a collection.
const NoRevision = "-"

// normalize fills defaults and builds the field index exactly once. Called by
// the registry; hand-built descriptors passed to query.Typed go through it
// lazily, possibly from concurrent compiles, so the one-time write is guarded.
func (c *Collection) normalize() error {
	c.norm.Do(func() { c.normErr = c.initDefaults() })
	return c.normErr
}

func (c *Collection) initDefaults() error {
	if c.Name == "" {
		return fmt.Errorf("schema: collection name is required")
	}
	if c.KeyField == "" {
		c.KeyField = DefaultKeyField
	}
	if c.KeyKind == Any {
		c.KeyKind = String
	}
	if c.RevField == "" {
		c.RevField = DefaultRevField
	}
	c.fields = make(map[string]Field, len(c.Fields)+2)
	for _, f := range c.Fields {
		if _, dup := c.fields[f.Name]; dup {
			return fmt.Errorf("schema: collection %q declares field %q twice", c.Name, f.Name)
		}
		c.fields[f.Name] = f
	}
	c.fields[c.KeyField] = Field{Name: c.KeyField, Kind: c.KeyKind}
	if c.HasRevision() {
		c.fields[c.RevField] = Field{Name: c.RevField, Kind: String}
	}
	return nil
}

// HasRevision reports whether the collection carries a revision field.
func (c *Collection) HasRevision() bool {
	return c.RevField != NoRevision
}

// Key returns the identity field name with defaults applied.
func (c *Collection) Key() string {
	_ = c.normalize()
	return c.KeyField
}

// Rev returns the revision field name with defaults applied, or "" when the
// collection has no revision field.
func (c *Collection) Rev() string {
	_ = c.normalize()
	if !c.HasRevision() {
		return ""
	}
	return c.RevField
}

// Field returns the declared field by name. The identity and revision fields
// resolve like any declared field.
func (c *Collection) Field(name string) (Field, bool) {
	if err := c.normalize(); err != nil {
		return Field{}, false
	}
	f, ok := c.fields[name]
	return f, ok
}

// Populated returns the full populate-after-write field set, revision
// included, in stable order.
func (c *Collection) Populated() []string {
	_ = c.normalize()
	set := map[string]struct{}{}
	if c.HasRevision() {
		set[c.RevField] = struct{}{}
	}
	for _, f := range c.PopulateAfterWrite {
		set[f] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// ConstraintFor returns the first declared constraint covering all given
// fields, or nil when none is declared.
func (c *Collection) ConstraintFor(fields ...string) *Constraint {
	for i := range c.Constraints {
		if c.Constraints[i].Covers(fields...) {
			return &c.Constraints[i]
		}
	}
	return nil
}
