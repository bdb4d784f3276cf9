package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jacentio/quarry/schema"
	"github.com/jacentio/quarry/transport"
)

// ConstraintViolation reports a write the store rejected against a
// constraint. It always carries the violation kind; it carries the declared
// constraint name only when the caller declared one covering the implicated
// fields. A missing declaration degrades the message, never the detection.
type ConstraintViolation struct {
	// Kind is the violation class reported by the store, e.g. "unique".
	Kind string

	// Constraint is the declared constraint name, or "" when none covers the
	// implicated fields.
	Constraint string

	// Fields are the implicated field names, when known.
	Fields []string

	// Detail is the store's own description of the conflict.
	Detail string

	cause error
}

func (v *ConstraintViolation) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "quarry: %s constraint violated", v.Kind)
	if len(v.Fields) > 0 {
		fmt.Fprintf(&b, " on (%s)", strings.Join(v.Fields, ", "))
	}
	if v.Constraint != "" {
		fmt.Fprintf(&b, ": constraint %q", v.Constraint)
	} else {
		b.WriteString(": no constraint declared")
	}
	if v.Detail != "" {
		fmt.Fprintf(&b, " (%s)", v.Detail)
	}
	return b.String()
}

func (v *ConstraintViolation) Unwrap() error { return v.cause }

// translateConstraint maps a transport conflict to a ConstraintViolation,
// naming the declared constraint when one covers the implicated fields.
// Every other error passes through unmodified: a validation or transport
// failure is never mistaken for a constraint violation.
func translateConstraint(err error, coll *schema.Collection) error {
	var te *transport.Error
	if !errors.As(err, &te) || te.Code != transport.CodeConflict {
		return err
	}

	v := &ConstraintViolation{
		Kind:   "unique",
		Fields: te.Fields,
		Detail: te.Detail,
		cause:  err,
	}
	if len(v.Fields) == 0 && coll != nil {
		// The store reports identity conflicts without naming the attribute.
		v.Fields = []string{coll.Key()}
	}
	if coll != nil {
		if c := coll.ConstraintFor(v.Fields...); c != nil {
			v.Constraint = c.Name
			if c.Kind != "" {
				v.Kind = c.Kind
			}
		}
	}
	return v
}
