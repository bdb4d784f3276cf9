// Package query builds and compiles structured queries against a document
// store. A Query is assembled incrementally with the builder methods and is
// immutable once compiled; Compile is pure and never touches the network.
package query

import "github.com/jacentio/quarry/schema"

// Dir is an ordering direction.
type Dir int

const (
	Asc Dir = iota
	Desc
)

func (d Dir) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

func (d Dir) reversed() Dir {
	if d == Desc {
		return Asc
	}
	return Desc
}

// Order is one field + direction pair of a query's ordering.
type Order struct {
	Field string
	Dir   Dir
}

// Query is a structured, relational-style query description.
type Query struct {
	source     string
	desc       *schema.Collection
	namespace  string
	filters    []Expr
	projection []string
	order      []Order
	limit      int
	hasLimit   bool
	offset     int
	reverse    bool
	err        error
}

// New starts a query over the named collection. The name is resolved against
// a registry by the store; until then the query is untyped.
func New(source string) *Query {
	return &Query{source: source}
}

// Typed starts a query over a literal collection name paired with a
// descriptor override, for typed decoding without a registered schema name.
func Typed(source string, c *schema.Collection) *Query {
	return &Query{source: source, desc: c}
}

// Bind attaches a descriptor to an untyped query. Used by the store when the
// source name resolves against its registry; a descriptor set via Typed wins.
func (q *Query) Bind(c *schema.Collection) *Query {
	if q.desc == nil {
		q.desc = c
	}
	return q
}

// Clone returns a copy safe to refine without touching the original.
func (q *Query) Clone() *Query {
	cp := *q
	cp.filters = append([]Expr(nil), q.filters...)
	cp.projection = append([]string(nil), q.projection...)
	cp.order = append([]Order(nil), q.order...)
	return &cp
}

// Source returns the collection name the query reads from.
func (q *Query) Source() string { return q.source }

// Collection returns the query's descriptor, or nil for an untyped query.
func (q *Query) Collection() *schema.Collection { return q.desc }

// Namespace scopes the query to a storage namespace. The target store cannot
// express namespaces, so compiling a namespaced query fails; the method
// exists so ported callers fail loudly instead of silently losing the scope.
func (q *Query) Namespace(ns string) *Query {
	q.namespace = ns
	return q
}

// Where adds filter expressions; multiple calls and multiple arguments
// combine by conjunction.
func (q *Query) Where(es ...Expr) *Query {
	q.filters = append(q.filters, es...)
	return q
}

// Select projects specific fields instead of whole documents.
func (q *Query) Select(fields ...string) *Query {
	q.projection = append(q.projection, fields...)
	return q
}

// OrderBy appends a field + direction pair to the ordering.
func (q *Query) OrderBy(field string, dir Dir) *Query {
	q.order = append(q.order, Order{Field: field, Dir: dir})
	return q
}

// Limit caps the number of rows returned.
func (q *Query) Limit(n int) *Query {
	if n < 0 {
		q.recordErr(compileErr("", ErrBadLimit))
		return q
	}
	q.limit = n
	q.hasLimit = true
	return q
}

// Offset skips the first n rows of the ordered result.
func (q *Query) Offset(n int) *Query {
	if n < 0 {
		q.recordErr(compileErr("", ErrBadLimit))
		return q
	}
	q.offset = n
	return q
}

// Reverse selects the trailing window of the ordering without re-specifying
// it: every direction is reversed at compile time and the executor restores
// the original row order client-side.
func (q *Query) Reverse() *Query {
	q.reverse = true
	return q
}

// Reversed reports whether the query selects the trailing window.
func (q *Query) Reversed() bool { return q.reverse }

// recordErr keeps the first builder error; Compile surfaces it.
func (q *Query) recordErr(err error) {
	if q.err == nil {
		q.err = err
	}
}
