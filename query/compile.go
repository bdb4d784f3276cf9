package query

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/quarry/internal/partiql"
	"github.com/jacentio/quarry/schema"
)

// Compiled is an executable read statement plus its positional parameters.
// Values never appear in the statement text; every scalar binds as a
// type-tagged parameter.
type Compiled struct {
	// Table is the resolved table name, prefix applied.
	Table string

	// Text is the PartiQL statement. Empty when Never is set.
	Text string

	// Params are the positional parameters in text order.
	Params []types.AttributeValue

	// Limit and Offset describe the result window. Limit 0 with a set window
	// is folded into Never; Limit 0 otherwise means unbounded.
	Limit  int
	Offset int

	// ReverseRows is set for trailing-window queries: the ordering was
	// reversed at compile time and the executor must reverse the returned
	// rows to restore the caller's order.
	ReverseRows bool

	// Never marks a query whose predicate is constantly false (e.g. a
	// membership test against an empty list). It yields zero rows without a
	// store round trip.
	Never bool

	// Projection lists the projected fields, nil for whole documents.
	Projection []string

	// Source is the descriptor the rows decode against, nil for untyped.
	Source *schema.Collection
}

// FetchLimit is the row cap sent to the store: wide enough to cover the
// offset, which the store cannot express and the executor trims client-side.
func (c *Compiled) FetchLimit() int {
	if c.Limit == 0 {
		return 0
	}
	return c.Limit + c.Offset
}

// Options adjusts compilation for the executing store.
type Options struct {
	// TablePrefix is prepended to every collection name, resolved once here
	// and never per row.
	TablePrefix string
}

// Compile translates a structured query into an executable statement.
// It is pure: no network, no shared state.
func Compile(q *Query) (*Compiled, error) {
	return CompileWith(q, Options{})
}

// CompileWith is Compile with store-level options applied.
func CompileWith(q *Query, opts Options) (*Compiled, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.source == "" {
		return nil, compileErr("", ErrNoSource)
	}
	if q.namespace != "" {
		return nil, compileErr(q.namespace, ErrUnsupportedNamespace)
	}

	c := &Compiled{
		Table:      opts.TablePrefix + q.source,
		Limit:      q.limit,
		Offset:     q.offset,
		Projection: q.projection,
		Source:     q.desc,
	}

	// A zero limit can never return rows.
	if q.hasLimit && q.limit == 0 {
		c.Never = true
		return c, nil
	}

	for _, f := range q.projection {
		if err := resolveField(q.desc, f); err != nil {
			return nil, err
		}
	}

	where, err := compileFilters(q)
	if err != nil {
		return nil, err
	}
	if where.truth != nil && !*where.truth {
		c.Never = true
		return c, nil
	}

	order := q.order
	if q.reverse {
		if len(order) == 0 {
			// A trailing window over an unordered query orders by identity so
			// the result is deterministic rather than store-dependent.
			order = []Order{{Field: keyField(q.desc), Dir: Asc}}
		}
		reversedOrder := make([]Order, len(order))
		for i, o := range order {
			reversedOrder[i] = Order{Field: o.Field, Dir: o.Dir.reversed()}
		}
		order = reversedOrder
		c.ReverseRows = true
	}
	for _, o := range order {
		if err := resolveField(q.desc, o.Field); err != nil {
			return nil, err
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if len(q.projection) == 0 {
		b.WriteString("*")
	} else {
		for i, f := range q.projection {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(partiql.QuoteIdent(f))
		}
	}
	b.WriteString(" FROM ")
	b.WriteString(partiql.QuoteIdent(c.Table))

	if where.truth == nil && where.text != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where.text)
		c.Params = where.params
	}

	if len(order) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range order {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(partiql.QuoteIdent(o.Field))
			b.WriteString(" ")
			b.WriteString(o.Dir.String())
		}
	}

	c.Text = b.String()
	return c, nil
}

// frag is a rendered boolean fragment. A non-nil truth marks a constant
// predicate that must not reach the store.
type frag struct {
	text   string
	params []types.AttributeValue
	truth  *bool
}

func constFrag(v bool) frag {
	return frag{truth: &v}
}

func compileFilters(q *Query) (frag, error) {
	if len(q.filters) == 0 {
		return frag{}, nil
	}
	// Top-level conjunction, without the parentheses a nested And carries.
	return renderConjunction(q.filters, q.desc, false)
}

func renderConjunction(terms []Expr, desc *schema.Collection, parens bool) (frag, error) {
	var (
		texts  []string
		params []types.AttributeValue
	)
	for _, term := range terms {
		f, err := renderExpr(term, desc)
		if err != nil {
			return frag{}, err
		}
		if f.truth != nil {
			if !*f.truth {
				return constFrag(false), nil
			}
			continue // constant-true terms drop out
		}
		texts = append(texts, f.text)
		params = append(params, f.params...)
	}
	if len(texts) == 0 {
		return constFrag(true), nil
	}
	if len(texts) == 1 {
		return frag{text: texts[0], params: params}, nil
	}
	joined := strings.Join(texts, " AND ")
	if parens {
		joined = "(" + joined + ")"
	}
	return frag{text: joined, params: params}, nil
}

func renderExpr(e Expr, desc *schema.Collection) (frag, error) {
	switch t := e.(type) {
	case eqExpr:
		av, err := bindValue(desc, t.field, t.value)
		if err != nil {
			return frag{}, err
		}
		return frag{
			text:   partiql.QuoteIdent(t.field) + " = ?",
			params: []types.AttributeValue{av},
		}, nil

	case inExpr:
		// Empty membership list: constantly false, no round trip.
		if len(t.values) == 0 {
			return constFrag(false), nil
		}
		params := make([]types.AttributeValue, 0, len(t.values))
		for _, v := range t.values {
			av, err := bindValue(desc, t.field, v)
			if err != nil {
				return frag{}, err
			}
			params = append(params, av)
		}
		// A singleton list is plain equality.
		if len(params) == 1 {
			return frag{
				text:   partiql.QuoteIdent(t.field) + " = ?",
				params: params,
			}, nil
		}
		return frag{
			text:   partiql.QuoteIdent(t.field) + " " + partiql.InList(len(params)),
			params: params,
		}, nil

	case notExpr:
		inner, err := renderExpr(t.inner, desc)
		if err != nil {
			return frag{}, err
		}
		if inner.truth != nil {
			return constFrag(!*inner.truth), nil
		}
		return frag{
			text:   "NOT (" + inner.text + ")",
			params: inner.params,
		}, nil

	case andExpr:
		return renderConjunction(t.terms, desc, true)

	default:
		return frag{}, compileErr("", fmt.Errorf("quarry: unknown filter expression %T", e))
	}
}

// bindValue resolves a field against the query's declared collection (if any)
// and marshals the value into a type-tagged positional parameter. Untyped
// sources resolve fields by name directly against stored documents.
func bindValue(desc *schema.Collection, field string, v any) (types.AttributeValue, error) {
	if err := resolveField(desc, field); err != nil {
		return nil, err
	}
	if desc != nil {
		if f, ok := desc.Field(field); ok && f.Kind != schema.Any {
			norm, err := schema.NormalizeValue(f.Kind, field, v)
			if err != nil {
				return nil, compileErr(field, err)
			}
			v = norm
		}
	}
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return nil, compileErr(field, fmt.Errorf("quarry: marshal value for %q: %w", field, err))
	}
	return av, nil
}

func resolveField(desc *schema.Collection, field string) error {
	if field == "" {
		return compileErr(field, ErrUnknownField)
	}
	if desc == nil {
		return nil
	}
	if _, ok := desc.Field(field); !ok {
		return compileErr(field, ErrUnknownField)
	}
	return nil
}

func keyField(desc *schema.Collection) string {
	if desc != nil {
		return desc.Key()
	}
	return schema.DefaultKeyField
}
