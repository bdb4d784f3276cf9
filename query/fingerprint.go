package query

import (
	"fmt"
	"strings"
)

// Fingerprint returns a canonical string identifying the query: source,
// filter structure, bound values, projection, ordering and window. Two
// queries with equal fingerprints compile identically, which makes the
// fingerprint usable as a plan-cache key.
func (q *Query) Fingerprint() string {
	var b strings.Builder
	b.WriteString(q.source)
	if q.desc != nil {
		fmt.Fprintf(&b, "|desc:%s", q.desc.Name)
	}
	if q.namespace != "" {
		fmt.Fprintf(&b, "|ns:%s", q.namespace)
	}
	for _, f := range q.filters {
		b.WriteString("|w:")
		fingerprintExpr(&b, f)
	}
	if len(q.projection) > 0 {
		fmt.Fprintf(&b, "|sel:%s", strings.Join(q.projection, ","))
	}
	for _, o := range q.order {
		fmt.Fprintf(&b, "|ord:%s:%s", o.Field, o.Dir)
	}
	if q.hasLimit {
		fmt.Fprintf(&b, "|lim:%d", q.limit)
	}
	if q.offset > 0 {
		fmt.Fprintf(&b, "|off:%d", q.offset)
	}
	if q.reverse {
		b.WriteString("|rev")
	}
	return b.String()
}

func fingerprintExpr(b *strings.Builder, e Expr) {
	switch t := e.(type) {
	case eqExpr:
		fmt.Fprintf(b, "eq(%s,%T:%v)", t.field, t.value, t.value)
	case inExpr:
		fmt.Fprintf(b, "in(%s", t.field)
		for _, v := range t.values {
			fmt.Fprintf(b, ",%T:%v", v, v)
		}
		b.WriteString(")")
	case notExpr:
		b.WriteString("not(")
		fingerprintExpr(b, t.inner)
		b.WriteString(")")
	case andExpr:
		b.WriteString("and(")
		for i, term := range t.terms {
			if i > 0 {
				b.WriteString(",")
			}
			fingerprintExpr(b, term)
		}
		b.WriteString(")")
	}
}
