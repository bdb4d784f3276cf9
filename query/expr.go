package query

// Expr is a node in a query's filter-predicate tree. Expressions combine by
// conjunction at the query level; Not and And nest.
type Expr interface {
	isExpr()
}

// eqExpr matches documents whose field equals the value.
type eqExpr struct {
	field string
	value any
}

// inExpr matches documents whose field is a member of the literal list.
type inExpr struct {
	field  string
	values []any
}

// notExpr negates its inner expression.
type notExpr struct {
	inner Expr
}

// andExpr is the conjunction of its terms.
type andExpr struct {
	terms []Expr
}

func (eqExpr) isExpr()  {}
func (inExpr) isExpr()  {}
func (notExpr) isExpr() {}
func (andExpr) isExpr() {}

// Eq matches documents whose field equals v.
func Eq(field string, v any) Expr { return eqExpr{field: field, value: v} }

// In matches documents whose field is one of vs. An empty list matches
// nothing; the compiler short-circuits it to a constant-false predicate that
// never reaches the store.
func In(field string, vs ...any) Expr { return inExpr{field: field, values: vs} }

// NotIn matches documents whose field is none of vs. An empty list matches
// every document.
func NotIn(field string, vs ...any) Expr { return notExpr{inner: inExpr{field: field, values: vs}} }

// Not negates an expression.
func Not(e Expr) Expr { return notExpr{inner: e} }

// And is the conjunction of the given expressions.
func And(es ...Expr) Expr { return andExpr{terms: es} }
