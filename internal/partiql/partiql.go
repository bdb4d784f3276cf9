// Package partiql renders PartiQL statement fragments.
package partiql

import "strings"

// QuoteIdent quotes a table or attribute name for use in a statement.
// Embedded quotes are doubled per the PartiQL grammar.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Placeholders renders n positional parameter markers joined by ", ".
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// InList renders an IN list of n positional markers: "IN [?, ?]".
func InList(n int) string {
	return "IN [" + Placeholders(n) + "]"
}
