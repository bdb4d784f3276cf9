package store

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/jacentio/quarry/query"
	"github.com/jacentio/quarry/schema"
	"github.com/jacentio/quarry/transport"
)

// decodeRow converts one store row into a materialized field map.
func decodeRow(raw transport.Row) (Row, error) {
	out := map[string]any{}
	if err := attributevalue.UnmarshalMap(raw, &out); err != nil {
		return nil, fmt.Errorf("quarry: decode row: %w", err)
	}
	return out, nil
}

// materializeEntity maps a store row to an entity. With a declared shape only
// declared fields are kept and unknown document fields are ignored; without
// one the raw field map is carried as-is.
func materializeEntity(raw transport.Row, desc *schema.Collection) (*Entity, error) {
	fields, err := decodeRow(raw)
	if err != nil {
		return nil, err
	}
	if desc != nil {
		declared := make(Row, len(fields))
		for k, v := range fields {
			if _, ok := desc.Field(k); ok {
				declared[k] = v
			}
		}
		fields = declared
	}
	return &Entity{Collection: desc, Fields: fields, State: Persisted}, nil
}

// materializeRows applies the compiled window corrections to raw rows:
// client-side offset trim, limit, and the second half of the trailing-window
// double reversal. Store row order is preserved otherwise.
func materializeRows(raw []transport.Row, c *query.Compiled) []transport.Row {
	rows := raw
	if c.Offset > 0 {
		if c.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[c.Offset:]
		}
	}
	if c.Limit > 0 && len(rows) > c.Limit {
		rows = rows[:c.Limit]
	}
	if c.ReverseRows {
		reversed := make([]transport.Row, len(rows))
		for i, r := range rows {
			reversed[len(rows)-1-i] = r
		}
		rows = reversed
	}
	return rows
}

// projectRow keeps only the projected fields of a materialized row.
func projectRow(fields Row, projection []string) Row {
	if len(projection) == 0 {
		return fields
	}
	out := make(Row, len(projection))
	for _, f := range projection {
		if v, ok := fields[f]; ok {
			out[f] = v
		}
	}
	return out
}
