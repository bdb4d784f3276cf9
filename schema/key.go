package schema

import (
	"fmt"
	"strconv"
)

// NormalizeKey coerces a caller-supplied identity value to the collection's
// declared identity kind. String forms of numeric identities are accepted, so
// a lookup by "42" behaves identically to a lookup by 42.
func NormalizeKey(c *Collection, v any) (any, error) {
	if err := c.normalize(); err != nil {
		return nil, err
	}
	return NormalizeValue(c.KeyKind, c.KeyField, v)
}

// NormalizeValue coerces v to the given kind, accepting the string form of
// numeric and boolean values.
func NormalizeValue(kind Kind, field string, v any) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("schema: nil value for field %q", field)
	}
	switch kind {
	case Any:
		return v, nil
	case String:
		switch t := v.(type) {
		case string:
			return t, nil
		case int:
			return strconv.Itoa(t), nil
		case int32:
			return strconv.FormatInt(int64(t), 10), nil
		case int64:
			return strconv.FormatInt(t, 10), nil
		}
	case Int:
		switch t := v.(type) {
		case int:
			return int64(t), nil
		case int32:
			return int64(t), nil
		case int64:
			return t, nil
		case float64:
			if t == float64(int64(t)) {
				return int64(t), nil
			}
		case string:
			if n, err := strconv.ParseInt(t, 10, 64); err == nil {
				return n, nil
			}
		}
	case Float:
		switch t := v.(type) {
		case float32:
			return float64(t), nil
		case float64:
			return t, nil
		case int:
			return float64(t), nil
		case int32:
			return float64(t), nil
		case int64:
			return float64(t), nil
		case string:
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return f, nil
			}
		}
	case Bool:
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			if b, err := strconv.ParseBool(t); err == nil {
				return b, nil
			}
		}
	}
	return nil, fmt.Errorf("schema: cannot use %T value as %s field %q", v, kind, field)
}
