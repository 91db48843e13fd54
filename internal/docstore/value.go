package docstore

import (
	"strings"
	"time"
)

// Normalize converts a Go value to the canonical field representation used
// by every backend: int64 for integers, float64 for floats, UTC time.Time,
// []any for slices and Data for nested maps.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case uint:
		return int64(t)
	case uint32:
		return int64(t)
	case float32:
		return float64(t)
	case time.Time:
		return t.UTC()
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC()
	case *string:
		if t == nil {
			return nil
		}
		return *t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		return Data(t).Clone()
	case Data:
		return t.Clone()
	default:
		return v
	}
}

// Clone deep-copies the document fields.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = Normalize(v)
	}
	return out
}

// Has reports whether the field is present, even if null.
func (d Data) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// String returns a string field or "".
func (d Data) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// OptString returns nil for missing or null fields.
func (d Data) OptString(key string) *string {
	s, ok := d[key].(string)
	if !ok {
		return nil
	}
	return &s
}

// Bool returns a boolean field or false.
func (d Data) Bool(key string) bool {
	b, _ := d[key].(bool)
	return b
}

// Int returns a numeric field as int64.
func (d Data) Int(key string) int64 {
	switch n := d[key].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

// Time returns a timestamp field, accepting RFC 3339 strings as written by
// JSON-backed stores.
func (d Data) Time(key string) time.Time {
	switch t := d[key].(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// OptTime returns nil for missing, null or zero timestamps.
func (d Data) OptTime(key string) *time.Time {
	t := d.Time(key)
	if t.IsZero() {
		return nil
	}
	return &t
}

// Strings returns an array field of strings.
func (d Data) Strings(key string) []string {
	switch arr := d[key].(type) {
	case []any:
		out := make([]string, 0, len(arr))
		for _, e := range arr {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return append([]string{}, arr...)
	}
	return []string{}
}

// Compare orders two canonical values of the same kind. The second result is
// false when the values are not comparable.
func Compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmpOrdered(x, y), true
		case float64:
			return cmpOrdered(float64(x), y), true
		}
	case float64:
		switch y := b.(type) {
		case float64:
			return cmpOrdered(x, y), true
		case int64:
			return cmpOrdered(x, float64(y)), true
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, true
			case !x:
				return -1, true
			default:
				return 1, true
			}
		}
	case nil:
		if b == nil {
			return 0, true
		}
	}
	return 0, false
}

// Equal reports whether two canonical scalar values are equal.
func Equal(a, b any) bool {
	c, ok := Compare(a, b)
	return ok && c == 0
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
