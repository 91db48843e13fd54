package docstore

import (
	"fmt"
	"sort"
)

// Apply returns a copy of data with the updates applied in order. It is the
// reference semantics for backends that evaluate field operations in process.
func Apply(data Data, updates []Update) (Data, error) {
	out := data.Clone()
	if out == nil {
		out = Data{}
	}
	for _, u := range updates {
		switch u.Kind {
		case UpdateSet:
			out[u.Field] = Normalize(u.Value)
		case UpdateArrayUnion:
			arr, err := arrayField(out, u.Field)
			if err != nil {
				return nil, err
			}
			for _, v := range u.Values {
				if !containsValue(arr, v) {
					arr = append(arr, v)
				}
			}
			out[u.Field] = arr
		case UpdateArrayRemove:
			arr, err := arrayField(out, u.Field)
			if err != nil {
				return nil, err
			}
			kept := arr[:0]
			for _, e := range arr {
				if !containsValue(u.Values, e) {
					kept = append(kept, e)
				}
			}
			out[u.Field] = kept
		case UpdateIncrement:
			delta, _ := u.Value.(int64)
			switch cur := out[u.Field].(type) {
			case nil:
				out[u.Field] = delta
			case int64:
				out[u.Field] = cur + delta
			case float64:
				out[u.Field] = cur + float64(delta)
			default:
				return nil, fmt.Errorf("docstore: increment on non-numeric field %q", u.Field)
			}
		default:
			return nil, fmt.Errorf("docstore: unknown update kind %d", u.Kind)
		}
	}
	return out, nil
}

func arrayField(d Data, field string) ([]any, error) {
	switch cur := d[field].(type) {
	case nil:
		return []any{}, nil
	case []any:
		return append([]any(nil), cur...), nil
	default:
		return nil, fmt.Errorf("docstore: array operation on non-array field %q", field)
	}
}

func containsValue(arr []any, v any) bool {
	for _, e := range arr {
		if Equal(e, v) {
			return true
		}
	}
	return false
}

// Matches reports whether the document satisfies every filter.
func Matches(d Data, filters []Filter) bool {
	for _, f := range filters {
		v, present := d[f.Field]
		if !present {
			return false
		}
		switch f.Op {
		case OpEq:
			if !Equal(v, f.Value) {
				return false
			}
		case OpIn:
			vs, _ := f.Value.([]any)
			if !containsValue(vs, v) {
				return false
			}
		default:
			c, ok := Compare(v, f.Value)
			if !ok {
				return false
			}
			switch f.Op {
			case OpLt:
				if c >= 0 {
					return false
				}
			case OpLte:
				if c > 0 {
					return false
				}
			case OpGt:
				if c <= 0 {
					return false
				}
			case OpGte:
				if c < 0 {
					return false
				}
			}
		}
	}
	return true
}

// Evaluate filters, orders and limits docs according to q. Without OrderBy the
// input order is kept. The input slice is not modified.
func Evaluate(docs []Doc, q Query) []Doc {
	out := make([]Doc, 0, len(docs))
	for _, d := range docs {
		if q.OrderBy != "" && !d.Data.Has(q.OrderBy) {
			continue
		}
		if Matches(d.Data, q.Filters) {
			out = append(out, d)
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c, _ := Compare(out[i].Data[q.OrderBy], out[j].Data[q.OrderBy])
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
