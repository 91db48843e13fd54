package docstore

import "fmt"

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "=="
	OpIn  Op = "in"
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// Filter restricts a query to documents whose field satisfies Op against Value.
// For OpIn, Value is a []any.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Eq matches documents whose field equals v. A nil v matches only fields
// explicitly stored as null, never missing fields.
func Eq(field string, v any) Filter {
	return Filter{Field: field, Op: OpEq, Value: Normalize(v)}
}

// In matches documents whose field equals one of values.
func In[T any](field string, values []T) Filter {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = Normalize(v)
	}
	return Filter{Field: field, Op: OpIn, Value: vs}
}

// Lt, Lte, Gt and Gte are range filters.
func Lt(field string, v any) Filter  { return Filter{Field: field, Op: OpLt, Value: Normalize(v)} }
func Lte(field string, v any) Filter { return Filter{Field: field, Op: OpLte, Value: Normalize(v)} }
func Gt(field string, v any) Filter  { return Filter{Field: field, Op: OpGt, Value: Normalize(v)} }
func Gte(field string, v any) Filter { return Filter{Field: field, Op: OpGte, Value: Normalize(v)} }

// Query describes a filtered, ordered and limited read of one collection.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	// Limit of zero means unbounded.
	Limit int
}

// Validate checks the query against the shared backend limits.
func (q Query) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("docstore: query without collection")
	}
	for _, f := range q.Filters {
		if f.Op != OpIn {
			continue
		}
		vs, _ := f.Value.([]any)
		if len(vs) > MaxInFilter {
			return fmt.Errorf("%w: %d values on %q", ErrTooManyValues, len(vs), f.Field)
		}
	}
	return nil
}

// UpdateKind identifies a field operation.
type UpdateKind int

const (
	UpdateSet UpdateKind = iota
	UpdateArrayUnion
	UpdateArrayRemove
	UpdateIncrement
)

// Update is a single field operation applied by Store.Update.
type Update struct {
	Field  string
	Kind   UpdateKind
	Value  any
	Values []any
}

// Set overwrites one field.
func Set(field string, v any) Update {
	return Update{Field: field, Kind: UpdateSet, Value: Normalize(v)}
}

// ArrayUnion adds values to an array field, skipping members already present.
func ArrayUnion(field string, values ...any) Update {
	return Update{Field: field, Kind: UpdateArrayUnion, Values: normalizeAll(values)}
}

// ArrayRemove removes every occurrence of values from an array field.
func ArrayRemove(field string, values ...any) Update {
	return Update{Field: field, Kind: UpdateArrayRemove, Values: normalizeAll(values)}
}

// Increment adds n to a numeric field, treating a missing field as zero.
func Increment(field string, n int64) Update {
	return Update{Field: field, Kind: UpdateIncrement, Value: n}
}

func normalizeAll(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = Normalize(v)
	}
	return out
}
