package pipeline

import (
	"iter"
)

// Func is a compiled single-input lambda as seen by a queryable.
type Func func(v any) (any, error)

// Queryable is the collaborator that performs iteration, filtering,
// projection, grouping, sorting and paging. The compiler never enumerates
// data itself; it only applies these operations in order.
//
// Stage-producing operations are lazy: errors raised by a Func surface
// when the result is enumerated. Terminal operations (Any, All, Count,
// Contains) enumerate immediately.
type Queryable interface {
	Where(pred Func) Queryable
	Select(sel Func) Queryable

	// SelectMany flattens the sequence each selector result yields.
	SelectMany(sel Func) Queryable

	// GroupBy yields one *catalog.Grouping per distinct key, in order of
	// first appearance.
	GroupBy(key Func) Queryable

	// OrderBy starts a stable ordering.
	OrderBy(key Func, descending bool) Queryable

	// ThenBy refines the ordering of a stage produced by OrderBy or ThenBy.
	ThenBy(key Func, descending bool) (Queryable, error)

	Skip(n int) Queryable
	Take(n int) Queryable
	Distinct() Queryable

	// Any reports whether any element satisfies pred; nil pred tests
	// for a non-empty sequence.
	Any(pred Func) (bool, error)
	All(pred Func) (bool, error)

	// Count counts elements satisfying pred; nil pred counts all.
	Count(pred Func) (int, error)
	Contains(v any) (bool, error)

	// Seq enumerates the stage. Enumeration stops at the first error.
	Seq() iter.Seq2[any, error]
}

// Source wraps an in-memory slice as a Queryable. The compiler uses it
// when a pipeline function is applied to a List or IGrouping value.
type Source func(items []any) Queryable

// Collect drains q into a slice.
func Collect(q Queryable) ([]any, error) {
	var out []any
	for v, err := range q.Seq() {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

// Materialize drains v if it is a Queryable and returns any other value
// unchanged. Grouping items are already slices and need no draining.
func Materialize(v any) (any, error) {
	q, ok := v.(Queryable)
	if !ok {
		return v, nil
	}
	return Collect(q)
}
