// Package sequence provides the default in-memory pipeline.Queryable.
//
// Every stage is lazy: operations compose iterators and nothing runs until
// Seq is ranged over or a terminal operation (Any, All, Count, Contains)
// is called. Ordering and grouping stages buffer their input when
// enumerated.
package sequence

import (
	"fmt"
	"iter"
	"slices"

	"github.com/roach88/linql/internal/catalog"
	"github.com/roach88/linql/internal/pipeline"
)

// Query is a lazy stage over an iterator.
type Query struct {
	seq iter.Seq2[any, error]

	// Set on ordered stages only: the unordered input and the sort keys
	// applied so far, most significant first.
	input iter.Seq2[any, error]
	keys  []sortKey
}

type sortKey struct {
	fn   pipeline.Func
	desc bool
}

var _ pipeline.Queryable = (*Query)(nil)

// FromSlice returns a stage yielding items in order.
func FromSlice(items []any) pipeline.Queryable {
	return From(func(yield func(any, error) bool) {
		for _, v := range items {
			if !yield(v, nil) {
				return
			}
		}
	})
}

// From wraps an iterator.
func From(seq iter.Seq2[any, error]) pipeline.Queryable {
	return &Query{seq: seq}
}

// Source is the pipeline.Source for in-memory slices.
func Source() pipeline.Source {
	return FromSlice
}

// Seq implements pipeline.Queryable.
func (q *Query) Seq() iter.Seq2[any, error] { return q.seq }

// Where implements pipeline.Queryable.
func (q *Query) Where(pred pipeline.Func) pipeline.Queryable {
	src := q.seq
	return From(func(yield func(any, error) bool) {
		for v, err := range src {
			if err != nil {
				yield(nil, err)
				return
			}
			ok, err := test(pred, v)
			if err != nil {
				yield(nil, err)
				return
			}
			if ok && !yield(v, nil) {
				return
			}
		}
	})
}

// Select implements pipeline.Queryable.
func (q *Query) Select(sel pipeline.Func) pipeline.Queryable {
	src := q.seq
	return From(func(yield func(any, error) bool) {
		for v, err := range src {
			if err != nil {
				yield(nil, err)
				return
			}
			out, err := sel(v)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(out, nil) {
				return
			}
		}
	})
}

// SelectMany implements pipeline.Queryable.
func (q *Query) SelectMany(sel pipeline.Func) pipeline.Queryable {
	src := q.seq
	return From(func(yield func(any, error) bool) {
		for v, err := range src {
			if err != nil {
				yield(nil, err)
				return
			}
			out, err := sel(v)
			if err != nil {
				yield(nil, err)
				return
			}
			inner, err := elements(out)
			if err != nil {
				yield(nil, err)
				return
			}
			for item, err := range inner {
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(item, nil) {
					return
				}
			}
		}
	})
}

// GroupBy implements pipeline.Queryable.
func (q *Query) GroupBy(key pipeline.Func) pipeline.Queryable {
	src := q.seq
	return From(func(yield func(any, error) bool) {
		var groups []*catalog.Grouping
		index := make(map[any]int)
		for v, err := range src {
			if err != nil {
				yield(nil, err)
				return
			}
			k, err := key(v)
			if err != nil {
				yield(nil, err)
				return
			}
			hk := catalog.HashKey(k)
			i, ok := index[hk]
			if !ok {
				i = len(groups)
				index[hk] = i
				groups = append(groups, &catalog.Grouping{Key: k})
			}
			groups[i].Items = append(groups[i].Items, v)
		}
		for _, g := range groups {
			if !yield(g, nil) {
				return
			}
		}
	})
}

// OrderBy implements pipeline.Queryable.
func (q *Query) OrderBy(key pipeline.Func, descending bool) pipeline.Queryable {
	return ordered(q.seq, []sortKey{{fn: key, desc: descending}})
}

// ThenBy implements pipeline.Queryable.
func (q *Query) ThenBy(key pipeline.Func, descending bool) (pipeline.Queryable, error) {
	if q.keys == nil {
		return nil, fmt.Errorf("ThenBy requires an ordered sequence")
	}
	keys := append(slices.Clone(q.keys), sortKey{fn: key, desc: descending})
	return ordered(q.input, keys), nil
}

func ordered(input iter.Seq2[any, error], keys []sortKey) *Query {
	return &Query{
		seq:   sorted(input, keys),
		input: input,
		keys:  keys,
	}
}

func sorted(input iter.Seq2[any, error], keys []sortKey) iter.Seq2[any, error] {
	type row struct {
		value any
		keys  []any
	}
	return func(yield func(any, error) bool) {
		var rows []row
		for v, err := range input {
			if err != nil {
				yield(nil, err)
				return
			}
			r := row{value: v, keys: make([]any, len(keys))}
			for i, k := range keys {
				kv, err := k.fn(v)
				if err != nil {
					yield(nil, err)
					return
				}
				r.keys[i] = kv
			}
			rows = append(rows, r)
		}

		var cmpErr error
		slices.SortStableFunc(rows, func(a, b row) int {
			for i, k := range keys {
				c, err := catalog.Compare(a.keys[i], b.keys[i])
				if err != nil {
					if cmpErr == nil {
						cmpErr = err
					}
					return 0
				}
				if c != 0 {
					if k.desc {
						return -c
					}
					return c
				}
			}
			return 0
		})
		if cmpErr != nil {
			yield(nil, cmpErr)
			return
		}

		for _, r := range rows {
			if !yield(r.value, nil) {
				return
			}
		}
	}
}

// Skip implements pipeline.Queryable. Negative counts skip nothing.
func (q *Query) Skip(n int) pipeline.Queryable {
	src := q.seq
	return From(func(yield func(any, error) bool) {
		skipped := 0
		for v, err := range src {
			if err != nil {
				yield(nil, err)
				return
			}
			if skipped < n {
				skipped++
				continue
			}
			if !yield(v, nil) {
				return
			}
		}
	})
}

// Take implements pipeline.Queryable. Non-positive counts yield nothing.
func (q *Query) Take(n int) pipeline.Queryable {
	src := q.seq
	return From(func(yield func(any, error) bool) {
		if n <= 0 {
			return
		}
		taken := 0
		for v, err := range src {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(v, nil) {
				return
			}
			taken++
			if taken >= n {
				return
			}
		}
	})
}

// Distinct implements pipeline.Queryable. The first occurrence of each
// value is kept.
func (q *Query) Distinct() pipeline.Queryable {
	src := q.seq
	return From(func(yield func(any, error) bool) {
		seen := make(map[any]struct{})
		for v, err := range src {
			if err != nil {
				yield(nil, err)
				return
			}
			hk := catalog.HashKey(v)
			if _, dup := seen[hk]; dup {
				continue
			}
			seen[hk] = struct{}{}
			if !yield(v, nil) {
				return
			}
		}
	})
}

// Any implements pipeline.Queryable.
func (q *Query) Any(pred pipeline.Func) (bool, error) {
	for v, err := range q.seq {
		if err != nil {
			return false, err
		}
		if pred == nil {
			return true, nil
		}
		ok, err := test(pred, v)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// All implements pipeline.Queryable. An empty sequence satisfies any
// predicate.
func (q *Query) All(pred pipeline.Func) (bool, error) {
	for v, err := range q.seq {
		if err != nil {
			return false, err
		}
		ok, err := test(pred, v)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Count implements pipeline.Queryable.
func (q *Query) Count(pred pipeline.Func) (int, error) {
	n := 0
	for v, err := range q.seq {
		if err != nil {
			return 0, err
		}
		if pred != nil {
			ok, err := test(pred, v)
			if err != nil {
				return 0, err
			}
			if !ok {
				continue
			}
		}
		n++
	}
	return n, nil
}

// Contains implements pipeline.Queryable.
func (q *Query) Contains(target any) (bool, error) {
	for v, err := range q.seq {
		if err != nil {
			return false, err
		}
		if catalog.Equal(v, target) {
			return true, nil
		}
	}
	return false, nil
}

func test(pred pipeline.Func, v any) (bool, error) {
	out, err := pred(v)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("predicate returned %T, not bool", out)
	}
	return b, nil
}

// elements enumerates a sequence-typed runtime value.
func elements(v any) (iter.Seq2[any, error], error) {
	switch x := v.(type) {
	case []any:
		return FromSlice(x).Seq(), nil
	case *catalog.Grouping:
		return FromSlice(x.Items).Seq(), nil
	case pipeline.Queryable:
		return x.Seq(), nil
	case nil:
		return nil, fmt.Errorf("cannot enumerate null sequence")
	default:
		return nil, fmt.Errorf("cannot enumerate %T", v)
	}
}
