package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Search is the top-level wire document: the element type of the source
// sequence plus the pipeline expressions to apply to it, in order.
//
// Example wire form:
//
//	{
//	  "Type": {"TypeName": "DataModel"},
//	  "Expressions": [
//	    {"$type": "LinqlFunction", "FunctionName": "Where", "Arguments": [...]}
//	  ]
//	}
type Search struct {
	Type        *TypeRef     `json:"Type"`
	Expressions []Expression `json:"Expressions"`
}

// UnmarshalJSON implements json.Unmarshaler for Search. Expressions nested
// deeper than DefaultMaxDepth are rejected.
func (s *Search) UnmarshalJSON(data []byte) error {
	return s.decode(data, DefaultMaxDepth)
}

func (s *Search) decode(data []byte, maxDepth int) error {
	var raw struct {
		Type        *TypeRef          `json:"Type"`
		Expressions []json.RawMessage `json:"Expressions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Type = raw.Type
	s.Expressions = make([]Expression, 0, len(raw.Expressions))
	for i, r := range raw.Expressions {
		e, err := UnmarshalExpressionDepth(r, maxDepth)
		if err != nil {
			return fmt.Errorf("Expressions[%d]: %w", i, err)
		}
		s.Expressions = append(s.Expressions, e)
	}
	return nil
}

// ParseSearch decodes a wire search document, bounding nesting at
// DefaultMaxDepth.
func ParseSearch(data []byte) (*Search, error) {
	return ParseSearchDepth(data, DefaultMaxDepth)
}

// ParseSearchDepth decodes a wire search document, failing with
// EXPRESSION_TOO_DEEP once any expression nests deeper than maxDepth.
func ParseSearchDepth(data []byte, maxDepth int) (*Search, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty search document")
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	s := &Search{}
	if err := s.decode(data, maxDepth); err != nil {
		return nil, fmt.Errorf("parse search: %w", err)
	}
	if s.Type == nil || s.Type.TypeName == "" {
		return nil, fmt.Errorf("parse search: missing Type")
	}
	return s, nil
}

// NewSearch starts an empty search over elements of the named type.
func NewSearch(typeName string, generics ...*TypeRef) *Search {
	return &Search{
		Type:        &TypeRef{TypeName: typeName, GenericParameters: generics},
		Expressions: []Expression{},
	}
}

// Function returns a copy of s with a pipeline step appended.
//
// Like the client library, the step is linked to the end of the first
// expression's Next chain; an empty search gets it as its first
// expression. s itself is never modified.
func (s *Search) Function(name string, args ...Expression) *Search {
	fn := &Function{FunctionName: name, Arguments: args}
	out := s.copy()
	if len(out.Expressions) == 0 {
		out.Expressions = append(out.Expressions, fn)
		return out
	}
	if chained, ok := AppendToChain(out.Expressions[0], fn); ok {
		out.Expressions[0] = chained
		return out
	}
	out.Expressions = append(out.Expressions, fn)
	return out
}

// Where filters elements by a predicate lambda.
func (s *Search) Where(pred *Lambda) *Search { return s.Function("Where", pred) }

// Select projects elements through a selector lambda.
func (s *Search) Select(sel *Lambda) *Search { return s.Function("Select", sel) }

// SelectMany flattens the sequences produced by a selector lambda.
func (s *Search) SelectMany(sel *Lambda) *Search { return s.Function("SelectMany", sel) }

// GroupBy groups elements by a key selector lambda.
func (s *Search) GroupBy(key *Lambda) *Search { return s.Function("GroupBy", key) }

// OrderBy sorts ascending by a key selector lambda.
func (s *Search) OrderBy(key *Lambda) *Search { return s.Function("OrderBy", key) }

// OrderByDescending sorts descending by a key selector lambda.
func (s *Search) OrderByDescending(key *Lambda) *Search {
	return s.Function("OrderByDescending", key)
}

// ThenBy adds an ascending secondary sort key.
func (s *Search) ThenBy(key *Lambda) *Search { return s.Function("ThenBy", key) }

// ThenByDescending adds a descending secondary sort key.
func (s *Search) ThenByDescending(key *Lambda) *Search {
	return s.Function("ThenByDescending", key)
}

// Any tests whether some element satisfies pred.
func (s *Search) Any(pred *Lambda) *Search { return s.Function("Any", pred) }

// All tests whether every element satisfies pred.
func (s *Search) All(pred *Lambda) *Search { return s.Function("All", pred) }

// Distinct removes duplicate elements.
func (s *Search) Distinct() *Search { return s.Function("Distinct") }

// Skip returns a copy of s that bypasses n elements. The step is pushed as
// a new top-level expression, as the client library does.
func (s *Search) Skip(n int) *Search { return s.push("Skip", n) }

// Take returns a copy of s limited to n elements.
func (s *Search) Take(n int) *Search { return s.push("Take", n) }

func (s *Search) push(name string, n int) *Search {
	out := s.copy()
	out.Expressions = append(out.Expressions, &Function{
		FunctionName: name,
		Arguments:    []Expression{Const("Int32", n)},
	})
	return out
}

func (s *Search) copy() *Search {
	exprs := make([]Expression, len(s.Expressions))
	copy(exprs, s.Expressions)
	return &Search{Type: s.Type, Expressions: exprs}
}
