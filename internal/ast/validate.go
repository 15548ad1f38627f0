package ast

import (
	"github.com/roach88/linql/internal/qerr"
)

// DefaultMaxDepth bounds tree depth when the caller does not choose one.
const DefaultMaxDepth = 256

// Validate checks the structural invariants of a tree before compilation:
//  1. No node is reachable from itself (Next chains and child edges are acyclic)
//  2. No type descriptor contains itself
//  3. Nesting does not exceed maxDepth (DefaultMaxDepth when maxDepth <= 0)
//
// Shared subtrees are allowed; only cycles are rejected.
// Validate is a pure function with no side effects.
func Validate(e Expression, maxDepth int) error {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	v := &validator{
		maxDepth: maxDepth,
		onPath:   make(map[Expression]bool),
		typePath: make(map[*TypeRef]bool),
	}
	return v.walk(e, 0)
}

// ValidateSearch validates the search type and every top-level expression.
func ValidateSearch(s *Search, maxDepth int) error {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	v := &validator{
		maxDepth: maxDepth,
		onPath:   make(map[Expression]bool),
		typePath: make(map[*TypeRef]bool),
	}
	if err := v.walkType(s.Type, 0); err != nil {
		return err
	}
	for _, e := range s.Expressions {
		if err := v.walk(e, 0); err != nil {
			return err
		}
	}
	return nil
}

// validator tracks the current DFS path for cycle detection.
type validator struct {
	maxDepth int
	onPath   map[Expression]bool
	typePath map[*TypeRef]bool
}

func (v *validator) walk(e Expression, depth int) error {
	if IsNil(e) {
		return nil
	}
	if depth > v.maxDepth {
		return qerr.New(qerr.CodeExpressionTooDeep, "expression nesting exceeds %d", v.maxDepth).At(KindOf(e))
	}
	if v.onPath[e] {
		return qerr.New(qerr.CodeCyclicExpression, "expression tree contains a cycle").At(KindOf(e))
	}
	v.onPath[e] = true
	defer delete(v.onPath, e)

	for _, t := range typesOf(e) {
		if err := v.walkType(t, depth+1); err != nil {
			return err
		}
	}
	for _, child := range childrenOf(e) {
		if err := v.walk(child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) walkType(t *TypeRef, depth int) error {
	if t == nil {
		return nil
	}
	if depth > v.maxDepth {
		return qerr.New(qerr.CodeExpressionTooDeep, "type descriptor nesting exceeds %d", v.maxDepth)
	}
	if v.typePath[t] {
		return qerr.New(qerr.CodeCyclicExpression, "type descriptor %q contains itself", t.TypeName)
	}
	v.typePath[t] = true
	defer delete(v.typePath, t)

	for _, g := range t.GenericParameters {
		if err := v.walkType(g, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// childrenOf lists the expression edges of e, continuation last.
func childrenOf(e Expression) []Expression {
	switch n := e.(type) {
	case *Constant:
		return nil
	case *Object:
		return []Expression{n.Next}
	case *Parameter:
		return []Expression{n.Next}
	case *Property:
		return []Expression{n.Next}
	case *Binary:
		return []Expression{n.Left, n.Right}
	case *Unary:
		return []Expression{n.Operand, n.Next}
	case *Lambda:
		out := make([]Expression, 0, len(n.Parameters)+1)
		for _, p := range n.Parameters {
			if p != nil {
				out = append(out, p)
			}
		}
		return append(out, n.Body)
	case *Function:
		out := make([]Expression, 0, len(n.Arguments)+1)
		out = append(out, n.Arguments...)
		return append(out, n.Next)
	default:
		return nil
	}
}

func typesOf(e Expression) []*TypeRef {
	switch n := e.(type) {
	case *Constant:
		return []*TypeRef{n.ConstantType}
	case *Object:
		return []*TypeRef{n.Type}
	default:
		return nil
	}
}

// IsNil reports whether e is nil or a typed nil node pointer.
func IsNil(e Expression) bool {
	switch n := e.(type) {
	case nil:
		return true
	case *Constant:
		return n == nil
	case *Object:
		return n == nil
	case *Parameter:
		return n == nil
	case *Property:
		return n == nil
	case *Binary:
		return n == nil
	case *Unary:
		return n == nil
	case *Lambda:
		return n == nil
	case *Function:
		return n == nil
	default:
		return false
	}
}
