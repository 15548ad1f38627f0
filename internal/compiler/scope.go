package compiler

import (
	"fmt"
	"sort"

	"github.com/roach88/linql/internal/expr"
)

// BinaryScope controls what the right operand of a Binary node sees of
// the parameters registered while compiling the left operand.
type BinaryScope string

const (
	// IsolatedBinaryScope compiles both operands against the incoming
	// scope (default).
	IsolatedBinaryScope BinaryScope = "isolated"

	// SharedBinaryScope compiles the right operand against the scope the
	// left operand produced, so a lambda parameter declared on the left
	// is reused by a same-named parameter on the right.
	SharedBinaryScope BinaryScope = "shared"
)

// ParseBinaryScope validates a policy name. Empty selects the default.
func ParseBinaryScope(s string) (BinaryScope, error) {
	switch BinaryScope(s) {
	case IsolatedBinaryScope, SharedBinaryScope:
		return BinaryScope(s), nil
	case "":
		return IsolatedBinaryScope, nil
	default:
		return "", fmt.Errorf("invalid binary scope %q: must be isolated or shared", s)
	}
}

// Scope is an immutable mapping from parameter names to bound parameters.
// Bind returns a new scope; the receiver is unchanged, so a scope can be
// handed to sibling compilations without copying. A nil *Scope is the
// empty scope.
type Scope struct {
	name   string
	param  *expr.Parameter
	parent *Scope
}

// NewScope returns an empty scope.
func NewScope() *Scope { return nil }

// Bind returns a scope where name resolves to p.
func (s *Scope) Bind(name string, p *expr.Parameter) *Scope {
	return &Scope{name: name, param: p, parent: s}
}

// Lookup returns the innermost parameter bound to name.
func (s *Scope) Lookup(name string) (*expr.Parameter, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.name == name {
			return cur.param, true
		}
	}
	return nil, false
}

// Names lists the visible names in sorted order.
func (s *Scope) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for cur := s; cur != nil; cur = cur.parent {
		if !seen[cur.name] {
			seen[cur.name] = true
			names = append(names, cur.name)
		}
	}
	sort.Strings(names)
	return names
}

// Len reports the number of bindings, shadowed ones included.
func (s *Scope) Len() int {
	n := 0
	for cur := s; cur != nil; cur = cur.parent {
		n++
	}
	return n
}

// merge layers the bindings other added on top of base onto s. other
// must descend from base; bindings are re-applied oldest first.
func (s *Scope) merge(other, base *Scope) *Scope {
	var added []*Scope
	for cur := other; cur != nil && cur != base; cur = cur.parent {
		added = append(added, cur)
	}
	out := s
	for i := len(added) - 1; i >= 0; i-- {
		out = out.Bind(added[i].name, added[i].param)
	}
	return out
}
