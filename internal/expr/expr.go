// Package expr is the executable form of a compiled Linql expression.
//
// Nodes carry their static type, resolved once by the compiler, and
// evaluate against an Env of parameter bindings. Parameters are compared
// by identity: every reference to a lambda parameter inside the lambda's
// body points at the same *Parameter.
package expr

import (
	"github.com/roach88/linql/internal/catalog"
	"github.com/roach88/linql/internal/pipeline"
	"github.com/roach88/linql/internal/qerr"
)

// Expr is a compiled expression.
type Expr interface {
	// Type returns the static result type.
	Type() *catalog.Type

	// Eval computes the value under env.
	Eval(env *Env) (any, error)
}

// Env is an immutable chain of parameter bindings.
type Env struct {
	param  *Parameter
	value  any
	parent *Env
}

// Bind returns a child environment binding p to v. A nil receiver is
// the empty environment.
func (e *Env) Bind(p *Parameter, v any) *Env {
	return &Env{param: p, value: v, parent: e}
}

// Lookup finds the innermost binding of p.
func (e *Env) Lookup(p *Parameter) (any, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.param == p {
			return cur.value, true
		}
	}
	return nil, false
}

// Literal is a constant value.
type Literal struct {
	typ   *catalog.Type
	Value any
}

// NewLiteral creates a literal of type t.
func NewLiteral(t *catalog.Type, v any) *Literal {
	return &Literal{typ: t, Value: v}
}

func (l *Literal) Type() *catalog.Type { return l.typ }

func (l *Literal) Eval(*Env) (any, error) { return l.Value, nil }

// Parameter is a lambda parameter.
type Parameter struct {
	Name string
	typ  *catalog.Type
}

// NewParameter creates a parameter of type t.
func NewParameter(name string, t *catalog.Type) *Parameter {
	return &Parameter{Name: name, typ: t}
}

func (p *Parameter) Type() *catalog.Type { return p.typ }

func (p *Parameter) Eval(env *Env) (any, error) {
	v, ok := env.Lookup(p)
	if !ok {
		return nil, qerr.New(qerr.CodeEvaluation, "parameter %q is not bound", p.Name)
	}
	return v, nil
}

// Member reads a field or property from Base.
type Member struct {
	Base   Expr
	Member *catalog.Member
}

func (m *Member) Type() *catalog.Type { return m.Member.Type }

func (m *Member) Eval(env *Env) (any, error) {
	base, err := m.Base.Eval(env)
	if err != nil {
		return nil, err
	}
	v, err := m.Member.Get(base)
	if err != nil {
		return nil, qerr.Wrap(qerr.CodeEvaluation, err, "reading %s", m.Member.Name)
	}
	return v, nil
}

// Lambda is a single-input function. Evaluating it captures the current
// environment in a Closure.
type Lambda struct {
	Params []*Parameter
	Body   Expr
	typ    *catalog.Type
}

// NewLambda creates a lambda typed Func<param, body>.
func NewLambda(params []*Parameter, body Expr) *Lambda {
	in := catalog.Object
	if len(params) > 0 {
		in = params[0].typ
	}
	return &Lambda{Params: params, Body: body, typ: catalog.FuncOf(in, body.Type())}
}

func (l *Lambda) Type() *catalog.Type { return l.typ }

func (l *Lambda) Eval(env *Env) (any, error) {
	return &Closure{lambda: l, env: env}, nil
}

// Closure is an evaluated lambda bound to its defining environment.
type Closure struct {
	lambda *Lambda
	env    *Env
}

// Invoke applies the closure to one argument.
func (c *Closure) Invoke(v any) (any, error) {
	env := c.env
	if len(c.lambda.Params) > 0 {
		env = env.Bind(c.lambda.Params[0], v)
	}
	return c.lambda.Body.Eval(env)
}

// Func adapts the closure for a queryable.
func (c *Closure) Func() pipeline.Func { return c.Invoke }
