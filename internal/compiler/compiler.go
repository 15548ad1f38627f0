// Package compiler turns a Linql wire tree into an executable pipeline.
//
// Compilation is a recursive descent over the sealed ast node set. Each
// step receives the node, the input type lambdas bind their parameter to,
// the current Scope, and the expression the node continues (its base).
// It returns the compiled expression and the scope after the node, which
// includes any lambda parameters the node registered. Compilation is
// fail-fast: the first error aborts and no partial result is returned.
//
// The compiler performs no I/O and never enumerates data; execution is
// left to the pipeline.Queryable the search is applied to.
package compiler

import (
	"io"
	"log/slog"
	"time"

	"github.com/roach88/linql/internal/ast"
	"github.com/roach88/linql/internal/catalog"
	"github.com/roach88/linql/internal/expr"
	"github.com/roach88/linql/internal/metrics"
	"github.com/roach88/linql/internal/pipeline"
	"github.com/roach88/linql/internal/qerr"
	"github.com/roach88/linql/internal/sequence"
)

// Compiler compiles searches against a catalog. It holds no per-call
// state and is safe for concurrent use.
type Compiler struct {
	catalog     *catalog.Catalog
	dispatcher  *pipeline.Dispatcher
	source      pipeline.Source
	binaryScope BinaryScope
	maxDepth    int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithBinaryScope selects the binary operand scoping policy.
func WithBinaryScope(p BinaryScope) Option {
	return func(c *Compiler) { c.binaryScope = p }
}

// WithMaxDepth bounds tree nesting. Zero or negative selects
// ast.DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(c *Compiler) { c.maxDepth = n }
}

// WithLogger sets the logger for compile outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithMetrics records compile and execute outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Compiler) { c.metrics = m }
}

// WithDispatcher replaces the pipeline function table.
func WithDispatcher(d *pipeline.Dispatcher) Option {
	return func(c *Compiler) { c.dispatcher = d }
}

// WithSequences sets how List and IGrouping values are wrapped when a
// pipeline function is applied to them.
func WithSequences(s pipeline.Source) Option {
	return func(c *Compiler) { c.source = s }
}

// New creates a compiler over cat.
func New(cat *catalog.Catalog, opts ...Option) *Compiler {
	c := &Compiler{
		catalog:     cat,
		dispatcher:  pipeline.Default(),
		source:      sequence.Source(),
		binaryScope: IsolatedBinaryScope,
		maxDepth:    ast.DefaultMaxDepth,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Catalog returns the catalog types are resolved against.
func (c *Compiler) Catalog() *catalog.Catalog { return c.catalog }

// MaxDepth returns the nesting bound applied to trees and search documents.
func (c *Compiler) MaxDepth() int { return c.maxDepth }

// Compile compiles a single node. input is the type a lambda at this
// position binds its parameter to; base is the expression the node
// continues, or nil. The tree is validated first.
func (c *Compiler) Compile(node ast.Expression, input *catalog.Type, scope *Scope, base expr.Expr) (expr.Expr, *Scope, error) {
	if err := ast.Validate(node, c.maxDepth); err != nil {
		return nil, nil, err
	}
	return c.compile(node, input, scope, base)
}

func (c *Compiler) compile(node ast.Expression, input *catalog.Type, scope *Scope, base expr.Expr) (expr.Expr, *Scope, error) {
	if ast.IsNil(node) {
		return nil, nil, qerr.New(qerr.CodeUnsupportedNodeKind, "missing expression")
	}

	var (
		out   expr.Expr
		after *Scope
		err   error
	)
	switch n := node.(type) {
	case *ast.Constant:
		out, after, err = c.compileConstant(n, scope, base)
	case *ast.Object:
		out, after, err = c.compileObject(n, input, scope, base)
	case *ast.Parameter:
		out, after, err = c.compileParameter(n, input, scope, base)
	case *ast.Property:
		out, after, err = c.compileProperty(n, input, scope, base)
	case *ast.Binary:
		out, after, err = c.compileBinary(n, input, scope, base)
	case *ast.Unary:
		out, after, err = c.compileUnary(n, input, scope, base)
	case *ast.Lambda:
		out, after, err = c.compileLambda(n, input, scope, base)
	case *ast.Function:
		out, after, err = c.compileFunction(n, input, scope, base)
	default:
		err = qerr.New(qerr.CodeUnsupportedNodeKind, "unsupported node type: %T", node)
	}
	if err != nil {
		return nil, nil, locate(err, node)
	}
	return out, after, nil
}

// locate annotates a coded error with the node kind; the innermost
// annotation wins.
func locate(err error, node ast.Expression) error {
	if qe, ok := err.(*qerr.Error); ok {
		return qe.At(ast.KindOf(node))
	}
	return err
}

// next compiles the continuation of a node, if any, with e as its base.
func (c *Compiler) next(n ast.Expression, e expr.Expr, input *catalog.Type, scope *Scope) (expr.Expr, *Scope, error) {
	if ast.IsNil(n) {
		return e, scope, nil
	}
	return c.compile(n, input, scope, e)
}

func standalone(kind string, base expr.Expr) error {
	if base == nil {
		return nil
	}
	return qerr.New(qerr.CodeUnsupportedNodeKind, "%s cannot continue a chain", kind)
}

func (c *Compiler) compileConstant(n *ast.Constant, scope *Scope, base expr.Expr) (expr.Expr, *Scope, error) {
	if err := standalone(ast.KindConstant, base); err != nil {
		return nil, nil, err
	}
	t, err := c.catalog.Resolve(n.ConstantType)
	if err != nil {
		return nil, nil, err
	}
	v, err := catalog.Convert(t, n.Value)
	if err != nil {
		return nil, nil, err
	}
	return expr.NewLiteral(t, v), scope, nil
}

func (c *Compiler) compileObject(n *ast.Object, input *catalog.Type, scope *Scope, base expr.Expr) (expr.Expr, *Scope, error) {
	if err := standalone(ast.KindObject, base); err != nil {
		return nil, nil, err
	}
	t, err := c.catalog.Resolve(n.Type)
	if err != nil {
		return nil, nil, err
	}
	v, err := catalog.Convert(t, n.Value)
	if err != nil {
		return nil, nil, err
	}
	return c.next(n.Next, expr.NewLiteral(t, v), input, scope)
}

func (c *Compiler) compileParameter(n *ast.Parameter, input *catalog.Type, scope *Scope, base expr.Expr) (expr.Expr, *Scope, error) {
	if err := standalone(ast.KindParameter, base); err != nil {
		return nil, nil, err
	}
	p, ok := scope.Lookup(n.ParameterName)
	if !ok {
		return nil, nil, qerr.New(qerr.CodeUnboundParameter, "parameter %q is not in scope", n.ParameterName).
			WithSuggestion(qerr.Suggest(n.ParameterName, scope.Names()))
	}
	return c.next(n.Next, p, input, scope)
}

func (c *Compiler) compileProperty(n *ast.Property, input *catalog.Type, scope *Scope, base expr.Expr) (expr.Expr, *Scope, error) {
	if base == nil {
		return nil, nil, qerr.New(qerr.CodeNullBaseExpression, "property %q has no base expression", n.PropertyName)
	}
	t := base.Type()
	m, ok := t.Member(n.PropertyName)
	if !ok {
		return nil, nil, qerr.New(qerr.CodeMemberNotFound, "%s has no member %q", t, n.PropertyName).
			WithSuggestion(qerr.Suggest(n.PropertyName, t.MemberNames()))
	}
	return c.next(n.Next, &expr.Member{Base: base, Member: m}, input, scope)
}

func (c *Compiler) compileBinary(n *ast.Binary, input *catalog.Type, scope *Scope, base expr.Expr) (expr.Expr, *Scope, error) {
	if err := standalone(ast.KindBinary, base); err != nil {
		return nil, nil, err
	}
	left, leftScope, err := c.compile(n.Left, input, scope, nil)
	if err != nil {
		return nil, nil, err
	}

	rightIn := scope
	if c.binaryScope == SharedBinaryScope {
		rightIn = leftScope
	}
	right, rightScope, err := c.compile(n.Right, input, rightIn, nil)
	if err != nil {
		return nil, nil, err
	}

	op, err := expr.LookupBinary(n.BinaryName, left.Type(), right.Type())
	if err != nil {
		return nil, nil, err
	}

	after := rightScope
	if c.binaryScope == IsolatedBinaryScope {
		after = leftScope.merge(rightScope, scope)
	}
	return &expr.Binary{Op: op, Left: left, Right: right}, after, nil
}

func (c *Compiler) compileUnary(n *ast.Unary, input *catalog.Type, scope *Scope, base expr.Expr) (expr.Expr, *Scope, error) {
	if err := standalone(ast.KindUnary, base); err != nil {
		return nil, nil, err
	}
	operand, after, err := c.compile(n.Operand, input, scope, nil)
	if err != nil {
		return nil, nil, err
	}
	op, err := expr.LookupUnary(n.UnaryName, operand.Type())
	if err != nil {
		return nil, nil, err
	}
	return c.next(n.Next, &expr.Unary{Op: op, Operand: operand}, input, after)
}

func (c *Compiler) compileLambda(n *ast.Lambda, input *catalog.Type, scope *Scope, base expr.Expr) (expr.Expr, *Scope, error) {
	if err := standalone(ast.KindLambda, base); err != nil {
		return nil, nil, err
	}
	if input == nil {
		return nil, nil, qerr.New(qerr.CodeNullInputType, "lambda compiled without an input type")
	}

	declared := make(map[string]bool, len(n.Parameters))
	for _, p := range n.Parameters {
		if p == nil {
			return nil, nil, qerr.New(qerr.CodeUnsupportedNodeKind, "missing lambda parameter")
		}
		if declared[p.ParameterName] {
			return nil, nil, qerr.New(qerr.CodeDuplicateParameter, "parameter %q declared twice", p.ParameterName).
				At(ast.KindParameter)
		}
		declared[p.ParameterName] = true
	}
	if len(n.Parameters) > 1 {
		return nil, nil, qerr.New(qerr.CodeTypeMismatch, "lambda declares %d parameters, only one is supported", len(n.Parameters))
	}

	inner := scope
	params := make([]*expr.Parameter, 0, len(n.Parameters))
	for _, p := range n.Parameters {
		if !ast.IsNil(p.Next) {
			return nil, nil, qerr.New(qerr.CodeUnsupportedNodeKind, "lambda parameter %q cannot have a continuation", p.ParameterName).
				At(ast.KindParameter)
		}
		bound, ok := inner.Lookup(p.ParameterName)
		switch {
		case !ok:
			bound = expr.NewParameter(p.ParameterName, input)
		case bound.Type() != input:
			return nil, nil, qerr.New(qerr.CodeTypeMismatch, "parameter %q is already bound to %s, lambda input is %s",
				p.ParameterName, bound.Type(), input).At(ast.KindParameter)
		}
		inner = inner.Bind(p.ParameterName, bound)
		params = append(params, bound)
	}

	body, after, err := c.compile(n.Body, input, inner, nil)
	if err != nil {
		return nil, nil, err
	}
	return expr.NewLambda(params, body), after, nil
}

func (c *Compiler) compileFunction(n *ast.Function, input *catalog.Type, scope *Scope, base expr.Expr) (expr.Expr, *Scope, error) {
	if base == nil {
		return nil, nil, qerr.New(qerr.CodeNullBaseExpression, "function %q has no base expression", n.FunctionName)
	}
	bt := base.Type()
	if !bt.IsSequence() {
		return nil, nil, qerr.New(qerr.CodeTypeMismatch, "function %q applied to %s, not a sequence", n.FunctionName, bt)
	}
	op, err := c.dispatcher.Lookup(n.FunctionName)
	if err != nil {
		return nil, nil, err
	}

	elem := bt.Elem()
	args := make([]expr.Expr, len(n.Arguments))
	argTypes := make([]*catalog.Type, len(n.Arguments))
	after := scope
	for i, a := range n.Arguments {
		e, argScope, err := c.compile(a, elem, scope, nil)
		if err != nil {
			return nil, nil, err
		}
		args[i] = e
		argTypes[i] = e.Type()
		after = after.merge(argScope, scope)
	}

	result, err := op.ResultType(bt, argTypes)
	if err != nil {
		return nil, nil, err
	}
	call := expr.NewCall(base, op, args, result, c.source)

	if ast.IsNil(n.Next) {
		return call, after, nil
	}
	out, nextScope, err := c.compile(n.Next, input, scope, call)
	if err != nil {
		return nil, nil, err
	}
	return out, after.merge(nextScope, scope), nil
}

// Pipeline is a compiled search rooted at its source sequence.
type Pipeline struct {
	root    expr.Expr
	elem    *catalog.Type
	metrics *metrics.Metrics
}

// Type reports the result type: an IQueryable for stage-producing
// searches, a scalar type when the last function is terminal.
func (p *Pipeline) Type() *catalog.Type { return p.root.Type() }

// ElementType is the resolved element type of the source sequence.
func (p *Pipeline) ElementType() *catalog.Type { return p.elem }

// Expr returns the compiled expression.
func (p *Pipeline) Expr() expr.Expr { return p.root }

// Execute applies the pipeline to its source. Stage-producing results
// are lazy queryables; use pipeline.Materialize to drain them, or Run to
// do both. Execute records no metrics since most failures surface only
// while draining.
func (p *Pipeline) Execute() (any, error) {
	return p.root.Eval(nil)
}

// Run executes the pipeline and drains a lazy result into a list. The
// execute metrics cover the whole run, so a row that fails mid-stream
// is counted under its error code.
func (p *Pipeline) Run() (any, error) {
	start := time.Now()
	v, err := p.root.Eval(nil)
	if err == nil {
		v, err = pipeline.Materialize(v)
	}
	p.metrics.ObserveExecute(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// CompileSearch resolves the search element type, roots the pipeline at
// source and compiles the top-level expressions in order, each taking
// the previous result as its base. source may be nil when only the
// result type is needed; executing such a pipeline fails.
func (c *Compiler) CompileSearch(s *ast.Search, source pipeline.Queryable) (*Pipeline, error) {
	start := time.Now()
	p, err := c.compileSearch(s, source)
	elapsed := time.Since(start)
	c.metrics.ObserveCompile(elapsed, err)

	if err != nil {
		c.logger.Debug("search rejected",
			"code", string(qerr.CodeOf(err)),
			"error", err,
			"elapsed", elapsed,
		)
		return nil, err
	}
	c.logger.Debug("search compiled",
		"element", p.elem.String(),
		"result", p.Type().String(),
		"expressions", len(s.Expressions),
		"elapsed", elapsed,
	)
	return p, nil
}

func (c *Compiler) compileSearch(s *ast.Search, source pipeline.Queryable) (*Pipeline, error) {
	if s == nil {
		return nil, qerr.New(qerr.CodeUnsupportedNodeKind, "missing search")
	}
	if err := ast.ValidateSearch(s, c.maxDepth); err != nil {
		return nil, err
	}
	elem, err := c.catalog.Resolve(s.Type)
	if err != nil {
		return nil, err
	}

	var current expr.Expr = expr.NewLiteral(catalog.QueryableOf(elem), source)
	for _, e := range s.Expressions {
		current, _, err = c.compile(e, elem, NewScope(), current)
		if err != nil {
			return nil, err
		}
	}
	return &Pipeline{root: current, elem: elem, metrics: c.metrics}, nil
}
