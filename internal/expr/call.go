package expr

import (
	"github.com/roach88/linql/internal/catalog"
	"github.com/roach88/linql/internal/pipeline"
	"github.com/roach88/linql/internal/qerr"
)

// Call applies a pipeline operator to the sequence Base evaluates to.
type Call struct {
	Base Expr
	Op   *pipeline.Operator
	Args []Expr

	typ    *catalog.Type
	source pipeline.Source
}

// NewCall creates a call typed t. source wraps List and IGrouping values
// so operators can be applied to them.
func NewCall(base Expr, op *pipeline.Operator, args []Expr, t *catalog.Type, source pipeline.Source) *Call {
	return &Call{Base: base, Op: op, Args: args, typ: t, source: source}
}

func (c *Call) Type() *catalog.Type { return c.typ }

func (c *Call) Eval(env *Env) (any, error) {
	base, err := c.Base.Eval(env)
	if err != nil {
		return nil, err
	}
	q, err := c.queryable(base)
	if err != nil {
		return nil, err
	}

	args := make([]any, len(c.Args))
	for i, a := range c.Args {
		v, err := a.Eval(env)
		if err != nil {
			return nil, err
		}
		if cl, ok := v.(*Closure); ok {
			v = cl.Func()
		}
		args[i] = v
	}

	out, err := c.Op.Apply(q, args)
	if err != nil {
		if qerr.CodeOf(err) != "" {
			return nil, err
		}
		return nil, qerr.Wrap(qerr.CodeEvaluation, err, "%s", c.Op.Name)
	}
	return out, nil
}

func (c *Call) queryable(v any) (pipeline.Queryable, error) {
	switch x := v.(type) {
	case pipeline.Queryable:
		return x, nil
	case []any:
		return c.source(x), nil
	case *catalog.Grouping:
		if x != nil {
			return c.source(x.Items), nil
		}
	case nil:
	default:
		return nil, qerr.New(qerr.CodeEvaluation, "%s applied to %T, not a sequence", c.Op.Name, v)
	}
	return nil, qerr.New(qerr.CodeEvaluation, "%s applied to null sequence", c.Op.Name)
}
