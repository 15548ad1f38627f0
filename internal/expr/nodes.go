package expr

import (
	"github.com/roach88/linql/internal/catalog"
	"github.com/roach88/linql/internal/qerr"
)

// Binary applies a bound binary operator.
type Binary struct {
	Op    *BinaryOp
	Left  Expr
	Right Expr
}

func (b *Binary) Type() *catalog.Type { return b.Op.Type }

func (b *Binary) Eval(env *Env) (any, error) {
	l, err := b.Left.Eval(env)
	if err != nil {
		return nil, err
	}
	if b.Op.ShortCircuit {
		decided, ok := l.(bool)
		if !ok {
			return nil, qerr.New(qerr.CodeEvaluation, "%s operand is %T, not bool", b.Op.Name, l)
		}
		if (b.Op.Name == "AndAlso") != decided {
			return decided, nil
		}
	}
	r, err := b.Right.Eval(env)
	if err != nil {
		return nil, err
	}
	out, err := b.Op.eval(l, r)
	if err != nil {
		if qerr.CodeOf(err) != "" {
			return nil, err
		}
		return nil, qerr.Wrap(qerr.CodeEvaluation, err, "%s", b.Op.Name)
	}
	return out, nil
}

// Unary applies a bound unary operator.
type Unary struct {
	Op      *UnaryOp
	Operand Expr
}

func (u *Unary) Type() *catalog.Type { return u.Op.Type }

func (u *Unary) Eval(env *Env) (any, error) {
	v, err := u.Operand.Eval(env)
	if err != nil {
		return nil, err
	}
	return u.Op.eval(v)
}
