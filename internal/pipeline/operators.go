package pipeline

import (
	"fmt"
	"sort"

	"github.com/roach88/linql/internal/catalog"
	"github.com/roach88/linql/internal/qerr"
)

// ArgKind describes what a pipeline function expects in one argument
// position.
type ArgKind int

const (
	// ArgPredicate is a lambda T => Boolean.
	ArgPredicate ArgKind = iota

	// ArgSelector is a lambda T => R for any R.
	ArgSelector

	// ArgKey is a lambda T => R where R has a total order.
	ArgKey

	// ArgCount is an integer.
	ArgCount

	// ArgValue is a value assignable to the element type.
	ArgValue
)

func (k ArgKind) String() string {
	switch k {
	case ArgPredicate:
		return "predicate"
	case ArgSelector:
		return "selector"
	case ArgKey:
		return "key selector"
	case ArgCount:
		return "count"
	case ArgValue:
		return "value"
	default:
		return fmt.Sprintf("arg(%d)", int(k))
	}
}

// Operator is one entry of the dispatch table.
type Operator struct {
	// Name is the wire function name.
	Name string

	// Params lists the argument shapes in order.
	Params []ArgKind

	// Optional is the number of trailing Params that may be omitted.
	Optional int

	result func(base, elem *catalog.Type, args []*catalog.Type) (*catalog.Type, error)
	apply  func(q Queryable, args []any) (any, error)
}

// ResultType checks argument shapes against a base sequence type and
// returns the type of the stage or scalar the operator produces.
func (op *Operator) ResultType(base *catalog.Type, args []*catalog.Type) (*catalog.Type, error) {
	if base == nil || !base.IsSequence() {
		return nil, qerr.New(qerr.CodeTypeMismatch, "%s requires a sequence, got %s", op.Name, base)
	}
	required := len(op.Params) - op.Optional
	if len(args) < required || len(args) > len(op.Params) {
		if required == len(op.Params) {
			return nil, qerr.New(qerr.CodeTypeMismatch, "%s expects %d argument(s), got %d", op.Name, required, len(args))
		}
		return nil, qerr.New(qerr.CodeTypeMismatch, "%s expects %d to %d argument(s), got %d", op.Name, required, len(op.Params), len(args))
	}

	elem := base.Elem()
	for i, a := range args {
		if err := checkArg(op.Name, i, op.Params[i], elem, a); err != nil {
			return nil, err
		}
	}
	return op.result(base, elem, args)
}

// Apply runs the operator against q. Lambda arguments must already be
// Funcs; count arguments are int32 or int64.
func (op *Operator) Apply(q Queryable, args []any) (any, error) {
	if q == nil {
		return nil, qerr.New(qerr.CodeEvaluation, "%s applied to null sequence", op.Name)
	}
	return op.apply(q, args)
}

func checkArg(name string, i int, kind ArgKind, elem, arg *catalog.Type) error {
	mismatch := func(format string, args ...any) error {
		return qerr.New(qerr.CodeTypeMismatch, "%s argument %d (%s): %s", name, i, kind, fmt.Sprintf(format, args...))
	}
	if arg == nil {
		return mismatch("missing")
	}

	switch kind {
	case ArgPredicate, ArgSelector, ArgKey:
		if arg.Kind() != catalog.KindFunc {
			return mismatch("expected a lambda, got %s", arg)
		}
		if arg.Input() != elem {
			return mismatch("lambda takes %s, sequence yields %s", arg.Input(), elem)
		}
		if kind == ArgPredicate && arg.Result() != catalog.Boolean {
			return mismatch("lambda must return Boolean, got %s", arg.Result())
		}
		if kind == ArgKey && !arg.Result().IsOrderable() {
			return mismatch("%s cannot be used as a sort key", arg.Result())
		}
	case ArgCount:
		if !arg.IsInteger() {
			return mismatch("expected an integer, got %s", arg)
		}
	case ArgValue:
		if !arg.AssignableTo(elem) {
			return mismatch("%s is not assignable to %s", arg, elem)
		}
	}
	return nil
}

// Dispatcher maps wire function names to operators.
type Dispatcher struct {
	ops map[string]*Operator
}

// Lookup finds an operator by exact wire name.
func (d *Dispatcher) Lookup(name string) (*Operator, error) {
	op, ok := d.ops[name]
	if !ok {
		return nil, qerr.New(qerr.CodeUnsupportedOperation, "unsupported function %q", name).
			WithSuggestion(qerr.Suggest(name, d.Names()))
	}
	return op, nil
}

// Names lists supported function names in sorted order.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.ops))
	for n := range d.ops {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Default returns the fixed dispatch table.
func Default() *Dispatcher { return defaultDispatcher }

var defaultDispatcher = newDispatcher(
	&Operator{
		Name:   "Where",
		Params: []ArgKind{ArgPredicate},
		result: stageOf,
		apply: func(q Queryable, args []any) (any, error) {
			f, err := funcArg("Where", args, 0)
			if err != nil {
				return nil, err
			}
			return q.Where(f), nil
		},
	},
	&Operator{
		Name:   "Select",
		Params: []ArgKind{ArgSelector},
		result: func(_, _ *catalog.Type, args []*catalog.Type) (*catalog.Type, error) {
			return catalog.QueryableOf(args[0].Result()), nil
		},
		apply: func(q Queryable, args []any) (any, error) {
			f, err := funcArg("Select", args, 0)
			if err != nil {
				return nil, err
			}
			return q.Select(f), nil
		},
	},
	&Operator{
		Name:   "SelectMany",
		Params: []ArgKind{ArgSelector},
		result: func(_, _ *catalog.Type, args []*catalog.Type) (*catalog.Type, error) {
			r := args[0].Result()
			if !r.IsSequence() {
				return nil, qerr.New(qerr.CodeTypeMismatch, "SelectMany selector must return a sequence, got %s", r)
			}
			return catalog.QueryableOf(r.Elem()), nil
		},
		apply: func(q Queryable, args []any) (any, error) {
			f, err := funcArg("SelectMany", args, 0)
			if err != nil {
				return nil, err
			}
			return q.SelectMany(f), nil
		},
	},
	&Operator{
		Name:   "GroupBy",
		Params: []ArgKind{ArgSelector},
		result: func(_, elem *catalog.Type, args []*catalog.Type) (*catalog.Type, error) {
			return catalog.QueryableOf(catalog.GroupingOf(args[0].Result(), elem)), nil
		},
		apply: func(q Queryable, args []any) (any, error) {
			f, err := funcArg("GroupBy", args, 0)
			if err != nil {
				return nil, err
			}
			return q.GroupBy(f), nil
		},
	},
	orderBy("OrderBy", false),
	orderBy("OrderByDescending", true),
	thenBy("ThenBy", false),
	thenBy("ThenByDescending", true),
	&Operator{
		Name:   "Skip",
		Params: []ArgKind{ArgCount},
		result: stageOf,
		apply: func(q Queryable, args []any) (any, error) {
			n, err := countArg("Skip", args, 0)
			if err != nil {
				return nil, err
			}
			return q.Skip(n), nil
		},
	},
	&Operator{
		Name:   "Take",
		Params: []ArgKind{ArgCount},
		result: stageOf,
		apply: func(q Queryable, args []any) (any, error) {
			n, err := countArg("Take", args, 0)
			if err != nil {
				return nil, err
			}
			return q.Take(n), nil
		},
	},
	&Operator{
		Name:   "Distinct",
		result: stageOf,
		apply: func(q Queryable, _ []any) (any, error) {
			return q.Distinct(), nil
		},
	},
	&Operator{
		Name:     "Any",
		Params:   []ArgKind{ArgPredicate},
		Optional: 1,
		result:   scalarOf(catalog.Boolean),
		apply: func(q Queryable, args []any) (any, error) {
			f, err := optionalFuncArg("Any", args, 0)
			if err != nil {
				return nil, err
			}
			return q.Any(f)
		},
	},
	&Operator{
		Name:   "All",
		Params: []ArgKind{ArgPredicate},
		result: scalarOf(catalog.Boolean),
		apply: func(q Queryable, args []any) (any, error) {
			f, err := funcArg("All", args, 0)
			if err != nil {
				return nil, err
			}
			return q.All(f)
		},
	},
	&Operator{
		Name:     "Count",
		Params:   []ArgKind{ArgPredicate},
		Optional: 1,
		result:   scalarOf(catalog.Int32),
		apply: func(q Queryable, args []any) (any, error) {
			f, err := optionalFuncArg("Count", args, 0)
			if err != nil {
				return nil, err
			}
			n, err := q.Count(f)
			if err != nil {
				return nil, err
			}
			return int32(n), nil
		},
	},
	&Operator{
		Name:   "Contains",
		Params: []ArgKind{ArgValue},
		result: scalarOf(catalog.Boolean),
		apply: func(q Queryable, args []any) (any, error) {
			if len(args) != 1 {
				return nil, qerr.New(qerr.CodeEvaluation, "Contains expects 1 argument, got %d", len(args))
			}
			return q.Contains(args[0])
		},
	},
)

func newDispatcher(ops ...*Operator) *Dispatcher {
	d := &Dispatcher{ops: make(map[string]*Operator, len(ops))}
	for _, op := range ops {
		d.ops[op.Name] = op
	}
	return d
}

func orderBy(name string, desc bool) *Operator {
	return &Operator{
		Name:   name,
		Params: []ArgKind{ArgKey},
		result: func(_, elem *catalog.Type, _ []*catalog.Type) (*catalog.Type, error) {
			return catalog.OrderedQueryableOf(elem), nil
		},
		apply: func(q Queryable, args []any) (any, error) {
			f, err := funcArg(name, args, 0)
			if err != nil {
				return nil, err
			}
			return q.OrderBy(f, desc), nil
		},
	}
}

func thenBy(name string, desc bool) *Operator {
	return &Operator{
		Name:   name,
		Params: []ArgKind{ArgKey},
		result: func(base, elem *catalog.Type, _ []*catalog.Type) (*catalog.Type, error) {
			if !base.IsOrdered() {
				return nil, qerr.New(qerr.CodeTypeMismatch, "%s requires an ordered sequence, got %s", name, base)
			}
			return catalog.OrderedQueryableOf(elem), nil
		},
		apply: func(q Queryable, args []any) (any, error) {
			f, err := funcArg(name, args, 0)
			if err != nil {
				return nil, err
			}
			return q.ThenBy(f, desc)
		},
	}
}

func stageOf(_, elem *catalog.Type, _ []*catalog.Type) (*catalog.Type, error) {
	return catalog.QueryableOf(elem), nil
}

func scalarOf(t *catalog.Type) func(_, _ *catalog.Type, _ []*catalog.Type) (*catalog.Type, error) {
	return func(_, _ *catalog.Type, _ []*catalog.Type) (*catalog.Type, error) {
		return t, nil
	}
}

func funcArg(name string, args []any, i int) (Func, error) {
	f, err := optionalFuncArg(name, args, i)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, qerr.New(qerr.CodeEvaluation, "%s: missing lambda argument %d", name, i)
	}
	return f, nil
}

func optionalFuncArg(name string, args []any, i int) (Func, error) {
	if i >= len(args) {
		return nil, nil
	}
	f, ok := args[i].(Func)
	if !ok {
		return nil, qerr.New(qerr.CodeEvaluation, "%s: argument %d is %T, not a lambda", name, i, args[i])
	}
	return f, nil
}

func countArg(name string, args []any, i int) (int, error) {
	if i >= len(args) {
		return 0, qerr.New(qerr.CodeEvaluation, "%s: missing count", name)
	}
	switch n := args[i].(type) {
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, qerr.New(qerr.CodeEvaluation, "%s: count is %T, not an integer", name, args[i])
	}
}
