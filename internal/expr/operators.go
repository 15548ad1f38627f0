package expr

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/roach88/linql/internal/catalog"
	"github.com/roach88/linql/internal/qerr"
)

// BinaryOp is a binary operator bound to its operand types.
type BinaryOp struct {
	Name string

	// Type is the result type.
	Type *catalog.Type

	// ShortCircuit marks AndAlso/OrElse: Right is evaluated only when
	// Left does not decide the result.
	ShortCircuit bool

	eval func(l, r any) (any, error)
}

// UnaryOp is a unary operator bound to its operand type.
type UnaryOp struct {
	Name string
	Type *catalog.Type
	eval func(v any) (any, error)
}

type binaryBinder func(name string, l, r *catalog.Type) (*BinaryOp, error)
type unaryBinder func(name string, t *catalog.Type) (*UnaryOp, error)

var binaryOps = map[string]binaryBinder{
	"Equal":              bindEquality,
	"NotEqual":           bindEquality,
	"LessThan":           bindRelational,
	"LessThanOrEqual":    bindRelational,
	"GreaterThan":        bindRelational,
	"GreaterThanOrEqual": bindRelational,
	"AndAlso":            bindConditional,
	"OrElse":             bindConditional,
	"And":                bindBitwise,
	"Or":                 bindBitwise,
	"ExclusiveOr":        bindBitwise,
	"Add":                bindArithmetic,
	"Subtract":           bindArithmetic,
	"Multiply":           bindArithmetic,
	"Divide":             bindArithmetic,
	"Modulo":             bindArithmetic,
}

var unaryOps = map[string]unaryBinder{
	"Not":    bindNot,
	"Negate": bindNegate,
}

// BinaryOperators lists the supported binary operator names.
func BinaryOperators() []string { return sortedKeys(binaryOps) }

// UnaryOperators lists the supported unary operator names.
func UnaryOperators() []string { return sortedKeys(unaryOps) }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LookupBinary binds a binary operator to operand types. Unknown names
// fail with UnsupportedOperator; incompatible operands with TypeMismatch.
func LookupBinary(name string, l, r *catalog.Type) (*BinaryOp, error) {
	bind, ok := binaryOps[name]
	if !ok {
		return nil, qerr.New(qerr.CodeUnsupportedOperator, "unsupported binary operator %q", name).
			WithSuggestion(qerr.Suggest(name, BinaryOperators()))
	}
	return bind(name, l, r)
}

// LookupUnary binds a unary operator to its operand type.
func LookupUnary(name string, t *catalog.Type) (*UnaryOp, error) {
	bind, ok := unaryOps[name]
	if !ok {
		return nil, qerr.New(qerr.CodeUnsupportedOperator, "unsupported unary operator %q", name).
			WithSuggestion(qerr.Suggest(name, UnaryOperators()))
	}
	return bind(name, t)
}

func mismatch(name string, l, r *catalog.Type) error {
	return qerr.New(qerr.CodeTypeMismatch, "operator %s cannot be applied to %s and %s", name, l, r)
}

func isNullable(t *catalog.Type) bool { return t.Kind() == catalog.KindNullable }

// bindEquality accepts numbers of any width, identical types, values
// against their nullable form, and anything against Object.
func bindEquality(name string, l, r *catalog.Type) (*BinaryOp, error) {
	lu, ru := l.Underlying(), r.Underlying()
	ok := l == r ||
		lu == ru ||
		(lu.IsNumeric() && ru.IsNumeric() && numericResult(lu, ru) != nil) ||
		l.Kind() == catalog.KindAny || r.Kind() == catalog.KindAny
	if !ok {
		return nil, mismatch(name, l, r)
	}
	negate := name == "NotEqual"
	return &BinaryOp{Name: name, Type: catalog.Boolean, eval: func(a, b any) (any, error) {
		return catalog.Equal(a, b) != negate, nil
	}}, nil
}

// bindRelational orders numbers and strings. A null operand makes the
// comparison false.
func bindRelational(name string, l, r *catalog.Type) (*BinaryOp, error) {
	lu, ru := l.Underlying(), r.Underlying()
	numeric := lu.IsNumeric() && ru.IsNumeric() && numericResult(lu, ru) != nil
	textual := lu == catalog.String && ru == catalog.String
	if !numeric && !textual {
		return nil, mismatch(name, l, r)
	}
	var test func(c int) bool
	switch name {
	case "LessThan":
		test = func(c int) bool { return c < 0 }
	case "LessThanOrEqual":
		test = func(c int) bool { return c <= 0 }
	case "GreaterThan":
		test = func(c int) bool { return c > 0 }
	default:
		test = func(c int) bool { return c >= 0 }
	}
	return &BinaryOp{Name: name, Type: catalog.Boolean, eval: func(a, b any) (any, error) {
		if a == nil || b == nil {
			return false, nil
		}
		c, err := catalog.Compare(a, b)
		if err != nil {
			return nil, err
		}
		return test(c), nil
	}}, nil
}

func bindConditional(name string, l, r *catalog.Type) (*BinaryOp, error) {
	if l != catalog.Boolean || r != catalog.Boolean {
		return nil, mismatch(name, l, r)
	}
	// Only reached when Left did not decide the result.
	return &BinaryOp{Name: name, Type: catalog.Boolean, ShortCircuit: true, eval: func(_, b any) (any, error) {
		return b, nil
	}}, nil
}

// bindBitwise is logical on booleans and bitwise on integers.
func bindBitwise(name string, l, r *catalog.Type) (*BinaryOp, error) {
	lu, ru := l.Underlying(), r.Underlying()
	lifted := isNullable(l) || isNullable(r)

	var result *catalog.Type
	var eval func(a, b any) (any, error)
	switch {
	case lu == catalog.Boolean && ru == catalog.Boolean:
		result = catalog.Boolean
		eval = func(a, b any) (any, error) {
			x, y := a.(bool), b.(bool)
			switch name {
			case "And":
				return x && y, nil
			case "Or":
				return x || y, nil
			default:
				return x != y, nil
			}
		}
	case lu.IsInteger() && ru.IsInteger():
		result = numericResult(lu, ru)
		eval = func(a, b any) (any, error) {
			x, y := toInt64(a), toInt64(b)
			var out int64
			switch name {
			case "And":
				out = x & y
			case "Or":
				out = x | y
			default:
				out = x ^ y
			}
			return narrow(out, result), nil
		}
	default:
		return nil, mismatch(name, l, r)
	}
	return liftBinary(name, result, lifted, eval), nil
}

func bindArithmetic(name string, l, r *catalog.Type) (*BinaryOp, error) {
	if name == "Add" && (l == catalog.String || r == catalog.String) {
		return &BinaryOp{Name: name, Type: catalog.String, eval: func(a, b any) (any, error) {
			return format(a) + format(b), nil
		}}, nil
	}

	lu, ru := l.Underlying(), r.Underlying()
	if !lu.IsNumeric() || !ru.IsNumeric() {
		return nil, mismatch(name, l, r)
	}
	result := numericResult(lu, ru)
	if result == nil {
		return nil, mismatch(name, l, r)
	}

	var eval func(a, b any) (any, error)
	switch result.Kind() {
	case catalog.KindInt32, catalog.KindInt64:
		eval = func(a, b any) (any, error) {
			out, err := intArith(name, toInt64(a), toInt64(b), result)
			if err != nil {
				return nil, err
			}
			return narrow(out, result), nil
		}
	case catalog.KindDouble:
		eval = func(a, b any) (any, error) {
			return floatArith(name, toFloat64(a), toFloat64(b)), nil
		}
	default:
		eval = func(a, b any) (any, error) {
			return decimalArith(name, toDecimal(a), toDecimal(b))
		}
	}
	return liftBinary(name, result, isNullable(l) || isNullable(r), eval), nil
}

// liftBinary wraps eval so a null operand yields null and the result
// type becomes nullable when either operand is.
func liftBinary(name string, result *catalog.Type, lifted bool, eval func(a, b any) (any, error)) *BinaryOp {
	if !lifted {
		return &BinaryOp{Name: name, Type: result, eval: eval}
	}
	return &BinaryOp{Name: name, Type: catalog.Lift(result), eval: func(a, b any) (any, error) {
		if a == nil || b == nil {
			return nil, nil
		}
		return eval(a, b)
	}}
}

func bindNot(name string, t *catalog.Type) (*UnaryOp, error) {
	u := t.Underlying()
	var eval func(v any) (any, error)
	switch {
	case u == catalog.Boolean:
		eval = func(v any) (any, error) { return !v.(bool), nil }
	case u.IsInteger():
		eval = func(v any) (any, error) { return narrow(^toInt64(v), u), nil }
	default:
		return nil, qerr.New(qerr.CodeTypeMismatch, "operator %s cannot be applied to %s", name, t)
	}
	return liftUnary(name, t, eval), nil
}

func bindNegate(name string, t *catalog.Type) (*UnaryOp, error) {
	u := t.Underlying()
	var eval func(v any) (any, error)
	switch u.Kind() {
	case catalog.KindInt32, catalog.KindInt64:
		eval = func(v any) (any, error) { return narrow(-toInt64(v), u), nil }
	case catalog.KindDouble:
		eval = func(v any) (any, error) { return -v.(float64), nil }
	case catalog.KindDecimal:
		eval = func(v any) (any, error) { return v.(decimal.Decimal).Neg(), nil }
	default:
		return nil, qerr.New(qerr.CodeTypeMismatch, "operator %s cannot be applied to %s", name, t)
	}
	return liftUnary(name, t, eval), nil
}

func liftUnary(name string, t *catalog.Type, eval func(v any) (any, error)) *UnaryOp {
	if !isNullable(t) {
		return &UnaryOp{Name: name, Type: t, eval: eval}
	}
	return &UnaryOp{Name: name, Type: t, eval: func(v any) (any, error) {
		if v == nil {
			return nil, nil
		}
		return eval(v)
	}}
}

// numericResult applies binary numeric promotion: Int32 < Int64 < Double,
// and Decimal with any integer. Decimal with Double has no common type.
func numericResult(l, r *catalog.Type) *catalog.Type {
	rank := func(t *catalog.Type) int {
		switch t.Kind() {
		case catalog.KindInt32:
			return 1
		case catalog.KindInt64:
			return 2
		case catalog.KindDouble:
			return 3
		case catalog.KindDecimal:
			return 4
		default:
			return 0
		}
	}
	a, b := rank(l), rank(r)
	if a == 0 || b == 0 {
		return nil
	}
	if (a == 3 && b == 4) || (a == 4 && b == 3) {
		return nil
	}
	if a >= b {
		return l
	}
	return r
}

func intArith(name string, x, y int64, result *catalog.Type) (int64, error) {
	switch name {
	case "Add":
		return x + y, nil
	case "Subtract":
		return x - y, nil
	case "Multiply":
		return x * y, nil
	case "Divide", "Modulo":
		if y == 0 {
			return 0, qerr.New(qerr.CodeEvaluation, "integer division by zero")
		}
		lowest := int64(math.MinInt64)
		if result.Kind() == catalog.KindInt32 {
			lowest = math.MinInt32
		}
		if x == lowest && y == -1 {
			return 0, qerr.New(qerr.CodeEvaluation, "integer overflow")
		}
		if name == "Divide" {
			return x / y, nil
		}
		return x % y, nil
	}
	return 0, fmt.Errorf("unknown arithmetic operator %s", name)
}

func floatArith(name string, x, y float64) float64 {
	switch name {
	case "Add":
		return x + y
	case "Subtract":
		return x - y
	case "Multiply":
		return x * y
	case "Divide":
		return x / y
	default:
		return math.Mod(x, y)
	}
}

func decimalArith(name string, x, y decimal.Decimal) (any, error) {
	switch name {
	case "Add":
		return x.Add(y), nil
	case "Subtract":
		return x.Sub(y), nil
	case "Multiply":
		return x.Mul(y), nil
	}
	if y.IsZero() {
		return nil, qerr.New(qerr.CodeEvaluation, "decimal division by zero")
	}
	if name == "Divide" {
		return x.Div(y), nil
	}
	return x.Mod(y), nil
}

// narrow converts an int64 result back to the operator's integer type.
// Int32 arithmetic wraps on overflow.
func narrow(v int64, t *catalog.Type) any {
	if t.Kind() == catalog.KindInt32 {
		return int32(v)
	}
	return v
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int32:
		return int64(x)
	case int64:
		return x
	}
	return 0
}

func toFloat64(v any) float64 {
	switch x := v.(type) {
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float64:
		return x
	}
	return 0
}

func toDecimal(v any) decimal.Decimal {
	switch x := v.(type) {
	case int32:
		return decimal.NewFromInt32(x)
	case int64:
		return decimal.NewFromInt(x)
	case decimal.Decimal:
		return x
	}
	return decimal.Zero
}

// format renders a value for string concatenation. Null is empty.
func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'G', -1, 64)
	case decimal.Decimal:
		return x.String()
	case *catalog.Record:
		return x.Type().Name()
	default:
		return fmt.Sprint(v)
	}
}
