package catalog

import (
	"cmp"
	"fmt"

	"github.com/shopspring/decimal"
)

// Equal reports value equality of two runtime values. Numbers compare by
// value across representations; records, groupings and lists compare by
// identity. A list's identity is its backing array and length, so every
// empty list is equal to every other.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if c, ok := compareNumbers(a, b); ok {
		return c == 0
	}
	switch x := a.(type) {
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	default:
		return HashKey(a) == HashKey(b)
	}
}

// Compare orders two sort keys: null first, then false before true,
// numbers by value and strings by ordinal comparison.
func Compare(a, b any) (int, error) {
	switch {
	case a == nil && b == nil:
		return 0, nil
	case a == nil:
		return -1, nil
	case b == nil:
		return 1, nil
	}
	if c, ok := compareNumbers(a, b); ok {
		return c, nil
	}
	switch x := a.(type) {
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			default:
				return 1, nil
			}
		}
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(x, y), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %T with %T", a, b)
}

// HashKey maps a value to a comparable key consistent with Equal for
// values of one type, for use in hash-based grouping.
func HashKey(v any) any {
	switch x := v.(type) {
	case nil, bool, string:
		return x
	case int32:
		return int64(x)
	case int64:
		return x
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
		return x
	case decimal.Decimal:
		if x.IsInteger() && x.GreaterThanOrEqual(minInt64Dec) && x.LessThanOrEqual(maxInt64Dec) {
			return x.IntPart()
		}
		return "decimal:" + x.String()
	case []any:
		if len(x) == 0 {
			return listKey{}
		}
		return listKey{first: &x[0], n: len(x)}
	case *Record, *Grouping:
		return x
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}

// listKey identifies a list by its backing array and length.
type listKey struct {
	first *any
	n     int
}

var (
	minInt64Dec = decimal.NewFromInt(-1 << 63)
	maxInt64Dec = decimal.NewFromInt(1<<63 - 1)
)

// compareNumbers compares two numeric values after promotion. ok is false
// when either value is not a number.
func compareNumbers(a, b any) (c int, ok bool) {
	ka, kb := numKind(a), numKind(b)
	if ka == 0 || kb == 0 {
		return 0, false
	}
	switch {
	case ka == numDouble || kb == numDouble:
		return cmp.Compare(asFloat64(a), asFloat64(b)), true
	case ka == numDecimal || kb == numDecimal:
		return asDecimal(a).Cmp(asDecimal(b)), true
	default:
		return cmp.Compare(asInt64(a), asInt64(b)), true
	}
}

const (
	numInt = iota + 1
	numDouble
	numDecimal
)

func numKind(v any) int {
	switch v.(type) {
	case int32, int64:
		return numInt
	case float64:
		return numDouble
	case decimal.Decimal:
		return numDecimal
	default:
		return 0
	}
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int32:
		return int64(x)
	case int64:
		return x
	}
	return 0
}

func asFloat64(v any) float64 {
	switch x := v.(type) {
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float64:
		return x
	case decimal.Decimal:
		return x.InexactFloat64()
	}
	return 0
}

func asDecimal(v any) decimal.Decimal {
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
