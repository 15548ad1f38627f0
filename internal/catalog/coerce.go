package catalog

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/linql/internal/qerr"
)

// Convert coerces a raw literal (as decoded from wire JSON, or a Go
// value of a matching kind) into the runtime representation of t.
//
//	Boolean          bool
//	Int32, Int64     integral numbers within range
//	Double           any number
//	Decimal          any number, or a numeric string, kept exact
//	String           string, NFC normalized
//	Nullable<T>      null, or anything T accepts
//	List<T>          array of values T accepts
//	object           JSON object; unknown keys fail, missing keys are zero
//	Object           any value, unchanged
//
// null is accepted for every type except the non-nullable value kinds.
// Failures are ValueCoercion errors.
func Convert(t *Type, raw any) (any, error) {
	if t == nil {
		return nil, qerr.New(qerr.CodeValueCoercion, "no target type")
	}
	if raw == nil {
		if t.IsValueKind() {
			return nil, coerceErr(t, raw, "null is not allowed")
		}
		if t.kind == KindGrouping || t.kind == KindQueryable || t.kind == KindFunc {
			return nil, coerceErr(t, raw, "type cannot be written as a literal")
		}
		return nil, nil
	}

	switch t.kind {
	case KindBool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
		return nil, coerceErr(t, raw, "expected a boolean")

	case KindInt32:
		n, err := toInt64(raw)
		if err != nil {
			return nil, coerceErr(t, raw, err.Error())
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, coerceErr(t, raw, "out of range")
		}
		return int32(n), nil

	case KindInt64:
		n, err := toInt64(raw)
		if err != nil {
			return nil, coerceErr(t, raw, err.Error())
		}
		return n, nil

	case KindDouble:
		f, err := toFloat64(raw)
		if err != nil {
			return nil, coerceErr(t, raw, err.Error())
		}
		return f, nil

	case KindDecimal:
		d, err := toDecimal(raw)
		if err != nil {
			return nil, coerceErr(t, raw, err.Error())
		}
		return d, nil

	case KindString:
		if s, ok := raw.(string); ok {
			return norm.NFC.String(s), nil
		}
		return nil, coerceErr(t, raw, "expected a string")

	case KindAny:
		return raw, nil

	case KindNullable:
		return Convert(t.args[0], raw)

	case KindList:
		items, ok := raw.([]any)
		if !ok {
			return nil, coerceErr(t, raw, "expected an array")
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := Convert(t.args[0], item)
			if err != nil {
				return nil, qerr.Wrap(qerr.CodeValueCoercion, err, "%s[%d]", t, i)
			}
			out[i] = v
		}
		return out, nil

	case KindObject:
		return materialize(t, raw)

	default:
		return nil, coerceErr(t, raw, "type cannot be written as a literal")
	}
}

// materialize builds a record field by field.
func materialize(t *Type, raw any) (any, error) {
	if rec, ok := raw.(*Record); ok {
		if rec == nil {
			return nil, nil
		}
		if rec.typ != t {
			return nil, coerceErr(t, raw, "record is of type "+rec.typ.name)
		}
		return rec, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, coerceErr(t, raw, "expected an object")
	}

	values := make(map[string]any, len(obj))
	for key, fieldRaw := range obj {
		m, ok := t.members[key]
		if !ok {
			return nil, qerr.New(qerr.CodeValueCoercion, "type %s has no field %q", t, key).
				WithSuggestion(qerr.Suggest(key, t.MemberNames()))
		}
		v, err := Convert(m.Type, fieldRaw)
		if err != nil {
			return nil, qerr.Wrap(qerr.CodeValueCoercion, err, "%s.%s", t, key)
		}
		values[key] = v
	}
	return NewRecord(t, values)
}

func coerceErr(t *Type, raw any, reason string) *qerr.Error {
	return qerr.New(qerr.CodeValueCoercion, "cannot convert %s to %s: %s", describe(raw), t, reason)
}

func describe(raw any) string {
	switch v := raw.(type) {
	case nil:
		return "null"
	case json.Number:
		return "number " + v.String()
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "value"
		}
		return string(b)
	}
}

type coerceError string

func (e coerceError) Error() string { return string(e) }

const (
	errNotNumber  coerceError = "expected a number"
	errFractional coerceError = "not an integer"
	errRange      coerceError = "out of range"
)

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return 0, errNotNumber
		}
		return decimalToInt64(d)
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, errRange
		}
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, errRange
		}
		return int64(v), nil
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case decimal.Decimal:
		return decimalToInt64(v)
	default:
		return 0, errNotNumber
	}
}

func floatToInt64(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotNumber
	}
	if f != math.Trunc(f) {
		return 0, errFractional
	}
	// 2^63 is exactly representable; anything at or beyond it overflows.
	if f < -9223372036854775808.0 || f >= 9223372036854775808.0 {
		return 0, errRange
	}
	return int64(f), nil
}

func decimalToInt64(d decimal.Decimal) (int64, error) {
	if !d.IsInteger() {
		return 0, errFractional
	}
	if d.LessThan(decimal.NewFromInt(math.MinInt64)) || d.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, errRange
	}
	return d.IntPart(), nil
}

func toFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, errNotNumber
		}
		return f, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case decimal.Decimal:
		return v.InexactFloat64(), nil
	default:
		n, err := toInt64(raw)
		if err != nil {
			return 0, err
		}
		return float64(n), nil
	}
}

func toDecimal(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Decimal{}, errNotNumber
		}
		return d, nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Decimal{}, errNotNumber
		}
		return d, nil
	case decimal.Decimal:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Decimal{}, errNotNumber
		}
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	default:
		n, err := toInt64(raw)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromInt(n), nil
	}
}
