package ast

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/linql/internal/qerr"
)

// discriminator is the wire field carrying the node kind.
const discriminator = "$type"

// marshalTagged encodes v as a JSON object with the "$type" discriminator as
// its first key, as polymorphic readers on the client side require.
func marshalTagged(kind string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", kind, err)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"` + discriminator + `":`)
	kindBytes, _ := json.Marshal(kind)
	buf.Write(kindBytes)
	if !bytes.Equal(body, []byte("{}")) {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler for Constant.
func (c *Constant) MarshalJSON() ([]byte, error) {
	type wire Constant
	return marshalTagged(KindConstant, (*wire)(c))
}

// MarshalJSON implements json.Marshaler for Object.
func (o *Object) MarshalJSON() ([]byte, error) {
	type wire Object
	return marshalTagged(KindObject, (*wire)(o))
}

// MarshalJSON implements json.Marshaler for Parameter.
func (p *Parameter) MarshalJSON() ([]byte, error) {
	type wire Parameter
	return marshalTagged(KindParameter, (*wire)(p))
}

// MarshalJSON implements json.Marshaler for Property.
func (p *Property) MarshalJSON() ([]byte, error) {
	type wire Property
	return marshalTagged(KindProperty, (*wire)(p))
}

// MarshalJSON implements json.Marshaler for Binary.
func (b *Binary) MarshalJSON() ([]byte, error) {
	type wire Binary
	return marshalTagged(KindBinary, (*wire)(b))
}

// MarshalJSON implements json.Marshaler for Unary.
func (u *Unary) MarshalJSON() ([]byte, error) {
	type wire Unary
	return marshalTagged(KindUnary, (*wire)(u))
}

// MarshalJSON implements json.Marshaler for Lambda.
func (l *Lambda) MarshalJSON() ([]byte, error) {
	type wire Lambda
	return marshalTagged(KindLambda, (*wire)(l))
}

// MarshalJSON implements json.Marshaler for Function.
func (f *Function) MarshalJSON() ([]byte, error) {
	type wire Function
	return marshalTagged(KindFunction, (*wire)(f))
}

// MarshalExpression encodes an expression to wire JSON.
func MarshalExpression(e Expression) ([]byte, error) {
	if e == nil {
		return []byte("null"), nil
	}
	return json.Marshal(e)
}

// UnmarshalExpression decodes wire JSON into an Expression.
//
// The node kind comes from the "$type" discriminator. When the
// discriminator is absent the kind is inferred from the node's
// distinguishing field (ConstantType, ParameterName, ...), so trees written
// by hand or by clients that omit it still decode. JSON null decodes to a
// nil Expression. Nesting deeper than DefaultMaxDepth fails with
// EXPRESSION_TOO_DEEP.
func UnmarshalExpression(data []byte) (Expression, error) {
	return UnmarshalExpressionDepth(data, DefaultMaxDepth)
}

// UnmarshalExpressionDepth is UnmarshalExpression with an explicit nesting
// bound, counted the way Validate counts it. Zero or negative selects
// DefaultMaxDepth.
func UnmarshalExpressionDepth(data []byte, maxDepth int) (Expression, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	d := &decoder{maxDepth: maxDepth}
	return d.expression(data, 0)
}

// decoder carries the nesting bound through recursive decoding so a
// pathologically deep document is rejected before its subtrees are parsed.
type decoder struct {
	maxDepth int
}

func (d *decoder) expression(data []byte, depth int) (Expression, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if depth > d.maxDepth {
		return nil, qerr.New(qerr.CodeExpressionTooDeep, "expression nesting exceeds %d", d.maxDepth)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("expression must be a JSON object: %w", err)
	}

	kind, err := kindOf(fields)
	if err != nil {
		return nil, err
	}

	child := func(name string) (Expression, error) {
		return d.child(fields, kind, name, depth+1)
	}

	switch kind {
	case KindConstant:
		c := &Constant{}
		if err := decodeField(fields, "ConstantType", &c.ConstantType); err != nil {
			return nil, err
		}
		if c.Value, err = decodeValue(fields["Value"]); err != nil {
			return nil, fmt.Errorf("%s.Value: %w", kind, err)
		}
		return c, nil

	case KindObject:
		o := &Object{}
		if err := decodeField(fields, "Type", &o.Type); err != nil {
			return nil, err
		}
		if o.Value, err = decodeValue(fields["Value"]); err != nil {
			return nil, fmt.Errorf("%s.Value: %w", kind, err)
		}
		if o.Next, err = child("Next"); err != nil {
			return nil, err
		}
		return o, nil

	case KindParameter:
		p := &Parameter{}
		if err := decodeField(fields, "ParameterName", &p.ParameterName); err != nil {
			return nil, err
		}
		if p.Next, err = child("Next"); err != nil {
			return nil, err
		}
		return p, nil

	case KindProperty:
		p := &Property{}
		if err := decodeField(fields, "PropertyName", &p.PropertyName); err != nil {
			return nil, err
		}
		if p.Next, err = child("Next"); err != nil {
			return nil, err
		}
		return p, nil

	case KindBinary:
		b := &Binary{}
		if err := decodeField(fields, "BinaryName", &b.BinaryName); err != nil {
			return nil, err
		}
		if b.Left, err = child("Left"); err != nil {
			return nil, err
		}
		if b.Right, err = child("Right"); err != nil {
			return nil, err
		}
		return b, nil

	case KindUnary:
		u := &Unary{}
		if err := decodeField(fields, "UnaryName", &u.UnaryName); err != nil {
			return nil, err
		}
		if u.Operand, err = child("Operand"); err != nil {
			return nil, err
		}
		if u.Next, err = child("Next"); err != nil {
			return nil, err
		}
		return u, nil

	case KindLambda:
		l := &Lambda{}
		params, err := d.children(fields, kind, "Parameters", depth+1)
		if err != nil {
			return nil, err
		}
		for i, p := range params {
			param, ok := p.(*Parameter)
			if !ok {
				return nil, fmt.Errorf("%s.Parameters[%d]: expected %s, got %s", kind, i, KindParameter, KindOf(p))
			}
			l.Parameters = append(l.Parameters, param)
		}
		if l.Body, err = child("Body"); err != nil {
			return nil, err
		}
		return l, nil

	case KindFunction:
		f := &Function{}
		if err := decodeField(fields, "FunctionName", &f.FunctionName); err != nil {
			return nil, err
		}
		if f.Arguments, err = d.children(fields, kind, "Arguments", depth+1); err != nil {
			return nil, err
		}
		if f.Next, err = child("Next"); err != nil {
			return nil, err
		}
		return f, nil

	default:
		return nil, fmt.Errorf("unknown expression kind %q", kind)
	}
}

// kindOf reads the discriminator or infers the kind from distinguishing fields.
func kindOf(fields map[string]json.RawMessage) (string, error) {
	if raw, ok := fields[discriminator]; ok {
		var kind string
		if err := json.Unmarshal(raw, &kind); err != nil {
			return "", fmt.Errorf("%s must be a string: %w", discriminator, err)
		}
		return kind, nil
	}

	inferred := []struct {
		field string
		kind  string
	}{
		{"ConstantType", KindConstant},
		{"ParameterName", KindParameter},
		{"PropertyName", KindProperty},
		{"BinaryName", KindBinary},
		{"UnaryName", KindUnary},
		{"FunctionName", KindFunction},
		{"Body", KindLambda},
		{"Type", KindObject},
	}
	for _, in := range inferred {
		if _, ok := fields[in.field]; ok {
			return in.kind, nil
		}
	}
	return "", fmt.Errorf("expression has no %s and no distinguishing field", discriminator)
}

// decodeField decodes an optional scalar or TypeRef field.
func decodeField(fields map[string]json.RawMessage, name string, dst any) error {
	raw, ok := fields[name]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %s: %w", name, err)
	}
	return nil
}

func (d *decoder) child(fields map[string]json.RawMessage, kind, name string, depth int) (Expression, error) {
	raw, ok := fields[name]
	if !ok {
		return nil, nil
	}
	child, err := d.expression(raw, depth)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", kind, name, err)
	}
	return child, nil
}

func (d *decoder) children(fields map[string]json.RawMessage, kind, name string, depth int) ([]Expression, error) {
	raw, ok := fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%s.%s must be an array: %w", kind, name, err)
	}
	out := make([]Expression, 0, len(items))
	for i, item := range items {
		child, err := d.expression(item, depth)
		if err != nil {
			return nil, fmt.Errorf("%s.%s[%d]: %w", kind, name, i, err)
		}
		out = append(out, child)
	}
	return out, nil
}

// decodeValue decodes a raw literal keeping numbers as json.Number so the
// catalog can coerce them without float rounding.
func decodeValue(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
