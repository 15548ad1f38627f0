package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is an instance of an object type. Values are stored in field
// declaration order.
type Record struct {
	typ    *Type
	values []any
}

// NewRecord builds a record of type t. Missing fields take their zero
// value. Values must already be of the field type; use Convert to coerce
// raw input.
func NewRecord(t *Type, values map[string]any) (*Record, error) {
	if t == nil || t.kind != KindObject {
		return nil, fmt.Errorf("cannot create record of non-object type %s", t)
	}
	rec := &Record{typ: t, values: make([]any, len(t.fields))}
	for i, f := range t.fields {
		rec.values[i] = f.Type.Zero()
	}
	for name, v := range values {
		m, ok := t.members[name]
		if !ok {
			return nil, fmt.Errorf("type %s has no field %q", t, name)
		}
		rec.values[m.index] = v
	}
	return rec, nil
}

// Type returns the record's type.
func (r *Record) Type() *Type { return r.typ }

// Get reads a field by name.
func (r *Record) Get(name string) (any, bool) {
	m, ok := r.typ.members[name]
	if !ok {
		return nil, false
	}
	return r.values[m.index], true
}

// MarshalJSON encodes the record as an object with fields in declaration
// order.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.typ.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Grouping is one group produced by GroupBy.
type Grouping struct {
	Key   any
	Items []any
}

// MarshalJSON encodes the group as {"Key": ..., "Items": [...]}.
func (g *Grouping) MarshalJSON() ([]byte, error) {
	items := g.Items
	if items == nil {
		items = []any{}
	}
	return json.Marshal(struct {
		Key   any   `json:"Key"`
		Items []any `json:"Items"`
	}{g.Key, items})
}
