package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind classifies a concrete type.
type Kind int

const (
	KindObject Kind = iota // record type with declared fields
	KindBool
	KindInt32
	KindInt64
	KindDouble
	KindDecimal
	KindString
	KindAny       // System.Object, accepts any value
	KindList      // List<T>
	KindNullable  // Nullable<T>
	KindGrouping  // IGrouping<K, T>
	KindQueryable // IQueryable<T>, a pipeline stage
	KindFunc      // Func<T, R>, a compiled lambda
)

var kindNames = map[Kind]string{
	KindObject:    "object",
	KindBool:      "bool",
	KindInt32:     "int32",
	KindInt64:     "int64",
	KindDouble:    "double",
	KindDecimal:   "decimal",
	KindString:    "string",
	KindAny:       "any",
	KindList:      "list",
	KindNullable:  "nullable",
	KindGrouping:  "grouping",
	KindQueryable: "queryable",
	KindFunc:      "func",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Type is a concrete, fully bound type.
//
// Types are compared by identity: the catalog memoizes generic
// instantiations so List<Int32> always yields the same *Type.
type Type struct {
	name      string
	namespace string
	kind      Kind
	ordered   bool
	args      []*Type
	fields    []*Member          // declaration order, objects only
	members   map[string]*Member // accessor table built at registration
}

// Member is a named accessor on a type.
type Member struct {
	// Name is the member name as it appears on the wire.
	Name string

	// Type is the member's value type.
	Type *Type

	// Get reads the member from a value of the owning type.
	Get func(v any) (any, error)

	index int // field slot for objects, -1 otherwise
}

// Field declares an object field for NewObject.
type Field struct {
	Name string
	Type *Type
}

// NewObject creates a record type. Fields may also be added later with
// AddField, which allows self-referencing types; a type must not change
// once it is registered in a Namespace that a Catalog is using.
func NewObject(name string, fields ...Field) *Type {
	t := &Type{
		name:    name,
		kind:    KindObject,
		members: make(map[string]*Member),
	}
	for _, f := range fields {
		if err := t.AddField(f.Name, f.Type); err != nil {
			panic(err)
		}
	}
	return t
}

// AddField appends a field to an object type.
func (t *Type) AddField(name string, ft *Type) error {
	if t.kind != KindObject {
		return fmt.Errorf("cannot add field %q to non-object type %s", name, t)
	}
	if name == "" {
		return fmt.Errorf("type %s: empty field name", t)
	}
	if ft == nil {
		return fmt.Errorf("type %s: field %q has no type", t, name)
	}
	if _, exists := t.members[name]; exists {
		return fmt.Errorf("type %s: duplicate field %q", t, name)
	}

	idx := len(t.fields)
	owner := t
	m := &Member{
		Name:  name,
		Type:  ft,
		index: idx,
		Get: func(v any) (any, error) {
			rec, ok := v.(*Record)
			if !ok || rec == nil {
				return nil, fmt.Errorf("cannot read %s.%s from null reference", owner, name)
			}
			return rec.values[idx], nil
		},
	}
	t.fields = append(t.fields, m)
	t.members[name] = m
	return nil
}

// Name returns the type's display name, e.g. "List<Int32>".
func (t *Type) Name() string { return t.name }

// Namespace returns the registering namespace, "" for generic instances.
func (t *Type) Namespace() string { return t.namespace }

// Kind returns the type's kind.
func (t *Type) Kind() Kind { return t.kind }

// Args returns the bound generic arguments.
func (t *Type) Args() []*Type { return t.args }

// String implements fmt.Stringer.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.name
}

// Elem returns the element type of sequence types (List, IQueryable,
// IGrouping) and the underlying type of Nullable. Returns nil otherwise.
func (t *Type) Elem() *Type {
	switch t.kind {
	case KindList, KindQueryable, KindNullable:
		return t.args[0]
	case KindGrouping:
		return t.args[1]
	default:
		return nil
	}
}

// Key returns the key type of IGrouping, nil otherwise.
func (t *Type) Key() *Type {
	if t.kind == KindGrouping {
		return t.args[0]
	}
	return nil
}

// Result returns the result type of Func, nil otherwise.
func (t *Type) Result() *Type {
	if t.kind == KindFunc {
		return t.args[1]
	}
	return nil
}

// Input returns the input type of Func, nil otherwise.
func (t *Type) Input() *Type {
	if t.kind == KindFunc {
		return t.args[0]
	}
	return nil
}

// IsSequence reports whether values of t can feed a pipeline function.
func (t *Type) IsSequence() bool {
	switch t.kind {
	case KindList, KindQueryable, KindGrouping:
		return true
	default:
		return false
	}
}

// IsOrdered reports whether t is IOrderedQueryable.
func (t *Type) IsOrdered() bool { return t.ordered }

// IsOrderable reports whether values of t have a total order usable as a
// sort key: numbers, strings, booleans and their nullable forms.
func (t *Type) IsOrderable() bool {
	u := t.Underlying()
	return u.IsNumeric() || u.kind == KindString || u.kind == KindBool
}

// AssignableTo reports whether a value of t can be used where u is
// expected without conversion.
func (t *Type) AssignableTo(u *Type) bool {
	switch {
	case t == u:
		return true
	case u.kind == KindAny:
		return true
	case u.kind == KindNullable:
		return u.args[0] == t
	default:
		return false
	}
}

// IsNumeric reports whether t is an arithmetic type.
func (t *Type) IsNumeric() bool {
	switch t.kind {
	case KindInt32, KindInt64, KindDouble, KindDecimal:
		return true
	default:
		return false
	}
}

// IsInteger reports whether t is an integral type.
func (t *Type) IsInteger() bool {
	return t.kind == KindInt32 || t.kind == KindInt64
}

// IsValueKind reports whether t is a non-nullable value type.
func (t *Type) IsValueKind() bool {
	switch t.kind {
	case KindBool, KindInt32, KindInt64, KindDouble, KindDecimal:
		return true
	default:
		return false
	}
}

// Underlying strips one Nullable wrapper.
func (t *Type) Underlying() *Type {
	if t.kind == KindNullable {
		return t.args[0]
	}
	return t
}

// Member resolves a member by exact name.
func (t *Type) Member(name string) (*Member, bool) {
	m, ok := t.members[name]
	return m, ok
}

// MemberNames lists member names in sorted order.
func (t *Type) MemberNames() []string {
	names := make([]string, 0, len(t.members))
	for n := range t.members {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Fields returns object fields in declaration order.
func (t *Type) Fields() []*Member {
	return t.fields
}

// Zero returns the default value of t: false or 0 for value kinds,
// decimal zero for Decimal, nil for everything else.
func (t *Type) Zero() any {
	switch t.kind {
	case KindBool:
		return false
	case KindInt32:
		return int32(0)
	case KindInt64:
		return int64(0)
	case KindDouble:
		return float64(0)
	case KindDecimal:
		return decimal.Zero
	default:
		return nil
	}
}

// genericName renders Name<Arg, ...>.
func genericName(base string, args []*Type) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Name()
	}
	return base + "<" + strings.Join(parts, ", ") + ">"
}
