package catalog

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf16"
)

// SystemNamespace names the built-in namespace.
const SystemNamespace = "System"

// Built-in scalar types.
var (
	Boolean = scalar("Boolean", KindBool)
	Int32   = scalar("Int32", KindInt32)
	Int64   = scalar("Int64", KindInt64)
	Double  = scalar("Double", KindDouble)
	Decimal = scalar("Decimal", KindDecimal)
	String  = scalar("String", KindString)
	Object  = scalar("Object", KindAny)
)

func scalar(name string, kind Kind) *Type {
	return &Type{
		name:      name,
		namespace: SystemNamespace,
		kind:      kind,
		members:   make(map[string]*Member),
	}
}

func init() {
	String.members["Length"] = &Member{
		Name:  "Length",
		Type:  Int32,
		index: -1,
		Get: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, nullRef("String.Length")
			}
			return int32(len(utf16.Encode([]rune(s)))), nil
		},
	}
}

func nullRef(what string) error {
	return fmt.Errorf("cannot read %s from null reference", what)
}

// genericDef is an open generic type awaiting its arguments.
type genericDef struct {
	name  string
	arity int
	build func(args []*Type) (*Type, error)
}

var (
	listDef = &genericDef{name: "List", arity: 1, build: func(args []*Type) (*Type, error) {
		t := &Type{name: genericName("List", args), kind: KindList, args: args, members: make(map[string]*Member)}
		t.members["Count"] = &Member{Name: "Count", Type: Int32, index: -1, Get: func(v any) (any, error) {
			items, ok := v.([]any)
			if !ok {
				if v == nil {
					return nil, nullRef(t.name + ".Count")
				}
				return nil, fmt.Errorf("value %T is not a list", v)
			}
			return int32(len(items)), nil
		}}
		return t, nil
	}}

	nullableDef = &genericDef{name: "Nullable", arity: 1, build: func(args []*Type) (*Type, error) {
		if !args[0].IsValueKind() {
			return nil, fmt.Errorf("Nullable<T> requires a value type, got %s", args[0])
		}
		t := &Type{name: genericName("Nullable", args), kind: KindNullable, args: args, members: make(map[string]*Member)}
		t.members["HasValue"] = &Member{Name: "HasValue", Type: Boolean, index: -1, Get: func(v any) (any, error) {
			return v != nil, nil
		}}
		t.members["Value"] = &Member{Name: "Value", Type: args[0], index: -1, Get: func(v any) (any, error) {
			if v == nil {
				return nil, fmt.Errorf("%s.Value: nullable object must have a value", t.name)
			}
			return v, nil
		}}
		return t, nil
	}}

	groupingDef = &genericDef{name: "IGrouping", arity: 2, build: func(args []*Type) (*Type, error) {
		t := &Type{name: genericName("IGrouping", args), kind: KindGrouping, args: args, members: make(map[string]*Member)}
		t.members["Key"] = &Member{Name: "Key", Type: args[0], index: -1, Get: func(v any) (any, error) {
			g, ok := v.(*Grouping)
			if !ok || g == nil {
				return nil, nullRef(t.name + ".Key")
			}
			return g.Key, nil
		}}
		t.members["Count"] = &Member{Name: "Count", Type: Int32, index: -1, Get: func(v any) (any, error) {
			g, ok := v.(*Grouping)
			if !ok || g == nil {
				return nil, nullRef(t.name + ".Count")
			}
			return int32(len(g.Items)), nil
		}}
		return t, nil
	}}

	queryableDef = &genericDef{name: "IQueryable", arity: 1, build: func(args []*Type) (*Type, error) {
		return &Type{name: genericName("IQueryable", args), kind: KindQueryable, args: args, members: make(map[string]*Member)}, nil
	}}

	orderedDef = &genericDef{name: "IOrderedQueryable", arity: 1, build: func(args []*Type) (*Type, error) {
		return &Type{name: genericName("IOrderedQueryable", args), kind: KindQueryable, ordered: true, args: args, members: make(map[string]*Member)}, nil
	}}

	funcDef = &genericDef{name: "Func", arity: 2, build: func(args []*Type) (*Type, error) {
		return &Type{name: genericName("Func", args), kind: KindFunc, args: args, members: make(map[string]*Member)}, nil
	}}
)

// instances memoizes generic instantiation. Keys combine the definition
// with argument identities so same-named object types in different
// namespaces never collide.
var (
	instancesMu sync.Mutex
	instances   = make(map[string]*Type)
)

func instantiate(def *genericDef, args []*Type) (*Type, error) {
	if len(args) != def.arity {
		return nil, fmt.Errorf("%s requires %d generic parameter(s), got %d", def.name, def.arity, len(args))
	}
	var key strings.Builder
	key.WriteString(def.name)
	for _, a := range args {
		if a == nil {
			return nil, fmt.Errorf("%s: nil generic parameter", def.name)
		}
		fmt.Fprintf(&key, "|%p", a)
	}

	instancesMu.Lock()
	defer instancesMu.Unlock()

	if t, ok := instances[key.String()]; ok {
		return t, nil
	}
	bound := make([]*Type, len(args))
	copy(bound, args)
	t, err := def.build(bound)
	if err != nil {
		return nil, err
	}
	instances[key.String()] = t
	return t, nil
}

func mustInstantiate(def *genericDef, args ...*Type) *Type {
	t, err := instantiate(def, args)
	if err != nil {
		panic(err)
	}
	return t
}

// ListOf returns List<elem>.
func ListOf(elem *Type) *Type { return mustInstantiate(listDef, elem) }

// QueryableOf returns IQueryable<elem>.
func QueryableOf(elem *Type) *Type { return mustInstantiate(queryableDef, elem) }

// OrderedQueryableOf returns IOrderedQueryable<elem>, the result of an
// ordering stage that ThenBy may refine.
func OrderedQueryableOf(elem *Type) *Type { return mustInstantiate(orderedDef, elem) }

// GroupingOf returns IGrouping<key, elem>.
func GroupingOf(key, elem *Type) *Type { return mustInstantiate(groupingDef, key, elem) }

// FuncOf returns Func<in, out>.
func FuncOf(in, out *Type) *Type { return mustInstantiate(funcDef, in, out) }

// NullableOf returns Nullable<t>. t must be a value kind.
func NullableOf(t *Type) (*Type, error) { return instantiate(nullableDef, []*Type{t}) }

// Lift returns the type that can hold t or null: Nullable<t> for value
// kinds, t itself otherwise.
func Lift(t *Type) *Type {
	if t.IsValueKind() {
		return mustInstantiate(nullableDef, t)
	}
	return t
}

var (
	systemOnce sync.Once
	systemNS   *Namespace
)

// System returns the built-in namespace. Every catalog searches it first.
func System() *Namespace {
	systemOnce.Do(func() {
		ns := NewNamespace(SystemNamespace)
		for _, t := range []*Type{Boolean, Int32, Int64, Double, Decimal, String, Object} {
			ns.mustDefine(&Definition{name: t.name, typ: t})
		}
		for _, d := range []struct {
			alias string
			def   *genericDef
		}{
			{"List", listDef},
			{"IEnumerable", listDef},
			{"Nullable", nullableDef},
			{"IGrouping", groupingDef},
			{"IQueryable", queryableDef},
			{"IOrderedQueryable", orderedDef},
			{"Func", funcDef},
		} {
			ns.mustDefine(&Definition{name: d.alias, generic: d.def})
		}
		systemNS = ns
	})
	return systemNS
}
