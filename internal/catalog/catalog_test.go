package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linql/internal/ast"
	"github.com/roach88/linql/internal/qerr"
)

func loadModels(t *testing.T) (*Catalog, *Namespace) {
	t.Helper()
	loaded, err := LoadCUE("testdata/models.cue")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	return New(loaded), loaded[0]
}

func TestResolve_Builtins(t *testing.T) {
	c := New(nil)

	testCases := []struct {
		name string
		want *Type
	}{
		{"Boolean", Boolean},
		{"Int32", Int32},
		{"Int64", Int64},
		{"Double", Double},
		{"Decimal", Decimal},
		{"String", String},
		{"Object", Object},
		{"System.Int32", Int32},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.Resolve(&ast.TypeRef{TypeName: tc.name})
			require.NoError(t, err)
			assert.Same(t, tc.want, got)
		})
	}
}

func TestResolve_GenericIsMemoized(t *testing.T) {
	c := New(nil)
	ref := ast.Type("List", ast.Type("Int32"))

	a, err := c.Resolve(ref)
	require.NoError(t, err)
	b, err := c.Resolve(ast.Type("List`1", ast.Type("Int32")))
	require.NoError(t, err)
	alias, err := c.Resolve(ast.Type("IEnumerable", ast.Type("Int32")))
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Same(t, a, alias)
	assert.Same(t, a, ListOf(Int32))
	assert.Equal(t, "List<Int32>", a.Name())
	assert.Equal(t, KindList, a.Kind())
	assert.Same(t, Int32, a.Elem())
}

func TestResolve_NestedGenerics(t *testing.T) {
	c := New(nil)

	got, err := c.Resolve(ast.Type("IGrouping", ast.Type("String"), ast.Type("List", ast.Type("Nullable", ast.Type("Int32")))))
	require.NoError(t, err)

	assert.Equal(t, "IGrouping<String, List<Nullable<Int32>>>", got.Name())
	assert.Same(t, String, got.Key())
	assert.Equal(t, KindNullable, got.Elem().Elem().Kind())
}

func nestedList(depth int) *ast.TypeRef {
	ref := ast.Type("Int32")
	for i := 0; i < depth; i++ {
		ref = ast.Type("List", ref)
	}
	return ref
}

func TestResolve_GenericDepthIsBounded(t *testing.T) {
	c := New(nil)

	got, err := c.Resolve(nestedList(MaxGenericDepth))
	require.NoError(t, err)
	for i := 0; i < MaxGenericDepth; i++ {
		got = got.Elem()
	}
	assert.Same(t, Int32, got)

	before := memoSize()
	_, err = c.Resolve(nestedList(200))
	assert.True(t, qerr.Is(err, qerr.CodeTypeResolution), "got %v", err)
	assert.Equal(t, before, memoSize(), "rejected descriptors add no instances")

	_, err = c.ResolveName(strings.Repeat("List<", MaxGenericDepth+1) + "Int32" + strings.Repeat(">", MaxGenericDepth+1))
	assert.True(t, qerr.Is(err, qerr.CodeTypeResolution), "got %v", err)
}

func memoSize() int {
	instancesMu.Lock()
	defer instancesMu.Unlock()
	return len(instances)
}

func TestResolve_Errors(t *testing.T) {
	c := New(nil)

	testCases := []struct {
		name string
		ref  *ast.TypeRef
	}{
		{"nil", nil},
		{"unknown", ast.Type("Frobnicate")},
		{"missing parameter", ast.Type("List")},
		{"extra parameter", ast.Type("Int32", ast.Type("Int32"))},
		{"two for one", ast.Type("List", ast.Type("Int32"), ast.Type("Int32"))},
		{"suffix disagrees", ast.Type("List`2", ast.Type("Int32"))},
		{"bad suffix", ast.Type("List`x", ast.Type("Int32"))},
		{"unknown parameter", ast.Type("List", ast.Type("Nope"))},
		{"nullable reference", ast.Type("Nullable", ast.Type("String"))},
		{"unknown namespace member", ast.Type("System.DataModel")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.Resolve(tc.ref)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, qerr.Is(err, qerr.CodeTypeResolution), "got %v", err)
		})
	}
}

func TestResolve_UnknownSuggests(t *testing.T) {
	c, _ := loadModels(t)

	_, err := c.Resolve(ast.Type("DataModle"))
	require.Error(t, err)

	var qe *qerr.Error
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, `did you mean "DataModel"?`, qe.Suggestion)
}

func TestResolve_FirstMatchWins(t *testing.T) {
	first := NewNamespace("First")
	firstModel := NewObject("Model", Field{Name: "A", Type: Int32})
	require.NoError(t, first.Define(firstModel))

	second := NewNamespace("Second")
	secondModel := NewObject("Model", Field{Name: "B", Type: String})
	require.NoError(t, second.Define(secondModel))

	c := New([]*Namespace{first, second})

	got, err := c.Resolve(ast.Type("Model"))
	require.NoError(t, err)
	assert.Same(t, firstModel, got)

	got, err = c.Resolve(ast.Type("Second.Model"))
	require.NoError(t, err)
	assert.Same(t, secondModel, got)

	reversed := New([]*Namespace{second, first})
	got, err = reversed.Resolve(ast.Type("Model"))
	require.NoError(t, err)
	assert.Same(t, secondModel, got)

	// Same-named types in different namespaces instantiate separately.
	assert.NotSame(t, ListOf(firstModel), ListOf(secondModel))
}

func TestResolveName_Expressions(t *testing.T) {
	c, _ := loadModels(t)

	testCases := []struct {
		expr string
		want string
	}{
		{"Int32", "Int32"},
		{"Int32?", "Nullable<Int32>"},
		{"String?", "String"},
		{"List<Int32?>", "List<Nullable<Int32>>"},
		{"IGrouping<String, DataModel>", "IGrouping<String, DataModel>"},
		{" Models.DataModel ", "DataModel"},
	}

	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := c.ResolveName(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Name())
		})
	}

	for _, bad := range []string{"", "List<", "List<Int32", "List<Int32>>", "<Int32>"} {
		_, err := c.ResolveName(bad)
		assert.True(t, qerr.Is(err, qerr.CodeTypeResolution), "expr %q", bad)
	}
}

func TestMembers_Builtins(t *testing.T) {
	m, ok := String.Member("Length")
	require.True(t, ok)
	v, err := m.Get("héllo")
	require.NoError(t, err)
	assert.Equal(t, int32(5), v)

	list := ListOf(Int32)
	m, ok = list.Member("Count")
	require.True(t, ok)
	v, err = m.Get([]any{int32(1), int32(2)})
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)

	_, err = m.Get(nil)
	assert.Error(t, err)

	nullable, err := NullableOf(Int32)
	require.NoError(t, err)
	hasValue, _ := nullable.Member("HasValue")
	value, _ := nullable.Member("Value")

	v, err = hasValue.Get(nil)
	require.NoError(t, err)
	assert.Equal(t, false, v)
	v, err = hasValue.Get(int32(3))
	require.NoError(t, err)
	assert.Equal(t, true, v)
	v, err = value.Get(int32(3))
	require.NoError(t, err)
	assert.Equal(t, int32(3), v)
	_, err = value.Get(nil)
	assert.Error(t, err)

	group := GroupingOf(String, Int32)
	key, _ := group.Member("Key")
	count, _ := group.Member("Count")
	g := &Grouping{Key: "a", Items: []any{int32(1), int32(2), int32(3)}}
	v, err = key.Get(g)
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	v, err = count.Get(g)
	require.NoError(t, err)
	assert.Equal(t, int32(3), v)
}

func TestLift(t *testing.T) {
	assert.Equal(t, "Nullable<Int32>", Lift(Int32).Name())
	assert.Same(t, String, Lift(String))
	assert.Same(t, Lift(Int32), Lift(Int32))

	_, err := NullableOf(Lift(Int32))
	assert.Error(t, err)
}

func TestNamespace_DefineErrors(t *testing.T) {
	ns := NewNamespace("Models")
	require.NoError(t, ns.Define(NewObject("A")))

	assert.Error(t, ns.Define(NewObject("A")))
	assert.Error(t, ns.Define(nil))
	assert.Error(t, ns.Define(Int32))
	assert.Error(t, ns.Define(NewObject("List<Int32>")))

	other := NewNamespace("Other")
	owned := NewObject("B")
	require.NoError(t, ns.Define(owned))
	assert.Error(t, other.Define(owned))

	assert.Equal(t, []string{"A", "B"}, ns.Names())
}
