package compiler

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linql/internal/ast"
	"github.com/roach88/linql/internal/catalog"
	"github.com/roach88/linql/internal/pipeline"
	"github.com/roach88/linql/internal/sequence"
)

const fixtureSize = 100

// fixture is the catalog and record set shared by the compiler tests.
type fixture struct {
	catalog   *catalog.Catalog
	dataModel *catalog.Type
	records   []any
}

// newFixture loads testdata/models.cue and builds fixtureSize DataModel
// records numbered 1..fixtureSize:
//   - Integer i, Long i*1000, Double i/2, Decimal i, String "recNNN"
//   - Boolean true for even i
//   - ListInteger [] when i%10 == 0, otherwise [i%4, i]
//   - OneToOneNullable.Integer i for even i, null for odd i
func newFixture(t *testing.T) *fixture {
	t.Helper()
	loaded, err := catalog.LoadCUE("testdata/models.cue")
	require.NoError(t, err)
	cat := catalog.New(loaded)

	dm, err := cat.ResolveName("DataModel")
	require.NoError(t, err)
	nm, err := cat.ResolveName("NullableModel")
	require.NoError(t, err)

	records := make([]any, 0, fixtureSize)
	for i := 1; i <= fixtureSize; i++ {
		list := []any{}
		if i%10 != 0 {
			list = []any{int32(i % 4), int32(i)}
		}

		var nullableInt any
		if i%2 == 0 {
			nullableInt = int32(i)
		}
		nested, err := catalog.NewRecord(nm, map[string]any{"Integer": nullableInt})
		require.NoError(t, err)

		rec, err := catalog.NewRecord(dm, map[string]any{
			"Boolean":          i%2 == 0,
			"Integer":          int32(i),
			"Long":             int64(i) * 1000,
			"Double":           float64(i) / 2,
			"Decimal":          decimal.NewFromInt(int64(i)),
			"String":           fmt.Sprintf("rec%03d", i),
			"ListInteger":      list,
			"OneToOneNullable": nested,
		})
		require.NoError(t, err)
		records = append(records, rec)
	}
	return &fixture{catalog: cat, dataModel: dm, records: records}
}

func (f *fixture) source() pipeline.Queryable {
	return sequence.FromSlice(f.records)
}

// run compiles s against the fixture and drains the result.
func (f *fixture) run(t *testing.T, s *ast.Search, opts ...Option) any {
	t.Helper()
	p, err := New(f.catalog, opts...).CompileSearch(s, f.source())
	require.NoError(t, err)
	v, err := p.Execute()
	require.NoError(t, err)
	out, err := pipeline.Materialize(v)
	require.NoError(t, err)
	return out
}

// field reads name from every record in rows.
func field(t *testing.T, rows any, name string) []any {
	t.Helper()
	list, ok := rows.([]any)
	require.True(t, ok, "result is %T, not a list", rows)
	out := make([]any, len(list))
	for i, r := range list {
		rec, ok := r.(*catalog.Record)
		require.True(t, ok, "row %d is %T", i, r)
		v, ok := rec.Get(name)
		require.True(t, ok)
		out[i] = v
	}
	return out
}

func int32s(n ...int32) []any {
	out := make([]any, len(n))
	for i, v := range n {
		out[i] = v
	}
	return out
}

func i32(v int) *ast.Constant { return ast.Const("Int32", v) }

func pipelineDrain(v any) (any, error) { return pipeline.Materialize(v) }
