package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEqual_AgreesWithHashKey(t *testing.T) {
	shared := []any{int32(1), "a"}
	var nilList []any

	testCases := []struct {
		name  string
		a, b  any
		equal bool
	}{
		{"int32 and int64", int32(3), int64(3), true},
		{"int and double", int64(2), 2.0, true},
		{"int and decimal", int32(5), decimal.NewFromInt(5), true},
		{"different numbers", int32(1), int32(2), false},
		{"strings", "x", "x", true},
		{"bool and string", true, "true", false},
		{"same list", shared, shared, true},
		{"same contents, different lists", []any{int32(1)}, []any{int32(1)}, false},
		{"prefix of a list", shared[:1], shared, false},
		{"two empty lists", []any{}, []any{}, true},
		{"nil and empty list", nilList, []any{}, true},
		{"empty and non-empty", []any{}, shared, false},
		{"list and string", shared, "a", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.equal, Equal(tc.a, tc.b))
			assert.Equal(t, tc.equal, Equal(tc.b, tc.a))
			assert.Equal(t, tc.equal, HashKey(tc.a) == HashKey(tc.b), "hash keys must agree with Equal")
		})
	}
}

func TestHashKey_GroupsEmptyListsTogether(t *testing.T) {
	groups := map[any]int{}
	for _, v := range []any{[]any{}, []any(nil), make([]any, 0, 4)} {
		groups[HashKey(v)]++
	}
	assert.Len(t, groups, 1)
}
