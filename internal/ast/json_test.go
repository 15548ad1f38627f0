package ast

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linql/internal/qerr"
)

// clientWhereFalse is the wire form a client emits for
// search.Where(r => false).
const clientWhereFalse = `{
  "Type": {"TypeName": "DataModel"},
  "Expressions": [
    {
      "$type": "LinqlFunction",
      "FunctionName": "Where",
      "Arguments": [
        {
          "$type": "LinqlLambda",
          "Parameters": [{"$type": "LinqlParameter", "ParameterName": "r"}],
          "Body": {
            "$type": "LinqlConstant",
            "ConstantType": {"TypeName": "Boolean"},
            "Value": false
          }
        }
      ]
    }
  ]
}`

func sampleSearch() *Search {
	return NewSearch("DataModel").
		Where(Lam("r", Bin("Equal", Path("r", "Integer"), Const("Int32", 1)))).
		Select(Lam("r", Path("r", "Integer"))).
		Skip(2)
}

func TestParseSearch_ClientDocument(t *testing.T) {
	s, err := ParseSearch([]byte(clientWhereFalse))
	require.NoError(t, err)

	assert.Equal(t, "DataModel", s.Type.TypeName)
	require.Len(t, s.Expressions, 1)

	fn, ok := s.Expressions[0].(*Function)
	require.True(t, ok)
	assert.Equal(t, "Where", fn.FunctionName)
	require.Len(t, fn.Arguments, 1)

	lambda, ok := fn.Arguments[0].(*Lambda)
	require.True(t, ok)
	require.Len(t, lambda.Parameters, 1)
	assert.Equal(t, "r", lambda.Parameters[0].ParameterName)

	body, ok := lambda.Body.(*Constant)
	require.True(t, ok)
	assert.Equal(t, "Boolean", body.ConstantType.TypeName)
	assert.Equal(t, false, body.Value)
}

func TestParseSearch_Errors(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"missing type", `{"Expressions": []}`},
		{"unknown kind", `{"Type": {"TypeName": "X"}, "Expressions": [{"$type": "LinqlNew"}]}`},
		{"no distinguishing field", `{"Type": {"TypeName": "X"}, "Expressions": [{"Foo": 1}]}`},
		{"lambda with non-parameter", `{"Type": {"TypeName": "X"}, "Expressions": [{"Parameters": [{"PropertyName": "a"}], "Body": null}]}`},
		{"arguments not array", `{"Type": {"TypeName": "X"}, "Expressions": [{"FunctionName": "Where", "Arguments": 3}]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSearch([]byte(tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestUnmarshalExpression_InfersKindWithoutDiscriminator(t *testing.T) {
	testCases := []struct {
		doc  string
		kind string
	}{
		{`{"ConstantType": {"TypeName": "Int32"}, "Value": 1}`, KindConstant},
		{`{"Type": {"TypeName": "DataModel"}, "Value": {}}`, KindObject},
		{`{"ParameterName": "r"}`, KindParameter},
		{`{"PropertyName": "Integer"}`, KindProperty},
		{`{"BinaryName": "Equal", "Left": null, "Right": null}`, KindBinary},
		{`{"UnaryName": "Not", "Operand": null}`, KindUnary},
		{`{"Parameters": [], "Body": null}`, KindLambda},
		{`{"FunctionName": "Distinct", "Arguments": []}`, KindFunction},
	}

	for _, tc := range testCases {
		t.Run(tc.kind, func(t *testing.T) {
			e, err := UnmarshalExpression([]byte(tc.doc))
			require.NoError(t, err)
			assert.Equal(t, tc.kind, KindOf(e))
		})
	}
}

func TestUnmarshalExpression_KeepsNumbersExact(t *testing.T) {
	e, err := UnmarshalExpression([]byte(`{"ConstantType": {"TypeName": "Decimal"}, "Value": 12345678901234567890.125}`))
	require.NoError(t, err)

	c := e.(*Constant)
	assert.Equal(t, json.Number("12345678901234567890.125"), c.Value)
}

func TestUnmarshalExpression_Null(t *testing.T) {
	e, err := UnmarshalExpression([]byte("null"))
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestMarshal_Golden(t *testing.T) {
	data, err := json.Marshal(sampleSearch())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "sample_search", data)
}

func TestMarshal_RoundTrip(t *testing.T) {
	original := sampleSearch()

	data, err := json.Marshal(original)
	require.NoError(t, err)

	decoded, err := ParseSearch(data)
	require.NoError(t, err)

	again, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))

	fp1, err := Fingerprint(original)
	require.NoError(t, err)
	fp2, err := Fingerprint(decoded)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
}

func TestMarshal_DiscriminatorFirst(t *testing.T) {
	data, err := MarshalExpression(Param("r"))
	require.NoError(t, err)
	assert.Equal(t, `{"$type":"LinqlParameter","ParameterName":"r"}`, string(data))

	data, err = MarshalExpression(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

// propertyChain renders a search whose first expression is a Property
// chain n nodes long, each node the Next of the previous.
func propertyChain(n int) []byte {
	var b strings.Builder
	b.WriteString(`{"Type": {"TypeName": "DataModel"}, "Expressions": [`)
	for i := 0; i < n; i++ {
		b.WriteString(`{"$type": "LinqlProperty", "PropertyName": "P", "Next": `)
	}
	b.WriteString("null")
	b.WriteString(strings.Repeat("}", n))
	b.WriteString("]}")
	return []byte(b.String())
}

func TestParseSearch_RejectsDeepNestingWhileDecoding(t *testing.T) {
	_, err := ParseSearch(propertyChain(5000))
	require.Error(t, err)
	assert.True(t, qerr.Is(err, qerr.CodeExpressionTooDeep), "got %v", err)
}

func TestParseSearchDepth_Bound(t *testing.T) {
	// A chain of n nodes has its deepest node at depth n-1.
	s, err := ParseSearchDepth(propertyChain(DefaultMaxDepth+1), DefaultMaxDepth)
	require.NoError(t, err)
	require.NoError(t, ValidateSearch(s, DefaultMaxDepth))

	_, err = ParseSearchDepth(propertyChain(DefaultMaxDepth+2), DefaultMaxDepth)
	assert.True(t, qerr.Is(err, qerr.CodeExpressionTooDeep), "got %v", err)

	s, err = ParseSearchDepth(propertyChain(400), 1000)
	require.NoError(t, err)
	assert.NoError(t, ValidateSearch(s, 1000))
}

func TestUnmarshalExpression_RejectsDeepArguments(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString(`{"FunctionName": "Any", "Arguments": [`)
	}
	b.WriteString(`{"ConstantType": {"TypeName": "Boolean"}, "Value": true}`)
	b.WriteString(strings.Repeat("]}", 300))

	_, err := UnmarshalExpression([]byte(b.String()))
	assert.True(t, qerr.Is(err, qerr.CodeExpressionTooDeep), "got %v", err)
}
