package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
catalog: [models.cue]
searches:
  - name: all
    search: '{"Type": {"TypeName": "DataModel"}, "Expressions": []}'
`

func TestLoadScenario_ResolvesPaths(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/grouping_shared_scope.yaml")
	require.NoError(t, err)

	assert.Equal(t, "grouping_shared_scope", s.Name)
	assert.Equal(t, "shared", s.BinaryScope)
	assert.Equal(t, []string{filepath.Join("testdata", "models.cue")}, s.Catalog)
	require.Len(t, s.Records, 1)
	assert.Equal(t, filepath.Join("testdata", "records", "datamodel.json"), s.Records[0].File)
	assert.Len(t, s.Searches, 4)
	assert.Len(t, s.Assertions, 2)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	assert.Error(t, err)
}

func TestParseScenario_BasePath(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario), "/schemas")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("/schemas", "models.cue")}, s.Catalog)

	s, err = ParseScenario([]byte(minimalScenario), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"models.cue"}, s.Catalog)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    strings.Replace(minimalScenario, "name: minimal", "", 1),
			wantErr: "name is required",
		},
		{
			name:    "missing catalog",
			yaml:    strings.Replace(minimalScenario, "catalog: [models.cue]", "", 1),
			wantErr: "catalog requires",
		},
		{
			name:    "unknown field",
			yaml:    minimalScenario + "asertions: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "bad binary scope",
			yaml:    minimalScenario + "binary_scope: leaky\n",
			wantErr: "leaky",
		},
		{
			name:    "no searches",
			yaml:    "name: x\ncatalog: [a.cue]\nsearches: []\n",
			wantErr: "at least one step",
		},
		{
			name: "duplicate search",
			yaml: minimalScenario + `  - name: all
    search: '{}'
`,
			wantErr: "duplicate name",
		},
		{
			name: "error with result",
			yaml: `
name: x
catalog: [a.cue]
searches:
  - name: s
    search: '{}'
    expect: {error: MEMBER_NOT_FOUND, result: [1]}
`,
			wantErr: "excludes result",
		},
		{
			name: "record set without type",
			yaml: minimalScenario + `records:
  - items: [{Integer: 1}]
`,
			wantErr: "type is required",
		},
		{
			name: "record set with items and file",
			yaml: minimalScenario + `records:
  - type: DataModel
    file: r.json
    items: [{Integer: 1}]
`,
			wantErr: "not both",
		},
		{
			name: "unknown assertion",
			yaml: minimalScenario + `assertions:
  - type: trace_order
`,
			wantErr: "unknown assertion type",
		},
		{
			name: "fingerprint of unknown search",
			yaml: minimalScenario + `assertions:
  - type: same_fingerprint
    searches: [all, missing]
`,
			wantErr: `unknown search "missing"`,
		},
		{
			name: "record_count without type",
			yaml: minimalScenario + `assertions:
  - type: record_count
    count: 1
`,
			wantErr: "record_type is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml), "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSearchJSON(t *testing.T) {
	text := SearchStep{Name: "t", Search: `{"Type": {"TypeName": "X"}}`}
	data, err := text.SearchJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"Type": {"TypeName": "X"}}`, string(data))

	mapping := SearchStep{Name: "m", Search: map[string]any{
		"Type": map[string]any{"TypeName": "X"},
	}}
	data, err = mapping.SearchJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"Type": {"TypeName": "X"}}`, string(data))

	bad := SearchStep{Name: "b", Search: []any{1}}
	_, err = bad.SearchJSON()
	assert.Error(t, err)
}
