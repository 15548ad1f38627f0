package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		scenario, err := LoadScenario(file)
		require.NoError(t, err)
		t.Run(scenario.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestSnapshot_OmitsVolatileFields(t *testing.T) {
	result := NewResult()
	result.Steps = []StepResult{
		{Name: "bad", Status: "member_not_found", Fingerprint: "abc", Error: "boom"},
	}
	snap := snapshotMap("s", result)
	steps := snap["steps"].([]any)
	step := steps[0].(map[string]any)
	require.NotContains(t, step, "fingerprint")
	require.NotContains(t, step, "error")
	require.NotContains(t, step, "result")
	require.Equal(t, "member_not_found", step["status"])

	data, err := Snapshot("s", result)
	require.NoError(t, err)
	require.Equal(t, `{"scenario_name":"s","steps":[{"name":"bad","rows":0,"status":"member_not_found"}]}`, string(data))
}
