package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/linql/internal/ast"
)

// snapshotMap returns the deterministic part of a result: per step its
// status, result type, row count and result. Fingerprints and error
// text are left out.
func snapshotMap(scenarioName string, result *Result) map[string]any {
	steps := make([]any, len(result.Steps))
	for i, s := range result.Steps {
		step := map[string]any{
			"name":   s.Name,
			"status": s.Status,
			"rows":   s.Rows,
		}
		if s.ResultType != "" {
			step["result_type"] = s.ResultType
		}
		if s.Result != nil {
			step["result"] = s.Result
		}
		steps[i] = step
	}
	return map[string]any{
		"scenario_name": scenarioName,
		"steps":         steps,
	}
}

// Snapshot encodes the deterministic part of a result as canonical JSON,
// the golden file format.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	return ast.MarshalCanonical(snapshotMap(scenarioName, result))
}

// RunWithGolden executes a scenario and compares its step outcomes
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot run or does not pass.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if !result.Pass {
		return fmt.Errorf("scenario %s failed: %v", scenario.Name, result.Errors)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
