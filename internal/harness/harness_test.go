package harness

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_FilterAndProject(t *testing.T) {
	result, err := Run(loadTestScenario(t, "filter_and_project"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Steps, 6)

	even, ok := result.Step("even_integers")
	require.True(t, ok)
	again, _ := result.Step("even_integers_again")
	assert.Equal(t, even.Fingerprint, again.Fingerprint)
	assert.NotEmpty(t, even.Fingerprint)

	typo, _ := result.Step("typo")
	assert.Equal(t, "member_not_found", typo.Status)
	assert.Contains(t, typo.Error, "Integr")
	assert.Nil(t, typo.Result)
}

func TestRun_SharedScopeFromFile(t *testing.T) {
	result, err := Run(loadTestScenario(t, "grouping_shared_scope"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ExpectationMismatch(t *testing.T) {
	s := loadTestScenario(t, "filter_and_project")
	count := 3
	s.Searches[0].Expect.Count = &count
	s.Searches[0].Expect.Result = []any{2, 5}
	s.Searches[4].Expect = &ExpectClause{Error: "MEMBER_NOT_FOUND"}
	s.Searches[5].Expect = nil
	s.Assertions = []Assertion{{Type: AssertAuditCount, Count: 1}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "expected 3 rows, got 2")
	assert.Contains(t, result.Errors[1], "result mismatch")
	assert.Contains(t, result.Errors[2], "expected error MEMBER_NOT_FOUND, search succeeded")
	assert.Contains(t, result.Errors[3], "unexpected error")
	assert.Contains(t, result.Errors[4], "Assertion failed: audit_count")
}

func TestRun_WrongErrorCode(t *testing.T) {
	s := loadTestScenario(t, "filter_and_project")
	s.Searches[5].Expect = &ExpectClause{Error: "TYPE_RESOLUTION"}
	s.Assertions = nil

	result, err := Run(s)
	require.NoError(t, err)
	require.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected error TYPE_RESOLUTION")
}

func TestRun_SetupFailures(t *testing.T) {
	s := loadTestScenario(t, "filter_and_project")
	s.Catalog = []string{filepath.Join(t.TempDir(), "missing.cue")}
	_, err := Run(s)
	assert.ErrorContains(t, err, "failed to load catalog")

	s = loadTestScenario(t, "filter_and_project")
	s.Records[0].Items = append(s.Records[0].Items, map[string]any{"Integr": 5})
	_, err = Run(s)
	assert.ErrorContains(t, err, "failed to import records")

	s = loadTestScenario(t, "filter_and_project")
	s.Searches[0].Search = 42
	_, err = Run(s)
	assert.ErrorContains(t, err, "even_integers")
}

func TestRun_Logs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Run(loadTestScenario(t, "filter_and_project"), WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "scenario finished")
	assert.Contains(t, buf.String(), "search compiled")
	assert.Contains(t, buf.String(), "records imported")
}

func TestAssertionError_Message(t *testing.T) {
	err := &AssertionError{
		Type:     AssertRecordCount,
		Expected: "4 DataModel records",
		Actual:   "3",
		Steps:    []StepResult{{Name: "all", Status: "ok", Rows: 3}},
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: record_count")
	assert.Contains(t, msg, "Expected: 4 DataModel records")
	assert.Contains(t, msg, "[1] all ok rows=3")
}

func TestEvaluateAssertions_NoStore(t *testing.T) {
	msgs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertAuditCount}}, nil)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "requires store context")
}

func TestSameFingerprint_Missing(t *testing.T) {
	result := NewResult()
	result.Steps = []StepResult{{Name: "a", Fingerprint: "x"}, {Name: "b"}}
	msgs := EvaluateAssertions(result, []Assertion{{Type: AssertSameFingerprint, Searches: []string{"a", "b"}}}, nil)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "no fingerprint")

	result.Steps[1].Fingerprint = "y"
	msgs = EvaluateAssertions(result, []Assertion{{Type: AssertSameFingerprint, Searches: []string{"a", "b"}}}, nil)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Actual: y")
}
