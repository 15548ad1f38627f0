package harness

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/roach88/linql/internal/ast"
	"github.com/roach88/linql/internal/batch"
	"github.com/roach88/linql/internal/catalog"
	"github.com/roach88/linql/internal/qerr"
	"github.com/roach88/linql/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Steps    []StepResult // All step outcomes for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Steps) > 0 {
		fmt.Fprintf(&buf, "\nSearches:\n")
		for i, s := range e.Steps {
			fmt.Fprintf(&buf, "  [%d] %s %s rows=%d\n", i+1, s.Name, s.Status, s.Rows)
		}
	}
	return buf.String()
}

// checkExpect compares a search outcome with its expect clause and
// returns one message per mismatch.
func checkExpect(step *SearchStep, out batch.Outcome) []string {
	var msgs []string
	fail := func(format string, args ...any) {
		msgs = append(msgs, fmt.Sprintf("search %q: ", step.Name)+fmt.Sprintf(format, args...))
	}

	exp := step.Expect
	if exp == nil {
		if out.Err != nil {
			fail("unexpected error: %v", out.Err)
		}
		return msgs
	}

	if exp.Error != "" {
		if out.Err == nil {
			fail("expected error %s, search succeeded", exp.Error)
		} else if code := qerr.CodeOf(out.Err); string(code) != exp.Error {
			fail("expected error %s, got %v", exp.Error, out.Err)
		}
		return msgs
	}
	if out.Err != nil {
		fail("unexpected error: %v", out.Err)
		return msgs
	}

	if exp.ResultType != "" && exp.ResultType != out.ResultType {
		fail("expected result type %s, got %s", exp.ResultType, out.ResultType)
	}
	if exp.Count != nil && *exp.Count != out.Rows {
		fail("expected %d rows, got %d", *exp.Count, out.Rows)
	}
	if exp.Result != nil {
		want, err := ast.MarshalCanonical(exp.Result)
		if err != nil {
			fail("encode expected result: %v", err)
			return msgs
		}
		got, err := ast.MarshalCanonical(out.Result)
		if err != nil {
			fail("encode result: %v", err)
			return msgs
		}
		if !bytes.Equal(want, got) {
			fail("result mismatch\n  expected: %s\n  actual:   %s", want, got)
		}
	}
	return msgs
}

// AssertionContext provides store access for evaluating assertions.
type AssertionContext struct {
	Store   *store.Store
	Catalog *catalog.Catalog
	Ctx     context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertSameFingerprint:
			err = assertSameFingerprint(result, assertion)
		case AssertAuditCount, AssertRecordCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires store context", i, assertion.Type)
			} else if assertion.Type == AssertAuditCount {
				err = assertAuditCount(actx, result, assertion)
			} else {
				err = assertRecordCount(actx, result, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertAuditCount counts audit entries, optionally filtered by status.
func assertAuditCount(actx *AssertionContext, result *Result, assertion Assertion) error {
	entries, err := actx.Store.ReadSearches(actx.Ctx, 0)
	if err != nil {
		return fmt.Errorf("audit_count: %w", err)
	}

	count := 0
	for _, e := range entries {
		if assertion.Status == "" || e.Status == assertion.Status {
			count++
		}
	}
	if count != assertion.Count {
		what := "audit entries"
		if assertion.Status != "" {
			what = fmt.Sprintf("audit entries with status %s", assertion.Status)
		}
		return &AssertionError{
			Type:     AssertAuditCount,
			Expected: fmt.Sprintf("%d %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d", count),
			Steps:    result.Steps,
		}
	}
	return nil
}

// assertSameFingerprint checks that the named searches share one
// non-empty fingerprint.
func assertSameFingerprint(result *Result, assertion Assertion) error {
	var first string
	for i, name := range assertion.Searches {
		step, ok := result.Step(name)
		if !ok || step.Fingerprint == "" {
			return &AssertionError{
				Type:     AssertSameFingerprint,
				Expected: fmt.Sprintf("search %s has a fingerprint", name),
				Actual:   "no fingerprint",
				Steps:    result.Steps,
			}
		}
		if i == 0 {
			first = step.Fingerprint
			continue
		}
		if step.Fingerprint != first {
			return &AssertionError{
				Type:     AssertSameFingerprint,
				Expected: fmt.Sprintf("%s fingerprint %s", name, first),
				Actual:   step.Fingerprint,
				Steps:    result.Steps,
			}
		}
	}
	return nil
}

// assertRecordCount counts stored records of one type.
func assertRecordCount(actx *AssertionContext, result *Result, assertion Assertion) error {
	if actx.Catalog == nil {
		return fmt.Errorf("record_count requires a catalog")
	}
	t, err := actx.Catalog.ResolveName(assertion.RecordType)
	if err != nil {
		return fmt.Errorf("record_count: %w", err)
	}
	n, err := actx.Store.CountRecords(actx.Ctx, t)
	if err != nil {
		return fmt.Errorf("record_count: %w", err)
	}
	if n != assertion.Count {
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d %s records", assertion.Count, assertion.RecordType),
			Actual:   fmt.Sprintf("%d", n),
			Steps:    result.Steps,
		}
	}
	return nil
}
