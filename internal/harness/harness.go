package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/linql/internal/ast"
	"github.com/roach88/linql/internal/batch"
	"github.com/roach88/linql/internal/catalog"
	"github.com/roach88/linql/internal/compiler"
	"github.com/roach88/linql/internal/store"
)

// Harness is the scenario execution engine. Each Run gets its own
// in-memory store and executor.
type Harness struct {
	executor *batch.Executor
	logger   *slog.Logger
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the logger passed to the compiler and executor.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Run executes a scenario and returns the result. An error is returned
// only when the scenario cannot be set up; search failures and
// mismatches are reported in the result.
//
// Execution flow:
//  1. Load the catalog and open a fresh in-memory store
//  2. Import record sets
//  3. Run each search and check its expect clause
//  4. Evaluate assertions
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}

	cat, err := catalog.Load(scenario.Catalog, catalog.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	binaryScope, err := compiler.ParseBinaryScope(scenario.BinaryScope)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:", store.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	comp := compiler.New(cat,
		compiler.WithBinaryScope(binaryScope),
		compiler.WithLogger(h.logger),
	)
	h.executor = batch.New(comp, st, batch.WithLogger(h.logger))

	ctx := context.Background()
	if err := h.importRecords(ctx, scenario.Records); err != nil {
		return nil, fmt.Errorf("failed to import records: %w", err)
	}

	result := NewResult()
	for i := range scenario.Searches {
		if err := h.runStep(ctx, &scenario.Searches[i], result); err != nil {
			return nil, fmt.Errorf("search %q: %w", scenario.Searches[i].Name, err)
		}
	}

	actx := &AssertionContext{Store: st, Catalog: cat, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"searches", len(result.Steps),
		"pass", result.Pass,
	)
	return result, nil
}

func (h *Harness) importRecords(ctx context.Context, sets []RecordSet) error {
	for i, set := range sets {
		var data []byte
		var err error
		switch {
		case set.File != "":
			data, err = os.ReadFile(set.File)
		case set.Items == nil:
			data = []byte("[]")
		default:
			data, err = json.Marshal(set.Items)
		}
		if err != nil {
			return fmt.Errorf("records[%d]: %w", i, err)
		}
		if _, err := h.executor.Import(ctx, set.Type, data); err != nil {
			return fmt.Errorf("records[%d]: %w", i, err)
		}
	}
	return nil
}

// runStep executes one search and checks its expect clause.
func (h *Harness) runStep(ctx context.Context, step *SearchStep, result *Result) error {
	data, err := step.SearchJSON()
	if err != nil {
		return err
	}

	out := h.executor.Run(ctx, batch.Job{Name: step.Name, Search: data})
	sr := StepResult{
		Name:        step.Name,
		Status:      out.Status,
		Fingerprint: out.Fingerprint,
		ResultType:  out.ResultType,
		Rows:        out.Rows,
	}
	if out.Err != nil {
		sr.Error = out.Err.Error()
	} else {
		if sr.Result, err = canonicalValue(out.Result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	}
	result.Steps = append(result.Steps, sr)

	for _, msg := range checkExpect(step, out) {
		result.AddError(msg)
	}
	return nil
}

// canonicalValue re-decodes v from canonical JSON so results compare and
// serialize deterministically.
func canonicalValue(v any) (any, error) {
	data, err := ast.MarshalCanonical(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
