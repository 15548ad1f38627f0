// Package batch executes wire searches against stored records.
//
// An Executor owns the path from wire JSON to a drained result: parse,
// fingerprint, resolve the element type, compile against the store's
// record source, execute and materialize. Every run can be written to
// the store's search audit log. RunAll fans independent searches out
// over an ants worker pool.
package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/roach88/linql/internal/ast"
	"github.com/roach88/linql/internal/compiler"
	"github.com/roach88/linql/internal/metrics"
	"github.com/roach88/linql/internal/store"
)

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 4

// StatusPanic marks a job whose worker panicked.
const StatusPanic = "panic"

// Job is one search to run.
type Job struct {
	// Name identifies the job in outcomes and logs, e.g. the file name.
	Name string

	// Search is the wire JSON document.
	Search []byte
}

// Outcome is the result of running one Job.
type Outcome struct {
	Name        string
	ID          string // audit entry ID, empty when auditing is off
	Fingerprint string
	TypeName    string
	ResultType  string

	// Status is "ok", the lower-cased error code, or "error".
	Status string

	// Result is the drained value: []any for stage results, a scalar for
	// terminal functions.
	Result any
	Rows   int
	Err    error

	Duration time.Duration
}

// Executor runs searches through a compiler against a store.
type Executor struct {
	compiler *compiler.Compiler
	store    *store.Store
	workers  int
	audit    bool
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures an Executor.
type Option func(*Executor)

// WithWorkers sets the RunAll pool size.
func WithWorkers(n int) Option {
	return func(e *Executor) { e.workers = n }
}

// WithAudit toggles writing each run to the search audit log.
func WithAudit(on bool) Option {
	return func(e *Executor) { e.audit = on }
}

// WithLogger sets the executor logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithMetrics records imported record counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// New creates an executor. Auditing is on by default.
func New(c *compiler.Compiler, st *store.Store, opts ...Option) *Executor {
	e := &Executor{
		compiler: c,
		store:    st,
		workers:  DefaultWorkers,
		audit:    true,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = DefaultWorkers
	}
	return e
}

// Import resolves typeName in the compiler's catalog and stores the JSON
// array data as records of that type.
func (e *Executor) Import(ctx context.Context, typeName string, data []byte) (int, error) {
	t, err := e.compiler.Catalog().ResolveName(typeName)
	if err != nil {
		return 0, err
	}
	n, err := e.store.ImportJSON(ctx, t, data)
	if err != nil {
		return 0, err
	}
	e.metrics.AddRecords(store.TypeKey(t), n)
	e.logger.Info("records imported", "type", store.TypeKey(t), "count", n)
	return n, nil
}

// Run executes one job. Failures are reported in the outcome, never
// returned separately.
func (e *Executor) Run(ctx context.Context, job Job) Outcome {
	start := time.Now()
	out := Outcome{Name: job.Name}
	out.Err = e.run(ctx, job, &out)
	out.Duration = time.Since(start)
	out.Status = metrics.Outcome(out.Err)

	if e.audit {
		id, err := e.store.RecordSearch(ctx, store.SearchEntry{
			Fingerprint: out.Fingerprint,
			TypeName:    out.TypeName,
			Search:      string(job.Search),
			ResultType:  out.ResultType,
			Status:      out.Status,
			Error:       errorText(out.Err),
			Rows:        out.Rows,
			Duration:    out.Duration,
		})
		if err != nil {
			e.logger.Error("audit write failed", "job", job.Name, "error", err)
		}
		out.ID = id
	}

	if out.Err != nil {
		e.logger.Info("search failed", "job", job.Name, "status", out.Status, "error", out.Err)
	} else {
		e.logger.Info("search executed",
			"job", job.Name,
			"result", out.ResultType,
			"rows", out.Rows,
			"duration", out.Duration,
		)
	}
	return out
}

func (e *Executor) run(ctx context.Context, job Job, out *Outcome) error {
	s, err := ast.ParseSearchDepth(job.Search, e.compiler.MaxDepth())
	if err != nil {
		return err
	}
	if out.Fingerprint, err = ast.Fingerprint(s); err != nil {
		return err
	}

	elem, err := e.compiler.Catalog().Resolve(s.Type)
	if err != nil {
		return err
	}
	out.TypeName = store.TypeKey(elem)

	p, err := e.compiler.CompileSearch(s, e.store.Source(ctx, elem))
	if err != nil {
		return err
	}
	out.ResultType = p.Type().String()

	v, err := p.Run()
	if err != nil {
		return err
	}
	out.Result = v
	out.Rows = rowCount(v)
	return nil
}

// RunAll executes jobs concurrently and returns their outcomes in job
// order. Jobs not started before ctx is cancelled report ctx.Err().
func (e *Executor) RunAll(ctx context.Context, jobs []Job) ([]Outcome, error) {
	outcomes := make([]Outcome, len(jobs))
	if len(jobs) == 0 {
		return outcomes, nil
	}

	pool, err := ants.NewPool(e.workers, ants.WithPanicHandler(func(v any) {
		e.logger.Error("batch worker panic", "panic", v)
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	done := make(chan struct{}, len(jobs))
	submitted := 0
	for i, job := range jobs {
		outcomes[i] = Outcome{Name: job.Name, Status: StatusPanic, Err: fmt.Errorf("job %s panicked", job.Name)}
		if err := ctx.Err(); err != nil {
			outcomes[i] = Outcome{Name: job.Name, Status: metrics.Outcome(err), Err: err}
			continue
		}

		if err := pool.Submit(func() {
			defer func() { done <- struct{}{} }()
			outcomes[i] = e.Run(ctx, job)
		}); err != nil {
			outcomes[i] = Outcome{Name: job.Name, Status: metrics.Outcome(err), Err: fmt.Errorf("submit: %w", err)}
			continue
		}
		submitted++
	}

	for range submitted {
		<-done
	}
	e.logger.Debug("batch finished", "jobs", len(jobs), "workers", e.workers)
	return outcomes, nil
}

func rowCount(v any) int {
	if items, ok := v.([]any); ok {
		return len(items)
	}
	return 1
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
