package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/linql/internal/batch"
	"github.com/roach88/linql/internal/metrics"
)

// BatchOptions holds flags for the batch command.
type BatchOptions struct {
	*RootOptions
	Workers    int    // overrides batch.workers
	MetricsOut string // write Prometheus text exposition here
}

// JobResult is one search's outcome in a batch.
type JobResult struct {
	Name        string `json:"name"`
	ID          string `json:"id,omitempty"`
	Status      string `json:"status"`
	Fingerprint string `json:"fingerprint,omitempty"`
	ResultType  string `json:"result_type,omitempty"`
	Rows        int    `json:"rows"`
	Error       string `json:"error,omitempty"`
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Jobs   []JobResult `json:"jobs"`
	Passed int         `json:"passed"`
	Failed int         `json:"failed"`
	Total  int         `json:"total"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch <searches-dir>",
		Short: "Execute every search in a directory",
		Long: `Execute every *.json search in a directory concurrently.

Results are reported in file name order. Every search is recorded in the
audit log.

Exit codes:
  0 - All searches executed
  1 - One or more searches failed
  2 - Command error (invalid paths, etc.)

Examples:
  linql batch ./searches
  linql batch ./searches --workers 16 --metrics-out metrics.prom`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent searches (overrides batch.workers)")
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write Prometheus metrics to a file when done")

	return cmd
}

func runBatch(opts *BatchOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	jobs, err := loadJobs(dir)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err)
	}

	e, err := opts.openEnv(cmd, true)
	if err != nil {
		return envFailure(formatter, err)
	}
	defer e.Close()

	executor := e.executor
	if opts.Workers > 0 {
		executor = batch.New(e.compiler, e.store,
			batch.WithWorkers(opts.Workers),
			batch.WithLogger(opts.Logger),
			batch.WithMetrics(e.metrics),
		)
	}
	formatter.VerboseLog("Running %d search(es) from %s", len(jobs), dir)

	outcomes, err := executor.RunAll(cmd.Context(), jobs)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBatch, err)
	}

	result := BatchResult{Jobs: make([]JobResult, 0, len(outcomes)), Total: len(outcomes)}
	for _, o := range outcomes {
		jr := JobResult{
			Name:        o.Name,
			ID:          o.ID,
			Status:      o.Status,
			Fingerprint: o.Fingerprint,
			ResultType:  o.ResultType,
			Rows:        o.Rows,
		}
		if o.Err != nil {
			jr.Error = o.Err.Error()
			result.Failed++
		} else {
			result.Passed++
		}
		result.Jobs = append(result.Jobs, jr)
	}

	if opts.MetricsOut != "" {
		if err := writeMetrics(e.registry, opts.MetricsOut); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
	}

	if formatter.Format == "json" {
		return outputBatchJSON(formatter, result)
	}
	return outputBatchText(formatter, result)
}

// loadJobs reads every *.json file directly under dir, sorted by name.
func loadJobs(dir string) ([]batch.Job, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("searches directory not found: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)

	jobs := make([]batch.Job, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		jobs = append(jobs, batch.Job{Name: filepath.Base(p), Search: data})
	}
	return jobs, nil
}

func writeMetrics(reg *prometheus.Registry, path string) error {
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

// outputBatchJSON reports status "error" when any search failed, with
// the per-job results still in data.
func outputBatchJSON(f *OutputFormatter, result BatchResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeBatch,
			Message: fmt.Sprintf("%d search(es) failed", result.Failed),
		}
	}
	if err := json.NewEncoder(f.Writer).Encode(response); err != nil {
		return err
	}
	return batchExit(result)
}

func outputBatchText(f *OutputFormatter, result BatchResult) error {
	w := f.Writer
	for _, j := range result.Jobs {
		if j.Status == metrics.OutcomeOK {
			fmt.Fprintf(w, "✓ %s: %s, %d row(s)\n", j.Name, j.ResultType, j.Rows)
			continue
		}
		fmt.Fprintf(w, "✗ %s [%s]\n", j.Name, j.Status)
		fmt.Fprintf(w, "  %s\n", j.Error)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Batch Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	return batchExit(result)
}

func batchExit(result BatchResult) error {
	if result.Failed > 0 {
		// Search failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d search(es) failed", result.Failed))
	}
	return nil
}
