package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/linql/internal/batch"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	NoAudit bool // skip the audit log entry
}

// ExecResult reports an executed search.
type ExecResult struct {
	ID          string `json:"id,omitempty"`
	Fingerprint string `json:"fingerprint"`
	ResultType  string `json:"result_type"`
	Rows        int    `json:"rows"`
	Result      any    `json:"result"`
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec <search.json>",
		Short: "Execute a search against stored records",
		Long: `Compile a search and run it against the records of its element type.

Each execution, successful or not, is appended to the audit log unless
--no-audit is given.

Exit codes:
  0 - Search executed
  1 - Search rejected or failed at runtime
  2 - Command error (missing file, bad config, store unavailable)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoAudit, "no-audit", false, "do not record the search in the audit log")

	return cmd
}

func runExec(opts *ExecOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("reading search: %w", err))
	}

	e, err := opts.openEnv(cmd, true)
	if err != nil {
		return envFailure(formatter, err)
	}
	defer e.Close()

	executor := e.executor
	if opts.NoAudit {
		executor = batch.New(e.compiler, e.store,
			batch.WithAudit(false),
			batch.WithLogger(opts.Logger),
			batch.WithMetrics(e.metrics),
		)
	}

	out := executor.Run(cmd.Context(), batch.Job{Name: filepath.Base(path), Search: data})
	if out.Err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInput, out.Err)
	}
	formatter.VerboseLog("Executed %s in %s", out.Name, out.Duration)

	result := ExecResult{
		ID:          out.ID,
		Fingerprint: out.Fingerprint,
		ResultType:  out.ResultType,
		Rows:        out.Rows,
		Result:      out.Result,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return writeRows(formatter, result)
}

// writeRows prints one JSON value per line: each element of a sequence
// result, or the single scalar of a terminal one.
func writeRows(f *OutputFormatter, r ExecResult) error {
	rows, ok := r.Result.([]any)
	if !ok {
		rows = []any{r.Result}
	}
	for _, row := range rows {
		line, err := json.Marshal(row)
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeGeneric, fmt.Errorf("encoding result: %w", err))
		}
		fmt.Fprintln(f.Writer, string(line))
	}
	fmt.Fprintf(f.GetErrWriter(), "✓ %s: %d row(s)\n", r.ResultType, r.Rows)
	return nil
}
