package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/linql/internal/store"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	Replace bool // delete existing records of the type first
}

// LoadResult reports an import.
type LoadResult struct {
	Type     string `json:"type"`
	Imported int    `json:"imported"`
	Deleted  int    `json:"deleted,omitempty"`
	Total    int    `json:"total"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <type> <records.json>",
		Short: "Import records into the store",
		Long: `Import a JSON array of records of a catalog type into the store.

Every element is coerced to the type before anything is written; one bad
element rejects the whole file.

Examples:
  linql load DataModel records.json
  linql load Models.DataModel records.json --replace`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "delete existing records of the type before importing")

	return cmd
}

func runLoad(opts *LoadOptions, typeName, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("reading records: %w", err))
	}

	e, err := opts.openEnv(cmd, true)
	if err != nil {
		return envFailure(formatter, err)
	}
	defer e.Close()

	ctx := cmd.Context()
	t, err := e.catalog.ResolveName(typeName)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, err)
	}

	result := LoadResult{Type: store.TypeKey(t)}
	if opts.Replace {
		if result.Deleted, err = e.store.DeleteRecords(ctx, t); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err)
		}
		formatter.VerboseLog("Deleted %d %s record(s)", result.Deleted, result.Type)
	}

	if result.Imported, err = e.executor.Import(ctx, typeName, data); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInput, err)
	}
	if result.Total, err = e.store.CountRecords(ctx, t); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Imported %d %s record(s) (%d total)\n", result.Imported, result.Type, result.Total)
	return nil
}
