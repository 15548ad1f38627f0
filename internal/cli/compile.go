package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/linql/internal/ast"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // write the canonical search to this path
}

// CompilationResult describes a compiled search.
type CompilationResult struct {
	ElementType string `json:"element_type"`
	ResultType  string `json:"result_type"`
	Fingerprint string `json:"fingerprint"`
	Expressions int    `json:"expressions"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <search.json>",
		Short: "Validate and compile a search",
		Long: `Validate and compile a search without executing it.

The search is resolved against the catalog and type-checked. On success
the element type, result type and canonical fingerprint are printed.
Rejected searches report the compiler error code and the node kind
where compilation stopped.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the canonical search JSON to a file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("reading search: %w", err))
	}

	e, err := opts.openEnv(cmd, false)
	if err != nil {
		return envFailure(formatter, err)
	}
	defer e.Close()

	search, err := ast.ParseSearchDepth(data, e.compiler.MaxDepth())
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInput, err)
	}
	formatter.VerboseLog("Compiling %s (%d expression(s))", path, len(search.Expressions))

	p, err := e.compiler.CompileSearch(search, nil)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, err)
	}

	fingerprint, err := ast.Fingerprint(search)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInput, err)
	}

	if opts.Output != "" {
		if err := writeCanonicalSearch(search, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Errorf("writing output file: %w", err))
		}
	}

	result := CompilationResult{
		ElementType: p.ElementType().String(),
		ResultType:  p.Type().String(),
		Fingerprint: fingerprint,
		Expressions: len(search.Expressions),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %s\n\n", path)
	fmt.Fprintf(w, "  element:     %s\n", result.ElementType)
	fmt.Fprintf(w, "  result:      %s\n", result.ResultType)
	fmt.Fprintf(w, "  fingerprint: %s\n", result.Fingerprint)
	if opts.Output != "" {
		fmt.Fprintf(w, "\nWrote canonical search to %s\n", opts.Output)
	}
	return nil
}

// writeCanonicalSearch writes the search in canonical form, the same
// bytes its fingerprint is computed over.
func writeCanonicalSearch(s *ast.Search, filename string) error {
	data, err := ast.MarshalCanonical(s)
	if err != nil {
		return fmt.Errorf("marshaling search: %w", err)
	}
	return os.WriteFile(filename, data, 0644)
}
