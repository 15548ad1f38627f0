package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/linql/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Catalog    []string // overrides catalog.paths
	StorePath  string   // overrides store.path

	// Config and Logger are populated before any subcommand runs.
	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the linql CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "linql",
		Short: "linql - typed searches over serialized expression trees",
		Long: `Compile and execute Linql searches.

A search is a JSON expression tree naming a root type from the catalog
and a chain of pipeline functions. linql resolves it against the CUE
catalog, compiles it and runs it against records kept in SQLite.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if err := opts.load(cmd.ErrOrStderr()); err != nil {
				return envFailure(opts.formatter(cmd), err)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "configuration file")
	cmd.PersistentFlags().StringSliceVar(&opts.Catalog, "catalog", nil, "CUE catalog files or directories (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.StorePath, "db", "", "SQLite database path (overrides config)")

	// Add subcommands
	cmd.AddCommand(NewTypesCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// load reads the configuration, applies flag overrides and builds the
// logger. Logs go to w so they never mix with command output.
func (o *RootOptions) load(w io.Writer) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return setupError(ErrCodeConfig, fmt.Errorf("failed to load configuration: %w", err))
	}
	if len(o.Catalog) > 0 {
		cfg.Catalog.Paths = o.Catalog
	}
	if o.StorePath != "" {
		cfg.Store.Path = o.StorePath
	}
	o.Config = cfg
	o.Logger = newLogger(w, cfg.Log, o.Verbose)
	return nil
}

// newLogger builds the slog handler selected by cfg. Verbose forces
// debug level.
func newLogger(w io.Writer, cfg config.LogConfig, verbose bool) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
