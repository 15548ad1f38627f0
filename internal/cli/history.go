package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/linql/internal/metrics"
	"github.com/roach88/linql/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit       int
	Fingerprint string
}

// HistoryEntry is an audit log row as reported by the CLI.
type HistoryEntry struct {
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint,omitempty"`
	TypeName    string `json:"type,omitempty"`
	ResultType  string `json:"result_type,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	Rows        int    `json:"rows"`
	DurationUS  int64  `json:"duration_us,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the search audit log",
		Long: `Show executed searches, newest first.

With --fingerprint, show every execution of one search, oldest first.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum entries (0 for all)")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "only executions of this search")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	e, err := opts.openEnv(cmd, true)
	if err != nil {
		return envFailure(formatter, err)
	}
	defer e.Close()

	var entries []store.SearchEntry
	if opts.Fingerprint != "" {
		entries, err = e.store.SearchesByFingerprint(cmd.Context(), opts.Fingerprint)
	} else {
		entries, err = e.store.ReadSearches(cmd.Context(), opts.Limit)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}

	result := make([]HistoryEntry, len(entries))
	for i, en := range entries {
		result[i] = HistoryEntry{
			ID:          en.ID,
			Fingerprint: en.Fingerprint,
			TypeName:    en.TypeName,
			ResultType:  en.ResultType,
			Status:      en.Status,
			Error:       en.Error,
			Rows:        en.Rows,
			DurationUS:  en.Duration.Microseconds(),
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if len(result) == 0 {
		fmt.Fprintln(w, "No searches recorded.")
		return nil
	}
	for _, en := range result {
		mark := "✓"
		if en.Status != metrics.OutcomeOK {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s %s rows=%d", mark, en.ID, en.Status, en.Rows)
		if en.ResultType != "" {
			fmt.Fprintf(w, " %s", en.ResultType)
		}
		fmt.Fprintln(w)
	}
	return nil
}
