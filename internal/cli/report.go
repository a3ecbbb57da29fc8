package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/strictmod/internal/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database string
	List     bool
}

// ReportResult is the data payload of the report command for one run.
type ReportResult struct {
	Run     store.Run      `json:"run"`
	Modules []ModuleResult `json:"modules"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Show a recorded analysis run",
		Long: `Report prints the verdicts and diagnostics of a run recorded by
"analyze --db". Without a run ID the most recent run is shown; --list
prints every recorded run instead.

Exit codes:
  0 - Report printed
  2 - Command error (database or run not found)

Examples:
  strictmod report --db strict.db
  strictmod report --db strict.db 01926f3e-...
  strictmod report --db strict.db --list`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runReport(cmd.Context(), opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database written by analyze (required)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded runs")
	if err := cmd.MarkFlagRequired("db"); err != nil {
		panic(err)
	}

	return cmd
}

func runReport(ctx context.Context, opts *ReportOptions, runID string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := NewOutputFormatter(opts.RootOptions, cmd)

	// store.Open creates missing databases; a report never should.
	if _, err := os.Stat(opts.Database); err != nil {
		msg := fmt.Sprintf("database not found: %s", opts.Database)
		f.Error(ErrCodeDatabase, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		f.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.List {
		return listRuns(ctx, f, st)
	}

	if runID == "" {
		latest, err := st.LatestRun(ctx)
		if err != nil {
			return runLookupError(f, err, "no runs recorded")
		}
		runID = latest.ID
	}

	run, records, err := st.ReadRun(ctx, runID)
	if err != nil {
		return runLookupError(f, err, fmt.Sprintf("run not found: %s", runID))
	}

	result := ReportResult{Run: run, Modules: make([]ModuleResult, len(records))}
	for i, rec := range records {
		result.Modules[i] = recordResult(rec)
	}

	if f.Format == "json" {
		return f.Respond(CLIResponse{Status: "ok", Data: result, RunID: run.ID})
	}

	w := f.Writer
	fmt.Fprintf(w, "Run %s (seq %d)\n", run.ID, run.Seq)
	fmt.Fprintf(w, "  policy:   %s\n", run.PolicyHash)
	fmt.Fprintf(w, "  analyzer: %s (ir %s)\n\n", run.AnalyzerVersion, run.IRVersion)
	for _, m := range result.Modules {
		writeModuleText(f, m)
	}
	fmt.Fprintf(w, "\nSummary: %d/%d module(s) strict\n", run.Strict, run.Modules)
	return nil
}

func listRuns(ctx context.Context, f *OutputFormatter, st *store.Store) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		f.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if f.Format == "json" {
		return f.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(f.Writer, "%4d  %s  %d/%d strict\n", r.Seq, r.ID, r.Strict, r.Modules)
	}
	return nil
}

func runLookupError(f *OutputFormatter, err error, notFound string) error {
	if errors.Is(err, sql.ErrNoRows) {
		f.Error(ErrCodeRunNotFound, notFound, nil)
		return NewExitError(ExitCommandError, notFound)
	}
	f.Error(ErrCodeDatabase, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to read run", err)
}

func recordResult(rec store.Record) ModuleResult {
	m := ModuleResult{
		Module:      rec.Verdict.Module,
		File:        rec.Verdict.File,
		Seq:         rec.Seq,
		Strict:      rec.Verdict.Strict,
		Hash:        rec.Verdict.Hash,
		Counts:      rec.Verdict.Counts,
		Diagnostics: rec.Diagnostics,
	}
	if m.Counts == nil {
		m.Counts = map[string]int{}
	}
	return m
}
