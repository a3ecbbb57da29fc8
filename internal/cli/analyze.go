package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/strictmod/internal/engine"
	"github.com/roach88/strictmod/internal/ir"
	"github.com/roach88/strictmod/internal/store"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
	PolicyDir   string
	Database    string
	Jobs        int
	Opacity     string
	MaxElements int
	Force       bool

	// runIDs overrides run ID generation in tests.
	runIDs engine.RunIDGenerator
}

// ModuleResult is the per-module entry of an analyze or report response.
type ModuleResult struct {
	Path        string          `json:"path,omitempty"`
	Module      string          `json:"module"`
	File        string          `json:"file,omitempty"`
	Seq         int64           `json:"seq"`
	Strict      bool            `json:"strict"`
	Hash        string          `json:"hash"`
	Counts      map[string]int  `json:"counts"`
	Diagnostics []ir.Diagnostic `json:"diagnostics"`
	Cached      bool            `json:"cached,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// AnalyzeResult is the data payload of the analyze command.
type AnalyzeResult struct {
	RunID      string         `json:"run_id"`
	PolicyHash string         `json:"policy_hash"`
	Modules    []ModuleResult `json:"modules"`
	Strict     int            `json:"strict"`
	Total      int            `json:"total"`
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze <paths...>",
		Short: "Analyze module syntax trees for strictness",
		Long: `Analyze decodes module syntax trees (JSON or YAML) and reports a
strictness verdict with diagnostics for each module. Directories are walked
for .json, .yaml and .yml files.

Exit codes:
  0 - All modules are strict
  1 - One or more modules are not strict, or the policy is invalid
  2 - Command error (missing inputs, unreadable database, etc.)

Examples:
  strictmod analyze ./trees
  strictmod analyze ./trees --policy ./policy --db strict.db
  strictmod analyze mod.json --opacity error --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.PolicyDir, "policy", "", "directory of CUE policy files")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database for run history and verdict caching")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "modules analyzed in parallel (default GOMAXPROCS)")
	cmd.Flags().StringVar(&opts.Opacity, "opacity", "", "severity of opacity diagnostics (warn|error)")
	cmd.Flags().IntVar(&opts.MaxElements, "max-elements", 0, "override the container element limit")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "ignore cached verdicts")

	return cmd
}

func runAnalyze(ctx context.Context, opts *AnalyzeOptions, paths []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := NewOutputFormatter(opts.RootOptions, cmd)

	policy, err := LoadPolicy(opts.PolicyDir, PolicyOverrides{
		Opacity:     opts.Opacity,
		MaxElements: opts.MaxElements,
	})
	if err != nil {
		exitErr, code := policyExitError(err)
		f.Error(code, err.Error(), nil)
		return exitErr
	}

	files, err := FindModuleFiles(paths)
	if err != nil {
		f.Error(ErrCodeNoInputs, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find inputs", err)
	}
	if len(files) == 0 {
		f.Error(ErrCodeNoInputs, "no syntax tree files found", paths)
		return NewExitError(ExitCommandError, "no syntax tree files found")
	}
	f.VerboseLog("Analyzing %d module(s)", len(files))

	engineOpts := []engine.EngineOption{
		engine.WithJobs(opts.Jobs),
		engine.WithForce(opts.Force),
		engine.WithLogger(f.Logger()),
	}
	if opts.runIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.runIDs))
	}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			f.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		engineOpts = append(engineOpts, engine.WithStore(st))
	}

	eng, err := engine.New(*policy, engineOpts...)
	if err != nil {
		f.Error(ErrCodeInvalidPolicy, err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid policy", err)
	}

	report, err := eng.Run(ctx, LoadJobs(files))
	if err != nil {
		f.Error(ErrCodeAnalysis, err.Error(), nil)
		return WrapExitError(ExitCommandError, "analysis failed", err)
	}

	result := AnalyzeResult{
		RunID:      report.RunID,
		PolicyHash: report.PolicyHash,
		Modules:    make([]ModuleResult, len(report.Outcomes)),
		Strict:     report.Strict(),
		Total:      len(report.Outcomes),
	}
	for i, o := range report.Outcomes {
		result.Modules[i] = outcomeResult(o)
	}

	var exitErr error
	resp := CLIResponse{Status: "ok", Data: result, RunID: report.RunID}
	if !report.AllStrict() {
		msg := fmt.Sprintf("%d of %d module(s) not strict", result.Total-result.Strict, result.Total)
		resp.Status = "error"
		resp.Error = &CLIError{Code: ErrCodeNotStrict, Message: msg}
		exitErr = NewExitError(ExitFailure, msg)
	}

	if f.Format == "json" {
		if err := f.Respond(resp); err != nil {
			return err
		}
		return exitErr
	}

	for _, m := range result.Modules {
		writeModuleText(f, m)
	}
	fmt.Fprintln(f.Writer)
	fmt.Fprintf(f.Writer, "Summary: %d/%d module(s) strict (run %s)\n", result.Strict, result.Total, result.RunID)
	return exitErr
}

func outcomeResult(o engine.Outcome) ModuleResult {
	m := ModuleResult{
		Path:        o.Path,
		Module:      o.Verdict.Module,
		File:        o.Verdict.File,
		Seq:         o.Seq,
		Strict:      o.Verdict.Strict,
		Hash:        o.Verdict.Hash,
		Counts:      o.Verdict.Counts,
		Diagnostics: o.Diagnostics,
		Cached:      o.Cached,
	}
	if m.Counts == nil {
		m.Counts = map[string]int{}
	}
	if m.Diagnostics == nil {
		m.Diagnostics = []ir.Diagnostic{}
	}
	if o.Err != nil {
		m.Error = o.Err.Error()
	}
	return m
}

// writeModuleText prints one verdict line followed by its diagnostics.
func writeModuleText(f *OutputFormatter, m ModuleResult) {
	w := f.Writer
	name := m.Path
	if name == "" {
		name = m.File
	}

	var mark, status string
	if m.Strict {
		mark, status = f.Paint(colorGreen, "✓"), "strict"
	} else {
		mark, status = f.Paint(colorRed, "✗"), "not strict"
	}
	if m.Cached {
		status += " (cached)"
	}
	fmt.Fprintf(w, "%s %s [%s] %s%s\n", mark, name, m.Module, status, countSuffix(m.Diagnostics))

	for _, d := range m.Diagnostics {
		writeDiagnostic(f, w, d)
	}
	if m.Error != "" && f.Verbose {
		fmt.Fprintf(w, "  %s\n", m.Error)
	}
}

func writeDiagnostic(f *OutputFormatter, w io.Writer, d ir.Diagnostic) {
	severity := string(d.Severity)
	switch d.Severity {
	case ir.SeverityError:
		severity = f.Paint(colorRed, severity)
	case ir.SeverityWarning:
		severity = f.Paint(colorYellow, severity)
	}
	fmt.Fprintf(w, "  %s: %s: %s: %s\n", d.Location, severity, d.Kind, d.Message)
}

func countSuffix(diags []ir.Diagnostic) string {
	var errs, warns int
	for _, d := range diags {
		switch d.Severity {
		case ir.SeverityError:
			errs++
		case ir.SeverityWarning:
			warns++
		}
	}
	if errs == 0 && warns == 0 {
		return ""
	}
	return fmt.Sprintf(" (%s, %s)", plural(errs, "error"), plural(warns, "warning"))
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
