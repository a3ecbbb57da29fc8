package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/strictmod/internal/compiler"
	"github.com/roach88/strictmod/internal/engine"
	"github.com/roach88/strictmod/internal/ir"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
}

// PolicySummary describes a policy that compiled and validated.
type PolicySummary struct {
	Files            int       `json:"files"`
	Hash             string    `json:"hash"`
	Opacity          string    `json:"opacity"`
	Limits           ir.Limits `json:"limits"`
	AllowSideEffects []string  `json:"allow_side_effects"`
	Stubs            []string  `json:"stubs"`
}

// CheckFailure is the data payload when a policy fails validation.
type CheckFailure struct {
	Errors []compiler.ValidationError `json:"errors"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <policy-dir>",
		Short: "Compile and validate a policy",
		Long: `Check compiles the CUE policy in a directory and validates its settings
and stub declarations without analyzing any module.

Exit codes:
  0 - Policy is valid
  1 - Policy is malformed or fails validation
  2 - Command error (directory not found, no CUE files, etc.)

Examples:
  strictmod check ./policy
  strictmod check ./policy --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}
	return cmd
}

func runCheck(opts *CheckOptions, dir string, cmd *cobra.Command) error {
	f := NewOutputFormatter(opts.RootOptions, cmd)

	_, files, err := compiler.LoadDir(dir)
	if err == nil {
		f.VerboseLog("Found %d CUE file(s) in %s", files, dir)
	}

	p, err := compiler.LoadPolicyDir(dir)
	if err != nil {
		exitErr, code := policyExitError(err)
		f.Error(code, err.Error(), nil)
		return exitErr
	}

	if errs := compiler.Validate(p); len(errs) > 0 {
		msg := fmt.Sprintf("policy has %d validation error(s)", len(errs))
		if f.Format == "json" {
			if err := f.Respond(CLIResponse{
				Status: "error",
				Data:   CheckFailure{Errors: errs},
				Error:  &CLIError{Code: ErrCodeInvalidPolicy, Message: msg},
			}); err != nil {
				return err
			}
			return NewExitError(ExitFailure, msg)
		}
		for _, e := range errs {
			fmt.Fprintf(f.Writer, "%s %s\n", f.Paint(colorRed, "✗"), e.Error())
		}
		fmt.Fprintf(f.Writer, "\n%s\n", msg)
		return NewExitError(ExitFailure, msg)
	}

	eng, err := engine.New(*p)
	if err != nil {
		f.Error(ErrCodeInvalidPolicy, err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid policy", err)
	}

	summary := PolicySummary{
		Files:            files,
		Hash:             eng.PolicyHash(),
		Opacity:          p.Opacity,
		Limits:           p.Limits.WithDefaults(),
		AllowSideEffects: p.AllowSideEffects,
		Stubs:            make([]string, 0, len(p.Stubs)),
	}
	if summary.Opacity == "" {
		summary.Opacity = ir.OpacityWarn
	}
	if summary.AllowSideEffects == nil {
		summary.AllowSideEffects = []string{}
	}
	for _, s := range p.Stubs {
		summary.Stubs = append(summary.Stubs, s.Name)
	}
	sort.Strings(summary.Stubs)

	if f.Format == "json" {
		return f.Success(summary)
	}

	w := f.Writer
	fmt.Fprintf(w, "%s Policy is valid (%d file(s))\n", f.Paint(colorGreen, "✓"), summary.Files)
	fmt.Fprintf(w, "  hash:    %s\n", summary.Hash)
	fmt.Fprintf(w, "  opacity: %s\n", summary.Opacity)
	if len(summary.AllowSideEffects) > 0 {
		fmt.Fprintf(w, "  allowed side effects: %v\n", summary.AllowSideEffects)
	}
	if len(summary.Stubs) > 0 {
		fmt.Fprintf(w, "  stubs:   %v\n", summary.Stubs)
	}
	return nil
}
