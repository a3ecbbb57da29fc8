package analyzer

import (
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/roach88/strictmod/internal/ir"
	"github.com/roach88/strictmod/internal/objects"
)

// Options configures one analysis.
type Options struct {
	// Policy supplies limits, the opacity mode, the side-effect allow-list
	// and stub modules. The zero value means ir.DefaultPolicy().
	Policy ir.Policy

	// Loader resolves imports. Nil means a StubLoader over Policy.Stubs.
	Loader Loader

	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger
}

// Result is the full outcome of analyzing one module.
type Result struct {
	Verdict     ir.Verdict
	Diagnostics []ir.Diagnostic

	// Steps is the number of evaluation steps charged.
	Steps int

	// Exhausted is set when the step budget ran out before the module body
	// finished.
	Exhausted bool

	// Panicked is set when analysis hit an internal error and was cut short.
	Panicked bool

	// Bindings renders the module's final global bindings, excluding
	// dunder names.
	Bindings map[string]string
}

// Analyze evaluates m and returns its verdict and diagnostics in emission
// order.
func Analyze(m *ir.Module, opts Options) (ir.Verdict, []ir.Diagnostic) {
	res := Run(m, opts)
	return res.Verdict, res.Diagnostics
}

// Run evaluates m and returns the full result. It never panics: an internal
// failure becomes an InternalError diagnostic for m alone.
func Run(m *ir.Module, opts Options) (res *Result) {
	policy := opts.Policy
	if policy.Opacity == "" {
		policy.Opacity = ir.OpacityWarn
	}
	policy.Limits = policy.Limits.WithDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	loader := opts.Loader
	if loader == nil {
		loader = NewStubLoader(policy.Stubs)
	}

	mod := objects.NewModule(m.Name, m.File, policy)
	in := &interp{
		src:     m,
		mod:     mod,
		loader:  loader,
		log:     logger.With("module", m.Name),
		imports: make(map[string]objects.Value),
	}

	defer func() {
		if r := recover(); r != nil {
			in.log.Error("analysis panicked", "panic", r, "stack", string(debug.Stack()))
			mod.Report(ir.Location{File: m.File}, ir.KindInternalError, fmt.Sprintf("internal error: %v", r))
			res = in.result()
			res.Panicked = true
		}
	}()

	in.log.Debug("analysis started", "statements", len(m.Body))
	in.runModule()
	res = in.result()
	in.log.Debug("analysis finished",
		"strict", res.Verdict.Strict,
		"diagnostics", len(res.Diagnostics),
		"steps", res.Steps,
	)
	return res
}

func (in *interp) result() *Result {
	diags := in.mod.Diagnostics()
	hash, err := ir.ModuleHash(in.src)
	if err != nil {
		in.log.Warn("module hash failed", "error", err)
	}
	bindings := make(map[string]string)
	in.mod.Globals.Range(func(k string, v objects.Value) bool {
		if !isDunder(k) {
			bindings[k] = objects.Describe(v)
		}
		return true
	})
	return &Result{
		Verdict: ir.Verdict{
			Module: in.src.Name,
			File:   in.src.File,
			Strict: !ir.HasErrors(diags),
			Hash:   hash,
			Counts: ir.CountDiagnostics(diags),
		},
		Diagnostics: diags,
		Steps:       in.mod.Steps(),
		Exhausted:   in.exhausted,
		Bindings:    bindings,
	}
}

func isDunder(name string) bool {
	return len(name) > 4 && name[:2] == "__" && name[len(name)-2:] == "__"
}
