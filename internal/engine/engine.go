package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/strictmod/internal/analyzer"
	"github.com/roach88/strictmod/internal/ir"
	"github.com/roach88/strictmod/internal/store"
)

// Sequencer hands out logical sequence numbers.
// Implemented by Clock and testutil.DeterministicClock.
type Sequencer interface {
	Next() int64
}

// Job is one module to analyze. Module is nil when the input could not be
// decoded, in which case Err says why.
type Job struct {
	Path   string
	Module *ir.Module
	Err    error
}

// Outcome is the result of one Job.
type Outcome struct {
	Path        string
	Seq         int64
	Verdict     ir.Verdict
	Diagnostics []ir.Diagnostic
	Digest      string

	// Bindings renders the module's final global bindings. Empty for cached
	// outcomes.
	Bindings map[string]string

	// Steps charged during analysis. Zero for cached outcomes.
	Steps int

	// Cached is set when the verdict came from the store.
	Cached bool

	// Err is an *AnalysisError when analysis did not complete normally.
	Err error
}

// Report is the result of one Run.
type Report struct {
	RunID      string
	Seq        int64
	PolicyHash string
	Outcomes   []Outcome
}

// Strict returns the number of strict modules.
func (r *Report) Strict() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Verdict.Strict {
			n++
		}
	}
	return n
}

// AllStrict reports whether every module in the run is strict.
func (r *Report) AllStrict() bool {
	return r.Strict() == len(r.Outcomes)
}

// Engine analyzes batches of modules under one policy.
//
// Run may be called repeatedly; the clock keeps counting across runs.
type Engine struct {
	policy     ir.Policy
	policyHash string
	loader     analyzer.Loader
	store      *store.Store
	clock      Sequencer
	runIDs     RunIDGenerator
	jobs       int
	force      bool
	logger     *slog.Logger
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithStore attaches a store for verdict caching and run history.
func WithStore(s *store.Store) EngineOption {
	return func(e *Engine) {
		e.store = s
	}
}

// WithJobs sets how many modules are analyzed at once.
// Values below 1 mean runtime.GOMAXPROCS(0).
func WithJobs(n int) EngineOption {
	return func(e *Engine) {
		e.jobs = n
	}
}

// WithForce disables store cache lookups. Verdicts are still recorded.
func WithForce(force bool) EngineOption {
	return func(e *Engine) {
		e.force = force
	}
}

// WithClock replaces the engine clock.
func WithClock(c Sequencer) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithRunIDGenerator replaces the UUIDv7 run ID generator.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithLoader replaces the stub loader built from the policy. The loader is
// shared by concurrent analyses and must be safe for concurrent use.
func WithLoader(l analyzer.Loader) EngineOption {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithLogger sets the engine logger. Analyzer debug output goes to the same
// logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine for policy. The policy is validated, filled with
// defaults and hashed once; every verdict the engine produces is keyed by
// that hash.
func New(policy ir.Policy, opts ...EngineOption) (*Engine, error) {
	if policy.Opacity == "" {
		policy.Opacity = ir.OpacityWarn
	}
	policy.Limits = policy.Limits.WithDefaults()
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	hash, err := ir.PolicyHash(policy)
	if err != nil {
		return nil, fmt.Errorf("hash policy: %w", err)
	}

	e := &Engine{
		policy:     policy,
		policyHash: hash,
		clock:      NewClock(),
		runIDs:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.jobs < 1 {
		e.jobs = runtime.GOMAXPROCS(0)
	}
	if e.loader == nil {
		e.loader = analyzer.NewStubLoader(policy.Stubs)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e, nil
}

// PolicyHash returns the hash verdicts are keyed by.
func (e *Engine) PolicyHash() string {
	return e.policyHash
}

// Run analyzes jobs and returns outcomes in input order.
//
// A module that panics, exhausts its budget or fails to decode still yields
// an outcome carrying an *AnalysisError; only context cancellation and store
// failures abort the run.
func (e *Engine) Run(ctx context.Context, jobs []Job) (*Report, error) {
	report := &Report{
		RunID:      e.runIDs.Generate(),
		PolicyHash: e.policyHash,
		Outcomes:   make([]Outcome, len(jobs)),
	}
	log := e.logger.With("run", report.RunID)

	if e.store != nil {
		seq, err := e.store.NextRunSeq(ctx)
		if err != nil {
			return nil, err
		}
		report.Seq = seq
		if err := e.store.WriteRun(ctx, e.storeRun(report, 0, 0)); err != nil {
			return nil, err
		}
	}
	log.Info("run started", "modules", len(jobs), "jobs", e.jobs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.jobs)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := e.analyze(gctx, job)
			if err != nil {
				return err
			}
			report.Outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run %s: %w", report.RunID, err)
	}

	for i := range report.Outcomes {
		report.Outcomes[i].Seq = e.clock.Next()
	}

	if e.store != nil {
		if err := e.record(ctx, log, report); err != nil {
			return nil, err
		}
	}

	log.Info("run finished",
		"modules", len(report.Outcomes),
		"strict", report.Strict(),
	)
	return report, nil
}

func (e *Engine) analyze(ctx context.Context, job Job) (Outcome, error) {
	if job.Module == nil {
		return decodeFailure(job), nil
	}
	m := job.Module
	log := e.logger.With("module", m.Name)

	hash, err := ir.ModuleHash(m)
	if err != nil {
		return Outcome{}, fmt.Errorf("hash module %s: %w", m.Name, err)
	}

	if e.store != nil && !e.force {
		rec, found, err := e.store.LookupVerdict(ctx, hash, e.policyHash, ir.AnalyzerVersion)
		if err != nil {
			return Outcome{}, err
		}
		if found {
			log.Debug("verdict cache hit", "from_run", rec.RunID)
			v := rec.Verdict
			v.Module, v.File = m.Name, m.File
			return Outcome{
				Path:        job.Path,
				Verdict:     v,
				Diagnostics: rec.Diagnostics,
				Digest:      rec.Digest,
				Cached:      true,
			}, nil
		}
	}

	res := analyzer.Run(m, analyzer.Options{
		Policy: e.policy,
		Loader: e.loader,
		Logger: e.logger,
	})
	digest, err := ir.DiagnosticsDigest(res.Diagnostics)
	if err != nil {
		return Outcome{}, fmt.Errorf("digest %s: %w", m.Name, err)
	}

	out := Outcome{
		Path:        job.Path,
		Verdict:     res.Verdict,
		Diagnostics: res.Diagnostics,
		Digest:      digest,
		Bindings:    res.Bindings,
		Steps:       res.Steps,
	}
	switch {
	case res.Panicked:
		out.Err = NewPanicError(m.Name, panicMessage(res.Diagnostics))
		log.Error("analysis panicked", "error", out.Err)
	case res.Exhausted:
		out.Err = NewBudgetError(m.Name, res.Steps, e.policy.Limits.MaxSteps)
		log.Warn("step budget exhausted", "steps", res.Steps)
	}
	return out, nil
}

func decodeFailure(job Job) Outcome {
	err := job.Err
	if err == nil {
		err = fmt.Errorf("no module")
	}
	diags := []ir.Diagnostic{{
		Location: ir.Location{File: job.Path},
		Severity: ir.SeverityError,
		Kind:     ir.KindSyntaxError,
		Message:  err.Error(),
	}}
	digest, _ := ir.DiagnosticsDigest(diags)
	return Outcome{
		Path: job.Path,
		Verdict: ir.Verdict{
			Module: job.Path,
			File:   job.Path,
			Counts: ir.CountDiagnostics(diags),
		},
		Diagnostics: diags,
		Digest:      digest,
		Err:         NewDecodeError(job.Path, err),
	}
}

func panicMessage(diags []ir.Diagnostic) string {
	for i := len(diags) - 1; i >= 0; i-- {
		if diags[i].Kind == ir.KindInternalError {
			return strings.TrimPrefix(diags[i].Message, "internal error: ")
		}
	}
	return "analysis panicked"
}

// record writes the run's verdicts in seq order, then the final run counts.
func (e *Engine) record(ctx context.Context, log *slog.Logger, report *Report) error {
	for _, o := range report.Outcomes {
		inserted, err := e.store.WriteVerdict(ctx, store.Record{
			RunID:       report.RunID,
			Seq:         o.Seq,
			PolicyHash:  report.PolicyHash,
			Digest:      o.Digest,
			Verdict:     o.Verdict,
			Diagnostics: o.Diagnostics,
		})
		if err != nil {
			return err
		}
		if !inserted {
			log.Warn("duplicate module in run, verdict not recorded", "module", o.Verdict.Module, "path", o.Path)
		}
	}
	return e.store.WriteRun(ctx, e.storeRun(report, len(report.Outcomes), report.Strict()))
}

func (e *Engine) storeRun(report *Report, modules, strict int) store.Run {
	return store.Run{
		ID:              report.RunID,
		Seq:             report.Seq,
		PolicyHash:      report.PolicyHash,
		AnalyzerVersion: ir.AnalyzerVersion,
		IRVersion:       ir.IRVersion,
		Modules:         modules,
		Strict:          strict,
	}
}
