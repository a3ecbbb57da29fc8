package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/strictmod/internal/compiler"
	"github.com/roach88/strictmod/internal/engine"
	"github.com/roach88/strictmod/internal/ir"
	"github.com/roach88/strictmod/internal/store"
	"github.com/roach88/strictmod/internal/testutil"
)

// Harness is the scenario execution engine. It runs scenarios through the
// batch engine with a deterministic clock and a fixed run ID.
type Harness struct {
	store  *store.Store
	clock  *testutil.DeterministicClock
	runIDs *testutil.FixedRunID
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation:
//  1. Build the policy from the scenario's CUE source or policy directory
//  2. Load the module
//  3. Analyze it through the engine, recording the verdict in the store
//  4. Read the verdict back and evaluate expectations against it
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		clock:  testutil.NewDeterministicClock(),
		runIDs: testutil.NewFixedRunID(scenario.RunID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	policy, err := scenarioPolicy(scenario)
	if err != nil {
		return nil, err
	}
	mod, err := scenarioModule(scenario)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(*policy,
		engine.WithStore(h.store),
		engine.WithClock(h.clock),
		engine.WithRunIDGenerator(h.runIDs),
		engine.WithJobs(1),
		engine.WithLogger(h.logger),
	)
	if err != nil {
		return nil, err
	}

	report, err := eng.Run(ctx, []engine.Job{{Path: mod.File, Module: mod}})
	if err != nil {
		return nil, fmt.Errorf("failed to analyze module: %w", err)
	}
	out := report.Outcomes[0]
	if out.Err != nil {
		h.logger.Warn("analysis incomplete", "scenario", scenario.Name, "error", out.Err)
	}

	_, records, err := h.store.ReadRun(ctx, report.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back run: %w", err)
	}
	if len(records) != 1 {
		return nil, fmt.Errorf("expected 1 stored verdict, found %d", len(records))
	}

	result := NewResult()
	result.Verdict = records[0].Verdict
	result.Diagnostics = records[0].Diagnostics
	result.Seq = records[0].Seq
	if out.Bindings != nil {
		result.Bindings = out.Bindings
	}

	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"strict", result.Verdict.Strict,
		"diagnostics", len(result.Diagnostics),
		"pass", result.Pass,
	)
	return result, nil
}

func scenarioPolicy(s *Scenario) (*ir.Policy, error) {
	switch {
	case s.PolicyDir != "":
		p, err := compiler.LoadPolicyDir(s.PolicyDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load policy: %w", err)
		}
		return checkPolicy(p)
	case s.Policy != "":
		p, err := compiler.CompilePolicySource(s.Name+".cue", s.Policy)
		if err != nil {
			return nil, fmt.Errorf("failed to compile policy: %w", err)
		}
		return checkPolicy(p)
	default:
		p := ir.DefaultPolicy()
		return &p, nil
	}
}

func checkPolicy(p *ir.Policy) (*ir.Policy, error) {
	if errs := compiler.Validate(p); len(errs) > 0 {
		return nil, fmt.Errorf("invalid policy: %w", errs[0])
	}
	return p, nil
}

func scenarioModule(s *Scenario) (*ir.Module, error) {
	if s.ModuleFile != "" {
		m, err := ir.DecodeModuleFile(s.ModuleFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load module: %w", err)
		}
		return m, nil
	}
	m := *s.Module
	if m.File == "" {
		m.File = m.Name + ".py"
	}
	return &m, nil
}
