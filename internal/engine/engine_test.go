package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strictmod/internal/analyzer"
	"github.com/roach88/strictmod/internal/ir"
	"github.com/roach88/strictmod/internal/objects"
	"github.com/roach88/strictmod/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func strictModule(name string) *ir.Module {
	return ir.NewModule(name, ir.AssignName("x", ir.BinOp(ir.Int(1), "+", ir.Int(2))).At(1))
}

func failingModule(name string) *ir.Module {
	return ir.NewModule(name, ir.AssignName("y", ir.Name("missing")).At(1))
}

func newTestEngine(t *testing.T, policy ir.Policy, opts ...EngineOption) *Engine {
	t.Helper()
	opts = append([]EngineOption{WithRunIDGenerator(NewFixedGenerator("run-1", "run-2", "run-3"))}, opts...)
	e, err := New(policy, opts...)
	require.NoError(t, err)
	return e
}

func jobsFor(mods ...*ir.Module) []Job {
	jobs := make([]Job, len(mods))
	for i, m := range mods {
		jobs[i] = Job{Path: m.Name + ".json", Module: m}
	}
	return jobs
}

func TestEngine_RunPreservesInputOrder(t *testing.T) {
	var mods []*ir.Module
	for i := 0; i < 20; i++ {
		if i%3 == 0 {
			mods = append(mods, failingModule(fmt.Sprintf("m%02d", i)))
		} else {
			mods = append(mods, strictModule(fmt.Sprintf("m%02d", i)))
		}
	}
	e := newTestEngine(t, ir.DefaultPolicy(), WithJobs(4))

	report, err := e.Run(context.Background(), jobsFor(mods...))
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	require.Len(t, report.Outcomes, 20)
	for i, o := range report.Outcomes {
		assert.Equal(t, mods[i].Name, o.Verdict.Module)
		assert.Equal(t, int64(i+1), o.Seq)
		assert.Equal(t, i%3 != 0, o.Verdict.Strict, o.Verdict.Module)
		assert.NoError(t, o.Err)
	}
	assert.Equal(t, 13, report.Strict())
	assert.False(t, report.AllStrict())
}

func TestEngine_ConcurrencyDoesNotChangeResults(t *testing.T) {
	build := func() []Job {
		return jobsFor(strictModule("a"), failingModule("b"), strictModule("c"), failingModule("d"))
	}

	serial, err := newTestEngine(t, ir.DefaultPolicy(), WithJobs(1)).Run(context.Background(), build())
	require.NoError(t, err)
	parallel, err := newTestEngine(t, ir.DefaultPolicy(), WithJobs(8)).Run(context.Background(), build())
	require.NoError(t, err)

	if diff := cmp.Diff(serial.Outcomes, parallel.Outcomes); diff != "" {
		t.Errorf("outcomes differ (-serial +parallel):\n%s", diff)
	}
}

func TestEngine_ClockContinuesAcrossRuns(t *testing.T) {
	e := newTestEngine(t, ir.DefaultPolicy())

	first, err := e.Run(context.Background(), jobsFor(strictModule("a")))
	require.NoError(t, err)
	second, err := e.Run(context.Background(), jobsFor(strictModule("b")))
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Outcomes[0].Seq)
	assert.Equal(t, int64(2), second.Outcomes[0].Seq)
	assert.Equal(t, "run-2", second.RunID)
}

func TestEngine_DecodeFailure(t *testing.T) {
	e := newTestEngine(t, ir.DefaultPolicy())
	jobs := []Job{
		{Path: "bad.json", Err: &ir.DecodeError{File: "bad.json", Message: "module name is required"}},
		{Path: "good.json", Module: strictModule("good")},
	}

	report, err := e.Run(context.Background(), jobs)
	require.NoError(t, err)

	bad := report.Outcomes[0]
	assert.True(t, IsDecodeError(bad.Err))
	assert.False(t, bad.Verdict.Strict)
	assert.Equal(t, "bad.json", bad.Verdict.Module)
	require.Len(t, bad.Diagnostics, 1)
	assert.Equal(t, ir.KindSyntaxError, bad.Diagnostics[0].Kind)
	assert.Equal(t, "bad.json: module name is required", bad.Diagnostics[0].Message)

	assert.True(t, report.Outcomes[1].Verdict.Strict)
}

func TestEngine_StepBudgetIsolatedPerModule(t *testing.T) {
	policy := ir.DefaultPolicy()
	policy.Limits.MaxSteps = 50
	loop := ir.NewModule("loop",
		ir.ForLoop(ir.Name("i"), ir.Call(ir.Name("range"), ir.Int(1000)),
			ir.AssignName("t", ir.Name("i")),
		).At(1),
	)
	e := newTestEngine(t, policy, WithJobs(2))

	report, err := e.Run(context.Background(), jobsFor(loop, strictModule("ok")))
	require.NoError(t, err)

	exhausted := report.Outcomes[0]
	assert.True(t, IsBudgetError(exhausted.Err))
	assert.False(t, exhausted.Verdict.Strict)
	var ae *AnalysisError
	require.True(t, errors.As(exhausted.Err, &ae))
	assert.Equal(t, "50", ae.Details["max_steps"])

	assert.NoError(t, report.Outcomes[1].Err)
	assert.True(t, report.Outcomes[1].Verdict.Strict)
}

func TestEngine_PanicIsolatedPerModule(t *testing.T) {
	loader := analyzer.LoaderFunc(func(_ *objects.CallerContext, name string) (objects.Value, bool) {
		if name == "explode" {
			panic("boom")
		}
		return nil, false
	})
	broken := ir.NewModule("broken", ir.Import(ir.As("explode", "")).At(1))
	e := newTestEngine(t, ir.DefaultPolicy(), WithLoader(loader), WithJobs(2))

	report, err := e.Run(context.Background(), jobsFor(broken, strictModule("ok")))
	require.NoError(t, err)

	assert.True(t, IsPanicError(report.Outcomes[0].Err))
	assert.Contains(t, report.Outcomes[0].Err.Error(), "boom")
	assert.True(t, report.Outcomes[1].Verdict.Strict)
}

func TestEngine_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(t, ir.DefaultPolicy()).Run(ctx, jobsFor(strictModule("a")))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_InvalidPolicy(t *testing.T) {
	_, err := New(ir.Policy{Opacity: "loud"})
	assert.ErrorContains(t, err, "invalid opacity mode")
}

func TestEngine_PolicyHashIgnoresSpelledOutDefaults(t *testing.T) {
	implicit := newTestEngine(t, ir.Policy{})
	explicit := newTestEngine(t, ir.DefaultPolicy())
	assert.Equal(t, explicit.PolicyHash(), implicit.PolicyHash())
}

func TestEngine_RecordsRunInStore(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	e := newTestEngine(t, ir.DefaultPolicy(), WithStore(s))

	report, err := e.Run(ctx, jobsFor(failingModule("b"), strictModule("a")))
	require.NoError(t, err)

	run, records, err := s.ReadRun(ctx, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), run.Seq)
	assert.Equal(t, 2, run.Modules)
	assert.Equal(t, 1, run.Strict)
	assert.Equal(t, e.PolicyHash(), run.PolicyHash)

	require.Len(t, records, 2)
	assert.Equal(t, "b", records[0].Verdict.Module)
	assert.Equal(t, report.Outcomes[0].Diagnostics, records[0].Diagnostics)
	assert.Equal(t, report.Outcomes[0].Digest, records[0].Digest)
	assert.Equal(t, "a", records[1].Verdict.Module)
}

func TestEngine_CacheHit(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	e := newTestEngine(t, ir.DefaultPolicy(), WithStore(s))

	first, err := e.Run(ctx, jobsFor(failingModule("m")))
	require.NoError(t, err)
	require.False(t, first.Outcomes[0].Cached)

	second, err := e.Run(ctx, jobsFor(failingModule("m")))
	require.NoError(t, err)

	got := second.Outcomes[0]
	assert.True(t, got.Cached)
	assert.Equal(t, first.Outcomes[0].Verdict, got.Verdict)
	assert.Equal(t, first.Outcomes[0].Diagnostics, got.Diagnostics)
	assert.Zero(t, got.Steps)

	run, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", run.ID)
	assert.Equal(t, int64(2), run.Seq)
}

func TestEngine_CacheKeyedByPolicy(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	_, err := newTestEngine(t, ir.DefaultPolicy(), WithStore(s)).Run(ctx, jobsFor(failingModule("m")))
	require.NoError(t, err)

	strict := ir.DefaultPolicy()
	strict.Opacity = ir.OpacityError
	report, err := newTestEngine(t, strict, WithStore(s),
		WithRunIDGenerator(NewFixedGenerator("other"))).Run(ctx, jobsFor(failingModule("m")))
	require.NoError(t, err)
	assert.False(t, report.Outcomes[0].Cached)
}

func TestEngine_ForceSkipsCache(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	e := newTestEngine(t, ir.DefaultPolicy(), WithStore(s), WithForce(true))

	_, err := e.Run(ctx, jobsFor(strictModule("m")))
	require.NoError(t, err)
	report, err := e.Run(ctx, jobsFor(strictModule("m")))
	require.NoError(t, err)

	assert.False(t, report.Outcomes[0].Cached)
	assert.NotZero(t, report.Outcomes[0].Steps)
}

func TestEngine_DuplicateModuleRecordedOnce(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	e := newTestEngine(t, ir.DefaultPolicy(), WithStore(s))

	report, err := e.Run(ctx, jobsFor(strictModule("m"), failingModule("m")))
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)

	_, records, err := s.ReadRun(ctx, report.RunID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Verdict.Strict)
}
