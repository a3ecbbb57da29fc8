package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strictmod/internal/ir"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun(id string, seq int64) Run {
	return Run{
		ID:              id,
		Seq:             seq,
		PolicyHash:      "policy-1",
		AnalyzerVersion: ir.AnalyzerVersion,
		IRVersion:       ir.IRVersion,
	}
}

func testRecord(runID string, seq int64, module string, diags ...ir.Diagnostic) Record {
	if diags == nil {
		diags = []ir.Diagnostic{}
	}
	return Record{
		RunID:      runID,
		Seq:        seq,
		PolicyHash: "policy-1",
		Digest:     "digest-" + module,
		Verdict: ir.Verdict{
			Module: module,
			File:   module + ".py",
			Strict: !ir.HasErrors(diags),
			Hash:   "hash-" + module,
			Counts: ir.CountDiagnostics(diags),
		},
		Diagnostics: diags,
	}
}

var attrError = ir.Diagnostic{
	Location: ir.Location{File: "b.py", Line: 3, Col: 4},
	Severity: ir.SeverityError,
	Kind:     ir.KindAttributeError,
	Message:  "'C' object has no attribute 'y'",
}

var opacityWarning = ir.Diagnostic{
	Location: ir.Location{File: "b.py", Line: 1},
	Severity: ir.SeverityWarning,
	Kind:     ir.KindOpacityError,
	Message:  "module 'ext' is not available for analysis",
}

func TestWriteAndReadRun(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	run := testRun("run-1", 1)
	require.NoError(t, s.WriteRun(ctx, run))

	b := testRecord("run-1", 2, "b", opacityWarning, attrError)
	a := testRecord("run-1", 1, "a")
	for _, rec := range []Record{b, a} {
		inserted, err := s.WriteVerdict(ctx, rec)
		require.NoError(t, err)
		assert.True(t, inserted)
	}

	run.Modules, run.Strict = 2, 1
	require.NoError(t, s.WriteRun(ctx, run))

	gotRun, records, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, gotRun)
	if diff := cmp.Diff([]Record{a, b}, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteVerdictIdempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.WriteRun(ctx, testRun("run-1", 1)))

	first := testRecord("run-1", 1, "m", attrError)
	inserted, err := s.WriteVerdict(ctx, first)
	require.NoError(t, err)
	require.True(t, inserted)

	second := testRecord("run-1", 5, "m")
	inserted, err = s.WriteVerdict(ctx, second)
	require.NoError(t, err)
	assert.False(t, inserted)

	_, records, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, first.Diagnostics, records[0].Diagnostics)
}

func TestLookupVerdictPrefersLatestRun(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.WriteRun(ctx, testRun("run-1", 1)))
	_, err := s.WriteVerdict(ctx, testRecord("run-1", 1, "m", attrError))
	require.NoError(t, err)

	require.NoError(t, s.WriteRun(ctx, testRun("run-2", 2)))
	_, err = s.WriteVerdict(ctx, testRecord("run-2", 1, "m"))
	require.NoError(t, err)

	rec, found, err := s.LookupVerdict(ctx, "hash-m", "policy-1", ir.AnalyzerVersion)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "run-2", rec.RunID)
	assert.True(t, rec.Verdict.Strict)
	assert.Empty(t, rec.Diagnostics)
}

func TestLookupVerdictMisses(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.WriteRun(ctx, testRun("run-1", 1)))
	_, err := s.WriteVerdict(ctx, testRecord("run-1", 1, "m"))
	require.NoError(t, err)

	tests := []struct {
		name                          string
		moduleHash, policyHash, build string
	}{
		{"other module", "hash-x", "policy-1", ir.AnalyzerVersion},
		{"other policy", "hash-m", "policy-2", ir.AnalyzerVersion},
		{"other analyzer", "hash-m", "policy-1", "9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, found, err := s.LookupVerdict(ctx, tt.moduleHash, tt.policyHash, tt.build)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestListRunsAndSeq(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	seq, err := s.NextRunSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	require.NoError(t, s.WriteRun(ctx, testRun("b", 2)))
	require.NoError(t, s.WriteRun(ctx, testRun("a", 1)))

	seq, err = s.NextRunSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), seq)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "a", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)

	latest, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", latest.ID)
}

func TestReadRunNotFound(t *testing.T) {
	s := createTestStore(t)

	_, _, err := s.ReadRun(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	_, err = s.LatestRun(context.Background())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
