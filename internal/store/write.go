package store

import (
	"context"
	"fmt"

	"github.com/roach88/strictmod/internal/ir"
)

// Run is one batch analysis.
type Run struct {
	ID              string `json:"id"`
	Seq             int64  `json:"seq"`
	PolicyHash      string `json:"policy_hash"`
	AnalyzerVersion string `json:"analyzer_version"`
	IRVersion       string `json:"ir_version"`
	Modules         int    `json:"modules"`
	Strict          int    `json:"strict"`
}

// Record is one module's stored verdict and diagnostics.
type Record struct {
	RunID       string          `json:"run_id"`
	Seq         int64           `json:"seq"`
	PolicyHash  string          `json:"policy_hash"`
	Digest      string          `json:"digest"`
	Verdict     ir.Verdict      `json:"verdict"`
	Diagnostics []ir.Diagnostic `json:"diagnostics"`
}

// NextRunSeq returns the sequence number for a new run.
func (s *Store) NextRunSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next run seq: %w", err)
	}
	return seq, nil
}

// WriteRun inserts a run, or updates the module counts of an existing run
// with the same ID. The engine writes a run before its verdicts and again
// once the batch is complete.
func (s *Store) WriteRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, policy_hash, analyzer_version, ir_version, module_count, strict_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			module_count = excluded.module_count,
			strict_count = excluded.strict_count
	`,
		r.ID,
		r.Seq,
		r.PolicyHash,
		r.AnalyzerVersion,
		r.IRVersion,
		r.Modules,
		r.Strict,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteVerdict stores a module verdict with its diagnostics. Uses
// ON CONFLICT(run_id, module) DO NOTHING for idempotency: the first write
// for a module in a run wins and inserted reports whether this call wrote it.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteVerdict(ctx context.Context, rec Record) (inserted bool, err error) {
	counts, err := marshalCounts(rec.Verdict.Counts)
	if err != nil {
		return false, fmt.Errorf("write verdict: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write verdict: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO verdicts
		(run_id, seq, module, file, module_hash, policy_hash, strict, counts, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, module) DO NOTHING
	`,
		rec.RunID,
		rec.Seq,
		rec.Verdict.Module,
		rec.Verdict.File,
		rec.Verdict.Hash,
		rec.PolicyHash,
		boolToInt(rec.Verdict.Strict),
		counts,
		rec.Digest,
	)
	if err != nil {
		return false, fmt.Errorf("write verdict: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write verdict: rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	for i, d := range rec.Diagnostics {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO diagnostics
			(run_id, module, idx, file, line, col, severity, kind, message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rec.RunID,
			rec.Verdict.Module,
			i,
			d.Location.File,
			d.Location.Line,
			d.Location.Col,
			string(d.Severity),
			string(d.Kind),
			d.Message,
		)
		if err != nil {
			return false, fmt.Errorf("write diagnostic %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write verdict: commit: %w", err)
	}
	return true, nil
}
