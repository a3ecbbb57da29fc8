package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/strictmod/internal/ir"
)

// LookupVerdict returns the most recent stored verdict for a module content
// hash analyzed under policyHash by the given analyzer version. found is
// false when nothing matches.
func (s *Store) LookupVerdict(ctx context.Context, moduleHash, policyHash, analyzerVersion string) (rec Record, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT v.run_id, v.seq, v.module, v.file, v.module_hash, v.policy_hash, v.strict, v.counts, v.digest
		FROM verdicts v
		JOIN runs r ON r.id = v.run_id
		WHERE v.module_hash = ? AND v.policy_hash = ? AND r.analyzer_version = ?
		ORDER BY r.seq DESC, v.seq DESC
		LIMIT 1
	`, moduleHash, policyHash, analyzerVersion)

	rec, err = scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("lookup verdict: %w", err)
	}
	if rec.Diagnostics, err = s.readDiagnostics(ctx, rec.RunID, rec.Verdict.Module); err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// ReadRun returns a run and its records in analysis order.
// Returns sql.ErrNoRows if the run does not exist.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, []Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, policy_hash, analyzer_version, ir_version, module_count, strict_count
		FROM runs
		WHERE id = ?
	`, runID)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, nil, fmt.Errorf("read run %s: %w", runID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, module, file, module_hash, policy_hash, strict, counts, digest
		FROM verdicts
		WHERE run_id = ?
		ORDER BY seq ASC, module COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return Run{}, nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return Run{}, nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return Run{}, nil, fmt.Errorf("iterate verdicts: %w", err)
	}
	rows.Close()

	for i := range records {
		diags, err := s.readDiagnostics(ctx, runID, records[i].Verdict.Module)
		if err != nil {
			return Run{}, nil, err
		}
		records[i].Diagnostics = diags
	}
	return run, records, nil
}

// ListRuns returns all runs in sequence order.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, policy_hash, analyzer_version, ir_version, module_count, strict_count
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the run with the highest sequence number.
// Returns sql.ErrNoRows if the store holds no runs.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, policy_hash, analyzer_version, ir_version, module_count, strict_count
		FROM runs
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`)
	r, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

func (s *Store) readDiagnostics(ctx context.Context, runID, module string) ([]ir.Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file, line, col, severity, kind, message
		FROM diagnostics
		WHERE run_id = ? AND module = ?
		ORDER BY idx ASC
	`, runID, module)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	diags := []ir.Diagnostic{}
	for rows.Next() {
		var d ir.Diagnostic
		var severity, kind string
		if err := rows.Scan(&d.Location.File, &d.Location.Line, &d.Location.Col, &severity, &kind, &d.Message); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		d.Severity = ir.Severity(severity)
		d.Kind = ir.DiagnosticKind(kind)
		diags = append(diags, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostics: %w", err)
	}
	return diags, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.Seq, &r.PolicyHash, &r.AnalyzerVersion, &r.IRVersion, &r.Modules, &r.Strict)
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var strict int
	var counts string
	err := row.Scan(
		&rec.RunID,
		&rec.Seq,
		&rec.Verdict.Module,
		&rec.Verdict.File,
		&rec.Verdict.Hash,
		&rec.PolicyHash,
		&strict,
		&counts,
		&rec.Digest,
	)
	if err != nil {
		return Record{}, err
	}
	rec.Verdict.Strict = strict != 0
	if rec.Verdict.Counts, err = unmarshalCounts(counts); err != nil {
		return Record{}, err
	}
	return rec, nil
}
