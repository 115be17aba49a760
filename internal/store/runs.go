package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/valadhi/blauwe-parser/internal/cbc"
)

// SaveRun persists the score rows and rule details of an evaluated batch
// under a new run id.
func (s *SQLiteStore) SaveRun(ctx context.Context, userID, note string, batch *cbc.Batch) (*Run, error) {
	if batch == nil || batch.Len() == 0 {
		return nil, fmt.Errorf("saving run: %w", cbc.ErrEmptySample)
	}

	run := &Run{
		ID:        uuid.NewString(),
		UserID:    userID,
		Note:      note,
		Samples:   batch.Len(),
		CreatedAt: s.now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, user_id, note, samples, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.UserID, run.Note, run.Samples, run.CreatedAt.Format(timestampLayout),
	); err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}

	scoreStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_scores
			(run_id, position, label, date_processed, target_id, target_name, score, passed, applicable)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing score statement: %w", err)
	}
	defer scoreStmt.Close()

	detailStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_details
			(run_id, label, seq, target_id, target_name, property_id, property_name,
			 weight, min_value, max_value, value, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing detail statement: %w", err)
	}
	defer detailStmt.Close()

	for pos, label := range batch.Labels() {
		res, _ := batch.Result(label)
		for _, sc := range res.Scores.Scores {
			if _, err := scoreStmt.ExecContext(ctx,
				run.ID, pos, label, res.Scores.DateProcessed,
				sc.TargetID, sc.Name, sc.Score, sc.Passed, sc.Applicable,
			); err != nil {
				return nil, fmt.Errorf("inserting score for %q: %w", label, err)
			}
		}
		for seq, d := range res.Details {
			if _, err := detailStmt.ExecContext(ctx,
				run.ID, label, seq, d.TargetID, d.TargetName, d.PropertyID, d.PropertyName,
				d.Weight, nullFloat(d.Min), nullFloat(d.Max), nullFloat(d.Value), d.Status.String(),
			); err != nil {
				return nil, fmt.Errorf("inserting detail for %q: %w", label, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing run: %w", err)
	}
	return run, nil
}

// ListRuns returns the runs of a user, newest first. limit <= 0 means all.
func (s *SQLiteStore) ListRuns(ctx context.Context, userID string, limit int) ([]Run, error) {
	query := `SELECT id, user_id, note, samples, created_at FROM runs WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// GetRun returns one run, or nil when it does not exist.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, note, samples, created_at FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (*Run, error) {
	var r Run
	var created string
	if err := sc.Scan(&r.ID, &r.UserID, &r.Note, &r.Samples, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	r.CreatedAt = parseTimestamp(created)
	return &r, nil
}

// RunScores rebuilds the score rows of a run in their original order. The
// SampleID of each row is the batch label.
func (s *SQLiteStore) RunScores(ctx context.Context, id string) ([]cbc.ScoreRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, label, date_processed, target_id, target_name, score, passed, applicable
		 FROM run_scores WHERE run_id = ?
		 ORDER BY position, rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("loading run scores: %w", err)
	}
	defer rows.Close()

	var out []cbc.ScoreRow
	last := -1
	for rows.Next() {
		var pos int
		var label, date string
		var ts cbc.TargetScore
		if err := rows.Scan(&pos, &label, &date, &ts.TargetID, &ts.Name, &ts.Score, &ts.Passed, &ts.Applicable); err != nil {
			return nil, fmt.Errorf("scanning run score: %w", err)
		}
		if pos != last {
			out = append(out, cbc.ScoreRow{SampleID: label, DateProcessed: date})
			last = pos
		}
		cur := &out[len(out)-1]
		cur.Scores = append(cur.Scores, ts)
	}
	return out, rows.Err()
}

// RunDetails returns the rule details of a run keyed by batch label.
func (s *SQLiteStore) RunDetails(ctx context.Context, id string) (map[string][]cbc.Detail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, target_id, target_name, property_id, property_name,
		        weight, min_value, max_value, value, status
		 FROM run_details WHERE run_id = ?
		 ORDER BY label, seq`, id)
	if err != nil {
		return nil, fmt.Errorf("loading run details: %w", err)
	}
	defer rows.Close()

	out := map[string][]cbc.Detail{}
	for rows.Next() {
		var label, status string
		var d cbc.Detail
		var minV, maxV, val sql.NullFloat64
		if err := rows.Scan(&label, &d.TargetID, &d.TargetName, &d.PropertyID, &d.PropertyName,
			&d.Weight, &minV, &maxV, &val, &status); err != nil {
			return nil, fmt.Errorf("scanning run detail: %w", err)
		}
		d.Min, d.Max, d.Value = floatPtr(minV), floatPtr(maxV), floatPtr(val)
		if d.Status, err = cbc.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("run detail for %q: %w", label, err)
		}
		out[label] = append(out[label], d)
	}
	return out, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return cbc.Float(v.Float64)
}
