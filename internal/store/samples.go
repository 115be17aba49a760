package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valadhi/blauwe-parser/internal/cbc"
)

// ErrMissingContext is returned when a user or report id is empty.
var ErrMissingContext = errors.New("store: user and report id are required")

// SaveExtraction upserts the extracted rows of one report. A row with the
// same (sample, parameter, unit) key replaces the stored one. Rows are
// written in chunks of the configured batch size; it returns the number of
// rows written.
func (s *SQLiteStore) SaveExtraction(ctx context.Context, e Extraction) (int, error) {
	userID := strings.TrimSpace(e.UserID)
	reportID := strings.TrimSpace(e.ReportID)
	if userID == "" || reportID == "" {
		return 0, ErrMissingContext
	}
	for i, r := range e.Rows {
		if strings.TrimSpace(r.SampleID) == "" || strings.TrimSpace(r.Parameter) == "" {
			return 0, fmt.Errorf("row %d: sample_id and parameter are required", i)
		}
	}

	written := 0
	for i := 0; i < len(e.Rows); i += s.batchSize {
		end := i + s.batchSize
		if end > len(e.Rows) {
			end = len(e.Rows)
		}
		if err := s.insertExtractionChunk(ctx, userID, reportID, e.SourceFile, e.Rows[i:end]); err != nil {
			return written, fmt.Errorf("saving rows %d-%d: %w", i, end, err)
		}
		written += end - i
	}
	return written, nil
}

func (s *SQLiteStore) insertExtractionChunk(ctx context.Context, userID, reportID, sourceFile string, rows []ExtractionRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO extracted_samples
			(user_id, report_id, sample_id, parameter, unit, value, source_file, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	now := s.now()
	for _, r := range rows {
		var value sql.NullString
		if v := strings.TrimSpace(r.Value); v != "" {
			value = sql.NullString{String: v, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			userID, reportID,
			strings.TrimSpace(r.SampleID),
			strings.TrimSpace(r.Parameter),
			strings.TrimSpace(r.Unit),
			value, sourceFile, now.Format(timestampLayout),
		)
		if err != nil {
			return fmt.Errorf("inserting extracted row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing extraction: %w", err)
	}
	return nil
}

// SaveWideRow stores a wide sample row in long form, one parameter per
// column with an empty unit. Missing cells are stored without a value.
func (s *SQLiteStore) SaveWideRow(ctx context.Context, userID, reportID string, row *cbc.Row) (int, error) {
	if row == nil || strings.TrimSpace(row.SampleID) == "" {
		return 0, cbc.ErrEmptySample
	}
	return s.SaveExtraction(ctx, Extraction{UserID: userID, ReportID: reportID, Rows: LongForm(row)})
}

// LongForm flattens a wide row into extraction rows in column order.
func LongForm(row *cbc.Row) []ExtractionRow {
	rows := make([]ExtractionRow, 0, row.Len())
	for _, col := range row.Columns() {
		c, _ := row.Cell(col)
		value := c.Raw
		if c.Valid {
			value = strconv.FormatFloat(c.Value, 'g', -1, 64)
		}
		rows = append(rows, ExtractionRow{SampleID: row.SampleID, Parameter: col, Value: value})
	}
	return rows
}

// LoadLongRows returns the stored rows of one sample in write order.
// It returns an empty slice when nothing is stored.
func (s *SQLiteStore) LoadLongRows(ctx context.Context, userID, reportID, sampleID string) ([]cbc.LongRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT parameter, unit, COALESCE(value, '')
		 FROM extracted_samples
		 WHERE user_id = ? AND report_id = ? AND sample_id = ?
		 ORDER BY rowid`,
		userID, reportID, sampleID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading sample %s/%s: %w", reportID, sampleID, err)
	}
	defer rows.Close()

	var out []cbc.LongRow
	for rows.Next() {
		var r cbc.LongRow
		if err := rows.Scan(&r.Parameter, &r.Unit, &r.Value); err != nil {
			return nil, fmt.Errorf("scanning sample row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListSamples lists the samples of a user. An empty reportID lists every
// report.
func (s *SQLiteStore) ListSamples(ctx context.Context, userID, reportID string) ([]SampleRef, error) {
	query := `SELECT report_id, sample_id, COUNT(*)
		FROM extracted_samples
		WHERE user_id = ?`
	args := []any{userID}
	if reportID != "" {
		query += ` AND report_id = ?`
		args = append(args, reportID)
	}
	query += ` GROUP BY report_id, sample_id ORDER BY report_id, sample_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing samples: %w", err)
	}
	defer rows.Close()

	var out []SampleRef
	for rows.Next() {
		var ref SampleRef
		if err := rows.Scan(&ref.ReportID, &ref.SampleID, &ref.Parameters); err != nil {
			return nil, fmt.Errorf("scanning sample: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// ListReports summarizes the reports of a user ordered by report id.
func (s *SQLiteStore) ListReports(ctx context.Context, userID string) ([]ReportSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT report_id, MAX(source_file), COUNT(DISTINCT sample_id), COUNT(*),
		        COALESCE(MAX(imported_at), '')
		 FROM extracted_samples
		 WHERE user_id = ?
		 GROUP BY report_id
		 ORDER BY report_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var out []ReportSummary
	for rows.Next() {
		var r ReportSummary
		var imported string
		if err := rows.Scan(&r.ReportID, &r.SourceFile, &r.Samples, &r.Rows, &imported); err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		r.ImportedAt = parseTimestamp(imported)
		out = append(out, r)
	}
	return out, rows.Err()
}

// AvailableParameters lists the distinct (parameter, unit) pairs extracted
// for a report ordered by parameter and unit.
func (s *SQLiteStore) AvailableParameters(ctx context.Context, userID, reportID string) ([]Parameter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT parameter, unit
		 FROM extracted_samples
		 WHERE user_id = ? AND report_id = ?
		 ORDER BY parameter, unit`,
		userID, reportID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing parameters: %w", err)
	}
	defer rows.Close()

	var out []Parameter
	for rows.Next() {
		var p Parameter
		if err := rows.Scan(&p.Name, &p.Unit); err != nil {
			return nil, fmt.Errorf("scanning parameter: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteReport removes every stored row and local mapping of a report.
// It returns the number of extracted rows deleted.
func (s *SQLiteStore) DeleteReport(ctx context.Context, userID, reportID string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM extracted_samples WHERE user_id = ? AND report_id = ?`, userID, reportID)
	if err != nil {
		return 0, fmt.Errorf("deleting report rows: %w", err)
	}
	n, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM local_mappings WHERE user_id = ? AND report_id = ?`, userID, reportID); err != nil {
		return 0, fmt.Errorf("deleting report mappings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing report delete: %w", err)
	}
	return n, nil
}

// timestampLayout is fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// parseTimestamp reads the DATETIME text forms the driver writes.
func parseTimestamp(v string) time.Time {
	for _, layout := range []string{
		timestampLayout,
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999 -0700 MST",
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
