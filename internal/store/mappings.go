package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/valadhi/blauwe-parser/internal/cbc"
)

// ErrEmptyMapping is returned when a mapping source or target is blank.
var ErrEmptyMapping = errors.New("store: mapping source and target are required")

// GlobalMappings returns the global mappings in insertion order.
func (s *SQLiteStore) GlobalMappings(ctx context.Context) ([]cbc.Mapping, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, target FROM global_mappings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing global mappings: %w", err)
	}
	defer rows.Close()

	var out []cbc.Mapping
	for rows.Next() {
		var m cbc.Mapping
		if err := rows.Scan(&m.Source, &m.Target); err != nil {
			return nil, fmt.Errorf("scanning global mapping: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetGlobalMapping inserts or retargets the global mapping of source.
// A retargeted mapping keeps its position.
func (s *SQLiteStore) SetGlobalMapping(ctx context.Context, source, target string) error {
	source, target = strings.TrimSpace(source), strings.TrimSpace(target)
	if source == "" || target == "" {
		return ErrEmptyMapping
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO global_mappings (source, target, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(source) DO UPDATE SET target = excluded.target, updated_at = excluded.updated_at`,
		source, target, s.now().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("setting global mapping %q: %w", source, err)
	}
	return nil
}

// DeleteGlobalMapping removes the global mapping of source.
func (s *SQLiteStore) DeleteGlobalMapping(ctx context.Context, source string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM global_mappings WHERE source = ?`, source); err != nil {
		return fmt.Errorf("deleting global mapping %q: %w", source, err)
	}
	return nil
}

// SeedGlobalMappings adds mappings whose source is not mapped yet and
// returns how many were added. Existing mappings are left alone.
func (s *SQLiteStore) SeedGlobalMappings(ctx context.Context, mappings []cbc.Mapping) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().Format(timestampLayout)
	added := 0
	for _, m := range mappings {
		source, target := strings.TrimSpace(m.Source), strings.TrimSpace(m.Target)
		if source == "" || target == "" {
			continue
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO global_mappings (source, target, updated_at) VALUES (?, ?, ?)`,
			source, target, now,
		)
		if err != nil {
			return 0, fmt.Errorf("seeding global mapping %q: %w", source, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing seed: %w", err)
	}
	return added, nil
}

// LocalMappings returns the local mappings of a report, most recent write
// first. The first entry for a target is therefore the one that applies.
func (s *SQLiteStore) LocalMappings(ctx context.Context, userID, reportID string) ([]LocalMapping, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, report_id, source, target, updated_at
		 FROM local_mappings
		 WHERE user_id = ? AND report_id = ?
		 ORDER BY seq DESC`,
		userID, reportID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing local mappings: %w", err)
	}
	defer rows.Close()

	var out []LocalMapping
	for rows.Next() {
		var m LocalMapping
		var updated string
		if err := rows.Scan(&m.UserID, &m.ReportID, &m.Source, &m.Target, &updated); err != nil {
			return nil, fmt.Errorf("scanning local mapping: %w", err)
		}
		m.UpdatedAt = parseTimestamp(updated)
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetLocalMapping upserts the local mapping of source for one report.
func (s *SQLiteStore) SetLocalMapping(ctx context.Context, userID, reportID, source, target string) error {
	source, target = strings.TrimSpace(source), strings.TrimSpace(target)
	if source == "" || target == "" {
		return ErrEmptyMapping
	}
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(reportID) == "" {
		return ErrMissingContext
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO local_mappings (user_id, report_id, source, target, updated_at, seq)
		 VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM local_mappings))
		 ON CONFLICT(user_id, report_id, source) DO UPDATE SET
			target = excluded.target,
			updated_at = excluded.updated_at,
			seq = excluded.seq`,
		userID, reportID, source, target, s.now().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("setting local mapping %q: %w", source, err)
	}
	return nil
}

// UpdateLocalMapping stores a mapping chosen in the mapping editor. The
// target ResetTarget deletes the mapping of source instead.
func (s *SQLiteStore) UpdateLocalMapping(ctx context.Context, userID, reportID, source, target string) error {
	if strings.TrimSpace(target) == ResetTarget {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM local_mappings WHERE user_id = ? AND report_id = ? AND source = ?`,
			userID, reportID, strings.TrimSpace(source),
		)
		if err != nil {
			return fmt.Errorf("resetting local mapping %q: %w", source, err)
		}
		return nil
	}
	return s.SetLocalMapping(ctx, userID, reportID, source, target)
}

// ResetLocalMapping removes every local mapping that points at target, so
// the property falls back to the global mappings. It returns the number of
// mappings removed.
func (s *SQLiteStore) ResetLocalMapping(ctx context.Context, userID, reportID, target string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM local_mappings WHERE user_id = ? AND report_id = ? AND target = ?`,
		userID, reportID, strings.TrimSpace(target),
	)
	if err != nil {
		return 0, fmt.Errorf("resetting local mappings for %q: %w", target, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Mappings converts local mappings to the resolver's form, keeping order.
func Mappings(local []LocalMapping) []cbc.Mapping {
	out := make([]cbc.Mapping, 0, len(local))
	for _, m := range local {
		out = append(out, cbc.Mapping{Source: m.Source, Target: m.Target})
	}
	return out
}
