package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// migrate creates all tables if they don't exist and seeds metadata.
func (s *SQLiteStore) migrate() error {
	bootstrapDone, err := isMetaFlagEnabled(s.db, "schema_bootstrap_complete")
	if err != nil {
		return fmt.Errorf("checking bootstrap state: %w", err)
	}

	if !bootstrapDone {
		if err := runDDL(s.db, samplesDDL); err != nil {
			return err
		}
	}

	// Seed metadata (outside bootstrap transaction, meta table now exists)
	if err := seedMeta(s.db, "samples"); err != nil {
		return fmt.Errorf("seeding metadata: %w", err)
	}

	if !bootstrapDone {
		if err := setMetaFlag(s.db, "schema_bootstrap_complete"); err != nil {
			return fmt.Errorf("marking bootstrap complete: %w", err)
		}
	}

	// Schema evolution: provenance columns on extracted_samples.
	// Databases written by the first release only carry the value columns.
	if err := s.migrateProvenanceColumns(); err != nil {
		return fmt.Errorf("migrating provenance columns: %w", err)
	}

	return nil
}

var samplesDDL = []string{
	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,

	// Long-form extraction results. unit is '' rather than NULL so the
	// primary key stays unique for unitless parameters.
	`CREATE TABLE IF NOT EXISTS extracted_samples (
		user_id   TEXT NOT NULL,
		report_id TEXT NOT NULL,
		sample_id TEXT NOT NULL,
		parameter TEXT NOT NULL,
		unit      TEXT NOT NULL DEFAULT '',
		value     TEXT,
		PRIMARY KEY (user_id, report_id, sample_id, parameter, unit)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_extracted_report ON extracted_samples(user_id, report_id)`,

	`CREATE TABLE IF NOT EXISTS global_mappings (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		source     TEXT NOT NULL UNIQUE,
		target     TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_global_mappings_target ON global_mappings(target)`,

	// Target uniqueness is deliberately not enforced: several sources may
	// point at one property and the newest write is listed first.
	`CREATE TABLE IF NOT EXISTS local_mappings (
		user_id    TEXT NOT NULL,
		report_id  TEXT NOT NULL,
		source     TEXT NOT NULL,
		target     TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		seq        INTEGER NOT NULL,
		PRIMARY KEY (user_id, report_id, source)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_local_mappings_target ON local_mappings(user_id, report_id, target)`,

	`CREATE TABLE IF NOT EXISTS runs (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		note       TEXT NOT NULL DEFAULT '',
		samples    INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_user ON runs(user_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS run_scores (
		run_id         TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position       INTEGER NOT NULL,
		label          TEXT NOT NULL,
		date_processed TEXT NOT NULL DEFAULT '',
		target_id      INTEGER NOT NULL,
		target_name    TEXT NOT NULL,
		score          REAL NOT NULL,
		passed         REAL NOT NULL,
		applicable     REAL NOT NULL,
		PRIMARY KEY (run_id, position, target_id)
	)`,

	`CREATE TABLE IF NOT EXISTS run_details (
		run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		label         TEXT NOT NULL,
		seq           INTEGER NOT NULL,
		target_id     INTEGER NOT NULL,
		target_name   TEXT NOT NULL,
		property_id   INTEGER NOT NULL,
		property_name TEXT NOT NULL,
		weight        REAL NOT NULL,
		min_value     REAL,
		max_value     REAL,
		value         REAL,
		status        TEXT NOT NULL,
		PRIMARY KEY (run_id, label, seq)
	)`,
}

// runDDL executes statements in one transaction.
func runDDL(db *sql.DB, statements []string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning migration: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", truncate(strings.TrimSpace(stmt), 60), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	return nil
}

func isMetaFlagEnabled(db *sql.DB, key string) (bool, error) {
	var exists int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='meta'`).Scan(&exists); err != nil {
		return false, err
	}
	if exists == 0 {
		return false, nil
	}

	var value string
	err := db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return value == "true", nil
}

func setMetaFlag(db *sql.DB, key string) error {
	_, err := db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, 'true')", key)
	return err
}

func getMetaValue(db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func isDuplicateColumnError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}

// migrateProvenanceColumns adds source_file and imported_at to
// extracted_samples if they don't exist.
func (s *SQLiteStore) migrateProvenanceColumns() error {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info('extracted_samples') WHERE name IN ('source_file', 'imported_at')",
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking for provenance columns: %w", err)
	}
	if count == 2 {
		return nil // Already migrated
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning provenance migration: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`ALTER TABLE extracted_samples ADD COLUMN source_file TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE extracted_samples ADD COLUMN imported_at DATETIME`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			if isDuplicateColumnError(err) {
				continue
			}
			return fmt.Errorf("executing %q: %w", truncate(stmt, 60), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing provenance migration: %w", err)
	}
	return nil
}

// seedMeta initializes the meta table with defaults if not already set.
func seedMeta(db *sql.DB, kind string) error {
	defaults := map[string]string{
		"schema_version": "1",
		"database_kind":  kind,
		"created_at":     time.Now().UTC().Format(time.RFC3339),
	}

	for k, v := range defaults {
		_, err := db.Exec(
			"INSERT OR IGNORE INTO meta (key, value) VALUES (?, ?)", k, v,
		)
		if err != nil {
			return fmt.Errorf("seeding meta key %q: %w", k, err)
		}
	}
	return nil
}

// truncate shortens a string for error messages.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
