package store

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestMigrateProvenanceColumns_LegacyDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// A database written before provenance columns existed.
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	legacy := []string{
		`CREATE TABLE extracted_samples (
			user_id TEXT NOT NULL, report_id TEXT NOT NULL, sample_id TEXT NOT NULL,
			parameter TEXT NOT NULL, unit TEXT NOT NULL DEFAULT '', value TEXT,
			PRIMARY KEY (user_id, report_id, sample_id, parameter, unit))`,
		`INSERT INTO extracted_samples VALUES ('u', 'r', 'S1', 'Lood', 'mg/kg', '12')`,
	}
	for _, stmt := range legacy {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("legacy setup: %v", err)
		}
	}
	db.Close()

	s, err := NewStore(StoreConfig{DBPath: path})
	if err != nil {
		t.Fatalf("NewStore on legacy db: %v", err)
	}
	defer s.Close()
	ss := s.(*SQLiteStore)

	var count int
	if err := ss.db.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info('extracted_samples') WHERE name IN ('source_file', 'imported_at')",
	).Scan(&count); err != nil {
		t.Fatalf("checking columns: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected provenance columns, count=%d", count)
	}

	// Running the migration again is a no-op.
	if err := ss.migrateProvenanceColumns(); err != nil {
		t.Fatalf("second migration: %v", err)
	}

	reports, err := s.ListReports(t.Context(), "u")
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(reports) != 1 || reports[0].Rows != 1 || !reports[0].ImportedAt.IsZero() {
		t.Fatalf("unexpected legacy report %+v", reports)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t).(*SQLiteStore)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	done, err := isMetaFlagEnabled(s.db, "schema_bootstrap_complete")
	if err != nil || !done {
		t.Fatalf("bootstrap flag = %v, %v", done, err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("ab", 3); got != "ab" {
		t.Fatalf("truncate = %q", got)
	}
}
