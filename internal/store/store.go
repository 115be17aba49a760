// Package store provides the SQLite storage layer for CBC.
//
// Two database files are used:
// - the samples database holds extracted lab results, parameter mappings
//   and persisted evaluation runs
// - the rules database holds the TARGET, EIGENSCHAP and HEEFT reference
//   tables the engine scores against
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/valadhi/blauwe-parser/internal/cbc"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default samples database location.
const DefaultDBPath = "~/.cbc/samples.db"

// DefaultBatchSize is the default batch size for bulk inserts.
const DefaultBatchSize = 500

// ResetTarget is the mapping target that deletes a local mapping instead of
// storing it.
const ResetTarget = "RESET"

// ExtractionRow is one extracted measurement of one sample.
type ExtractionRow struct {
	SampleID  string `json:"sample_id" yaml:"sample_id"`
	Parameter string `json:"parameter" yaml:"parameter"`
	Unit      string `json:"unit,omitempty" yaml:"unit,omitempty"`
	Value     string `json:"value" yaml:"value"`
}

// Extraction is a batch of extracted rows for one report.
type Extraction struct {
	UserID     string
	ReportID   string
	SourceFile string
	Rows       []ExtractionRow
}

// SampleRef identifies one stored sample.
type SampleRef struct {
	ReportID   string `json:"report_id"`
	SampleID   string `json:"sample_id"`
	Parameters int    `json:"parameters"`
}

// ReportSummary describes one stored report.
type ReportSummary struct {
	ReportID   string    `json:"report_id"`
	SourceFile string    `json:"source_file,omitempty"`
	Samples    int       `json:"samples"`
	Rows       int       `json:"rows"`
	ImportedAt time.Time `json:"imported_at"`
}

// Parameter is a distinct (parameter, unit) pair extracted from a report.
type Parameter struct {
	Name string `json:"parameter"`
	Unit string `json:"unit,omitempty"`
}

// Label returns the source label used by mappings.
func (p Parameter) Label() string {
	return cbc.ColumnKey(p.Name, p.Unit)
}

// LocalMapping is a mapping scoped to one user and report.
type LocalMapping struct {
	UserID    string    `json:"user_id"`
	ReportID  string    `json:"report_id"`
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Run is a persisted evaluation.
type Run struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Note      string    `json:"note,omitempty"`
	Samples   int       `json:"samples"`
	CreatedAt time.Time `json:"created_at"`
}

// StoreStats holds observability statistics about the samples store.
type StoreStats struct {
	Reports        int64
	Samples        int64
	Rows           int64
	GlobalMappings int64
	LocalMappings  int64
	Runs           int64
}

// StoreConfig holds configuration for NewStore and NewRulesStore.
type StoreConfig struct {
	DBPath    string
	BatchSize int
}

// Store defines the samples database interface.
type Store interface {
	// Extracted samples
	SaveExtraction(ctx context.Context, e Extraction) (int, error)
	SaveWideRow(ctx context.Context, userID, reportID string, row *cbc.Row) (int, error)
	LoadLongRows(ctx context.Context, userID, reportID, sampleID string) ([]cbc.LongRow, error)
	ListSamples(ctx context.Context, userID, reportID string) ([]SampleRef, error)
	ListReports(ctx context.Context, userID string) ([]ReportSummary, error)
	AvailableParameters(ctx context.Context, userID, reportID string) ([]Parameter, error)
	DeleteReport(ctx context.Context, userID, reportID string) (int64, error)

	// Mappings
	GlobalMappings(ctx context.Context) ([]cbc.Mapping, error)
	SetGlobalMapping(ctx context.Context, source, target string) error
	DeleteGlobalMapping(ctx context.Context, source string) error
	SeedGlobalMappings(ctx context.Context, mappings []cbc.Mapping) (int, error)
	LocalMappings(ctx context.Context, userID, reportID string) ([]LocalMapping, error)
	SetLocalMapping(ctx context.Context, userID, reportID, source, target string) error
	UpdateLocalMapping(ctx context.Context, userID, reportID, source, target string) error
	ResetLocalMapping(ctx context.Context, userID, reportID, target string) (int64, error)

	// Runs
	SaveRun(ctx context.Context, userID, note string, batch *cbc.Batch) (*Run, error)
	ListRuns(ctx context.Context, userID string, limit int) ([]Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	RunScores(ctx context.Context, id string) ([]cbc.ScoreRow, error)
	RunDetails(ctx context.Context, id string) (map[string][]cbc.Detail, error)

	// Observability
	Stats(ctx context.Context) (*StoreStats, error)

	// Maintenance
	Vacuum(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	dbPath    string
	batchSize int
	now       func() time.Time
}

// NewStore creates a new SQLite-backed samples Store.
// Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg StoreConfig) (Store, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = expandPath(DefaultDBPath)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	db, err := openDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	s := newSQLiteStore(db, cfg)
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func newSQLiteStore(db *sql.DB, cfg StoreConfig) *SQLiteStore {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &SQLiteStore{
		db:        db,
		dbPath:    cfg.DBPath,
		batchSize: cfg.BatchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// openDB opens a SQLite file with the pragmas every store relies on.
func openDB(path string) (*sql.DB, error) {
	// Create parent directory for non-memory databases
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Every pooled connection to ":memory:" would be its own empty database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}
	return db, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Vacuum runs VACUUM on the database. Manual only, never auto-vacuum.
func (s *SQLiteStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Stats returns row counts for the main tables.
func (s *SQLiteStore) Stats(ctx context.Context) (*StoreStats, error) {
	st := &StoreStats{}
	queries := []struct {
		dst   *int64
		query string
	}{
		{&st.Reports, `SELECT COUNT(DISTINCT user_id || char(31) || report_id) FROM extracted_samples`},
		{&st.Samples, `SELECT COUNT(*) FROM (SELECT DISTINCT user_id, report_id, sample_id FROM extracted_samples)`},
		{&st.Rows, `SELECT COUNT(*) FROM extracted_samples`},
		{&st.GlobalMappings, `SELECT COUNT(*) FROM global_mappings`},
		{&st.LocalMappings, `SELECT COUNT(*) FROM local_mappings`},
		{&st.Runs, `SELECT COUNT(*) FROM runs`},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dst); err != nil {
			return nil, fmt.Errorf("counting stats: %w", err)
		}
	}
	return st, nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
