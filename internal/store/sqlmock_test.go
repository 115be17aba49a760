package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockStore(t *testing.T) (sqlmock.Sqlmock, *SQLiteStore) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, newSQLiteStore(db, StoreConfig{DBPath: "mock"})
}

func TestLoadLongRows_QueryError(t *testing.T) {
	mock, s := setupMockStore(t)

	mock.ExpectQuery(`SELECT parameter, unit`).
		WithArgs("u", "r", "S1").
		WillReturnError(errors.New("disk I/O error"))

	_, err := s.LoadLongRows(context.Background(), "u", "r", "S1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading sample r/S1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadLongRows_NullValue(t *testing.T) {
	mock, s := setupMockStore(t)

	rows := sqlmock.NewRows([]string{"parameter", "unit", "value"}).
		AddRow("Lood", "mg/kg", "12").
		AddRow("Zink", "", "")
	mock.ExpectQuery(`SELECT parameter, unit`).WithArgs("u", "r", "S1").WillReturnRows(rows)

	got, err := s.LoadLongRows(context.Background(), "u", "r", "S1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Zink", got[1].Parameter)
	assert.Empty(t, got[1].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveExtraction_RollsBackOnInsertError(t *testing.T) {
	mock, s := setupMockStore(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT OR REPLACE INTO extracted_samples`)
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	n, err := s.SaveExtraction(context.Background(), Extraction{UserID: "u", ReportID: "r", Rows: []ExtractionRow{
		{SampleID: "S1", Parameter: "Lood", Value: "1"},
		{SampleID: "S1", Parameter: "Zink", Value: "2"},
	}})
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Contains(t, err.Error(), "constraint failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGlobalMappings_ScanError(t *testing.T) {
	mock, s := setupMockStore(t)

	rows := sqlmock.NewRows([]string{"source"}).AddRow("only-one-column")
	mock.ExpectQuery(`SELECT source, target FROM global_mappings`).WillReturnRows(rows)

	_, err := s.GlobalMappings(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanning global mapping")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStats_CountError(t *testing.T) {
	mock, s := setupMockStore(t)

	mock.ExpectQuery(`SELECT COUNT`).WillReturnError(errors.New("no such table"))

	_, err := s.Stats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "counting stats")
}
