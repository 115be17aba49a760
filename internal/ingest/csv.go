package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/valadhi/blauwe-parser/internal/cbc"
	"github.com/valadhi/blauwe-parser/internal/store"
)

// CSVImporter handles .csv and .tsv files.
type CSVImporter struct{}

// CanHandle returns true for CSV/TSV file extensions.
func (c *CSVImporter) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".csv" || ext == ".tsv"
}

// Import parses a CSV file into extraction rows. The first row is the
// header. A header with sample_id, parameter and value columns is read in
// long form; a header with a SampleID column is read as a wide table with
// one sample per row.
func (c *CSVImporter) Import(ctx context.Context, path string) ([]store.ExtractionRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)

	// Auto-detect TSV
	if strings.ToLower(filepath.Ext(path)) == ".tsv" {
		reader.Comma = '\t'
	}

	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	if isWideHeader(header) {
		return wideRows(ctx, header, records[1:])
	}
	return longRows(ctx, header, records[1:])
}

func isWideHeader(header []string) bool {
	for _, h := range header {
		if strings.TrimSpace(h) == "SampleID" {
			return true
		}
	}
	return false
}

func longRows(ctx context.Context, header []string, records [][]string) ([]store.ExtractionRow, error) {
	index := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	for _, k := range requiredKeys {
		if _, ok := index[k]; !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, k)
		}
	}

	field := func(rec []string, key string) string {
		i, ok := index[key]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]store.ExtractionRow, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if blankRecord(rec) {
			continue
		}
		rows = append(rows, store.ExtractionRow{
			SampleID:  field(rec, "sample_id"),
			Parameter: field(rec, "parameter"),
			Unit:      field(rec, "unit"),
			Value:     field(rec, "value"),
		})
	}
	return rows, nil
}

func wideRows(ctx context.Context, header []string, records [][]string) ([]store.ExtractionRow, error) {
	var rows []store.ExtractionRow
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if blankRecord(rec) {
			continue
		}
		row, err := cbc.RowFromRecord(header, rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		if row.SampleID == "" {
			return nil, fmt.Errorf("line %d: %w", i+2, cbc.ErrEmptySample)
		}
		rows = append(rows, store.LongForm(row)...)
	}
	return rows, nil
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
