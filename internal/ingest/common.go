package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/valadhi/blauwe-parser/internal/store"
)

// ErrMissingColumn is returned when a record lacks a required column.
var ErrMissingColumn = errors.New("ingest: missing required column")

// Importer handles a specific file format.
type Importer interface {
	// CanHandle returns true if this importer supports the given file path.
	CanHandle(path string) bool

	// Import parses the file and returns the extracted rows.
	Import(ctx context.Context, path string) ([]store.ExtractionRow, error)
}

// ImportResult summarizes an import operation.
type ImportResult struct {
	FilesScanned  int           `json:"files_scanned"`
	FilesImported int           `json:"files_imported"`
	FilesSkipped  int           `json:"files_skipped"`
	RowsImported  int           `json:"rows_imported"`
	Samples       int           `json:"samples"`
	Errors        []ImportError `json:"errors,omitempty"`
}

// Add merges another ImportResult into this one.
func (r *ImportResult) Add(other *ImportResult) {
	r.FilesScanned += other.FilesScanned
	r.FilesImported += other.FilesImported
	r.FilesSkipped += other.FilesSkipped
	r.RowsImported += other.RowsImported
	r.Samples += other.Samples
	r.Errors = append(r.Errors, other.Errors...)
}

// ImportError records a non-fatal error during import.
type ImportError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// ImportOptions configures an import operation.
type ImportOptions struct {
	UserID string
	// ReportID defaults to the file name when empty.
	ReportID    string
	Recursive   bool
	DryRun      bool
	MaxFileSize int64 // bytes, default 10MB
	ProgressFn  func(current, total int, file string)
}

// DefaultMaxFileSize is 10MB.
const DefaultMaxFileSize = 10 * 1024 * 1024

var requiredKeys = []string{"sample_id", "parameter", "value"}

// rowFromRecord builds an extraction row from one decoded record. Keys are
// matched case-insensitively; unit is optional.
func rowFromRecord(rec map[string]any) (store.ExtractionRow, error) {
	fields := make(map[string]any, len(rec))
	for k, v := range rec {
		fields[strings.ToLower(strings.TrimSpace(k))] = v
	}
	for _, k := range requiredKeys {
		if _, ok := fields[k]; !ok {
			return store.ExtractionRow{}, fmt.Errorf("%w %q", ErrMissingColumn, k)
		}
	}
	return store.ExtractionRow{
		SampleID:  scalarString(fields["sample_id"]),
		Parameter: scalarString(fields["parameter"]),
		Unit:      scalarString(fields["unit"]),
		Value:     scalarString(fields["value"]),
	}, nil
}

// scalarString renders a decoded JSON/YAML scalar as text. nil and NaN
// become the empty string.
func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// recordsFromValue accepts either a list of records or an object holding
// the list under "samples" or "results".
func recordsFromValue(v any) ([]map[string]any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]map[string]any, 0, len(x))
		for i, elem := range x {
			rec, ok := toRecord(elem)
			if !ok {
				return nil, fmt.Errorf("element %d is not an object", i)
			}
			out = append(out, rec)
		}
		return out, nil
	default:
		rec, ok := toRecord(x)
		if !ok {
			return nil, fmt.Errorf("expected a list of records, got %T", v)
		}
		for _, key := range []string{"samples", "results"} {
			if inner, ok := rec[key]; ok {
				return recordsFromValue(inner)
			}
		}
		return nil, errors.New(`expected a list of records or a "samples" key`)
	}
}

func toRecord(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func rowsFromRecords(records []map[string]any) ([]store.ExtractionRow, error) {
	rows := make([]store.ExtractionRow, 0, len(records))
	for i, rec := range records {
		row, err := rowFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
