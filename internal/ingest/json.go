package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/valadhi/blauwe-parser/internal/store"
)

// JSONImporter handles .json files.
type JSONImporter struct{}

// CanHandle returns true for JSON file extensions.
func (j *JSONImporter) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".json"
}

// Import parses a JSON file holding an array of records, or an object with
// the array under "samples" or "results". Numbers keep their literal text.
func (j *JSONImporter) Import(ctx context.Context, path string) ([]store.ExtractionRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}

	records, err := recordsFromValue(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rows, err := rowsFromRecords(records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, ctx.Err()
}
