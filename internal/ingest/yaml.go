package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/valadhi/blauwe-parser/internal/store"
)

// YAMLImporter handles .yaml and .yml files.
type YAMLImporter struct{}

// CanHandle returns true for YAML file extensions.
func (y *YAMLImporter) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Import parses a YAML file into extraction rows. Each document is a list
// of records or a mapping with the list under "samples" or "results".
// Multi-document files (separated by ---) are concatenated.
func (y *YAMLImporter) Import(ctx context.Context, path string) ([]store.ExtractionRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	var rows []store.ExtractionRow
	for docNum := 1; ; docNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var doc any
		if err := decoder.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid YAML in %s (document %d): %w", path, docNum, err)
		}
		records, err := recordsFromValue(doc)
		if err != nil {
			return nil, fmt.Errorf("%s (document %d): %w", path, docNum, err)
		}
		docRows, err := rowsFromRecords(records)
		if err != nil {
			return nil, fmt.Errorf("%s (document %d): %w", path, docNum, err)
		}
		rows = append(rows, docRows...)
	}
	return rows, nil
}
