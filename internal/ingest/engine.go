package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/valadhi/blauwe-parser/internal/store"
)

// Engine routes files to importers and saves the rows they produce.
type Engine struct {
	store     store.Store
	importers []Importer
	logger    *zap.Logger
}

// NewEngine creates an import engine backed by s. A nil logger discards
// log output.
func NewEngine(s store.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store: s,
		importers: []Importer{
			&CSVImporter{},
			&JSONImporter{},
			&YAMLImporter{},
		},
		logger: logger.Named("ingest"),
	}
}

// ReportIDFor derives the default report id of a file: its base name
// without extension.
func ReportIDFor(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ImportFile imports one file into the report opts.ReportID (or the file's
// name). Row validation happens before anything is written, so a file with
// a bad row leaves the store untouched.
func (e *Engine) ImportFile(ctx context.Context, path string, opts ImportOptions) (*ImportResult, error) {
	if strings.TrimSpace(opts.UserID) == "" {
		return nil, store.ErrMissingContext
	}
	result := &ImportResult{FilesScanned: 1}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if info.Size() > maxSize {
		e.logger.Warn("skipping oversized file", zap.String("file", path), zap.Int64("bytes", info.Size()))
		result.FilesSkipped++
		result.Errors = append(result.Errors, ImportError{File: path, Message: fmt.Sprintf("file exceeds %d bytes", maxSize)})
		return result, nil
	}

	imp := e.detectImporter(path)
	if imp == nil {
		imp = e.sniffFormat(path)
	}
	if imp == nil {
		return nil, fmt.Errorf("no importer for %s", path)
	}

	rows, err := imp.Import(ctx, path)
	if err != nil {
		return nil, err
	}

	reportID := opts.ReportID
	if strings.TrimSpace(reportID) == "" {
		reportID = ReportIDFor(path)
	}
	samples := map[string]bool{}
	for _, r := range rows {
		samples[strings.TrimSpace(r.SampleID)] = true
	}
	result.Samples = len(samples)

	if opts.DryRun {
		result.FilesImported = 1
		result.RowsImported = len(rows)
		return result, nil
	}

	n, err := e.store.SaveExtraction(ctx, store.Extraction{
		UserID:     opts.UserID,
		ReportID:   reportID,
		SourceFile: absOrSelf(path),
		Rows:       rows,
	})
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}
	result.FilesImported = 1
	result.RowsImported = n

	e.logger.Info("imported extraction results",
		zap.String("file", path),
		zap.String("user", opts.UserID),
		zap.String("report", reportID),
		zap.Int("rows", n),
		zap.Int("samples", result.Samples),
	)
	return result, nil
}

// ImportDir imports every supported file under dir. Hidden directories are
// skipped. Per-file failures are collected in the result instead of
// aborting the walk.
func (e *Engine) ImportDir(ctx context.Context, dir string, opts ImportOptions) (*ImportResult, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(d.Name(), ".") || !opts.Recursive) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}

	total := &ImportResult{}
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		if opts.ProgressFn != nil {
			opts.ProgressFn(i+1, len(files), path)
		}
		if e.detectImporter(path) == nil {
			total.FilesScanned++
			total.FilesSkipped++
			continue
		}
		res, err := e.ImportFile(ctx, path, opts)
		if err != nil {
			e.logger.Warn("import failed", zap.String("file", path), zap.Error(err))
			total.FilesScanned++
			total.Errors = append(total.Errors, ImportError{File: path, Message: err.Error()})
			continue
		}
		total.Add(res)
	}
	return total, nil
}

func (e *Engine) detectImporter(path string) Importer {
	for _, imp := range e.importers {
		if imp.CanHandle(path) {
			return imp
		}
	}
	return nil
}

// sniffFormat guesses the format of a file with an unknown extension from
// its first non-blank line.
func (e *Engine) sniffFormat(path string) Importer {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lower := strings.ToLower(string(line))
		switch {
		case line[0] == '[' || line[0] == '{':
			return &JSONImporter{}
		case strings.HasPrefix(lower, "- ") || strings.HasPrefix(lower, "samples:") ||
			strings.HasPrefix(lower, "results:") || lower == "---":
			return &YAMLImporter{}
		case strings.Contains(lower, "sample_id") || strings.Contains(lower, "sampleid"):
			return &CSVImporter{}
		}
		return nil
	}
	return nil
}

func absOrSelf(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
