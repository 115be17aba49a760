// Package report renders evaluation results as text tables, JSON
// documents and XLSX workbooks.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/valadhi/blauwe-parser/internal/cbc"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat parses a format name. The empty string means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or xlsx)", s)
	}
}

// Options selects what an evaluation report contains.
type Options struct {
	// TopN limits the best-use lists; 0 leaves them out.
	TopN    int
	Matrix  bool
	Details bool
	// Skipped lists the labels of samples that had no data.
	Skipped []string
	RunID   string
}

// Write renders batch in the given format.
func Write(w io.Writer, format Format, batch *cbc.Batch, opts Options) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, batch, opts)
	case FormatXLSX:
		return WriteXLSX(w, batch, opts)
	default:
		return WriteText(w, batch, opts)
	}
}

// LabeledScores returns the score rows of batch with each row's SampleID
// replaced by its batch label.
func LabeledScores(batch *cbc.Batch) []cbc.ScoreRow {
	rows := batch.Scores()
	for i, label := range batch.Labels() {
		rows[i].SampleID = label
	}
	return rows
}

// targetColumns lists target names in first-seen order across rows.
func targetColumns(rows []cbc.ScoreRow) []string {
	var names []string
	seen := map[string]bool{}
	for _, r := range rows {
		for _, s := range r.Scores {
			if !seen[s.Name] {
				seen[s.Name] = true
				names = append(names, s.Name)
			}
		}
	}
	return names
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func formatBound(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}
