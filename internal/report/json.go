package report

import (
	"encoding/json"
	"io"

	"github.com/valadhi/blauwe-parser/internal/cbc"
)

// Document is the JSON form of an evaluation.
type Document struct {
	RunID         string            `json:"run_id,omitempty"`
	Targets       []string          `json:"targets"`
	Samples       []Sample          `json:"samples"`
	Average       []cbc.TargetScore `json:"average"`
	AverageMatrix cbc.RateMatrix    `json:"average_matrix"`
	Skipped       []string          `json:"skipped,omitempty"`
}

// Sample is one evaluated sample of a Document.
type Sample struct {
	Label   string            `json:"label"`
	Scores  cbc.ScoreRow      `json:"scores"`
	Top     []cbc.TargetScore `json:"top,omitempty"`
	Matrix  *cbc.Matrix       `json:"matrix,omitempty"`
	Details []cbc.Detail      `json:"details,omitempty"`
}

// NewDocument builds the JSON document of batch.
func NewDocument(batch *cbc.Batch, opts Options) Document {
	doc := Document{
		RunID:         opts.RunID,
		Targets:       batch.TargetNames(),
		Samples:       make([]Sample, 0, batch.Len()),
		Average:       batch.Average(),
		AverageMatrix: batch.AverageMatrix(),
		Skipped:       opts.Skipped,
	}
	for _, label := range batch.Labels() {
		res, _ := batch.Result(label)
		s := Sample{Label: label, Scores: res.Scores}
		if opts.TopN > 0 {
			s.Top = batch.TopTargets(label, opts.TopN)
		}
		if opts.Matrix {
			m := res.Matrix
			s.Matrix = &m
		}
		if opts.Details {
			s.Details = res.Details
		}
		doc.Samples = append(doc.Samples, s)
	}
	return doc
}

// WriteJSON encodes the document of batch with indentation.
func WriteJSON(w io.Writer, batch *cbc.Batch, opts Options) error {
	return EncodeJSON(w, NewDocument(batch, opts))
}

// EncodeJSON writes v as indented JSON.
func EncodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
