package cbc

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ScoreRow is the one-row score table of a sample, one score per target in
// rule set order.
type ScoreRow struct {
	SampleID      string        `json:"sample_id"`
	DateProcessed string        `json:"date_processed"`
	Scores        []TargetScore `json:"scores"`
}

// TargetScore is the suitability fraction of one target.
type TargetScore struct {
	TargetID int64   `json:"target_id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	// Passed and Applicable are the weighted numerator and denominator.
	Passed     float64 `json:"passed_weight"`
	Applicable float64 `json:"applicable_weight"`
}

// Score returns the score of the named target.
func (r ScoreRow) Score(target string) (float64, bool) {
	for _, s := range r.Scores {
		if s.Name == target {
			return s.Score, true
		}
	}
	return 0, false
}

// Detail is the audit record of one evaluated rule.
type Detail struct {
	TargetID     int64    `json:"target_id"`
	TargetName   string   `json:"target_name"`
	PropertyID   int64    `json:"eig_id"`
	PropertyName string   `json:"eig_name"`
	Weight       float64  `json:"weight"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	Value        *float64 `json:"sample_value,omitempty"`
	Status       Status   `json:"passed"`
}

// Result is everything Evaluate produces for one sample.
type Result struct {
	Scores  ScoreRow `json:"scores"`
	Matrix  Matrix   `json:"matrix"`
	Details []Detail `json:"details"`
}

// Evaluate scores one sample against every target of the rule set.
//
// overrides (extracted column -> canonical property) are applied to a copy
// of row before evaluation. Missing or malformed values never fail the
// evaluation; only a nil row or a structurally invalid rule set do.
func Evaluate(row *Row, rules RuleSet, overrides map[string]string) (*Result, error) {
	if row == nil {
		return nil, ErrEmptySample
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	sample := row
	if len(overrides) > 0 {
		sample = row.Rename(overrides)
	}

	values := make(map[int64]*float64, len(rules.Properties))
	names := make(map[int64]string, len(rules.Properties))
	for _, p := range rules.Properties {
		names[p.ID] = p.Name
		if c, ok := sample.Cell(p.Name); ok {
			if v, ok := c.Float(); ok {
				values[p.ID] = Float(v)
			}
		}
	}

	targetNames := make(map[int64]string, len(rules.Targets))
	for _, t := range rules.Targets {
		targetNames[t.ID] = t.Name
	}

	passed := make(map[int64]float64, len(rules.Targets))
	applicable := make(map[int64]float64, len(rules.Targets))
	details := make([]Detail, 0, len(rules.Rules))

	for _, r := range rules.Rules {
		if r.Weight == 0 {
			continue
		}
		d := Detail{
			TargetID:     r.TargetID,
			TargetName:   targetNames[r.TargetID],
			PropertyID:   r.PropertyID,
			PropertyName: names[r.PropertyID],
			Weight:       r.Weight,
			Min:          r.Min,
			Max:          r.Max,
		}

		v := values[r.PropertyID]
		if v == nil {
			d.Status = Missing
			details = append(details, d)
			continue
		}

		d.Value = Float(*v)
		applicable[r.TargetID] += r.Weight
		if r.Accepts(*v) {
			passed[r.TargetID] += r.Weight
			d.Status = Pass
		} else {
			d.Status = Fail
		}
		details = append(details, d)
	}

	scores := ScoreRow{
		SampleID:      sample.SampleID,
		DateProcessed: sample.DateProcessed,
		Scores:        make([]TargetScore, 0, len(rules.Targets)),
	}
	for _, t := range rules.Targets {
		ts := TargetScore{
			TargetID:   t.ID,
			Name:       t.Name,
			Passed:     passed[t.ID],
			Applicable: applicable[t.ID],
		}
		if ts.Applicable > 0 {
			ts.Score = ts.Passed / ts.Applicable
		}
		scores.Scores = append(scores.Scores, ts)
	}

	return &Result{
		Scores:  scores,
		Matrix:  pivot(details),
		Details: details,
	}, nil
}

// Matrix is the property x target grid of rule outcomes. Properties and
// targets are sorted by name.
type Matrix struct {
	Properties []string
	Targets    []string
	cells      map[matrixKey]Status
}

type matrixKey struct {
	property string
	target   string
}

// At returns the status of one cell; cells no rule produced are
// NotApplicable.
func (m Matrix) At(property, target string) Status {
	return m.cells[matrixKey{property, target}]
}

// Empty reports whether the matrix has no cells.
func (m Matrix) Empty() bool {
	return len(m.cells) == 0
}

// Codes renders the matrix in legacy integer form, row by row.
func (m Matrix) Codes() [][]int {
	out := make([][]int, len(m.Properties))
	for i, p := range m.Properties {
		out[i] = make([]int, len(m.Targets))
		for j, t := range m.Targets {
			out[i][j] = m.At(p, t).Code()
		}
	}
	return out
}

// MarshalJSON renders the grid as {"properties", "targets", "cells"} where
// cells holds status names row by row.
func (m Matrix) MarshalJSON() ([]byte, error) {
	type grid struct {
		Properties []string   `json:"properties"`
		Targets    []string   `json:"targets"`
		Cells      [][]string `json:"cells"`
	}
	g := grid{Properties: m.Properties, Targets: m.Targets, Cells: make([][]string, len(m.Properties))}
	for i, p := range m.Properties {
		g.Cells[i] = make([]string, len(m.Targets))
		for j, t := range m.Targets {
			g.Cells[i][j] = m.At(p, t).String()
		}
	}
	return json.Marshal(g)
}

// pivot keeps the first status seen for each (property, target) pair.
func pivot(details []Detail) Matrix {
	m := Matrix{cells: make(map[matrixKey]Status)}
	props := map[string]struct{}{}
	targets := map[string]struct{}{}
	for _, d := range details {
		k := matrixKey{d.PropertyName, d.TargetName}
		if _, seen := m.cells[k]; seen {
			continue
		}
		m.cells[k] = d.Status
		props[d.PropertyName] = struct{}{}
		targets[d.TargetName] = struct{}{}
	}
	m.Properties = sortedKeys(props)
	m.Targets = sortedKeys(targets)
	return m
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (d Detail) String() string {
	return fmt.Sprintf("%s/%s=%s", d.TargetName, d.PropertyName, d.Status)
}
