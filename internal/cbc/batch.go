package cbc

import (
	"fmt"
	"sort"
)

// LabelSeparator joins report and sample identity in a batch label.
const LabelSeparator = " — "

// Label builds the unique batch label of a sample inside a report.
func Label(report, sample string) string {
	return report + LabelSeparator + sample
}

// Batch collects evaluation results of many samples under unique labels,
// keeping insertion order.
type Batch struct {
	labels  []string
	results map[string]*Result
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{results: make(map[string]*Result)}
}

// Add stores a result. The label must not be in the batch yet.
func (b *Batch) Add(label string, res *Result) error {
	if res == nil {
		return fmt.Errorf("%w: nil result for %q", ErrEmptySample, label)
	}
	if _, dup := b.results[label]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateLabel, label)
	}
	b.labels = append(b.labels, label)
	b.results[label] = res
	return nil
}

// Len returns the number of samples in the batch.
func (b *Batch) Len() int {
	return len(b.labels)
}

// Labels returns the sample labels in insertion order.
func (b *Batch) Labels() []string {
	out := make([]string, len(b.labels))
	copy(out, b.labels)
	return out
}

// Result returns the full result stored under label.
func (b *Batch) Result(label string) (*Result, bool) {
	r, ok := b.results[label]
	return r, ok
}

// Scores returns the score rows in insertion order.
func (b *Batch) Scores() []ScoreRow {
	out := make([]ScoreRow, 0, len(b.labels))
	for _, l := range b.labels {
		out = append(out, b.results[l].Scores)
	}
	return out
}

// Matrix returns the pass matrix of one sample.
func (b *Batch) Matrix(label string) (Matrix, bool) {
	r, ok := b.results[label]
	if !ok {
		return Matrix{}, false
	}
	return r.Matrix, true
}

// Details returns the rule details of one sample.
func (b *Batch) Details(label string) ([]Detail, bool) {
	r, ok := b.results[label]
	if !ok {
		return nil, false
	}
	return r.Details, true
}

// TargetNames returns the target columns of the score table, in the order
// of the first sample followed by any target only later samples carry.
func (b *Batch) TargetNames() []string {
	var names []string
	seen := map[string]struct{}{}
	for _, l := range b.labels {
		for _, s := range b.results[l].Scores.Scores {
			if _, ok := seen[s.Name]; ok {
				continue
			}
			seen[s.Name] = struct{}{}
			names = append(names, s.Name)
		}
	}
	return names
}

// Average returns the mean score of every target across the batch.
func (b *Batch) Average() []TargetScore {
	sums := map[string]float64{}
	counts := map[string]int{}
	ids := map[string]int64{}
	for _, l := range b.labels {
		for _, s := range b.results[l].Scores.Scores {
			sums[s.Name] += s.Score
			counts[s.Name]++
			ids[s.Name] = s.TargetID
		}
	}
	names := b.TargetNames()
	out := make([]TargetScore, 0, len(names))
	for _, n := range names {
		out = append(out, TargetScore{
			TargetID: ids[n],
			Name:     n,
			Score:    sums[n] / float64(counts[n]),
		})
	}
	return out
}

// RateMatrix holds the mean pass rate of each property x target cell.
// Cells without any pass or fail observation are absent.
type RateMatrix struct {
	Properties []string                      `json:"properties"`
	Targets    []string                      `json:"targets"`
	Rates      map[string]map[string]float64 `json:"rates"`
}

// Rate returns the pass rate of a cell.
func (m RateMatrix) Rate(property, target string) (float64, bool) {
	r, ok := m.Rates[property][target]
	return r, ok
}

// AverageMatrix averages the pass matrices of the batch. Missing and
// not-applicable cells are ignored, so a cell's rate is passes divided by
// pass-or-fail observations.
func (b *Batch) AverageMatrix() RateMatrix {
	type tally struct{ pass, total int }
	cells := map[string]map[string]*tally{}
	props := map[string]struct{}{}
	targets := map[string]struct{}{}
	for _, l := range b.labels {
		m := b.results[l].Matrix
		for _, p := range m.Properties {
			for _, t := range m.Targets {
				st := m.At(p, t)
				if st != Pass && st != Fail {
					continue
				}
				if cells[p] == nil {
					cells[p] = map[string]*tally{}
				}
				c := cells[p][t]
				if c == nil {
					c = &tally{}
					cells[p][t] = c
				}
				c.total++
				if st == Pass {
					c.pass++
				}
				props[p] = struct{}{}
				targets[t] = struct{}{}
			}
		}
	}
	out := RateMatrix{
		Properties: sortedKeys(props),
		Targets:    sortedKeys(targets),
		Rates:      make(map[string]map[string]float64, len(cells)),
	}
	for p, row := range cells {
		out.Rates[p] = make(map[string]float64, len(row))
		for t, c := range row {
			out.Rates[p][t] = float64(c.pass) / float64(c.total)
		}
	}
	return out
}

// TopTargets returns the n best scoring targets of one sample, highest
// first. Equal scores keep rule set order.
func (b *Batch) TopTargets(label string, n int) []TargetScore {
	r, ok := b.results[label]
	if !ok {
		return nil
	}
	return topN(r.Scores.Scores, n)
}

// TopAverage returns the n best targets of the batch average.
func (b *Batch) TopAverage(n int) []TargetScore {
	return topN(b.Average(), n)
}

func topN(scores []TargetScore, n int) []TargetScore {
	sorted := make([]TargetScore, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
