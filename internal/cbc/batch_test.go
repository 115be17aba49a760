package cbc

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func twoTargetRules() RuleSet {
	return RuleSet{
		Properties: []Property{{ID: 1, Name: "pH-waarde"}, {ID: 2, Name: "Lutum"}},
		Targets:    []Target{{ID: 1, Name: "Akkerbouw"}, {ID: 2, Name: "Dijkbouw"}},
		Rules: []Rule{
			{TargetID: 1, PropertyID: 1, Weight: 1, Min: Float(5), Max: Float(7)},
			{TargetID: 1, PropertyID: 2, Weight: 1, Min: Float(0), Max: Float(20)},
			{TargetID: 2, PropertyID: 2, Weight: 1, Min: Float(25), Max: Float(50)},
		},
	}
}

func evalSample(t *testing.T, id string, ph, lutum float64) *Result {
	t.Helper()
	row := NewRow(id, "2026-01-01")
	row.Set("pH-waarde", Num(ph))
	row.Set("Lutum", Num(lutum))
	res, err := Evaluate(row, twoTargetRules(), nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	return res
}

func TestBatch_OrderAndLookup(t *testing.T) {
	b := NewBatch()
	first := Label("rapport-a.pdf", "BW1S1")
	second := Label("rapport-b.pdf", "BW1S1")

	if err := b.Add(first, evalSample(t, first, 6, 10)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := b.Add(second, evalSample(t, second, 8, 30)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var ids []string
	for _, s := range b.Scores() {
		ids = append(ids, s.SampleID)
	}
	if diff := cmp.Diff([]string{first, second}, ids); diff != "" {
		t.Fatalf("score order (-want +got):\n%s", diff)
	}

	m, ok := b.Matrix(second)
	if !ok || m.At("Lutum", "Dijkbouw") != Pass {
		t.Fatalf("matrix lookup failed: %v %s", ok, m.At("Lutum", "Dijkbouw"))
	}
	if _, ok := b.Details("missing"); ok {
		t.Fatal("unexpected details for unknown label")
	}
}

func TestBatch_DuplicateLabel(t *testing.T) {
	b := NewBatch()
	res := evalSample(t, "x", 6, 10)
	if err := b.Add("x", res); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := b.Add("x", res); !errors.Is(err, ErrDuplicateLabel) {
		t.Fatalf("expected ErrDuplicateLabel, got %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("duplicate was stored, len %d", b.Len())
	}
}

func TestBatch_AverageAndTop(t *testing.T) {
	b := NewBatch()
	_ = b.Add("a", evalSample(t, "a", 6, 10)) // Akkerbouw 1, Dijkbouw 0
	_ = b.Add("b", evalSample(t, "b", 8, 30)) // Akkerbouw 0, Dijkbouw 1
	_ = b.Add("c", evalSample(t, "c", 6, 30)) // Akkerbouw 0.5, Dijkbouw 1

	avg := b.Average()
	if avg[0].Name != "Akkerbouw" || avg[0].Score != 0.5 {
		t.Fatalf("Akkerbouw average = %+v", avg[0])
	}
	if avg[1].Name != "Dijkbouw" || avg[1].Score != 2.0/3.0 {
		t.Fatalf("Dijkbouw average = %+v", avg[1])
	}

	top := b.TopTargets("c", 1)
	if len(top) != 1 || top[0].Name != "Dijkbouw" {
		t.Fatalf("TopTargets = %+v", top)
	}
	if top := b.TopAverage(5); len(top) != 2 || top[0].Name != "Dijkbouw" {
		t.Fatalf("TopAverage = %+v", top)
	}
}

func TestBatch_AverageMatrixIgnoresMissing(t *testing.T) {
	b := NewBatch()
	_ = b.Add("a", evalSample(t, "a", 6, 10))

	row := NewRow("b", "2026-01-01")
	row.Set("Lutum", Num(10))
	res, err := Evaluate(row, twoTargetRules(), nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	_ = b.Add("b", res)

	m := b.AverageMatrix()
	if r, ok := m.Rate("pH-waarde", "Akkerbouw"); !ok || r != 1 {
		t.Fatalf("missing pH in b should not dilute the rate, got %v %v", r, ok)
	}
	if r, ok := m.Rate("Lutum", "Dijkbouw"); !ok || r != 0 {
		t.Fatalf("Lutum/Dijkbouw rate = %v %v", r, ok)
	}
	if _, ok := m.Rate("pH-waarde", "Dijkbouw"); ok {
		t.Fatal("not-applicable cell should be absent")
	}
}
