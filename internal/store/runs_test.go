package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/valadhi/blauwe-parser/internal/cbc"
)

func testRuleSet() cbc.RuleSet {
	return cbc.RuleSet{
		Properties: []cbc.Property{{ID: 1, Name: "pH-waarde"}, {ID: 2, Name: "Lutum"}},
		Targets:    []cbc.Target{{ID: 10, Name: "Akkerbouw"}, {ID: 11, Name: "Dijkbouw"}},
		Rules: []cbc.Rule{
			{TargetID: 10, PropertyID: 1, Weight: 1, Min: cbc.Float(5), Max: cbc.Float(7)},
			{TargetID: 10, PropertyID: 2, Weight: 2, Min: cbc.Float(0), Max: cbc.Float(20)},
			{TargetID: 11, PropertyID: 2, Weight: 1, Min: cbc.Float(25)},
		},
	}
}

func testBatch(t *testing.T) *cbc.Batch {
	t.Helper()
	b := cbc.NewBatch()
	for _, s := range []struct {
		label string
		ph    *float64
		lutum float64
	}{
		{cbc.Label("r.pdf", "S1"), cbc.Float(6), 10},
		{cbc.Label("r.pdf", "S2"), nil, 30},
	} {
		row := cbc.NewRow(s.label, "2026-03-01")
		if s.ph != nil {
			row.Set("pH-waarde", cbc.Num(*s.ph))
		}
		row.Set("Lutum", cbc.Num(s.lutum))
		res, err := cbc.Evaluate(row, testRuleSet(), nil)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if err := b.Add(s.label, res); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	return b
}

func TestSaveRun_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	batch := testBatch(t)

	run, err := s.SaveRun(ctx, "u", "first pass", batch)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if run.ID == "" || run.Samples != 2 {
		t.Fatalf("unexpected run %+v", run)
	}

	scores, err := s.RunScores(ctx, run.ID)
	if err != nil {
		t.Fatalf("RunScores: %v", err)
	}
	if diff := cmp.Diff(batch.Scores(), scores); diff != "" {
		t.Fatalf("scores (-want +got):\n%s", diff)
	}

	details, err := s.RunDetails(ctx, run.ID)
	if err != nil {
		t.Fatalf("RunDetails: %v", err)
	}
	for _, label := range batch.Labels() {
		want, _ := batch.Details(label)
		if diff := cmp.Diff(want, details[label]); diff != "" {
			t.Fatalf("details for %s (-want +got):\n%s", label, diff)
		}
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil || got == nil || got.Note != "first pass" {
		t.Fatalf("GetRun = %+v, %v", got, err)
	}
	if !got.CreatedAt.Equal(run.CreatedAt.Truncate(time.Nanosecond)) {
		t.Fatalf("created_at %v != %v", got.CreatedAt, run.CreatedAt)
	}
}

func TestSaveRun_Empty(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.SaveRun(context.Background(), "u", "", cbc.NewBatch()); !errors.Is(err, cbc.ErrEmptySample) {
		t.Fatalf("expected ErrEmptySample, got %v", err)
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ss := s.(*SQLiteStore)

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		ss.now = func() time.Time { return at }
		run, err := s.SaveRun(ctx, "u", "", testBatch(t))
		if err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
		ids = append(ids, run.ID)
	}

	runs, err := s.ListRuns(ctx, "u", 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Fatalf("unexpected order %+v", runs)
	}
	if others, _ := s.ListRuns(ctx, "someone-else", 0); len(others) != 0 {
		t.Fatalf("runs leaked across users: %+v", others)
	}
}

func TestGetRun_Missing(t *testing.T) {
	s := newTestStore(t)
	run, err := s.GetRun(context.Background(), "does-not-exist")
	if err != nil || run != nil {
		t.Fatalf("GetRun = %+v, %v", run, err)
	}
}
