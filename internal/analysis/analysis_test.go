package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valadhi/blauwe-parser/internal/cbc"
	"github.com/valadhi/blauwe-parser/internal/store"
)

func testRuleSet() cbc.RuleSet {
	return cbc.RuleSet{
		Properties: []cbc.Property{{ID: 1, Name: "pH-waarde"}, {ID: 2, Name: "Lutum"}, {ID: 3, Name: "Zink totaal"}},
		Targets:    []cbc.Target{{ID: 10, Name: "Akkerbouw"}, {ID: 11, Name: "Dijkbouw"}},
		Rules: []cbc.Rule{
			{TargetID: 10, PropertyID: 1, Weight: 1, Min: cbc.Float(5), Max: cbc.Float(7)},
			{TargetID: 10, PropertyID: 2, Weight: 2, Min: cbc.Float(0), Max: cbc.Float(20)},
			{TargetID: 10, PropertyID: 3, Weight: 0, Min: cbc.Float(0), Max: cbc.Float(100)},
			{TargetID: 11, PropertyID: 2, Weight: 1, Min: cbc.Float(25)},
		},
	}
}

type fixture struct {
	svc     *Service
	samples store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	samples, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { samples.Close() })

	rules, err := store.NewRulesStore(store.StoreConfig{DBPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { rules.Close() })
	require.NoError(t, rules.ImportRules(ctx, testRuleSet()))

	_, err = samples.SeedGlobalMappings(ctx, []cbc.Mapping{
		{Source: "pH (-)", Target: "pH-waarde"},
		{Source: "Lutum (%)", Target: "Lutum"},
	})
	require.NoError(t, err)

	_, err = samples.SaveExtraction(ctx, store.Extraction{UserID: "u", ReportID: "r1", Rows: []store.ExtractionRow{
		{SampleID: "S1", Parameter: "pH", Unit: "-", Value: "6,1"},
		{SampleID: "S1", Parameter: "Lutum", Unit: "%", Value: "<10"},
		{SampleID: "S1", Parameter: "Zuurgraad", Value: "9"},
		{SampleID: "S1", Parameter: "Chloride", Unit: "mg/l", Value: "40"},
		{SampleID: "S2", Parameter: "Lutum", Unit: "%", Value: "30"},
	}})
	require.NoError(t, err)
	_, err = samples.SaveExtraction(ctx, store.Extraction{UserID: "u", ReportID: "r2", Rows: []store.ExtractionRow{
		{SampleID: "S1", Parameter: "pH", Unit: "-", Value: "8"},
	}})
	require.NoError(t, err)

	svc := NewService(samples, rules, Options{
		Required: []string{"pH-waarde", "Lutum"},
		Workers:  2,
		Now:      func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
	})
	return &fixture{svc: svc, samples: samples}
}

func scoreOf(t *testing.T, ev *Evaluation, label, target string) float64 {
	t.Helper()
	res, ok := ev.Batch.Result(label)
	require.True(t, ok, "missing result for %s", label)
	score, ok := res.Scores.Score(target)
	require.True(t, ok, "missing target %s", target)
	return score
}

func TestEvaluate_GlobalMappings(t *testing.T) {
	f := newFixture(t)
	ev, err := f.svc.Evaluate(context.Background(), "u", []SampleKey{
		{ReportID: "r1", SampleID: "S1"},
		{ReportID: "r1", SampleID: "S2"},
		{ReportID: "r1", SampleID: "S9"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"r1 — S1", "r1 — S2"}, ev.Batch.Labels())
	assert.Equal(t, []SampleKey{{ReportID: "r1", SampleID: "S9"}}, ev.Skipped)

	assert.InDelta(t, 1.0, scoreOf(t, ev, "r1 — S1", "Akkerbouw"), 1e-9)
	assert.InDelta(t, 0.0, scoreOf(t, ev, "r1 — S1", "Dijkbouw"), 1e-9)
	assert.InDelta(t, 0.0, scoreOf(t, ev, "r1 — S2", "Akkerbouw"), 1e-9)

	res, _ := ev.Batch.Result("r1 — S1")
	assert.Equal(t, "2026-03-01", res.Scores.DateProcessed)
	assert.Equal(t, "S1", res.Scores.SampleID)

	res, _ = ev.Batch.Result("r1 — S2")
	assert.Equal(t, cbc.Missing, res.Matrix.At("pH-waarde", "Akkerbouw"))
	assert.Equal(t, cbc.NotApplicable, res.Matrix.At("Zink totaal", "Akkerbouw"))

	resolutions := ev.Resolutions["r1 — S1"]
	require.Len(t, resolutions, 3)
	assert.Equal(t, cbc.Resolution{Property: "pH-waarde", Source: "pH (-)", Origin: cbc.OriginGlobal, Present: true}, resolutions[0])
	assert.Equal(t, cbc.OriginNone, resolutions[2].Origin)
}

func TestEvaluate_LocalMappingWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.SetMapping(ctx, "u", "r1", "Zuurgraad", "pH-waarde"))

	ev, err := f.svc.Evaluate(ctx, "u", []SampleKey{{ReportID: "r1", SampleID: "S1"}, {ReportID: "r2", SampleID: "S1"}})
	require.NoError(t, err)

	// pH 9 fails, Lutum (weight 2) passes.
	assert.InDelta(t, 2.0/3.0, scoreOf(t, ev, "r1 — S1", "Akkerbouw"), 1e-9)
	// The local mapping of r1 does not leak into r2.
	assert.InDelta(t, 0.0, scoreOf(t, ev, "r2 — S1", "Akkerbouw"), 1e-9)
	assert.Equal(t, cbc.OriginLocal, ev.Resolutions["r1 — S1"][0].Origin)
	assert.Equal(t, cbc.OriginGlobal, ev.Resolutions["r2 — S1"][0].Origin)
}

func TestEvaluate_NoSamples(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Evaluate(context.Background(), "u", nil)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestEvaluate_NoRules(t *testing.T) {
	samples, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	require.NoError(t, err)
	defer samples.Close()
	rules, err := store.NewRulesStore(store.StoreConfig{DBPath: ":memory:"})
	require.NoError(t, err)
	defer rules.Close()

	svc := NewService(samples, rules, Options{})
	_, err = svc.Evaluate(context.Background(), "u", []SampleKey{{ReportID: "r", SampleID: "S"}})
	assert.ErrorIs(t, err, cbc.ErrNoRules)
}

func TestEvaluateReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev, err := f.svc.EvaluateReports(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1 — S1", "r1 — S2", "r2 — S1"}, ev.Batch.Labels())

	ev, err = f.svc.EvaluateReports(ctx, "u", "r2")
	require.NoError(t, err)
	assert.Equal(t, []string{"r2 — S1"}, ev.Batch.Labels())

	_, err = f.svc.EvaluateReports(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestSaveRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ev, err := f.svc.EvaluateReports(ctx, "u", "r1")
	require.NoError(t, err)
	run, err := f.svc.SaveRun(ctx, "u", "weekly", ev)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Samples)

	rows, err := f.samples.RunScores(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "r1 — S1", rows[0].SampleID)

	_, err = f.svc.SaveRun(ctx, "u", "", nil)
	assert.ErrorIs(t, err, cbc.ErrEmptySample)
}
