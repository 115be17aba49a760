package cbc

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolve_LocalBeatsGlobal(t *testing.T) {
	global := []Mapping{{Source: "Lood (mg/kg)", Target: "Zware metalen"}}
	local := []Mapping{{Source: "Zink (mg/kg)", Target: "Zware metalen"}}
	available := AvailableSet([]string{"Lood (mg/kg)", "Zink (mg/kg)"})

	got := Resolve("Zware metalen", local, global, available)
	want := Resolution{Property: "Zware metalen", Source: "Zink (mg/kg)", Origin: OriginLocal, Present: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Resolve (-want +got):\n%s", diff)
	}
}

func TestResolve_LocalWinsEvenWhenAbsent(t *testing.T) {
	global := []Mapping{{Source: "Lood (mg/kg)", Target: "Zware metalen"}}
	local := []Mapping{{Source: "Zink (mg/kg)", Target: "Zware metalen"}}
	available := AvailableSet([]string{"Lood (mg/kg)"})

	got := Resolve("Zware metalen", local, global, available)
	if got.Origin != OriginLocal || got.Source != "Zink (mg/kg)" {
		t.Fatalf("expected local mapping, got %+v", got)
	}
	if got.Present {
		t.Fatal("local source is not in the sample, Present should be false")
	}
}

func TestResolve_GlobalButAbsent(t *testing.T) {
	global := []Mapping{{Source: "Lood (mg/kg)", Target: "Zware metalen"}}
	available := AvailableSet([]string{"Koper (mg/kg)"})

	got := Resolve("Zware metalen", nil, global, available)
	if got.Found() || got.Source != "" || got.Origin != OriginNone {
		t.Fatalf("expected no mapping, got %+v", got)
	}
}

func TestResolve_GlobalFirstPresentCandidate(t *testing.T) {
	global := []Mapping{
		{Source: "Klei (<2 µm) (%)", Target: "Lutum (fractie < 2um)"},
		{Source: "Korrelgrootte < 2 µm, gravimetrisch (% (m/m) ds)", Target: "Lutum (fractie < 2um)"},
		{Source: "Korrelgrootte < 2 µm, laser (% min. delen)", Target: "Lutum (fractie < 2um)"},
	}
	available := AvailableSet([]string{
		"Korrelgrootte < 2 µm, laser (% min. delen)",
		"Korrelgrootte < 2 µm, gravimetrisch (% (m/m) ds)",
	})

	got := Resolve("Lutum (fractie < 2um)", nil, global, available)
	if got.Source != "Korrelgrootte < 2 µm, gravimetrisch (% (m/m) ds)" || got.Origin != OriginGlobal {
		t.Fatalf("expected first present global candidate, got %+v", got)
	}
}

func TestResolve_DuplicateLocalTakesFirst(t *testing.T) {
	local := []Mapping{
		{Source: "Zink (mg/kg)", Target: "Zware metalen"},
		{Source: "Koper (mg/kg)", Target: "Zware metalen"},
	}
	got := Resolve("Zware metalen", local, nil, nil)
	if got.Source != "Zink (mg/kg)" {
		t.Fatalf("expected first local entry, got %q", got.Source)
	}
}

func TestResolveOverrides(t *testing.T) {
	global := []Mapping{
		{Source: "Zuurgraad (pH)", Target: "pH-waarde"},
		{Source: "Klei (<2 µm) (%)", Target: "Lutum (fractie < 2um)"},
	}
	local := []Mapping{{Source: "Koper (Cu) (mg/kg ds)", Target: "Koper totaal"}}
	available := AvailableSet([]string{"Zuurgraad (pH)", "Koper (Cu) (mg/kg ds)"})

	overrides, resolutions := ResolveOverrides(
		[]string{"pH-waarde", "Lutum (fractie < 2um)", "Koper totaal"},
		local, global, available,
	)

	wantOverrides := map[string]string{
		"Zuurgraad (pH)":        "pH-waarde",
		"Koper (Cu) (mg/kg ds)": "Koper totaal",
	}
	if diff := cmp.Diff(wantOverrides, overrides); diff != "" {
		t.Fatalf("overrides (-want +got):\n%s", diff)
	}

	var origins []Origin
	for _, r := range resolutions {
		origins = append(origins, r.Origin)
	}
	if diff := cmp.Diff([]Origin{OriginGlobal, OriginNone, OriginLocal}, origins); diff != "" {
		t.Fatalf("origins (-want +got):\n%s", diff)
	}
}

func TestResolveOverrides_SourceClaimedOnce(t *testing.T) {
	local := []Mapping{
		{Source: "Zink (mg/kg)", Target: "Zink totaal"},
		{Source: "Zink (mg/kg)", Target: "Zware metalen"},
	}
	overrides, _ := ResolveOverrides([]string{"Zink totaal", "Zware metalen"}, local, nil, AvailableSet([]string{"Zink (mg/kg)"}))
	if overrides["Zink (mg/kg)"] != "Zink totaal" {
		t.Fatalf("expected first property to keep the source, got %q", overrides["Zink (mg/kg)"])
	}
}

func TestResolveOverrides_LocalClaimsBeforeGlobal(t *testing.T) {
	local := []Mapping{{Source: "Koper (mg/kg)", Target: "Zware metalen"}}
	global := []Mapping{{Source: "Koper (mg/kg)", Target: "Koper totaal"}}
	available := AvailableSet([]string{"Koper (mg/kg)"})

	overrides, resolutions := ResolveOverrides([]string{"Koper totaal", "Zware metalen"}, local, global, available)
	if diff := cmp.Diff(map[string]string{"Koper (mg/kg)": "Zware metalen"}, overrides); diff != "" {
		t.Fatalf("overrides (-want +got):\n%s", diff)
	}
	want := []Resolution{
		{Property: "Koper totaal", Origin: OriginNone},
		{Property: "Zware metalen", Source: "Koper (mg/kg)", Origin: OriginLocal, Present: true},
	}
	if diff := cmp.Diff(want, resolutions); diff != "" {
		t.Fatalf("resolutions (-want +got):\n%s", diff)
	}

	rules := RuleSet{
		Properties: []Property{{ID: 1, Name: "Koper totaal"}, {ID: 2, Name: "Zware metalen"}},
		Targets:    []Target{{ID: 10, Name: "Akkerbouw"}},
		Rules:      []Rule{{TargetID: 10, PropertyID: 2, Weight: 1, Min: Float(0), Max: Float(50)}},
	}
	row := NewRow("S1", "2026-01-01")
	row.Set("Koper (mg/kg)", Num(10))

	res, err := Evaluate(row, rules, overrides)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(res.Details) != 1 || res.Details[0].Status != Pass {
		t.Fatalf("expected the manual mapping to feed Zware metalen, got %+v", res.Details)
	}
	if score, _ := res.Scores.Score("Akkerbouw"); score != 1.0 {
		t.Fatalf("expected score 1.0, got %v", score)
	}
}

func TestResolve_GlobalSkipsLocallyMappedSource(t *testing.T) {
	local := []Mapping{{Source: "Koper (mg/kg)", Target: "Zware metalen"}}
	global := []Mapping{
		{Source: "Koper (mg/kg)", Target: "Koper totaal"},
		{Source: "Cu (mg/kg)", Target: "Koper totaal"},
	}
	available := AvailableSet([]string{"Koper (mg/kg)", "Cu (mg/kg)"})

	got := Resolve("Koper totaal", local, global, available)
	if got.Source != "Cu (mg/kg)" || got.Origin != OriginGlobal {
		t.Fatalf("expected the next global candidate, got %+v", got)
	}
}
