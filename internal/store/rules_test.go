package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/valadhi/blauwe-parser/internal/cbc"
)

func newTestRulesStore(t *testing.T) RulesStore {
	t.Helper()
	s, err := NewRulesStore(StoreConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create rules store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

const ruleFileYAML = `properties:
  - {id: 1, name: pH-waarde}
  - {id: 2, name: Lutum}
targets:
  - {id: 10, name: Akkerbouw}
  - {id: 11, name: Dijkbouw}
rules:
  - {target: 10, property: 1, weight: 1, min: 5, max: 7}
  - {target: 10, property: 2, weight: 2, min: 0, max: 20}
  - {target: 11, property: 2, weight: 1, min: 25}
`

func TestParseRuleFile(t *testing.T) {
	rs, err := ParseRuleFile([]byte(ruleFileYAML))
	if err != nil {
		t.Fatalf("ParseRuleFile: %v", err)
	}
	if diff := cmp.Diff(testRuleSet(), rs); diff != "" {
		t.Fatalf("rule set (-want +got):\n%s", diff)
	}

	_, err = ParseRuleFile([]byte("targets: [{id: 1, name: A}]\nrules: [{target: 1, property: 9, weight: 1}]\n"))
	if !errors.Is(err, cbc.ErrInvalidRules) {
		t.Fatalf("expected ErrInvalidRules, got %v", err)
	}
	if _, err := ParseRuleFile([]byte("rules: {")); err == nil {
		t.Fatal("expected YAML error")
	}
}

func TestRulesStore_ImportAndLoad(t *testing.T) {
	s := newTestRulesStore(t)
	ctx := context.Background()

	if _, err := s.LoadRuleSet(ctx); !errors.Is(err, cbc.ErrNoRules) {
		t.Fatalf("expected ErrNoRules from an empty database, got %v", err)
	}

	if err := s.ImportRules(ctx, testRuleSet()); err != nil {
		t.Fatalf("ImportRules: %v", err)
	}
	got, err := s.LoadRuleSet(ctx)
	if err != nil {
		t.Fatalf("LoadRuleSet: %v", err)
	}
	if diff := cmp.Diff(testRuleSet(), got); diff != "" {
		t.Fatalf("rule set (-want +got):\n%s", diff)
	}

	// A second import replaces the reference data.
	smaller := testRuleSet()
	smaller.Rules = smaller.Rules[:1]
	if err := s.ImportRules(ctx, smaller); err != nil {
		t.Fatalf("re-import: %v", err)
	}
	got, _ = s.LoadRuleSet(ctx)
	if len(got.Rules) != 1 {
		t.Fatalf("expected 1 rule after re-import, got %d", len(got.Rules))
	}
}

func TestRulesStore_RejectsInvalidImport(t *testing.T) {
	s := newTestRulesStore(t)
	bad := testRuleSet()
	bad.Rules[0].Weight = -1
	if err := s.ImportRules(context.Background(), bad); !errors.Is(err, cbc.ErrInvalidRules) {
		t.Fatalf("expected ErrInvalidRules, got %v", err)
	}
}

func TestRulesStore_NullWeightReadsZero(t *testing.T) {
	s := newTestRulesStore(t)
	ctx := context.Background()
	if err := s.ImportRules(ctx, testRuleSet()); err != nil {
		t.Fatalf("ImportRules: %v", err)
	}
	db := s.(*SQLiteRulesStore).db
	if _, err := db.Exec(`UPDATE HEEFT SET Weight = NULL WHERE EigID = 1`); err != nil {
		t.Fatalf("update: %v", err)
	}
	rs, err := s.LoadRuleSet(ctx)
	if err != nil {
		t.Fatalf("LoadRuleSet: %v", err)
	}
	if rs.Rules[0].Weight != 0 {
		t.Fatalf("expected weight 0, got %v", rs.Rules[0].Weight)
	}
}

func TestLoadRuleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(ruleFileYAML), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	rs, err := LoadRuleFile(path)
	if err != nil {
		t.Fatalf("LoadRuleFile: %v", err)
	}
	if len(rs.Targets) != 2 {
		t.Fatalf("unexpected targets %+v", rs.Targets)
	}
	if _, err := LoadRuleFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
