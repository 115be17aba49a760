package cbc

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRowRename_PlaceholderReplaced(t *testing.T) {
	row := NewRow("S1", "2026-01-01")
	row.Set("pH-waarde", Cell{})
	row.Set("Lutum", Num(10))
	row.Set("Zuurgraad (pH)", Num(6.8))

	out := row.Rename(map[string]string{"Zuurgraad (pH)": "pH-waarde"})

	if diff := cmp.Diff([]string{"pH-waarde", "Lutum"}, out.Columns()); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}
	if c, _ := out.Cell("pH-waarde"); c.Value != 6.8 {
		t.Fatalf("expected renamed value 6.8, got %+v", c)
	}
	if row.Len() != 3 {
		t.Fatal("Rename modified the receiver")
	}
}

func TestRowRename_FirstRealValueWins(t *testing.T) {
	row := NewRow("S1", "2026-01-01")
	row.Set("Klei (<2 µm) (%)", Num(11))
	row.Set("Korrelgrootte < 2 µm, laser (% min. delen)", Num(14))

	out := row.Rename(map[string]string{
		"Klei (<2 µm) (%)": "Lutum (fractie < 2um)",
		"Korrelgrootte < 2 µm, laser (% min. delen)": "Lutum (fractie < 2um)",
	})
	if c, _ := out.Cell("Lutum (fractie < 2um)"); c.Value != 11 {
		t.Fatalf("expected first value 11, got %+v", c)
	}
	if out.Len() != 1 {
		t.Fatalf("expected collapsed column, got %v", out.Columns())
	}
}

func TestRowRename_EmptyTargetIgnored(t *testing.T) {
	row := NewRow("S1", "")
	row.Set("Gloeirest (% (m/m) ds)", Num(3))
	out := row.Rename(map[string]string{"Gloeirest (% (m/m) ds)": " "})
	if !out.Has("Gloeirest (% (m/m) ds)") {
		t.Fatal("blank rename target should keep the column")
	}
}

func TestRowFromRecord(t *testing.T) {
	header := []string{"SampleID", "DateProcessed", "pH-waarde", " Lutum ", ""}
	row, err := RowFromRecord(header, []string{"BW1S1", "2026-02-02", "6,5", "12", "x"})
	if err != nil {
		t.Fatalf("RowFromRecord: %v", err)
	}
	if row.SampleID != "BW1S1" || row.DateProcessed != "2026-02-02" {
		t.Fatalf("identity = %q %q", row.SampleID, row.DateProcessed)
	}
	if diff := cmp.Diff([]string{"pH-waarde", "Lutum"}, row.Columns()); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}
	// Wide rows are coerced strictly: a decimal comma is not a number here.
	if c, _ := row.Cell("pH-waarde"); func() bool { _, ok := c.Float(); return ok }() {
		t.Fatalf("expected 6,5 to be missing, got %+v", c)
	}

	if _, err := RowFromRecord(header, nil); !errors.Is(err, ErrEmptySample) {
		t.Fatalf("expected ErrEmptySample, got %v", err)
	}
}

func TestRowValues(t *testing.T) {
	row := NewRow("S1", "")
	row.Set("a", Num(1))
	row.Set("b", Text("x"))
	vals := row.Values()
	if vals["a"] == nil || *vals["a"] != 1 {
		t.Fatalf("a = %v", vals["a"])
	}
	if vals["b"] != nil {
		t.Fatalf("b should be missing, got %v", *vals["b"])
	}
}

func TestStatus_TextRoundTrip(t *testing.T) {
	for _, s := range []Status{Pass, Fail, Missing, NotApplicable} {
		b, _ := s.MarshalText()
		var got Status
		if err := got.UnmarshalText(b); err != nil || got != s {
			t.Fatalf("round trip %s -> %q -> %s (%v)", s, b, got, err)
		}
	}
	if _, err := ParseStatus("maybe"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
