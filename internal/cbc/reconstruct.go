package cbc

import (
	"strings"
	"time"
)

// DateLayout is the format of Row.DateProcessed.
const DateLayout = "2006-01-02"

// LongRow is one extracted (parameter, unit, value) triple.
type LongRow struct {
	Parameter string `json:"parameter" yaml:"parameter"`
	Unit      string `json:"unit,omitempty" yaml:"unit,omitempty"`
	Value     string `json:"value" yaml:"value"`
}

// ColumnKey builds the source label of a parameter: "parameter (unit)", or
// just the parameter when the unit is empty. Both parts are trimmed.
func ColumnKey(parameter, unit string) string {
	p := strings.TrimSpace(parameter)
	u := strings.TrimSpace(unit)
	if u == "" {
		return p
	}
	return p + " (" + u + ")"
}

// CleanValue prepares a lab value for numeric parsing. Leading "<" and ">"
// are dropped, so "<0.1" reads as its bound 0.1, and decimal commas become
// periods.
func CleanValue(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "<>")
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(s, ",", ".")
}

// ParseValue cleans and parses a lab value.
func ParseValue(raw string) (float64, bool) {
	return parseFinite(CleanValue(raw))
}

// Reconstruct pivots the long-form rows of one sample into a wide row.
// It returns nil when rows is empty.
//
// Values that do not parse become missing. When several rows share a column
// key the first non-missing value is kept. Every required column is present
// in the result. DateProcessed is the date of now, not of the measurement.
func Reconstruct(sampleID string, rows []LongRow, required []string, now time.Time) *Row {
	if len(rows) == 0 {
		return nil
	}

	var discovered []string
	cells := make(map[string]Cell)
	for _, r := range rows {
		key := ColumnKey(r.Parameter, r.Unit)
		var c Cell
		if v, ok := ParseValue(r.Value); ok {
			c = Num(v)
		}
		prev, seen := cells[key]
		if !seen {
			discovered = append(discovered, key)
			cells[key] = c
			continue
		}
		if !prev.Valid && c.Valid {
			cells[key] = c
		}
	}

	row := NewRow(sampleID, now.Format(DateLayout))
	inRequired := make(map[string]struct{}, len(required))
	for _, col := range required {
		if _, dup := inRequired[col]; dup {
			continue
		}
		inRequired[col] = struct{}{}
		row.Set(col, cells[col])
	}
	for _, col := range discovered {
		if _, ok := inRequired[col]; ok {
			continue
		}
		row.Set(col, cells[col])
	}
	return row
}
