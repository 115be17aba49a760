package cbc

import (
	"math"
	"strconv"
	"strings"
)

// Cell is one value of a wide sample row. A cell is either numeric
// (Valid) or carries the raw text it was loaded from, which the engine
// coerces when it reads the cell.
type Cell struct {
	Value float64
	Valid bool
	Raw   string
}

// Num returns a numeric cell.
func Num(v float64) Cell {
	return Cell{Value: v, Valid: true}
}

// Text returns a cell holding unparsed text.
func Text(raw string) Cell {
	return Cell{Raw: raw}
}

// Placeholder reports whether the cell holds nothing at all.
func (c Cell) Placeholder() bool {
	return !c.Valid && strings.TrimSpace(c.Raw) == ""
}

// Float coerces the cell to a finite number. The second result is false
// for missing, non-numeric and non-finite values.
func (c Cell) Float() (float64, bool) {
	if c.Valid {
		if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
			return 0, false
		}
		return c.Value, true
	}
	return parseFinite(strings.TrimSpace(c.Raw))
}

func parseFinite(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Row is the wide, one-sample representation the engine consumes.
// Rows are treated as immutable once handed to the engine; every
// transformation returns a new Row.
type Row struct {
	SampleID      string
	DateProcessed string

	columns []string
	cells   map[string]Cell
}

// NewRow returns an empty row for one sample.
func NewRow(sampleID, dateProcessed string) *Row {
	return &Row{
		SampleID:      sampleID,
		DateProcessed: dateProcessed,
		cells:         make(map[string]Cell),
	}
}

// Set stores a cell, appending the column when it is new.
func (r *Row) Set(column string, c Cell) {
	if r.cells == nil {
		r.cells = make(map[string]Cell)
	}
	if _, ok := r.cells[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.cells[column] = c
}

// Cell returns the cell stored under column.
func (r *Row) Cell(column string) (Cell, bool) {
	c, ok := r.cells[column]
	return c, ok
}

// Has reports whether the row carries column.
func (r *Row) Has(column string) bool {
	_, ok := r.cells[column]
	return ok
}

// Columns returns the property columns in order (SampleID and
// DateProcessed are not included).
func (r *Row) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Len returns the number of property columns.
func (r *Row) Len() int {
	return len(r.columns)
}

// Clone returns a deep copy of the row.
func (r *Row) Clone() *Row {
	out := NewRow(r.SampleID, r.DateProcessed)
	for _, col := range r.columns {
		out.Set(col, r.cells[col])
	}
	return out
}

// Rename returns a copy of the row with columns renamed through overrides
// (extracted column name -> canonical property name). The receiver is not
// modified.
//
// When two columns end up under the same name the column that appears first
// keeps its position. A placeholder never shadows real data: it is replaced
// by the colliding value. Between two real values the first one wins.
func (r *Row) Rename(overrides map[string]string) *Row {
	out := NewRow(r.SampleID, r.DateProcessed)
	for _, col := range r.columns {
		c := r.cells[col]
		name := col
		if to, ok := overrides[col]; ok && strings.TrimSpace(to) != "" {
			name = to
		}
		existing, taken := out.cells[name]
		switch {
		case !taken:
			out.Set(name, c)
		case existing.Placeholder() && !c.Placeholder():
			out.cells[name] = c
		}
	}
	return out
}

// Values returns the coerced numeric values of every column, missing
// columns mapped to nil.
func (r *Row) Values() map[string]*float64 {
	out := make(map[string]*float64, len(r.columns))
	for _, col := range r.columns {
		if v, ok := r.cells[col].Float(); ok {
			out[col] = Float(v)
		} else {
			out[col] = nil
		}
	}
	return out
}

// RowFromRecord builds a wide row from a header and one record of a wide
// table. Cells are kept as raw text. Columns named SampleID and
// DateProcessed fill the identity fields.
func RowFromRecord(header, record []string) (*Row, error) {
	if len(record) == 0 {
		return nil, ErrEmptySample
	}
	row := NewRow("", "")
	for i, h := range header {
		col := strings.TrimSpace(h)
		if col == "" {
			continue
		}
		val := ""
		if i < len(record) {
			val = record[i]
		}
		switch col {
		case "SampleID":
			row.SampleID = strings.TrimSpace(val)
		case "DateProcessed":
			row.DateProcessed = strings.TrimSpace(val)
		default:
			row.Set(col, Text(val))
		}
	}
	return row, nil
}
