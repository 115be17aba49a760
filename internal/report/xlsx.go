package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/valadhi/blauwe-parser/internal/cbc"
)

// Sheet names of the exported workbook.
const (
	SheetScores   = "Scores"
	SheetAverage  = "Average"
	SheetMatrix   = "Matrix"
	SheetPassRate = "Pass rate"
	SheetDetails  = "Details"
)

// WriteXLSX writes the evaluation as a workbook. The score and average
// sheets are always present; the matrix, pass rate and detail sheets
// follow opts. Matrix cells use the legacy codes 1 pass, 0 fail, -1
// missing or not applicable.
func WriteXLSX(w io.Writer, batch *cbc.Batch, opts Options) error {
	f := excelize.NewFile()
	defer f.Close()

	x := &workbook{f: f}
	if err := x.init(); err != nil {
		return err
	}

	rows := LabeledScores(batch)
	targets := targetColumns(rows)
	var table [][]any
	for _, r := range rows {
		line := []any{r.SampleID, r.DateProcessed}
		for _, t := range targets {
			if v, ok := r.Score(t); ok {
				line = append(line, v)
			} else {
				line = append(line, nil)
			}
		}
		table = append(table, line)
	}
	if err := x.sheet(SheetScores, append([]string{"Sample", "Date"}, targets...), table); err != nil {
		return err
	}

	table = nil
	for _, s := range batch.Average() {
		table = append(table, []any{s.Name, s.Score})
	}
	if err := x.sheet(SheetAverage, []string{"Target", "Average score"}, table); err != nil {
		return err
	}

	if opts.Matrix {
		if err := x.matrixSheet(batch); err != nil {
			return err
		}
		if err := x.passRateSheet(batch.AverageMatrix()); err != nil {
			return err
		}
	}
	if opts.Details {
		table = nil
		for _, label := range batch.Labels() {
			details, _ := batch.Details(label)
			for _, d := range details {
				table = append(table, []any{
					label, d.TargetName, d.PropertyName, d.Weight,
					cellFloat(d.Min), cellFloat(d.Max), cellFloat(d.Value), d.Status.String(),
				})
			}
		}
		header := []string{"Sample", "Target", "Property", "Weight", "Min", "Max", "Value", "Status"}
		if err := x.sheet(SheetDetails, header, table); err != nil {
			return err
		}
	}

	f.DeleteSheet("Sheet1")
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

type workbook struct {
	f           *excelize.File
	headerStyle int
	sheets      int
}

func (x *workbook) init() error {
	style, err := x.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	x.headerStyle = style
	return nil
}

// sheet creates a sheet with a styled header row followed by rows.
// nil values leave the cell empty.
func (x *workbook) sheet(name string, header []string, rows [][]any) error {
	index, err := x.f.NewSheet(name)
	if err != nil {
		return fmt.Errorf("creating sheet %s: %w", name, err)
	}
	if x.sheets == 0 {
		x.f.SetActiveSheet(index)
	}
	x.sheets++

	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := x.f.SetCellValue(name, cell, h); err != nil {
			return fmt.Errorf("setting header %s!%s: %w", name, cell, err)
		}
	}
	if len(header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		if err := x.f.SetCellStyle(name, "A1", last, x.headerStyle); err != nil {
			return fmt.Errorf("styling header of %s: %w", name, err)
		}
		lastCol, _ := excelize.ColumnNumberToName(len(header))
		if err := x.f.SetColWidth(name, "A", lastCol, 18); err != nil {
			return fmt.Errorf("sizing columns of %s: %w", name, err)
		}
	}

	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := x.f.SetCellValue(name, cell, v); err != nil {
				return fmt.Errorf("setting %s!%s: %w", name, cell, err)
			}
		}
	}
	return nil
}

func (x *workbook) matrixSheet(batch *cbc.Batch) error {
	targets := batch.TargetNames()
	var rows [][]any
	for _, label := range batch.Labels() {
		m, _ := batch.Matrix(label)
		col := make(map[string]int, len(m.Targets))
		for j, t := range m.Targets {
			col[t] = j
		}
		for i, codes := range m.Codes() {
			line := []any{label, m.Properties[i]}
			for _, t := range targets {
				j, ok := col[t]
				if !ok {
					line = append(line, cbc.NotApplicable.Code())
					continue
				}
				line = append(line, codes[j])
			}
			rows = append(rows, line)
		}
	}
	return x.sheet(SheetMatrix, append([]string{"Sample", "Property"}, targets...), rows)
}

func (x *workbook) passRateSheet(rm cbc.RateMatrix) error {
	var rows [][]any
	for _, p := range rm.Properties {
		line := []any{p}
		for _, t := range rm.Targets {
			if v, ok := rm.Rate(p, t); ok {
				line = append(line, v)
			} else {
				line = append(line, nil)
			}
		}
		rows = append(rows, line)
	}
	return x.sheet(SheetPassRate, append([]string{"Property"}, rm.Targets...), rows)
}

func cellFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
