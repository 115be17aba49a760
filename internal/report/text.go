package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/valadhi/blauwe-parser/internal/analysis"
	"github.com/valadhi/blauwe-parser/internal/cbc"
)

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// WriteText renders the score table and, depending on opts, the best uses,
// pass matrices and rule details of every sample.
func WriteText(w io.Writer, batch *cbc.Batch, opts Options) error {
	if opts.RunID != "" {
		fmt.Fprintf(w, "Run %s\n\n", opts.RunID)
	}
	if err := WriteScoreTable(w, LabeledScores(batch)); err != nil {
		return err
	}
	if batch.Len() > 1 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Average")
		if err := writeTargetScores(w, batch.Average()); err != nil {
			return err
		}
	}
	for _, label := range batch.Labels() {
		if opts.TopN > 0 {
			fmt.Fprintf(w, "\nTop %d for %s\n", opts.TopN, label)
			if err := writeTargetScores(w, batch.TopTargets(label, opts.TopN)); err != nil {
				return err
			}
		}
		if m, _ := batch.Matrix(label); opts.Matrix && !m.Empty() {
			fmt.Fprintf(w, "\nPass matrix for %s\n", label)
			if err := WriteMatrix(w, m); err != nil {
				return err
			}
		}
		if opts.Details {
			details, _ := batch.Details(label)
			fmt.Fprintf(w, "\nDetails for %s\n", label)
			if err := WriteDetails(w, details); err != nil {
				return err
			}
		}
	}
	if len(opts.Skipped) > 0 {
		fmt.Fprintf(w, "\nNo data found for: %s\n", strings.Join(opts.Skipped, ", "))
	}
	return nil
}

// WriteScoreTable renders one line per sample and one column per target.
func WriteScoreTable(w io.Writer, rows []cbc.ScoreRow) error {
	tw := newTabWriter(w)
	targets := targetColumns(rows)
	fmt.Fprintf(tw, "SAMPLE\tDATE\t%s\n", strings.Join(targets, "\t"))
	for _, r := range rows {
		cells := make([]string, len(targets))
		for i, t := range targets {
			if v, ok := r.Score(t); ok {
				cells[i] = formatScore(v)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.SampleID, r.DateProcessed, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func writeTargetScores(w io.Writer, scores []cbc.TargetScore) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "TARGET\tSCORE")
	for _, s := range scores {
		fmt.Fprintf(tw, "%s\t%s\n", s.Name, formatScore(s.Score))
	}
	return tw.Flush()
}

// WriteMatrix renders a pass matrix with one line per property.
func WriteMatrix(w io.Writer, m cbc.Matrix) error {
	tw := newTabWriter(w)
	fmt.Fprintf(tw, "PROPERTY\t%s\n", strings.Join(m.Targets, "\t"))
	for _, p := range m.Properties {
		cells := make([]string, len(m.Targets))
		for i, t := range m.Targets {
			cells[i] = m.At(p, t).String()
		}
		fmt.Fprintf(tw, "%s\t%s\n", p, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// WriteDetails renders the rule details of one sample in evaluation order.
func WriteDetails(w io.Writer, details []cbc.Detail) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "TARGET\tPROPERTY\tWEIGHT\tMIN\tMAX\tVALUE\tSTATUS")
	for _, d := range details {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%s\t%s\t%s\t%s\n",
			d.TargetName, d.PropertyName, d.Weight,
			formatBound(d.Min), formatBound(d.Max), formatBound(d.Value), d.Status)
	}
	return tw.Flush()
}

// WriteMappingStatus renders the mapping editor view of one report and
// target.
func WriteMappingStatus(w io.Writer, st *analysis.MappingStatus) error {
	fmt.Fprintf(w, "Mappings for %s in %s\n\n", st.Target.Name, st.ReportID)
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "PROPERTY\tRANGE\tWEIGHT\tSOURCE\tSTATUS")
	for _, p := range st.Properties {
		source := p.Source
		if source == "" {
			source = "(unmapped)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%g\t%s\t%s\n", p.Property, p.Range, p.Weight, source, p.State())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(st.Unused) > 0 {
		fmt.Fprintf(w, "\nUnused extracted parameters: %s\n", strings.Join(st.Unused, ", "))
	}
	return nil
}
