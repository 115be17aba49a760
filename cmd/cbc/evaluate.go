package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/valadhi/blauwe-parser/internal/analysis"
	"github.com/valadhi/blauwe-parser/internal/report"
)

func evaluateCmd(a *app) *cobra.Command {
	var (
		sampleIDs []string
		format    string
		output    string
		opts      report.Options
		save      bool
		note      string
	)
	cmd := &cobra.Command{
		Use:   "evaluate [report...]",
		Short: "Score samples against every target in the rules database",
		Long: `Score stored samples against the rules database.

Without arguments every report of the user is evaluated. --sample selects
samples within a single report. Samples without stored data are skipped
with a warning.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == report.FormatXLSX && output == "" {
				return fmt.Errorf("xlsx output requires --output")
			}

			svc, err := a.service()
			if err != nil {
				return err
			}

			var keys []analysis.SampleKey
			if len(sampleIDs) > 0 {
				if len(args) != 1 {
					return fmt.Errorf("--sample requires exactly one report")
				}
				for _, id := range sampleIDs {
					keys = append(keys, analysis.SampleKey{ReportID: args[0], SampleID: id})
				}
			} else if keys, err = svc.SampleKeys(cmd.Context(), a.user(), args...); err != nil {
				return err
			}

			ev, err := svc.Evaluate(cmd.Context(), a.user(), keys)
			if err != nil {
				return err
			}
			for _, k := range ev.Skipped {
				opts.Skipped = append(opts.Skipped, k.Label())
			}
			if save && ev.Batch.Len() > 0 {
				run, err := svc.SaveRun(cmd.Context(), a.user(), note, ev)
				if err != nil {
					return err
				}
				opts.RunID = run.ID
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			if err := report.Write(w, f, ev.Batch, opts); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d samples to %s\n", ev.Batch.Len(), output)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&sampleIDs, "sample", nil, "sample id within the report (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().IntVar(&opts.TopN, "top", 3, "best-scoring targets listed per sample (0 disables)")
	cmd.Flags().BoolVar(&opts.Matrix, "matrix", false, "include pass/fail matrices")
	cmd.Flags().BoolVar(&opts.Details, "details", false, "include per-rule details")
	cmd.Flags().BoolVar(&save, "save", false, "persist the evaluation as a run")
	cmd.Flags().StringVar(&note, "note", "", "note stored with a saved run")
	return cmd
}
