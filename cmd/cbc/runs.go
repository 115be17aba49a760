package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valadhi/blauwe-parser/internal/report"
)

func runsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List saved evaluation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := a.sampleStore()
			if err != nil {
				return err
			}
			runs, err := samples.ListRuns(cmd.Context(), a.user(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved runs.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tSAMPLES\tNOTE")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Samples, r.Note)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list (0 = all)")
	cmd.AddCommand(runsShowCmd(a))
	return cmd
}

func runsShowCmd(a *app) *cobra.Command {
	var details, asJSON bool
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the scores of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := a.sampleStore()
			if err != nil {
				return err
			}
			run, err := samples.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %s not found", args[0])
			}
			scores, err := samples.RunScores(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if asJSON {
				doc := map[string]any{"run": run, "scores": scores}
				if details {
					d, err := samples.RunDetails(cmd.Context(), run.ID)
					if err != nil {
						return err
					}
					doc["details"] = d
				}
				return report.EncodeJSON(out, doc)
			}

			fmt.Fprintf(out, "Run %s  %s  %s\n\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04"), run.Note)
			if err := report.WriteScoreTable(out, scores); err != nil {
				return err
			}
			if !details {
				return nil
			}
			d, err := samples.RunDetails(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			for _, row := range scores {
				fmt.Fprintf(out, "\nDetails for %s\n", row.SampleID)
				if err := report.WriteDetails(out, d[row.SampleID]); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&details, "details", false, "include per-rule details")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}
