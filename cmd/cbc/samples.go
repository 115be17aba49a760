package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valadhi/blauwe-parser/internal/report"
)

func samplesCmd(a *app) *cobra.Command {
	var reportID string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "samples",
		Short: "List imported reports and samples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := a.sampleStore()
			if err != nil {
				return err
			}
			refs, err := samples.ListSamples(cmd.Context(), a.user(), reportID)
			if err != nil {
				return err
			}
			if asJSON {
				return report.EncodeJSON(cmd.OutOrStdout(), refs)
			}
			if len(refs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No samples imported.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "REPORT\tSAMPLE\tPARAMETERS")
			for _, r := range refs {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", r.ReportID, r.SampleID, r.Parameters)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&reportID, "report", "", "only list samples of this report")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")

	cmd.AddCommand(reportsCmd(a))
	cmd.AddCommand(parametersCmd(a))
	cmd.AddCommand(deleteReportCmd(a))
	return cmd
}

func reportsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "Summarize imported reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := a.sampleStore()
			if err != nil {
				return err
			}
			reports, err := samples.ListReports(cmd.Context(), a.user())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "REPORT\tSAMPLES\tROWS\tIMPORTED\tSOURCE")
			for _, r := range reports {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n",
					r.ReportID, r.Samples, r.Rows, r.ImportedAt.Format("2006-01-02 15:04"), r.SourceFile)
			}
			return tw.Flush()
		},
	}
}

func parametersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parameters <report>",
		Short: "List the extracted parameters of a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := a.sampleStore()
			if err != nil {
				return err
			}
			params, err := samples.AvailableParameters(cmd.Context(), a.user(), args[0])
			if err != nil {
				return err
			}
			for _, p := range params {
				fmt.Fprintln(cmd.OutOrStdout(), p.Label())
			}
			return nil
		},
	}
}

func deleteReportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <report>",
		Short: "Delete a report with its samples and manual mappings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := a.sampleStore()
			if err != nil {
				return err
			}
			n, err := samples.DeleteReport(cmd.Context(), a.user(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d rows of report %s\n", n, args[0])
			return nil
		},
	}
}
