package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valadhi/blauwe-parser/internal/ingest"
)

func importCmd(a *app) *cobra.Command {
	var opts ingest.ImportOptions
	cmd := &cobra.Command{
		Use:   "import <path>...",
		Short: "Import extraction result files (CSV, TSV, JSON, YAML)",
		Long: `Import extraction result files into the samples database.

Long-form files carry the columns sample_id, parameter, unit and value
(case-insensitive, unit optional). CSV files with a SampleID column are
read as wide tables with one sample per row. Each file becomes one report,
named after the file unless --report is given. Re-importing a report
replaces values with the same sample, parameter and unit.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := a.sampleStore()
			if err != nil {
				return err
			}
			engine := ingest.NewEngine(samples, a.logger)
			opts.UserID = a.user()
			out := cmd.OutOrStdout()

			total := &ingest.ImportResult{}
			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Importing %s...\n", path)
				var res *ingest.ImportResult
				if info.IsDir() {
					opts.ProgressFn = func(current, total int, file string) {
						fmt.Fprintf(out, "  [%d/%d] %s\n", current, total, file)
					}
					res, err = engine.ImportDir(cmd.Context(), path, opts)
				} else {
					res, err = engine.ImportFile(cmd.Context(), path, opts)
				}
				if err != nil {
					return err
				}
				total.Add(res)
			}

			verb := "Imported"
			if opts.DryRun {
				verb = "Would import"
			}
			fmt.Fprintf(out, "%s %d rows for %d samples from %d files (%d skipped)\n",
				verb, total.RowsImported, total.Samples, total.FilesImported, total.FilesSkipped)
			for _, e := range total.Errors {
				fmt.Fprintf(out, "  error: %s: %s\n", e.File, e.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.ReportID, "report", "", "report id (default: file name without extension)")
	cmd.Flags().BoolVarP(&opts.Recursive, "recursive", "r", false, "descend into subdirectories")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "parse and validate without writing")
	return cmd
}
