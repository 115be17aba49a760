package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statsCmd(a *app) *cobra.Command {
	var vacuum bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show samples database statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := a.sampleStore()
			if err != nil {
				return err
			}
			if vacuum {
				if err := samples.Vacuum(cmd.Context()); err != nil {
					return fmt.Errorf("vacuum: %w", err)
				}
			}
			st, err := samples.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database:        %s\n", a.cfg.SamplesDB.Value)
			fmt.Fprintf(out, "Reports:         %d\n", st.Reports)
			fmt.Fprintf(out, "Samples:         %d\n", st.Samples)
			fmt.Fprintf(out, "Rows:            %d\n", st.Rows)
			fmt.Fprintf(out, "Global mappings: %d\n", st.GlobalMappings)
			fmt.Fprintf(out, "Local mappings:  %d\n", st.LocalMappings)
			fmt.Fprintf(out, "Runs:            %d\n", st.Runs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&vacuum, "vacuum", false, "compact the database first")
	return cmd
}
