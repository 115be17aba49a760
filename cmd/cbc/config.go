package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valadhi/blauwe-parser/internal/config"
	"github.com/valadhi/blauwe-parser/internal/report"
)

func configCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration and where each value came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.cfg.WorkerCount(); err != nil {
				return err
			}
			if asJSON {
				return report.EncodeJSON(cmd.OutOrStdout(), a.cfg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n\n", a.cfg.ConfigPath)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
			for _, kv := range []struct {
				key string
				v   config.ResolvedValue
			}{
				{"samples_db", a.cfg.SamplesDB},
				{"rules_db", a.cfg.RulesDB},
				{"user", a.cfg.User},
				{"workers", a.cfg.Workers},
				{"log.level", a.cfg.LogLevel},
				{"log.format", a.cfg.LogFormat},
			} {
				source := string(kv.v.Source)
				if kv.v.From != "" {
					source += " (" + kv.v.From + ")"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", kv.key, kv.v.Value, source)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if len(a.cfg.RequiredColumns) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "\nrequired_columns: %s\n", strings.Join(a.cfg.RequiredColumns, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}
