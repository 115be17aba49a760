package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valadhi/blauwe-parser/internal/cbc"
	"github.com/valadhi/blauwe-parser/internal/report"
	"github.com/valadhi/blauwe-parser/internal/store"
)

func rulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage the rules database (targets, properties, ranges)",
	}
	cmd.AddCommand(rulesImportCmd(a))
	cmd.AddCommand(rulesShowCmd(a))
	return cmd
}

func rulesImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <rules.yaml>",
		Short: "Replace the rules database with the contents of a YAML rule file",
		Long: `Replace the rules database with a YAML rule file:

  properties: [{id: 1, name: pH-waarde}]
  targets:    [{id: 1, name: Akkerbouw}]
  rules:      [{target: 1, property: 1, weight: 1, min: 5, max: 7}]`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := store.LoadRuleFile(args[0])
			if err != nil {
				return err
			}
			rules, err := a.rulesStore()
			if err != nil {
				return err
			}
			if err := rules.ImportRules(cmd.Context(), rs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d targets, %d properties and %d rules\n",
				len(rs.Targets), len(rs.Properties), len(rs.Rules))
			return nil
		},
	}
}

func rulesShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show [target]",
		Short: "Show targets, or the scoring properties of one target",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := a.rulesStore()
			if err != nil {
				return err
			}
			rs, err := rules.LoadRuleSet(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				if asJSON {
					return report.EncodeJSON(out, rs)
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTARGET\tPROPERTIES")
				for _, t := range rs.Targets {
					fmt.Fprintf(tw, "%d\t%s\t%d\n", t.ID, t.Name, len(rs.RequiredRules(t.ID)))
				}
				return tw.Flush()
			}

			t, ok := rs.TargetByName(args[0])
			if !ok {
				return fmt.Errorf("unknown target %q", args[0])
			}
			required := rs.RequiredRules(t.ID)
			if asJSON {
				return report.EncodeJSON(out, required)
			}
			return writeRequiredRules(cmd, t, required)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func writeRequiredRules(cmd *cobra.Command, t cbc.Target, required []cbc.PropertyRule) error {
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d)\n", t.Name, t.ID)
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROPERTY\tWEIGHT\tRANGE")
	for _, pr := range required {
		fmt.Fprintf(tw, "%s\t%g\t%s\n", pr.Property.Name, pr.Rule.Weight, pr.Rule.RangeString())
	}
	return tw.Flush()
}
