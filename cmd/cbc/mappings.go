package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valadhi/blauwe-parser/internal/cbc"
	"github.com/valadhi/blauwe-parser/internal/report"
	"github.com/valadhi/blauwe-parser/internal/store"
)

func mappingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Inspect and edit parameter mappings",
		Long: `Mappings link extracted parameter labels ("pH (-)") to rule properties
("pH-waarde"). Global mappings apply to every report when their source is
present; manual mappings apply to one report and always win.`,
	}
	cmd.AddCommand(mappingsListCmd(a))
	cmd.AddCommand(mappingsStatusCmd(a))
	cmd.AddCommand(mappingsSetCmd(a))
	cmd.AddCommand(mappingsResetCmd(a))
	cmd.AddCommand(mappingsSeedCmd(a))
	return cmd
}

func mappingsListCmd(a *app) *cobra.Command {
	var reportID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List global mappings, or the manual mappings of a report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := a.sampleStore()
			if err != nil {
				return err
			}
			var mappings []cbc.Mapping
			if reportID == "" {
				mappings, err = samples.GlobalMappings(cmd.Context())
			} else {
				local, lerr := samples.LocalMappings(cmd.Context(), a.user(), reportID)
				mappings, err = store.Mappings(local), lerr
			}
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SOURCE\tPROPERTY")
			for _, m := range mappings {
				fmt.Fprintf(tw, "%s\t%s\n", m.Source, m.Target)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&reportID, "report", "", "list the manual mappings of this report")
	return cmd
}

func mappingsStatusCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status <report> <target>",
		Short: "Show how a report's parameters feed the properties of a target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			st, err := svc.MappingStatus(cmd.Context(), a.user(), args[0], args[1])
			if err != nil {
				return err
			}
			if asJSON {
				return report.EncodeJSON(cmd.OutOrStdout(), st)
			}
			return report.WriteMappingStatus(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func mappingsSetCmd(a *app) *cobra.Command {
	var global bool
	cmd := &cobra.Command{
		Use:   "set <report> <source> <property>",
		Short: "Map an extracted parameter onto a rule property",
		Long: `Map an extracted parameter onto a rule property for one report.
With --global the mapping applies to all reports and takes only
<source> <property>. The property RESET removes a manual mapping.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if global {
				return cobra.ExactArgs(2)(cmd, args)
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if global {
				samples, err := a.sampleStore()
				if err != nil {
					return err
				}
				if err := samples.SetGlobalMapping(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Global mapping saved: %s -> %s\n", args[0], args[1])
				return nil
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			if err := svc.SetMapping(cmd.Context(), a.user(), args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s -> %s (%s)\n", args[1], args[2], args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&global, "global", false, "set a global mapping")
	return cmd
}

func mappingsResetCmd(a *app) *cobra.Command {
	var global bool
	cmd := &cobra.Command{
		Use:   "reset <report> <property>",
		Short: "Drop the manual mappings of a property so global mappings apply",
		Long: `Drop the manual mappings of a property in one report. With --global,
delete the global mapping of <source> instead.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if global {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if global {
				samples, err := a.sampleStore()
				if err != nil {
					return err
				}
				if err := samples.DeleteGlobalMapping(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Global mapping removed: %s\n", args[0])
				return nil
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			n, err := svc.ResetMapping(cmd.Context(), a.user(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d manual mappings for %s (%s)\n", n, args[1], args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&global, "global", false, "delete a global mapping")
	return cmd
}

func mappingsSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Add the built-in lab label mappings to the global mappings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := a.sampleStore()
			if err != nil {
				return err
			}
			n, err := samples.SeedGlobalMappings(cmd.Context(), cbc.DefaultGlobalMappings)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d of %d built-in mappings\n", n, len(cbc.DefaultGlobalMappings))
			return nil
		},
	}
}
