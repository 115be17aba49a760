// Command cbc scores soil lab reports against suitability rules.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "cbc",
		Short: "Soil suitability scoring for lab reports",
		Long: `cbc scores soil samples from lab reports against a rules database of
target uses (Akkerbouw, Dijkbouw, ...).

Extracted lab results are imported per report, mapped onto the rule
properties through global and per-report mappings, and evaluated into
suitability scores, pass/fail matrices and rule details.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.opts.ConfigPath, "config", "", "config file (default ~/.cbc/config.yaml)")
	flags.StringVar(&a.opts.CLISamplesDB, "samples-db", "", "samples database path")
	flags.StringVar(&a.opts.CLIRulesDB, "rules-db", "", "rules database path")
	flags.StringVar(&a.opts.CLIUser, "user", "", "user id owning the imported reports")
	flags.StringVar(&a.opts.CLILogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.opts.CLIWorkers, "workers", "", "concurrent sample evaluations")

	rootCmd.AddCommand(importCmd(a))
	rootCmd.AddCommand(samplesCmd(a))
	rootCmd.AddCommand(evaluateCmd(a))
	rootCmd.AddCommand(mappingsCmd(a))
	rootCmd.AddCommand(rulesCmd(a))
	rootCmd.AddCommand(runsCmd(a))
	rootCmd.AddCommand(mcpCmd(a))
	rootCmd.AddCommand(configCmd(a))
	rootCmd.AddCommand(statsCmd(a))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// Skips the root pre-run: printing the version needs no config.
		PersistentPreRunE:  func(cmd *cobra.Command, args []string) error { return nil },
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cbc %s\n", version)
		},
	}
}
