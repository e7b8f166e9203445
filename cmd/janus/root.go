package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "janus",
	Short: "Janus - governance decision engine for agent actions",
	Long: `Janus is an open-source governance runtime that decides what an agent
may do, how much human oversight the action needs, and keeps a
tamper-evident record of every decision.

It provides:
  - Tiered policy evaluation (constitutional, organization, department)
  - Human-in-the-loop approvals with SLA-driven escalation
  - Hash-chained per-tenant audit ledgers
  - Reproducible decision traces

For more information, visit: https://github.com/mercator-hq/janus`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
