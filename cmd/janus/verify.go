package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"mercator-hq/janus/pkg/audit"
	"mercator-hq/janus/pkg/cli"
	"mercator-hq/janus/pkg/config"
)

var verifyFlags struct {
	tenant string
	format string
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a tenant's audit chain",
	Long: `Verify the hash chain of a tenant's audit ledger.

The verify command walks every record in sequence order and checks that
each record's hash matches its canonical content and that each record
links to its predecessor. The first break, if any, is reported with its
sequence number.

Examples:
  # Verify a tenant's chain
  janus verify --tenant acme

  # JSON output for CI/CD
  janus verify --tenant acme --format json`,
	RunE: verifyChain,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVarP(&verifyFlags.tenant, "tenant", "t", "", "tenant whose chain to verify (required)")
	verifyCmd.Flags().StringVar(&verifyFlags.format, "format", "text", "output format: text, json")
	verifyCmd.MarkFlagRequired("tenant")
}

func verifyChain(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	backend, err := openAuditStorage(cfg)
	if err != nil {
		return cli.NewCommandError("verify", err)
	}
	defer backend.Close()

	ctx := cli.SetupSignalHandler()
	result, err := audit.NewChain(backend).Verify(ctx, verifyFlags.tenant)
	if err != nil {
		return cli.NewCommandError("verify", err)
	}

	if verifyFlags.format == "json" {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, result); err != nil {
			return cli.NewCommandError("verify", err)
		}
	} else {
		fmt.Printf("Verifying audit chain for tenant %q...\n", verifyFlags.tenant)
		fmt.Printf("  %d record(s) walked\n", result.Records)
		if result.Valid {
			fmt.Println("✓ Chain intact")
		} else {
			fmt.Printf("✗ Chain broken at sequence %d: %s\n", *result.BreakAt, result.Reason)
		}
	}

	if !result.Valid {
		return cli.NewCommandError("verify", fmt.Errorf("chain verification failed"))
	}
	return nil
}
