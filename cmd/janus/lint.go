package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"mercator-hq/janus/pkg/cli"
	"mercator-hq/janus/pkg/rules"
)

var lintFlags struct {
	file   string
	dir    string
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate rule documents",
	Long: `Validate tiered rule documents for syntax and semantic errors.

The lint command parses rule documents and performs full validation:
  - YAML syntax validation
  - Rule structure validation (ids, tiers, priorities)
  - Condition validation (operators, value types)
  - Department priority ceiling enforcement

Examples:
  # Lint single file
  janus lint --file rules.yaml

  # Lint directory
  janus lint --dir rules/

  # JSON output for CI/CD
  janus lint --file rules.yaml --format json`,
	RunE: lintRules,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "rule document to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of rule documents")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

// LintResult is the validation outcome for a single rule document.
type LintResult struct {
	File    string `json:"file"`
	Valid   bool   `json:"valid"`
	Version string `json:"version,omitempty"`
	Rules   int    `json:"rules"`
	RuleID  string `json:"rule_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

func lintRules(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	var files []string
	if lintFlags.file != "" {
		files = append(files, lintFlags.file)
	}
	if lintFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(lintFlags.dir, pattern))
			if err != nil {
				return fmt.Errorf("failed to list rule documents: %w", err)
			}
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no rule documents found")
	}

	results := make([]LintResult, 0, len(files))
	for _, file := range files {
		results = append(results, lintDocument(file))
	}

	if lintFlags.format == "json" {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, results); err != nil {
			return err
		}
	} else {
		printLintResults(results)
	}

	for _, result := range results {
		if !result.Valid {
			return cli.NewCommandError("lint", fmt.Errorf("validation failed"))
		}
	}
	return nil
}

func lintDocument(path string) LintResult {
	result := LintResult{File: path}

	snapshot, err := rules.NewFileSource(path).LoadSnapshot()
	if err != nil {
		result.Error = err.Error()

		var verr *rules.ValidationError
		if errors.As(err, &verr) {
			result.RuleID = verr.RuleID
			result.Error = verr.Reason
		}
		return result
	}

	result.Valid = true
	result.Version = snapshot.Version
	result.Rules = snapshot.Len()
	return result
}

func printLintResults(results []LintResult) {
	failed := 0
	for _, result := range results {
		fmt.Printf("Validating %s...\n", result.File)
		if result.Valid {
			fmt.Printf("✓ %d rule(s) valid (version %s)\n", result.Rules, result.Version)
		} else {
			if result.RuleID != "" {
				fmt.Printf("✗ Error in rule %q: %s\n", result.RuleID, result.Error)
			} else {
				fmt.Printf("✗ Error: %s\n", result.Error)
			}
			failed++
		}
		fmt.Println()
	}

	fmt.Println("Summary:")
	fmt.Printf("  %d document(s) checked, %d failed\n", len(results), failed)
}
