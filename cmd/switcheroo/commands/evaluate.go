package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krzko/proxy-switcheroo/internal/cli"
)

var (
	evaluateForce       bool
	evaluateBypassCache bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run one evaluation pass now",
	Long: `Trigger a full evaluation pass on the daemon and print its outcome.

Examples:
  switcheroo evaluate
  switcheroo evaluate --force
  switcheroo evaluate --bypass-cache --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		res, err := c.Evaluate(context.Background(), evaluateForce, evaluateBypassCache)
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}
		if quiet {
			return nil
		}
		if cli.OutputFormat(format) == cli.FormatTable {
			fmt.Printf("Status: %s\n", res.Status)
			if res.Evaluation.Matched {
				fmt.Printf("Matched rule: %s\n", res.Evaluation.Rule.ID)
				fmt.Printf("Profile: %s\n", res.Evaluation.ProfileID)
			}
			if res.Error != "" {
				fmt.Printf("Error: %s\n", res.Error)
			}
			return nil
		}
		return cli.PrintJSON(res)
	},
}

var testCmd = &cobra.Command{
	Use:   "test <file>",
	Short: "Test a rule without persisting it",
	Long: `Evaluate a rule from a file against live network conditions. The rule
is never stored and cached probe results are never used.

Examples:
  switcheroo test rule.yaml
  switcheroo test rule.yaml --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := readRuleFile(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		res, err := c.TestRule(context.Background(), *r)
		if err != nil {
			return fmt.Errorf("rule test failed: %w", err)
		}
		if quiet {
			return nil
		}
		if cli.OutputFormat(format) == cli.FormatTable {
			fmt.Printf("Success: %v\n", res.Success)
			for key, pr := range res.Results {
				line := "ok"
				if !pr.Success {
					line = "failed"
					if pr.Error != "" {
						line += ": " + pr.Error
					}
				}
				fmt.Printf("  %s: %s\n", key, line)
			}
			if res.Error != "" {
				fmt.Printf("Error: %s\n", res.Error)
			}
			return nil
		}
		return cli.PrintJSON(res)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd, testCmd)

	evaluateCmd.Flags().BoolVar(&evaluateForce, "force", false, "Run even when autoMode is disabled")
	evaluateCmd.Flags().BoolVar(&evaluateBypassCache, "bypass-cache", false, "Ignore cached probe results")
}
