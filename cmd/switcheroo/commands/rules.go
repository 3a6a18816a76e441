package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krzko/proxy-switcheroo/internal/cli"
	"github.com/krzko/proxy-switcheroo/internal/rules"
)

var rulesEnabledOnly bool

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage switch rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rules",
	Long: `List all switch rules known to the daemon.

Examples:
  switcheroo rules list
  switcheroo rules list --format json
  switcheroo rules list --enabled-only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		ruleSet, err := c.ListRules(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list rules: %w", err)
		}

		if rulesEnabledOnly {
			enabled := ruleSet[:0]
			for _, r := range ruleSet {
				if r.Enabled {
					enabled = append(enabled, r)
				}
			}
			ruleSet = enabled
		}

		if quiet {
			return nil
		}
		if len(ruleSet) == 0 {
			fmt.Println("No rules found")
			return nil
		}
		return cli.PrintRules(ruleSet, cli.OutputFormat(format))
	},
}

var rulesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a single rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		r, err := c.GetRule(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get rule: %w", err)
		}
		if quiet {
			return nil
		}
		return cli.PrintRules([]rules.Rule{*r}, cli.OutputFormat(format))
	},
}

var rulesApplyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Create or update a rule from a YAML or JSON file",
	Long: `Create or update a rule from a file.

The file holds one rule document, e.g.:

  id: office
  name: Office network
  enabled: true
  priority: 10
  when:
    dnsResolve:
      hostname: intranet.corp.example
      expectIPCIDR: ["10.0.0.0/8"]
  then:
    setActiveProfile: corp-proxy`,
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
		stored, err := c.UpsertRule(context.Background(), *r)
		if err != nil {
			return fmt.Errorf("failed to store rule: %w", err)
		}
		if !quiet {
			fmt.Printf("Rule %s stored\n", stored.ID)
		}
		return nil
	},
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if err := c.DeleteRule(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete rule: %w", err)
		}
		if !quiet {
			fmt.Printf("Rule %s deleted\n", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd, rulesGetCmd, rulesApplyCmd, rulesDeleteCmd)

	rulesListCmd.Flags().BoolVar(&rulesEnabledOnly, "enabled-only", false, "Show only enabled rules")
}
