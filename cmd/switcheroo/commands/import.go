package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	importDryRun bool
	importForce  bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import rules and profiles from a file",
	Long: `Import rules and proxy profiles from a YAML or JSON file produced by
export. Profiles are imported before rules so that rules never reference a
profile the daemon does not know yet.

Examples:
  switcheroo import backup.yaml
  switcheroo import backup.yaml --dry-run
  switcheroo import backup.yaml --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		var importData ExportFormat
		if err := yaml.Unmarshal(data, &importData); err != nil {
			return fmt.Errorf("failed to parse file: %w", err)
		}
		if len(importData.Rules) == 0 && len(importData.Profiles) == 0 {
			return fmt.Errorf("no rules or profiles found in file")
		}

		if verbose {
			fmt.Printf("Found %d rule(s) and %d profile(s) to import\n",
				len(importData.Rules), len(importData.Profiles))
		}

		if importDryRun {
			fmt.Println("Dry run mode - the following would be imported:")
			for _, p := range importData.Profiles {
				fmt.Printf("  profile %s (%s)\n", p.ID, p.Kind)
			}
			for _, r := range importData.Rules {
				fmt.Printf("  rule %s (enabled: %v, priority: %d, profile: %s)\n",
					r.ID, r.Enabled, r.Priority, r.Then.SetActiveProfile)
			}
			return nil
		}

		c, err := newClient()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		ctx := context.Background()

		successCount := 0
		errorCount := 0
		fail := func(what, id string, err error) error {
			errorCount++
			fmt.Fprintf(os.Stderr, "Failed to import %s '%s': %v\n", what, id, err)
			if !importForce {
				return fmt.Errorf("import failed, use --force to continue on errors")
			}
			return nil
		}

		for _, p := range importData.Profiles {
			if verbose {
				fmt.Printf("Importing profile: %s\n", p.ID)
			}
			if _, err := c.UpsertProfile(ctx, p); err != nil {
				if ferr := fail("profile", p.ID, err); ferr != nil {
					return ferr
				}
				continue
			}
			successCount++
		}
		for _, r := range importData.Rules {
			if verbose {
				fmt.Printf("Importing rule: %s\n", r.ID)
			}
			if _, err := c.UpsertRule(ctx, r); err != nil {
				if ferr := fail("rule", r.ID, err); ferr != nil {
					return ferr
				}
				continue
			}
			successCount++
		}

		if !quiet {
			fmt.Printf("Imported %d item(s), %d error(s)\n", successCount, errorCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate and show what would be imported")
	importCmd.Flags().BoolVar(&importForce, "force", false, "Continue on errors")
}
