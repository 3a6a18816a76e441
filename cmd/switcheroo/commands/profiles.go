package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/krzko/proxy-switcheroo/internal/cli"
	"github.com/krzko/proxy-switcheroo/internal/proxy"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage proxy profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all proxy profiles",
	Long: `List all proxy profiles known to the daemon.

Examples:
  switcheroo profiles list
  switcheroo profiles list --format yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		profiles, err := c.ListProfiles(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list profiles: %w", err)
		}
		if quiet {
			return nil
		}
		if len(profiles) == 0 {
			fmt.Println("No profiles found")
			return nil
		}
		return cli.PrintProfiles(profiles, cli.OutputFormat(format))
	},
}

var profilesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a single profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		p, err := c.GetProfile(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get profile: %w", err)
		}
		if quiet {
			return nil
		}
		return cli.PrintProfiles([]proxy.Profile{*p}, cli.OutputFormat(format))
	},
}

var profilesApplyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Create or update a profile from a YAML or JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		var p proxy.Profile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("failed to parse profile: %w", err)
		}

		c, err := newClient()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		stored, err := c.UpsertProfile(context.Background(), p)
		if err != nil {
			return fmt.Errorf("failed to store profile: %w", err)
		}
		if !quiet {
			fmt.Printf("Profile %s stored\n", stored.ID)
		}
		return nil
	},
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if err := c.DeleteProfile(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete profile: %w", err)
		}
		if !quiet {
			fmt.Printf("Profile %s deleted\n", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.AddCommand(profilesListCmd, profilesGetCmd, profilesApplyCmd, profilesDeleteCmd)
}
