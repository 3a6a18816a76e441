package commands

import (
	"github.com/spf13/cobra"

	"github.com/krzko/proxy-switcheroo/internal/cli"
	"github.com/krzko/proxy-switcheroo/internal/client"
)

var (
	// Global flags
	baseURL string
	apiKey  string
	format  string
	quiet   bool
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "switcheroo",
	Short: "CLI tool for the proxy auto-switch daemon",
	Long: `Switcheroo is a command-line tool for managing the proxy auto-switch daemon.

It provides commands for inspecting the switch state, managing rules and
proxy profiles, testing rules against live network conditions, and
controlling automatic switching.

Examples:
  switcheroo state
  switcheroo rules list --format json
  switcheroo profiles list
  switcheroo evaluate --force
  switcheroo auto off
  switcheroo export --output rules.yaml`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// newClient builds an API client from flags, environment, and config file.
func newClient() (*client.Client, error) {
	cfg, err := cli.Resolve(baseURL, apiKey)
	if err != nil {
		return nil, err
	}
	return client.NewClient(cfg.BaseURL, cfg.APIKey), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the daemon API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Admin API key for write operations")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}
