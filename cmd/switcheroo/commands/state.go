package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krzko/proxy-switcheroo/internal/cli"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the current switch state",
	Long: `Show the daemon's switch state: autoMode, active profile, last rule
matched, last status, and when the last evaluation pass ran.

Examples:
  switcheroo state
  switcheroo state --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		state, err := c.GetState(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get state: %w", err)
		}
		if quiet {
			return nil
		}
		return cli.PrintState(state, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
}
