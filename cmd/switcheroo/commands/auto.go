package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var autoCmd = &cobra.Command{
	Use:   "auto on|off",
	Short: "Enable or disable automatic switching",
	Long: `Enable or disable automatic switching.

Disabling aborts any probes currently in flight, so no half-finished
evaluation pass can still change the active profile.

Examples:
  switcheroo auto on
  switcheroo auto off`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var enabled bool
		switch args[0] {
		case "on":
			enabled = true
		case "off":
			enabled = false
		default:
			return fmt.Errorf("argument must be 'on' or 'off', got %q", args[0])
		}

		c, err := newClient()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		state, err := c.SetAutoMode(context.Background(), enabled)
		if err != nil {
			return fmt.Errorf("failed to set autoMode: %w", err)
		}
		if !quiet {
			fmt.Printf("autoMode: %v\n", state.AutoMode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(autoCmd)
}
