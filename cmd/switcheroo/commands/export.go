package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/krzko/proxy-switcheroo/internal/proxy"
	"github.com/krzko/proxy-switcheroo/internal/rules"
)

var exportOutput string

// ExportFormat is the document written by export and read back by import.
type ExportFormat struct {
	Rules    []rules.Rule    `yaml:"rules" json:"rules"`
	Profiles []proxy.Profile `yaml:"profiles" json:"profiles"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export rules and profiles to a file",
	Long: `Export all rules and proxy profiles to a YAML or JSON file.

Examples:
  switcheroo export --output backup.yaml
  switcheroo export --output backup.json --format json
  switcheroo export > backup.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		ctx := context.Background()
		ruleSet, err := c.ListRules(ctx)
		if err != nil {
			return fmt.Errorf("failed to list rules: %w", err)
		}
		profiles, err := c.ListProfiles(ctx)
		if err != nil {
			return fmt.Errorf("failed to list profiles: %w", err)
		}
		exportData := ExportFormat{Rules: ruleSet, Profiles: profiles}

		var output *os.File
		if exportOutput == "" || exportOutput == "-" {
			output = os.Stdout
		} else {
			output, err = os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer output.Close()
		}

		switch format {
		case "json":
			encoder := json.NewEncoder(output)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(exportData); err != nil {
				return fmt.Errorf("failed to encode JSON: %w", err)
			}
		case "yaml", "table":
			// Default to YAML for export
			encoder := yaml.NewEncoder(output)
			defer encoder.Close()
			encoder.SetIndent(2)
			if err := encoder.Encode(exportData); err != nil {
				return fmt.Errorf("failed to encode YAML: %w", err)
			}
		default:
			return fmt.Errorf("unsupported format: %s", format)
		}

		if !quiet && exportOutput != "" && exportOutput != "-" {
			fmt.Printf("Exported %d rule(s) and %d profile(s) to %s\n",
				len(ruleSet), len(profiles), exportOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
}
