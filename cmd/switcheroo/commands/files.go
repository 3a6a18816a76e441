package commands

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/krzko/proxy-switcheroo/internal/rules"
)

// readRuleFile loads a single rule document from a YAML or JSON file.
// YAML is a superset of JSON, so one parser covers both.
func readRuleFile(path string) (*rules.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var r rules.Rule
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse rule: %w", err)
	}
	return &r, nil
}
