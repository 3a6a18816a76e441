package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/krzko/proxy-switcheroo/internal/proxy"
	"github.com/krzko/proxy-switcheroo/internal/rules"
	"github.com/krzko/proxy-switcheroo/internal/store"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// PrintRules outputs rules in the specified format
func PrintRules(ruleSet []rules.Rule, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(ruleSet)
	case FormatYAML:
		return printYAML(ruleSet)
	case FormatTable:
		return printRuleTable(ruleSet)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintProfiles outputs proxy profiles in the specified format
func PrintProfiles(profiles []proxy.Profile, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(profiles)
	case FormatYAML:
		return printYAML(profiles)
	case FormatTable:
		return printProfileTable(profiles)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintState outputs the switch state in the specified format
func PrintState(state *store.State, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(state)
	case FormatYAML:
		return printYAML(state)
	case FormatTable:
		return printStateTable(state)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintJSON writes any value as indented JSON, for responses without a
// tabular shape (test results, pass outcomes).
func PrintJSON(data any) error {
	return printJSON(data)
}

func printJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(data any) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printRuleTable(ruleSet []rules.Rule) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Enabled", "Priority", "Triggers", "Profile")

	for _, r := range ruleSet {
		kinds := make([]string, 0, 6)
		for _, t := range r.When.Triggers() {
			kinds = append(kinds, string(t.Kind()))
		}
		table.Append(
			r.ID,
			truncate(r.Name, 30),
			strconv.FormatBool(r.Enabled),
			strconv.Itoa(r.Priority),
			strings.Join(kinds, ","),
			r.Then.SetActiveProfile,
		)
	}
	return table.Render()
}

func printProfileTable(profiles []proxy.Profile) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Kind", "Endpoint")

	for _, p := range profiles {
		endpoint := ""
		switch p.Kind {
		case proxy.KindManual:
			endpoint = fmt.Sprintf("%s://%s:%d", p.Scheme, p.Host, p.Port)
		case proxy.KindPAC:
			endpoint = p.PACURL
		}
		table.Append(p.ID, truncate(p.Name, 30), string(p.Kind), endpoint)
	}
	return table.Render()
}

func printStateTable(state *store.State) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")

	lastCheck := ""
	if state.LastCheckTime != nil {
		lastCheck = state.LastCheckTime.Format("2006-01-02 15:04:05 MST")
	}
	rows := [][]string{
		{"autoMode", strconv.FormatBool(state.AutoMode)},
		{"activeProfileId", state.ActiveProfileID},
		{"lastRuleMatched", state.LastRuleMatched},
		{"lastStatus", state.LastStatus},
		{"lastCheckTime", lastCheck},
	}
	for _, row := range rows {
		table.Append(row[0], row[1])
	}
	return table.Render()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
