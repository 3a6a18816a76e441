// Package cli holds shared plumbing for the switcheroo command line tool:
// connection configuration and output formatting.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration
type Config struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".switcheroo", "config.yaml"), nil
}

// LoadConfig loads the configuration from file. A missing file yields the
// local-daemon default rather than an error.
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{BaseURL: "http://localhost:8080"}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// SaveConfig saves the configuration to file
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Resolve determines the effective connection settings.
// Priority: command flags > environment variables > config file > defaults.
func Resolve(baseURLFlag, apiKeyFlag string) (*Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if v := os.Getenv("SWITCHEROO_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("SWITCHEROO_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if baseURLFlag != "" {
		cfg.BaseURL = baseURLFlag
	}
	if apiKeyFlag != "" {
		cfg.APIKey = apiKeyFlag
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base_url must be configured (flag, SWITCHEROO_BASE_URL, or %s)", "~/.switcheroo/config.yaml")
	}
	return cfg, nil
}
