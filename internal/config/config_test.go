package config

import (
	"errors"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		AppEnv:              "dev",
		HTTPAddr:            ":8080",
		MetricsAddr:         ":9090",
		StoreType:           "memory",
		AdminAPIKey:         "admin-123",
		LogLevel:            "info",
		EvalInterval:        5 * time.Minute,
		CacheTTL:            time.Minute,
		SweepInterval:       5 * time.Minute,
		ReachabilityTimeout: 10 * time.Second,
		DNSTimeout:          5 * time.Second,
		IPInfoTimeout:       15 * time.Second,
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoreType != "memory" {
		t.Errorf("StoreType = %q, want memory", cfg.StoreType)
	}
	if cfg.CacheTTL != time.Minute {
		t.Errorf("CacheTTL = %v, want 1m", cfg.CacheTTL)
	}
	if cfg.EvalInterval != 5*time.Minute {
		t.Errorf("EvalInterval = %v, want 5m", cfg.EvalInterval)
	}
	if cfg.ReachabilityTimeout != 10*time.Second {
		t.Errorf("ReachabilityTimeout = %v, want 10s", cfg.ReachabilityTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad store type", func(c *Config) { c.StoreType = "redis" }, "STORE_TYPE"},
		{"postgres without dsn", func(c *Config) { c.StoreType = "postgres"; c.DatabaseDSN = "" }, "DB_DSN"},
		{"empty http addr", func(c *Config) { c.HTTPAddr = "" }, "APP_HTTP_ADDR"},
		{"empty metrics addr", func(c *Config) { c.MetricsAddr = "" }, "METRICS_ADDR"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "LOG_LEVEL"},
		{"zero cache ttl", func(c *Config) { c.CacheTTL = 0 }, "CACHE_TTL"},
		{"negative eval interval", func(c *Config) { c.EvalInterval = -time.Second }, "EVAL_INTERVAL"},
		{"default admin key in prod", func(c *Config) { c.AppEnv = "prod" }, "ADMIN_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}
