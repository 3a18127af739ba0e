package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guardhr.yaml")
	if err := os.WriteFile(path, []byte("auth:\n  jwt_secret: test-secret\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Fatalf("expected sqlite driver, got %s", cfg.Database.Driver)
	}
	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Fatalf("expected 12h token ttl, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.HTTP.LoginAttempts != 10 || cfg.HTTP.LoginWindow != time.Minute {
		t.Fatalf("expected 10 login attempts per minute, got %d per %v", cfg.HTTP.LoginAttempts, cfg.HTTP.LoginWindow)
	}
	if cfg.Auth.JWTSecret != "test-secret" {
		t.Fatalf("expected secret from file, got %q", cfg.Auth.JWTSecret)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guardhr.yaml")
	if err := os.WriteFile(path, []byte("payroll:\n  currency: XAF\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GUARDHR_PAYROLL_CURRENCY", "XOF")
	t.Setenv("GUARDHR_PAYROLL_STRICT_TAX_TABLES", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Payroll.Currency != "XOF" {
		t.Fatalf("expected env currency XOF, got %s", cfg.Payroll.Currency)
	}
	if !cfg.Payroll.StrictTaxTables {
		t.Fatal("expected strict tax tables from env")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		App:      AppConfig{Addr: ":8080", Environment: "development"},
		Database: DatabaseConfig{Driver: DriverSQLite, Path: "data/test.db"},
		Auth:     AuthConfig{JWTSecret: "secret", TokenTTL: time.Hour},
		Payroll:  PayrollConfig{Currency: "XAF"},
		HTTP:     HTTPConfig{MaxBodyBytes: 4096},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"postgres without url", func(c *Config) { c.Database.Driver = DriverPostgres }},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"short production secret", func(c *Config) { c.App.Environment = "production" }},
		{"tiny body limit", func(c *Config) { c.HTTP.MaxBodyBytes = 10 }},
		{"missing currency", func(c *Config) { c.Payroll.Currency = " " }},
		{"negative login attempts", func(c *Config) { c.HTTP.LoginAttempts = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
