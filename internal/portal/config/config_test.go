package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Timezone != "Asia/Karachi" {
		t.Fatalf("timezone = %q", cfg.Timezone)
	}
	if cfg.Redis.Channel != "portal-events" {
		t.Fatalf("channel = %q", cfg.Redis.Channel)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.yaml")
	yaml := `
server:
  port: 9000
database:
  driver: postgres
  dsn: postgres://portal@localhost/portal?sslmode=disable
shift:
  start_hour: 20
  duration_hours: 10
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Fatalf("port = %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("driver = %q", cfg.Database.Driver)
	}
	if cfg.Shift.StartHour != 20 || cfg.Shift.DurationHours != 10 {
		t.Fatalf("shift = %+v", cfg.Shift)
	}
	// Untouched settings keep their defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("host = %q", cfg.Server.Host)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("PORTAL_PORT", "7777")
	t.Setenv("PORTAL_DB_DRIVER", "memory")
	t.Setenv("PORTAL_TIMEZONE", "UTC")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Fatalf("port = %d, want env override", cfg.Server.Port)
	}
	if cfg.Timezone != "UTC" {
		t.Fatalf("timezone = %q", cfg.Timezone)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres"; c.Database.DSN = "" }},
		{"mongo without uri", func(c *Config) { c.Database.Driver = "mongo"; c.Database.MongoURI = "" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"bad port", func(c *Config) { c.Server.Port = -1 }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
		{"bad shift hour", func(c *Config) { c.Shift.StartHour = 25 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected a validation error")
			}
		})
	}
}
