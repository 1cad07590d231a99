// Package config loads portal settings from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full portal configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Push      PushConfig      `yaml:"push"`
	Generator GeneratorConfig `yaml:"generator"`
	Shift     ShiftConfig     `yaml:"shift"`
	Logging   LoggingConfig   `yaml:"logging"`
	Timezone  string          `yaml:"timezone"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects and configures the lead store backend.
// Driver is one of "postgres", "mongo" or "memory".
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	MongoURI string `yaml:"mongo_uri"`
	MongoDB  string `yaml:"mongo_db"`
}

// RedisConfig configures the pub/sub event channel. An empty Addr
// disables the Redis sink.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// PushConfig configures phone push notifications. An empty Endpoint
// disables the sink.
type PushConfig struct {
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"`
	PerHour  int    `yaml:"per_hour"`
}

// GeneratorConfig points at the remote confirmation letter service. An
// empty Endpoint means letters render from the local template.
type GeneratorConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// ShiftConfig overrides the default reporting window for every category.
// Zero values keep the built-in defaults.
type ShiftConfig struct {
	StartHour     int `yaml:"start_hour"`
	DurationHours int `yaml:"duration_hours"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:  "memory",
			MongoDB: "leadportal",
		},
		Redis: RedisConfig{
			Channel: "portal-events",
		},
		Push: PushConfig{
			PerHour: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Timezone: "Asia/Karachi",
	}
}

// Load builds the configuration from defaults, an optional YAML file
// (path from PORTAL_CONFIG unless given explicitly), and environment
// overrides, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("PORTAL_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the runtime cannot work with.
func (c Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	case "mongo":
		if c.Database.MongoURI == "" {
			return fmt.Errorf("database.mongo_uri is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if c.Shift.StartHour < 0 || c.Shift.StartHour > 23 {
		return fmt.Errorf("shift.start_hour must be between 0 and 23")
	}
	if c.Shift.DurationHours < 0 || c.Shift.DurationHours > 24 {
		return fmt.Errorf("shift.duration_hours must be between 0 and 24")
	}
	return nil
}

// Location resolves the configured timezone. Validate has already
// checked it parses.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("PORTAL_HOST", &cfg.Server.Host)
	setInt("PORTAL_PORT", &cfg.Server.Port)

	setString("PORTAL_DB_DRIVER", &cfg.Database.Driver)
	setString("PORTAL_DB_DSN", &cfg.Database.DSN)
	setString("PORTAL_MONGO_URI", &cfg.Database.MongoURI)
	setString("PORTAL_MONGO_DB", &cfg.Database.MongoDB)

	setString("PORTAL_REDIS_ADDR", &cfg.Redis.Addr)
	setString("PORTAL_REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("PORTAL_REDIS_DB", &cfg.Redis.DB)
	setString("PORTAL_REDIS_CHANNEL", &cfg.Redis.Channel)

	setString("PORTAL_PUSH_ENDPOINT", &cfg.Push.Endpoint)
	setString("PORTAL_PUSH_TOKEN", &cfg.Push.Token)
	setInt("PORTAL_PUSH_PER_HOUR", &cfg.Push.PerHour)

	setString("PORTAL_GENERATOR_ENDPOINT", &cfg.Generator.Endpoint)
	setString("PORTAL_GENERATOR_API_KEY", &cfg.Generator.APIKey)

	setInt("PORTAL_SHIFT_START_HOUR", &cfg.Shift.StartHour)
	setInt("PORTAL_SHIFT_DURATION_HOURS", &cfg.Shift.DurationHours)

	setString("PORTAL_LOG_LEVEL", &cfg.Logging.Level)
	setString("PORTAL_LOG_FORMAT", &cfg.Logging.Format)
	setString("PORTAL_LOG_OUTPUT", &cfg.Logging.Output)

	setString("PORTAL_TIMEZONE", &cfg.Timezone)
}
