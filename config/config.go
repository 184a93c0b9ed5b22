// Package config loads the ledger server configuration.
//
// Values come from three layers, later ones winning:
//
//  1. Default()
//  2. an optional YAML file (--config)
//  3. environment variables, with .env support
//
// Environment variables:
//
//	PORT                          HTTP port
//	KOSLEDGER_DB                  SQLite path, ":memory:" for in-memory
//	KOSLEDGER_CORS_ORIGINS        comma-separated allowed origins
//	KOSLEDGER_HOOK_SECRET         shared secret for /api/hooks
//	KOSLEDGER_TIMEZONE            IANA zone for date windows and buckets
//	KOSLEDGER_BREAKDOWN_LIMIT     rows per list in the withdraw breakdown
//	KOSLEDGER_SCHEDULER_ENABLED   "true" to run periodic reconciliation
//	KOSLEDGER_SCHEDULER_INTERVAL  Go duration, e.g. "30m"
//	KOSLEDGER_DEV_MODE            "true" to expose demo scenarios
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone names must resolve on minimal images

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	DevMode   bool            `yaml:"dev_mode"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	HookSecret     string   `yaml:"hook_secret"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LedgerConfig struct {
	Timezone       string `yaml:"timezone"`
	BreakdownLimit int    `yaml:"breakdown_limit"`
}

// SchedulerConfig controls periodic batch reconciliation.
type SchedulerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Default returns a Config that runs a local development server.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Database: DatabaseConfig{Path: "kosledger.db"},
		Ledger: LedgerConfig{
			Timezone:       "Asia/Jakarta",
			BreakdownLimit: 10,
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Interval: time.Hour,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// not empty) and the environment. envFile names a .env file to load; when
// empty, ./.env is loaded if present.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := lookup("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("KOSLEDGER_DB"); ok {
		c.Database.Path = v
	}
	if v, ok := lookup("KOSLEDGER_CORS_ORIGINS"); ok {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("KOSLEDGER_HOOK_SECRET"); ok {
		c.Server.HookSecret = v
	}
	if v, ok := lookup("KOSLEDGER_TIMEZONE"); ok {
		c.Ledger.Timezone = v
	}
	if v, ok := lookup("KOSLEDGER_BREAKDOWN_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid KOSLEDGER_BREAKDOWN_LIMIT: %w", err)
		}
		c.Ledger.BreakdownLimit = n
	}
	if v, ok := lookup("KOSLEDGER_SCHEDULER_ENABLED"); ok {
		c.Scheduler.Enabled = v == "true" || v == "1"
	}
	if v, ok := lookup("KOSLEDGER_SCHEDULER_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid KOSLEDGER_SCHEDULER_INTERVAL: %w", err)
		}
		c.Scheduler.Interval = d
	}
	if v, ok := lookup("KOSLEDGER_DEV_MODE"); ok {
		c.DevMode = v == "true" || v == "1"
	}
	return nil
}

// Validate checks that the configuration can start a server.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if _, err := time.LoadLocation(c.Ledger.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("ledger.timezone: %w", err))
	}
	if c.Ledger.BreakdownLimit <= 0 {
		errs = append(errs, fmt.Errorf("ledger.breakdown_limit must be positive, got %d", c.Ledger.BreakdownLimit))
	}
	if c.Scheduler.Interval <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.interval must be positive, got %s", c.Scheduler.Interval))
	}
	return errors.Join(errs...)
}

// Location returns the reporting timezone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
