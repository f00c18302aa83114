/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package config loads the monitor configuration from a YAML file, applies
// defaults and environment overrides, and validates the result.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/friendsincode/muninn/internal/models"
)

// DatabaseBackend selection for the history store.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// DefaultConfigLocations are searched in order when no explicit path is given.
func DefaultConfigLocations() []string {
	home, _ := os.UserHomeDir()
	return []string{
		"muninn.yaml",
		"muninn.yml",
		filepath.Join(home, ".muninn", "muninn.yaml"),
		"/etc/muninn/muninn.yaml",
	}
}

// Config covers process level configuration.
type Config struct {
	Environment string            `yaml:"environment"`
	Locations   []models.Location `yaml:"backup_locations"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
	Email       EmailConfig       `yaml:"email"`
	Reports     ReportsConfig     `yaml:"reports"`
	History     HistoryConfig     `yaml:"history"`
	Server      ServerConfig      `yaml:"server"`
	Tracing     TracingConfig     `yaml:"tracing"`
}

// MonitoringConfig bounds the scans.
type MonitoringConfig struct {
	MaxDepth        int `yaml:"max_depth"`
	DaysBack        int `yaml:"days_back"`
	MaxDirs         int `yaml:"max_dirs"`
	FileSizeLimitMB int `yaml:"file_size_limit_mb"` // reserved
	TimeoutSeconds  int `yaml:"timeout_seconds"`
	Concurrency     int `yaml:"concurrency"`
}

// Timeout returns the per-location scan deadline.
func (m MonitoringConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// EmailConfig configures SMTP report delivery.
type EmailConfig struct {
	Enabled       bool     `yaml:"enabled"`
	SMTPHost      string   `yaml:"smtp_host"`
	SMTPPort      int      `yaml:"smtp_port"`
	SMTPUsername  string   `yaml:"smtp_username"`
	SMTPPassword  string   `yaml:"smtp_password"`
	FromAddress   string   `yaml:"from_address"`
	FromName      string   `yaml:"from_name"`
	ToAddresses   []string `yaml:"to_addresses"`
	SubjectPrefix string   `yaml:"subject_prefix"`
}

// ReportsConfig controls report rendering and local saving.
type ReportsConfig struct {
	Format         string `yaml:"format"` // text, html, both
	SaveLocal      *bool  `yaml:"save_local"`
	LocalDirectory string `yaml:"local_directory"`
	RetentionDays  int    `yaml:"retention_days"`
}

// SaveLocalReports reports whether rendered reports should be written to
// the local report directory. Defaults to true when unset.
func (r ReportsConfig) SaveLocalReports() bool {
	return r.SaveLocal == nil || *r.SaveLocal
}

// HistoryConfig configures the scan history store.
type HistoryConfig struct {
	Enabled       bool            `yaml:"enabled"`
	Backend       DatabaseBackend `yaml:"backend"`
	DSN           string          `yaml:"dsn"`
	RetentionDays int             `yaml:"retention_days"`
}

// ServerConfig configures the status HTTP server.
type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
	// ScanIntervalMinutes is the daemon rescan cadence. Set negative
	// to disable periodic scans; scans can still be triggered over
	// the API.
	ScanIntervalMinutes int `yaml:"scan_interval_minutes"`
}

// ScanInterval returns the periodic rescan cadence.
func (s ServerConfig) ScanInterval() time.Duration {
	return time.Duration(s.ScanIntervalMinutes) * time.Minute
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Bind, s.Port)
}

// TracingConfig configures OTLP tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// Load reads the configuration file at path (or the first default location
// when path is empty), applies defaults and environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	file, err := findConfigFile(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", file, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file %s: %w", file, err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file not found: %s", path)
		}
		return path, nil
	}

	locations := DefaultConfigLocations()
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc, nil
		}
	}
	return "", fmt.Errorf("configuration file not found in any of: %s", strings.Join(locations, ", "))
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "production"
	}

	if c.Monitoring.MaxDepth == 0 {
		c.Monitoring.MaxDepth = 3
	}
	if c.Monitoring.DaysBack == 0 {
		c.Monitoring.DaysBack = 7
	}
	if c.Monitoring.MaxDirs == 0 {
		c.Monitoring.MaxDirs = 200
	}
	if c.Monitoring.FileSizeLimitMB == 0 {
		c.Monitoring.FileSizeLimitMB = 100
	}
	if c.Monitoring.TimeoutSeconds == 0 {
		c.Monitoring.TimeoutSeconds = 300
	}
	if c.Monitoring.Concurrency == 0 {
		c.Monitoring.Concurrency = 4
	}

	for i := range c.Locations {
		if c.Locations[i].Kind == "" {
			c.Locations[i].Kind = models.LocationLocal
		}
	}

	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Email.FromName == "" {
		c.Email.FromName = "Muninn Backup Monitor"
	}
	if c.Email.SubjectPrefix == "" {
		c.Email.SubjectPrefix = "Backup Monitor Report"
	}

	if c.Reports.Format == "" {
		c.Reports.Format = "both"
	}
	if c.Reports.LocalDirectory == "" {
		c.Reports.LocalDirectory = "./reports"
	}
	if c.Reports.RetentionDays == 0 {
		c.Reports.RetentionDays = 30
	}

	if c.History.Backend == "" {
		c.History.Backend = DatabaseSQLite
	}
	if c.History.DSN == "" {
		c.History.DSN = "./muninn.db"
	}
	if c.History.RetentionDays == 0 {
		c.History.RetentionDays = 90
	}

	if c.Server.Bind == "" {
		c.Server.Bind = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ScanIntervalMinutes == 0 {
		c.Server.ScanIntervalMinutes = 60
	}

	if c.Tracing.OTLPEndpoint == "" {
		c.Tracing.OTLPEndpoint = "localhost:4317"
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 1.0
	}
}

func (c *Config) applyEnvOverrides() {
	c.Environment = getEnv("MUNINN_ENV", c.Environment)
	c.Email.SMTPHost = getEnv("MUNINN_SMTP_HOST", c.Email.SMTPHost)
	c.Email.SMTPPort = getEnvInt("MUNINN_SMTP_PORT", c.Email.SMTPPort)
	c.Email.SMTPUsername = getEnv("MUNINN_SMTP_USERNAME", c.Email.SMTPUsername)
	c.Email.SMTPPassword = getEnv("MUNINN_SMTP_PASSWORD", c.Email.SMTPPassword)
	c.History.DSN = getEnv("MUNINN_HISTORY_DSN", c.History.DSN)
	if v := os.Getenv("MUNINN_HISTORY_BACKEND"); v != "" {
		c.History.Backend = DatabaseBackend(v)
	}
	c.Tracing.OTLPEndpoint = getEnv("MUNINN_OTLP_ENDPOINT", c.Tracing.OTLPEndpoint)
}

// Validate checks the configuration for contradictions before a run.
func (c *Config) Validate() error {
	if len(c.Locations) == 0 {
		return fmt.Errorf("at least one backup location must be configured")
	}

	seen := make(map[string]bool, len(c.Locations))
	for _, loc := range c.Locations {
		if loc.Name == "" {
			return fmt.Errorf("backup location with path %q has no name", loc.Path)
		}
		if loc.Path == "" {
			return fmt.Errorf("backup location %q has no path", loc.Name)
		}
		if seen[loc.Name] {
			return fmt.Errorf("duplicate backup location name %q", loc.Name)
		}
		seen[loc.Name] = true
		if loc.MaxDepth < 0 {
			return fmt.Errorf("backup location %q: max_depth must not be negative", loc.Name)
		}
		if loc.Kind != models.LocationLocal {
			return fmt.Errorf("backup location %q: unknown location type %q", loc.Name, loc.Kind)
		}
	}

	if c.Monitoring.MaxDepth < 0 {
		return fmt.Errorf("monitoring.max_depth must not be negative")
	}
	if c.Monitoring.MaxDirs <= 0 {
		return fmt.Errorf("monitoring.max_dirs must be positive")
	}
	if c.Monitoring.DaysBack < 0 {
		return fmt.Errorf("monitoring.days_back must not be negative")
	}
	if c.Monitoring.Concurrency < 1 {
		return fmt.Errorf("monitoring.concurrency must be at least 1")
	}

	switch c.Reports.Format {
	case "text", "html", "both":
	default:
		return fmt.Errorf("reports.format must be one of text, html, both; got %q", c.Reports.Format)
	}

	if c.Email.Enabled {
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("email.smtp_host is required when email is enabled")
		}
		if c.Email.FromAddress == "" {
			return fmt.Errorf("email.from_address is required when email is enabled")
		}
		if len(c.Email.ToAddresses) == 0 {
			return fmt.Errorf("email.to_addresses is required when email is enabled")
		}
	}

	if c.History.Enabled {
		switch c.History.Backend {
		case DatabaseSQLite, DatabasePostgres, DatabaseMySQL:
		default:
			return fmt.Errorf("unsupported history backend %q", c.History.Backend)
		}
		if c.History.DSN == "" {
			return fmt.Errorf("history.dsn is required when history is enabled")
		}
	}

	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}
