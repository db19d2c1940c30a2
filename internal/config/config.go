// Package config loads and saves the task board configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Task sources.
const (
	SourceSheets = "sheets"
	SourceSQL    = "sql"
)

// EnvPrefix prefixes environment overrides, e.g. TASKBOARD_DATABASE_DSN.
const EnvPrefix = "TASKBOARD"

// Config holds the task board configuration.
type Config struct {
	// APIAddr is the base URL clients use to reach the server.
	APIAddr string `yaml:"api_addr" mapstructure:"api_addr"`
	// Listen is the address the server binds to.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// TaskSource selects the system of record: sheets or sql.
	TaskSource string `yaml:"task_source" mapstructure:"task_source"`
	// HistoryWindow caps the days per employee on the all-histories read.
	HistoryWindow int `yaml:"history_window" mapstructure:"history_window"`
	// Timezone names the zone day labels are computed in. Empty means local.
	Timezone string `yaml:"timezone" mapstructure:"timezone"`

	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Sheets   SheetsConfig   `yaml:"sheets" mapstructure:"sheets"`
}

// DatabaseConfig selects the SQL store.
type DatabaseConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// SheetsConfig locates the spreadsheet used when TaskSource is sheets.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	DevSheet        string `yaml:"dev_sheet" mapstructure:"dev_sheet"`
	ManagersSheet   string `yaml:"managers_sheet" mapstructure:"managers_sheet"`
}

// Dir returns ~/.taskboard, or .taskboard when there is no home directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskboard"
	}
	return filepath.Join(home, ".taskboard")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns a configuration that runs entirely locally.
func DefaultConfig() *Config {
	return &Config{
		APIAddr:       "http://127.0.0.1:8080",
		Listen:        "127.0.0.1:8080",
		TaskSource:    SourceSQL,
		HistoryWindow: 7,
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(Dir(), "taskboard.db"),
		},
		Sheets: SheetsConfig{
			CredentialsFile: "credentials.json",
			DevSheet:        "DEV",
			ManagersSheet:   "Managers",
		},
	}
}

// Load reads the config file at path on top of the defaults and applies
// TASKBOARD_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("api_addr", d.APIAddr)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("task_source", d.TaskSource)
	v.SetDefault("history_window", d.HistoryWindow)
	v.SetDefault("timezone", d.Timezone)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("sheets.spreadsheet_id", d.Sheets.SpreadsheetID)
	v.SetDefault("sheets.credentials_file", d.Sheets.CredentialsFile)
	v.SetDefault("sheets.dev_sheet", d.Sheets.DevSheet)
	v.SetDefault("sheets.managers_sheet", d.Sheets.ManagersSheet)
}

// Save writes the configuration as YAML, creating parent directories if needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.HistoryWindow < 1 {
		return fmt.Errorf("history_window must be at least 1")
	}
	switch c.TaskSource {
	case SourceSQL:
	case SourceSheets:
		if strings.TrimSpace(c.Sheets.SpreadsheetID) == "" {
			return fmt.Errorf("sheets.spreadsheet_id is required when task_source is sheets")
		}
	default:
		return fmt.Errorf("invalid task_source %q, must be: sheets or sql", c.TaskSource)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database.driver %q, must be: sqlite or postgres", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the zone day labels are computed in.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
