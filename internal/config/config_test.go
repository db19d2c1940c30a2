package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
	if cfg.HistoryWindow != 7 {
		t.Errorf("Expected history window 7, got %d", cfg.HistoryWindow)
	}
	if cfg.TaskSource != SourceSQL {
		t.Errorf("Expected sql task source, got %s", cfg.TaskSource)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Listen != DefaultConfig().Listen {
		t.Errorf("Expected default listen, got %s", cfg.Listen)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
task_source: sheets
history_window: 3
sheets:
  spreadsheet_id: abc123
  managers_sheet: Leads
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TaskSource != SourceSheets || cfg.HistoryWindow != 3 {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if cfg.Sheets.SpreadsheetID != "abc123" || cfg.Sheets.ManagersSheet != "Leads" {
		t.Errorf("Unexpected sheets config %+v", cfg.Sheets)
	}
	if cfg.Sheets.DevSheet != "DEV" {
		t.Errorf("Expected default dev sheet to survive, got %q", cfg.Sheets.DevSheet)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TASKBOARD_LISTEN", ":9999")
	t.Setenv("TASKBOARD_DATABASE_DSN", "/tmp/other.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Listen != ":9999" {
		t.Errorf("Expected env listen, got %s", cfg.Listen)
	}
	if cfg.Database.DSN != "/tmp/other.db" {
		t.Errorf("Expected env dsn, got %s", cfg.Database.DSN)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("task_source: sheets\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "spreadsheet_id") {
		t.Errorf("Expected spreadsheet_id error, got %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Listen = ":7070"
	cfg.Timezone = "UTC"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Config not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Listen != ":7070" || loaded.Timezone != "UTC" {
		t.Errorf("Unexpected loaded config %+v", loaded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"window", func(c *Config) { c.HistoryWindow = 0 }, "history_window"},
		{"source", func(c *Config) { c.TaskSource = "csv" }, "task_source"},
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"listen", func(c *Config) { c.Listen = " " }, "listen"},
		{"timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}

	if err := Save(filepath.Join(t.TempDir(), "c.yaml"), nil); err == nil {
		t.Error("Expected error saving nil config")
	}
}
