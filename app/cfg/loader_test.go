package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadArgsDefaults(t *testing.T) {
	cfg, err := LoadArgs([]string{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.DBPath != "data/app.db" {
		t.Errorf("Expected DB path 'data/app.db', got '%s'", cfg.DBPath)
	}
	if cfg.CSVPath != "data/new_items.csv" {
		t.Errorf("Expected CSV path 'data/new_items.csv', got '%s'", cfg.CSVPath)
	}
	if cfg.IntervalDays != 3 {
		t.Errorf("Expected interval 3 days, got %d", cfg.IntervalDays)
	}
	if cfg.Interval() != 72*time.Hour {
		t.Errorf("Expected interval 72h, got %s", cfg.Interval())
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %s", cfg.Timeout)
	}
	if cfg.Backfill {
		t.Error("Expected backfill to be disabled by default")
	}
	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoadArgsFlags(t *testing.T) {
	cfg, err := LoadArgs([]string{
		"--db", "/tmp/x.db",
		"--csv",
		"--csv-path", "/tmp/out.csv",
		"--sources", "sources.yml",
		"--interval-days", "7",
		"--backfill",
		"--port", "8080",
		"--base-url", "https://cfp.example.com",
		"--api-key", "secret",
		"--timeout", "5s",
		"--debug",
		"--log-file", "/tmp/app.log",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.DBPath != "/tmp/x.db" {
		t.Errorf("Expected DB path '/tmp/x.db', got '%s'", cfg.DBPath)
	}
	if !cfg.CSVEnabled {
		t.Error("Expected CSV export to be enabled")
	}
	if cfg.CSVPath != "/tmp/out.csv" {
		t.Errorf("Expected CSV path '/tmp/out.csv', got '%s'", cfg.CSVPath)
	}
	if cfg.SourcesFile != "sources.yml" {
		t.Errorf("Expected sources file 'sources.yml', got '%s'", cfg.SourcesFile)
	}
	if cfg.Interval() != 7*24*time.Hour {
		t.Errorf("Expected interval 168h, got %s", cfg.Interval())
	}
	if !cfg.Backfill {
		t.Error("Expected backfill to be enabled")
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.BaseUrl != "https://cfp.example.com" {
		t.Errorf("Expected base URL 'https://cfp.example.com', got '%s'", cfg.BaseUrl)
	}
	if cfg.APIAccessKey != "secret" {
		t.Errorf("Expected API key 'secret', got '%s'", cfg.APIAccessKey)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %s", cfg.Timeout)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
	if cfg.LogFile != "/tmp/app.log" {
		t.Errorf("Expected log file '/tmp/app.log', got '%s'", cfg.LogFile)
	}
}

func TestLoadArgsRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero interval", []string{"--interval-days", "0"}},
		{"negative timeout", []string{"--timeout", "-1s"}},
		{"unknown flag", []string{"--no-such-flag"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadArgs(tt.args)
			if err == nil {
				t.Errorf("Expected error, got config %+v", cfg)
			}
		})
	}
}
