package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "itemdesk.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := NewLoader().Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.DatabasePath() != filepath.Join(cfg.DataDir, DatabaseFileName) {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath())
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
data_dir: /var/lib/itemdesk
database:
  busy_timeout: 10s
telemetry:
  log_level: debug
  log_format: json
report:
  title: Inventory
  paginate: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DataDir != "/var/lib/itemdesk" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Database.BusyTimeout != 10*time.Second {
		t.Errorf("BusyTimeout = %v", cfg.Database.BusyTimeout)
	}
	if cfg.Telemetry.LogLevel != "debug" || cfg.Telemetry.LogFormat != "json" {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
	if cfg.Report.Title != "Inventory" || cfg.Report.Paginate {
		t.Errorf("report = %+v", cfg.Report)
	}

	// Keys absent from the file keep their defaults.
	if cfg.Database.MaxOpenConns != 4 || !cfg.Report.ClipCells {
		t.Errorf("defaults lost: %+v %+v", cfg.Database, cfg.Report)
	}
	if cfg.DatabasePath() != "/var/lib/itemdesk/itemdesk.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath())
	}
}

func TestLoadRelativeDataDir(t *testing.T) {
	path := writeConfig(t, "data_dir: data\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(filepath.Dir(path), "data"); cfg.DataDir != want {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, want)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Report.Title != "Exported Data Report" {
		t.Errorf("expected defaults, got %+v", cfg.Report)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "databse:\n  path: x.db\n"))
	if err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
data_dir: /srv/itemdesk
telemetry:
  log_level: warn
`)
	t.Setenv("ITEMDESK_DATABASE__PATH", "/tmp/override.db")
	t.Setenv("ITEMDESK_TELEMETRY__LOG_LEVEL", "debug")
	t.Setenv("ITEMDESK_TELEMETRY__TRACING__SAMPLING_RATE", "0.25")
	t.Setenv("ITEMDESK_REPORT__PAGINATE", "false")
	t.Setenv("ITEMDESK_DATABASE__BUSY_TIMEOUT", "2s")
	t.Setenv("ITEMDESK_DATABASE__MAX_OPEN_CONNS", "8")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DatabasePath() != "/tmp/override.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath())
	}
	if cfg.Telemetry.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.Telemetry.LogLevel)
	}
	if cfg.Telemetry.Tracing.SamplingRate != 0.25 {
		t.Errorf("SamplingRate = %v", cfg.Telemetry.Tracing.SamplingRate)
	}
	if cfg.Report.Paginate {
		t.Error("expected Paginate overridden to false")
	}
	if cfg.Database.BusyTimeout != 2*time.Second || cfg.Database.MaxOpenConns != 8 {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.DataDir != "/srv/itemdesk" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"ITEMDESK_DATA_DIR":                     "data_dir",
		"ITEMDESK_DATABASE__PATH":               "database.path",
		"ITEMDESK_TELEMETRY__METRICS__TEXTFILE": "telemetry.metrics.textfile",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "missing data dir", mutate: func(c *Config) { c.DataDir = "" }, wantErr: "DataDir"},
		{name: "bad log level", mutate: func(c *Config) { c.Telemetry.LogLevel = "loud" }, wantErr: "LogLevel"},
		{name: "bad log format", mutate: func(c *Config) { c.Telemetry.LogFormat = "xml" }, wantErr: "LogFormat"},
		{name: "bad exporter", mutate: func(c *Config) { c.Telemetry.Tracing.Exporter = "zipkin" }, wantErr: "Exporter"},
		{name: "otlp without endpoint", mutate: func(c *Config) {
			c.Telemetry.Tracing.Enabled = true
			c.Telemetry.Tracing.Exporter = "otlp"
		}, wantErr: "Endpoint"},
		{name: "sampling out of range", mutate: func(c *Config) { c.Telemetry.Tracing.SamplingRate = 2 }, wantErr: "SamplingRate"},
		{name: "negative pool", mutate: func(c *Config) { c.Database.MaxOpenConns = -1 }, wantErr: "MaxOpenConns"},
		{name: "empty title", mutate: func(c *Config) { c.Report.Title = "" }, wantErr: "Title"},
		{name: "otlp disabled needs no endpoint", mutate: func(c *Config) { c.Telemetry.Tracing.Exporter = "otlp" }},
	}

	loader := NewLoader()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := loader.Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "itemdesk.yaml")

	cfg := Default()
	cfg.DataDir = "/data"
	cfg.Telemetry.Metrics.Textfile = "/data/itemdesk.prom"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Default()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for _, want := range []string{"data_dir:", "busy_timeout: 5s", "log_level: info", "title: Exported Data Report"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in:\n%s", want, buf.String())
		}
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("ITEMDESK_DATA_DIR", "/from/env")

	cfg, err := NewLoader().FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.DataDir != "/from/env" || cfg.Report.Title != "Exported Data Report" {
		t.Errorf("unexpected config %+v", cfg)
	}
}
