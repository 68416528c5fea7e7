package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "ITEMDESK_"

	// DefaultFileName is read from the working directory when no path is given.
	DefaultFileName = "itemdesk.yaml"

	// DatabaseFileName is the store file created inside DataDir.
	DatabaseFileName = "itemdesk.db"
)

// Config is the root configuration of the itemdesk CLI.
type Config struct {
	// DataDir holds the database and the metrics textfile by default.
	DataDir string `yaml:"data_dir" koanf:"data_dir" validate:"required"`

	Database  DatabaseConfig  `yaml:"database" koanf:"database"`
	Telemetry TelemetryConfig `yaml:"telemetry" koanf:"telemetry"`
	Report    ReportConfig    `yaml:"report" koanf:"report"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	// Path is the database file. Empty means DataDir/itemdesk.db.
	Path            string        `yaml:"path,omitempty" koanf:"path"`
	MaxOpenConns    int           `yaml:"max_open_conns" koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `yaml:"max_idle_conns" koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" koanf:"conn_max_lifetime" validate:"gte=0"`
	BusyTimeout     time.Duration `yaml:"busy_timeout" koanf:"busy_timeout" validate:"gte=0"`
}

// TelemetryConfig configures logging, tracing and metrics.
type TelemetryConfig struct {
	LogLevel  string        `yaml:"log_level" koanf:"log_level" validate:"oneof=trace debug info warn error fatal"`
	LogFormat string        `yaml:"log_format" koanf:"log_format" validate:"oneof=json console"`
	Tracing   TracingConfig `yaml:"tracing" koanf:"tracing"`
	Metrics   MetricsConfig `yaml:"metrics" koanf:"metrics"`
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" koanf:"enabled"`
	Exporter     string  `yaml:"exporter" koanf:"exporter" validate:"oneof=none stdout otlp"`
	Endpoint     string  `yaml:"endpoint,omitempty" koanf:"endpoint" validate:"required_if=Enabled true Exporter otlp"`
	SamplingRate float64 `yaml:"sampling_rate" koanf:"sampling_rate" validate:"gte=0,lte=1"`
}

// MetricsConfig controls the Prometheus registry.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" koanf:"enabled"`
	// Textfile receives the registry in text format at shutdown. Empty
	// disables the dump.
	Textfile string `yaml:"textfile,omitempty" koanf:"textfile"`
}

// ReportConfig tunes the PDF export.
type ReportConfig struct {
	Title     string `yaml:"title" koanf:"title" validate:"required"`
	Paginate  bool   `yaml:"paginate" koanf:"paginate"`
	ClipCells bool   `yaml:"clip_cells" koanf:"clip_cells"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Telemetry: TelemetryConfig{
			LogLevel:  "info",
			LogFormat: "console",
			Tracing: TracingConfig{
				Exporter:     "none",
				SamplingRate: 1.0,
			},
			Metrics: MetricsConfig{
				Enabled: true,
			},
		},
		Report: ReportConfig{
			Title:     "Exported Data Report",
			Paginate:  true,
			ClipCells: true,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".itemdesk"
	}
	return filepath.Join(home, ".itemdesk")
}

// DatabasePath returns the configured database file, defaulting to a file
// inside DataDir.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.DataDir, DatabaseFileName)
}
