package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/itemdesk/itemdesk/pkg/config"
	"github.com/itemdesk/itemdesk/pkg/records"
	"github.com/itemdesk/itemdesk/pkg/stores"
	"github.com/itemdesk/itemdesk/pkg/telemetry"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool

	buildVersion = "dev"
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	buildVersion = version

	rootCmd := &cobra.Command{
		Use:   "itemdesk",
		Short: "itemdesk - a small record desk backed by SQLite",
		Long: `itemdesk keeps a table of records, each with a name and a description,
in a local SQLite database.

Features:
  - Add, list, show, update and delete records
  - Bulk import from CSV files or a watched inbox directory
  - Export to CSV or to a paginated PDF report`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default ./itemdesk.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newAddCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newShowCommand())
	rootCmd.AddCommand(newUpdateCommand())
	rootCmd.AddCommand(newDeleteCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newExportCommand())

	return rootCmd
}

// app is the per-invocation wiring of configuration, telemetry and store.
type app struct {
	cfg   *config.Config
	tel   *telemetry.Telemetry
	store *stores.SQLiteStore
	svc   *records.Service
	ctx   context.Context
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.LogLevel = "debug"
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	return cfg, nil
}

func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceVersion = buildVersion
	tc.Environment = "cli"
	tc.Logging.Level = cfg.Telemetry.LogLevel
	tc.Logging.Format = cfg.Telemetry.LogFormat
	tc.Tracing.Enabled = cfg.Telemetry.Tracing.Enabled
	tc.Tracing.Exporter = cfg.Telemetry.Tracing.Exporter
	tc.Tracing.Endpoint = cfg.Telemetry.Tracing.Endpoint
	tc.Tracing.SamplingRate = cfg.Telemetry.Tracing.SamplingRate
	tc.Metrics.Enabled = cfg.Telemetry.Metrics.Enabled
	tc.Metrics.Textfile = cfg.Telemetry.Metrics.Textfile
	return tc
}

func storeConfig(cfg *config.Config) stores.Config {
	return stores.Config{
		Path:            cfg.DatabasePath(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		BusyTimeout:     cfg.Database.BusyTimeout,
	}
}

// openStore opens and migrates the configured database, creating its
// directory when needed.
func openStore(ctx context.Context, cfg *config.Config) (*stores.SQLiteStore, error) {
	scfg := storeConfig(cfg)
	if scfg.Path != stores.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(scfg.Path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	store, err := stores.NewSQLiteStore(scfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	tcfg := telemetryConfig(cfg)
	tel, err := telemetry.NewTelemetry(tcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	tel.Logger = telemetry.NewLoggerWithWriter(tcfg.Logging, cmd.ErrOrStderr())

	ctx := tel.WithContext(cmd.Context())

	store, err := openStore(ctx, cfg)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, err
	}

	log.Debug().
		Str("database", store.Path()).
		Str("config", configPath).
		Msg("Opened item store")

	return &app{
		cfg:   cfg,
		tel:   tel,
		store: store,
		svc:   records.NewService(store, records.WithTelemetry(tel)),
		ctx:   ctx,
	}, nil
}

// Close releases the store and flushes telemetry.
func (a *app) Close() error {
	return errors.Join(
		a.store.Close(),
		a.tel.Shutdown(context.Background()),
	)
}

// withApp runs fn with an opened app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(a *app) error) (err error) {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a)
}
