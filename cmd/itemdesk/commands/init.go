package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/itemdesk/itemdesk/pkg/config"
)

func newInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the itemdesk data directory",
		Long: `Create the data directory, the SQLite database with its schema, and a
default configuration file.

The configuration is written to --config, or ./itemdesk.yaml. An existing
file is kept unless --force is given.`,
		Example: `  # Initialize with defaults
  itemdesk init

  # Initialize with custom config path
  itemdesk init --config /etc/itemdesk/itemdesk.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = config.DefaultFileName
			}

			_, statErr := os.Stat(path)
			exists := statErr == nil

			var cfg *config.Config
			var err error
			if exists {
				cfg, err = loadConfig()
			}
			if !exists || (err != nil && force) {
				cfg, err = config.NewLoader().FromEnv()
			}
			if err != nil {
				return err
			}

			log.Info().
				Str("config", path).
				Str("data_dir", cfg.DataDir).
				Msg("Initializing workspace")

			out := cmd.OutOrStdout()

			// Step 1: Create data directory
			if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", cfg.DataDir, err)
			}
			fmt.Fprintf(out, "✓ Created directory: %s\n", cfg.DataDir)

			// Step 2: Initialize SQLite database
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			if err := store.Close(); err != nil {
				return fmt.Errorf("failed to close store: %w", err)
			}
			fmt.Fprintf(out, "✓ Initialized SQLite database: %s\n", cfg.DatabasePath())

			// Step 3: Create default config file
			if exists && !force {
				fmt.Fprintf(out, "✓ Config file already exists: %s\n", path)
			} else {
				if err := config.Save(path, cfg); err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Created config file: %s\n", path)
			}

			fmt.Fprintf(out, "\nNext steps:\n")
			fmt.Fprintf(out, "  itemdesk add <name> <description>\n")
			fmt.Fprintf(out, "  itemdesk import people.csv\n")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}
