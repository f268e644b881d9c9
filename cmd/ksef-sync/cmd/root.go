package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rezonia/ksef-sync/internal/config"
	"github.com/rezonia/ksef-sync/internal/logger"
	"github.com/rezonia/ksef-sync/internal/store"
)

var (
	version = "1.0.0"

	// Global flags
	verbose     bool
	envFile     string
	databaseURL string
)

var rootCmd = &cobra.Command{
	Use:   "ksef-sync",
	Short: "Sync invoices from KSeF and export them to Symfonia FK",
	Long: `ksef-sync pulls structured invoices from the Polish KSeF e-invoicing
service, stores them locally, and exports selected invoices to the
Symfonia FK flat-file format.

Examples:
  # Sync the last 30 days for entity 1 (stored session token)
  ksef-sync sync --entity-id 1

  # Sync a window, authenticating with a KSeF password
  ksef-sync sync --entity-id 1 --date-from 2024-01-01 --date-to 2024-01-31 --ksef-password <pw>

  # Export all not-yet-exported invoices
  ksef-sync export --entity-id 1

  # Show export history
  ksef-sync batches --entity-id 1

  # Start the HTTP API
  ksef-sync serve --address :8080`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to .env file (default: ./.env if present)")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string (env: DATABASE_URL)")
}

// setup loads configuration, builds the logger and opens the database
func setup() (*config.Config, zerolog.Logger, *store.Postgres, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, log, nil, err
	}
	return cfg, log, db, nil
}
