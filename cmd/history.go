package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/internal/iocache"
	"github.com/huangsam/coverbouncer/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyBackendFromConfig reads and validates the history backend settings.
func historyBackendFromConfig() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}

	backend := schema.DatabaseBackend(strings.ToLower(viper.GetString("history-backend")))
	if backend == "" {
		backend = schema.NoneBackend
	}
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", "", fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", backend)
	}
	connStr := viper.GetString("history-db-connect")

	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// historySetup loads minimal configuration needed for history operations.
// This is used by commands that need history access without full shared setup.
func historySetup() error {
	backend, connStr, err := historyBackendFromConfig()
	if err != nil {
		return err
	}

	// No marker cache for history commands
	if err := iocache.InitStores("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")

	return nil
}

// historySetupWrapper wraps historySetup to provide PreRunE for history commands.
func historySetupWrapper(_ *cobra.Command, _ []string) error {
	return historySetup()
}

// historyMigrateSetupWrapper loads history settings without opening the store,
// so migrations can run against a fresh database.
func historyMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	backend, connStr, err := historyBackendFromConfig()
	if err != nil {
		return err
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	return nil
}

// historyCmd focused on verification history management.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage verification history tracking and exports",
	Long: `Manage the history of verification runs.

When --history-backend is set, every verify run stores:
- Run metadata (timestamp, settings, duration, violation count)
- The outcome of every file (profile, coverage, passed/failed/skipped)

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, the default)

Subcommands:
  status  - Show history statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all history
  migrate - Run database schema migrations

Examples:
  # Record history in SQLite
  coverbouncer verify --history-backend sqlite

  # Export for analysis in pandas/DuckDB
  coverbouncer history export --history-backend sqlite --output-file coverage-history`,
}

// historyClearCmd clears verification history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all verification history",
	Long: `Delete all stored verification runs and file outcomes.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  coverbouncer history export --output-file backup
  coverbouncer history clear`,
	PreRunE: historySetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		iocache.CloseStores()
		if err := iocache.ClearHistory(cfg.HistoryBackend, contract.GetHistoryDBFilePath(), cfg.HistoryDBConnect); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		cmd.Println("Verification history cleared successfully.")
		return nil
	},
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display history statistics and connection details",
	Long: `Show detailed information about verification history.

Displays:
- Backend type and connection status
- Total and failed runs
- Last and oldest run timestamps
- Total files checked across all runs
- Table sizes

Examples:
  coverbouncer history status --history-backend sqlite`,
	PreRunE: historySetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store := iocache.Manager.GetHistoryStore()
		if store == nil {
			return errors.New("history store is not enabled; set --history-backend")
		}
		status, err := store.GetStatus()
		if err != nil {
			return fmt.Errorf("failed to get history status: %w", err)
		}
		iocache.PrintHistoryStatus(cmd.OutOrStdout(), status)
		return nil
	},
}

// historyExportCmd exports verification history to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export verification history to Parquet for BI tools and analytics",
	Long: `Export all stored verification history to Parquet.

Writes two files:
- <output-file>.runs.parquet          - one row per verification run
- <output-file>.file_outcomes.parquet - one row per file per run

Requires: --output-file parameter

Examples:
  coverbouncer history export --output-file coverage-history
  duckdb -c "SELECT * FROM read_parquet('coverage-history.runs.parquet') LIMIT 10"`,
	PreRunE: historySetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return iocache.ExecuteHistoryExport(iocache.Manager.GetHistoryStore(), cfg.OutputFile, cmd.OutOrStdout())
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the verification history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  coverbouncer history migrate --history-backend sqlite

  # Rollback to initial state
  coverbouncer history migrate --history-backend sqlite --target-version 0`,
	PreRunE: historyMigrateSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		cmd.Println("Migrations applied successfully.")
		return nil
	},
}
