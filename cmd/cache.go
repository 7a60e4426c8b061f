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

// cacheSetup loads minimal configuration needed for cache operations.
// This is used by commands that need cache access without full shared setup.
func cacheSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	backend := schema.DatabaseBackend(strings.ToLower(viper.GetString("cache-backend")))
	if backend == "" {
		backend = schema.SQLiteBackend
	}
	connStr := viper.GetString("cache-db-connect")

	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	// No history tracking for cache commands
	if err := iocache.InitStores(backend, connStr, "", ""); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr

	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup()
}

// cacheCmd focused on cache management.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the profile marker cache (improves performance)",
	Long: `Manage the cache of profile markers read from source files.

Verify remembers the marker of every source file it reads, keyed by path and
invalidated when the file's size or modification time changes.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status - Show cache statistics and connection info
  clear  - Remove all cached markers

Examples:
  # Check cache status
  coverbouncer cache status

  # Clear cache
  coverbouncer cache clear`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached profile markers",
	Long: `Delete all cached profile markers from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table

Examples:
  # Clear SQLite cache (default)
  coverbouncer cache clear

  # Clear MySQL cache (set connection string via env variable)
  COVERBOUNCER_CACHE_BACKEND=mysql COVERBOUNCER_CACHE_DB_CONNECT="..." coverbouncer cache clear`,
	PreRunE: cacheSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Release the connection opened by setup before dropping the file or table
		iocache.CloseStores()
		if err := iocache.ClearCache(cfg.CacheBackend, contract.GetCacheDBFilePath(), cfg.CacheDBConnect); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		cmd.Println("Cache cleared successfully.")
		return nil
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show detailed information about the profile marker cache.

Displays:
- Backend type and connection status
- Total number of cached markers
- Last and oldest cache entry timestamps
- Cache table size

Examples:
  # Check cache status
  coverbouncer cache status`,
	PreRunE: cacheSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store := iocache.Manager.GetMarkerStore()
		if store == nil {
			return errors.New("marker cache is not enabled or could not be opened")
		}
		status, err := store.GetStatus()
		if err != nil {
			return fmt.Errorf("failed to get cache status: %w", err)
		}
		iocache.PrintCacheStatus(cmd.OutOrStdout(), status)
		return nil
	},
}
