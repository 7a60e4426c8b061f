package contract

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/huangsam/coverbouncer/schema"
)

// Default values for configuration.
const (
	DefaultPrecision = 1
	MaxWorkers       = 256
)

// DefaultWorkers is the default number of concurrent marker readers.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for a verification.
// This struct remains the "final, validated" config.
type Config struct {
	PolicyPath   string // Policy document path or file name to search upwards for
	CoveragePath string // Overrides the policy's coverageReportPath when set
	SourceRoot   string // Prefix for relative source paths in the coverage report

	FilteredRun      bool
	EnforceBranches  bool
	FailOnViolations bool
	SkipMissing      bool

	Workers    int
	Precision  int
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	UseEmojis bool // Enable emojis in output headers
	UseColors bool // Enable colored labels in table output
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Policy           string `mapstructure:"policy"`
	OutputFile       string `mapstructure:"output-file"`
	Workers          int    `mapstructure:"workers"`
	Precision        int    `mapstructure:"precision"`
	Output           string `mapstructure:"output"`
	Width            int    `mapstructure:"width"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`
	Emoji            string `mapstructure:"emoji"`
	Color            string `mapstructure:"color"`

	// --- Fields from verifyCmd.Flags() ---
	Coverage         string `mapstructure:"coverage"`
	SourceRoot       string `mapstructure:"source-root"`
	Filtered         bool   `mapstructure:"filtered"`
	EnforceBranches  bool   `mapstructure:"enforce-branches"`
	FailOnViolations bool   `mapstructure:"fail-on-violations"`
	SkipMissing      bool   `mapstructure:"skip-missing"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return resolveSourceRoot(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates marker cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("cache-db-connect: %w", err)
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("history-db-connect: %w", err)
	}

	// Cache and history must not share a SQLite file since clearing one removes the file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		historyDBPath := cfg.HistoryDBConnect
		if historyDBPath == "" {
			historyDBPath = GetHistoryDBFilePath()
		}
		if cacheDBPath == historyDBPath {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates all non-backend fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.PolicyPath = strings.TrimSpace(input.Policy)
	if cfg.PolicyPath == "" {
		cfg.PolicyPath = schema.DefaultPolicyFileName
	}
	cfg.CoveragePath = strings.TrimSpace(input.Coverage)
	cfg.OutputFile = input.OutputFile
	cfg.FilteredRun = input.Filtered
	cfg.EnforceBranches = input.EnforceBranches
	cfg.FailOnViolations = input.FailOnViolations
	cfg.SkipMissing = input.SkipMissing
	cfg.Width = input.Width

	// Parse emoji flag
	emojis, err := ParseBoolString(input.Emoji)
	if err != nil {
		return fmt.Errorf("invalid --emoji value: %w", err)
	}
	cfg.UseEmojis = emojis

	// Parse color flag
	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Workers Validation ---
	if input.Workers <= 0 || input.Workers > MaxWorkers {
		return fmt.Errorf("workers must be greater than 0 and cannot exceed %d (received %d)", MaxWorkers, input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 2. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	// --- 3. Width Validation ---
	if cfg.Width < 0 {
		return fmt.Errorf("width cannot be negative (received %d)", cfg.Width)
	}

	return nil
}

// resolveSourceRoot turns the source root into an absolute, cleaned path.
func resolveSourceRoot(cfg *Config, input *ConfigRawInput) error {
	root := strings.TrimSpace(input.SourceRoot)
	if root == "" {
		cfg.SourceRoot = ""
		return nil
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("invalid source root %q: %w", root, err)
	}
	cfg.SourceRoot = filepath.Clean(abs)
	return nil
}

// ProcessProfilingConfig handles the pprof flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}
