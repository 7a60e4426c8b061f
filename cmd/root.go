package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/internal/iocache"
	"github.com/huangsam/coverbouncer/schema"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ErrViolations is returned by verify when the policy was violated and
// --fail-on-violations is set. It maps to contract.ExitViolations.
var ErrViolations = errors.New("coverage policy violations found")

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// profiling holds pprof settings. Named apart from coverage profiles on purpose.
var profiling = &contract.ProfileConfig{}

// storeManager is the global persistence manager instance.
var storeManager contract.StoreManager

// startProfiling starts CPU and memory profiling if enabled.
func startProfiling() error {
	if !profiling.Enabled {
		return nil
	}

	cpuFile, err := os.Create(profiling.Prefix + ".cpu.prof")
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		return fmt.Errorf("could not start CPU profiling: %w", err)
	}

	// Memory profiling will be captured at the end
	_, err = fmt.Fprintf(os.Stderr, "Profiling enabled. CPU profile: %s.cpu.prof, Memory profile: %s.mem.prof\n", profiling.Prefix, profiling.Prefix)
	return err
}

// stopProfiling stops profiling and writes memory profile.
func stopProfiling() error {
	if !profiling.Enabled {
		return nil
	}

	pprof.StopCPUProfile()

	memFile, err := os.Create(profiling.Prefix + ".mem.prof")
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer func() { _ = memFile.Close() }()

	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}

	_, err = fmt.Fprintf(os.Stderr, "Profiling complete. Use 'go tool pprof %s.cpu.prof' to analyze.\n", profiling.Prefix)
	return err
}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "coverbouncer",
	Short: "Enforce per-file code coverage policies.",
	Long: `CoverBouncer checks a Coverlet JSON coverage report against a policy of named
coverage profiles. Source files opt into a profile with a [CoverageProfile("Name")]
marker; every other file falls back to the policy's default profile.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// setConfigSearch points viper at --config or the default .coverbouncer.yaml locations.
func setConfigSearch() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".coverbouncer")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")
}

// loadDotEnv exports variables from a .env file in the working directory, if any.
// Variables already present in the environment win.
func loadDotEnv() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		contract.LogWarn("failed to load .env file", err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setConfigSearch()

	loadDotEnv()
	viper.SetEnvPrefix("COVERBOUNCER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("policy", schema.DefaultPolicyFileName)
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("cache-backend", schema.SQLiteBackend)
	viper.SetDefault("cache-db-connect", "")
	viper.SetDefault("history-backend", "")
	viper.SetDefault("history-db-connect", "")
	viper.SetDefault("fail-on-violations", true)
	viper.SetDefault("color", "yes")
	viper.SetDefault("emoji", "no")
}

// readConfigFile merges the config file into viper; a missing file is fine.
func readConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// configSetup unmarshals config and runs validation without touching any store.
func configSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	if err := contract.ProcessProfilingConfig(profiling, viper.GetString("pprof")); err != nil {
		return fmt.Errorf("failed to process profiling config: %w", err)
	}
	if err := startProfiling(); err != nil {
		return fmt.Errorf("failed to start profiling: %w", err)
	}

	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := readConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and populate the global cfg.
	return contract.ProcessAndValidate(cfg, input)
}

// sharedSetup validates config and initializes the marker cache and history stores.
func sharedSetup(ctx context.Context, cmd *cobra.Command, args []string) error {
	if err := configSetup(ctx, cmd, args); err != nil {
		return err
	}

	if err := iocache.InitStores(cfg.CacheBackend, cfg.CacheDBConnect, cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	if storeManager == nil {
		storeManager = iocache.Manager
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// configSetupWrapper wraps configSetup for commands that never touch a store.
func configSetupWrapper(cmd *cobra.Command, args []string) error {
	return configSetup(rootCtx, cmd, args)
}

// loadConfigFile handles config file loading logic common to the store maintenance commands.
func loadConfigFile() error {
	setConfigSearch()
	return readConfigFile()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetStoreManager sets the global store manager.
func SetStoreManager(mgr contract.StoreManager) {
	storeManager = mgr
}

// StopProfiling stops profiling if enabled.
func StopProfiling() error {
	return stopProfiling()
}
