// Package cmd defines the command-line interface for coverbouncer.
package cmd

import (
	"slices"

	"github.com/huangsam/coverbouncer/core"
	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(untagCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)

	// Add the profile subcommands to the parent profile command
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().StringP("policy", "f", schema.DefaultPolicyFileName, "Policy file path, or a file name to search for in parent directories")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for percentages")
	rootCmd.PersistentFlags().String("pprof", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent source file readers")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Marker cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("history-backend", "", "Verification history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for verification history (a SQLite file must differ from the cache file)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("emoji", "no", "Prefix headings with emojis (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of verifyCmd to Viper
	verifyCmd.Flags().StringP("coverage", "c", "", "Coverlet JSON report path (default: the policy's coverageReportPath)")
	verifyCmd.Flags().String("source-root", "", "Directory that relative source paths in the report are resolved against")
	verifyCmd.Flags().Bool("filtered", false, "Treat the run as filtered and skip files with zero covered lines")
	verifyCmd.Flags().Bool("enforce-branches", false, "Also enforce minBranch thresholds where the report has branch data")
	verifyCmd.Flags().Bool("fail-on-violations", true, "Exit with status 1 when the policy is violated")
	verifyCmd.Flags().Bool("skip-missing", false, "Warn and pass instead of failing when the policy or report is missing")
	if err := viper.BindPFlags(verifyCmd.Flags()); err != nil {
		contract.LogFatal("Error binding verify flags", err)
	}

	// Flags of initCmd are read directly, they are not tool settings
	initCmd.Flags().String("template", schema.TemplateBasic, "Starter template: basic or strict or relaxed")
	initCmd.Flags().Bool("force", false, "Overwrite an existing policy file")

	// Flags shared by the tagging commands
	for _, c := range []*cobra.Command{tagCmd, untagCmd} {
		c.Flags().String("dir", "", "Tag every C# source file in this directory")
		c.Flags().Bool("recursive", true, "Descend into subdirectories when --dir is used without --pattern")
		c.Flags().String("pattern", "", "Tag C# source files under --dir (default .) matching a glob; ** spans directories")
		c.Flags().String("file-list", "", "Read file paths from this file, one per line")
		c.Flags().Bool("backup", false, "Write <file>.backup before modifying each file")
		c.Flags().Bool("dry-run", false, "Report what would change without writing files")
		c.Flags().StringSlice("exclude", slices.Clone(core.DefaultTagExcludes), "Path prefixes or globs to skip during discovery")
	}
	tagCmd.Flags().String("profile", "", "Coverage profile to write into each file")

	suggestCmd.Flags().String("dir", "", "Suggest profiles for every C# source file in this directory")
	suggestCmd.Flags().String("file-list", "", "Read file paths from this file, one per line")

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}

// flagString returns a registered string flag of cmd.
func flagString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		contract.LogFatal("Error reading flag "+name, err)
	}
	return v
}

// flagBool returns a registered bool flag of cmd.
func flagBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		contract.LogFatal("Error reading flag "+name, err)
	}
	return v
}

// flagStringSlice returns a registered string slice flag of cmd.
func flagStringSlice(cmd *cobra.Command, name string) []string {
	v, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		contract.LogFatal("Error reading flag "+name, err)
	}
	return v
}
