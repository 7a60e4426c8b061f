package cmd

import (
	"github.com/huangsam/coverbouncer/core"
	"github.com/huangsam/coverbouncer/internal/outwriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// verifyCmd focused on CI/CD policy enforcement.
var verifyCmd = &cobra.Command{
	Use:   "verify [coverage-report]",
	Short: "Check a coverage report against the coverage policy (fails build on violations)",
	Long: `Load the policy, read a Coverlet JSON coverage report, resolve each source file's
coverage profile and report every file whose coverage is below its profile's thresholds.

A file's profile comes from the first [CoverageProfile("Name")] marker in its source,
or the policy's defaultProfile when it has none. Coverage equal to the threshold passes.

Exit status:
  0 - every checked file meets its profile
  1 - at least one violation (disable with --fail-on-violations=false)
  2 - missing or malformed input, invalid policy or unknown profile

Examples:
  # Verify with coverbouncer.json found in this or a parent directory
  coverbouncer verify

  # Verify an explicit report, resolving relative paths under ./src
  coverbouncer verify TestResults/coverage.json --source-root src

  # A filtered test run leaves untouched files at 0%; skip them
  coverbouncer verify --filtered

  # Machine readable output
  coverbouncer verify --output json --output-file verify.json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: verifySetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		result, err := core.ExecuteVerify(rootCtx, cfg, storeManager, outwriter.NewOutWriter())
		if err != nil {
			return err
		}
		if !result.Success() && cfg.FailOnViolations {
			return ErrViolations
		}
		return nil
	},
}

// verifySetupWrapper lets a positional report path override --coverage.
func verifySetupWrapper(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		viper.Set("coverage", args[0])
	}
	return sharedSetup(rootCtx, cmd, args)
}
