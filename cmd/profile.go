package cmd

import (
	"github.com/huangsam/coverbouncer/core"
	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/internal/outwriter"
	"github.com/huangsam/coverbouncer/schema"
	"github.com/spf13/cobra"
)

// profileCmd groups commands that inspect the policy's profiles.
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect coverage profiles and how files resolve to them",
	Long: `Inspect the coverage policy.

Subcommands:
  list - Show every profile with its thresholds
  show - Show the effective profile of source files

Examples:
  coverbouncer profile list
  coverbouncer profile show src/Payments/Charge.cs`,
}

// profileListCmd prints the policy's profiles.
var profileListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List profiles and thresholds from the policy",
	PreRunE: configSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		policy, path, err := core.LoadPolicySmart(cfg.PolicyPath)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter().WriteProfiles(policy, path, cfg)
	},
}

// profileShowCmd resolves the effective profile of individual files.
var profileShowCmd = &cobra.Command{
	Use:     "show <files...>",
	Short:   "Show which profile each file resolves to",
	Args:    cobra.MinimumNArgs(1),
	PreRunE: configSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, _, err := core.LoadPolicySmart(cfg.PolicyPath)
		if err != nil {
			return err
		}
		fmtPercent := func(v *float64) string {
			if v == nil {
				return "-"
			}
			return contract.FormatPercent(*v, cfg.Precision)
		}

		for _, path := range args {
			explicit, found := core.ReadProfileMarker(path)
			effective := policy.DefaultProfile
			source := "default"
			if found {
				effective = explicit
				source = "marker"
			}
			thresholds, ok := policy.Thresholds(effective)
			if !ok {
				return &schema.ProfileReferenceError{FilePath: path, Profile: effective}
			}
			cmd.Printf("%s: %s (%s) line %s, branch %s\n", path, effective, source, fmtPercent(thresholds.MinLine), fmtPercent(thresholds.MinBranch))
		}
		return nil
	},
}
