package cmd

import (
	"github.com/huangsam/coverbouncer/core"
	"github.com/huangsam/coverbouncer/internal/outwriter"
	"github.com/spf13/cobra"
)

// suggestCmd proposes profiles from file naming conventions.
var suggestCmd = &cobra.Command{
	Use:   "suggest [files...]",
	Short: "Suggest coverage profiles based on file paths",
	Long: `Suggest a coverage profile for each file from its path and name. Security and
payment code is suggested as Critical, services and handlers as BusinessLogic,
DTOs and view models as Dto, everything else as Standard.

Suggestions are never written; apply them with 'coverbouncer tag'.

Examples:
  # Suggest for every C# file under src
  coverbouncer suggest --dir src

  # Suggest for files changed on this branch
  git diff --name-only main > changed.txt
  coverbouncer suggest --file-list changed.txt --output csv`,
	PreRunE: configSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		var paths []string
		var err error
		if dir := flagString(cmd, "dir"); dir != "" && len(args) == 0 {
			paths, err = core.FindByPattern(dir, "**", core.DefaultTagExcludes)
		} else {
			paths, err = collectPaths(cmd, args)
		}
		if err != nil {
			return err
		}

		suggestions := make([]outwriter.Suggestion, 0, len(paths))
		for path, profile := range core.SuggestProfiles(paths) {
			current, _ := core.ReadProfileMarker(path)
			suggestions = append(suggestions, outwriter.Suggestion{FilePath: path, Suggested: profile, Current: current})
		}
		outwriter.SortSuggestions(suggestions)
		return outwriter.NewOutWriter().WriteSuggestions(suggestions, cfg)
	},
}
