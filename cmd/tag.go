package cmd

import (
	"errors"
	"fmt"

	"github.com/huangsam/coverbouncer/core"
	"github.com/huangsam/coverbouncer/internal/outwriter"
	"github.com/spf13/cobra"
)

// tagCmd writes coverage profile markers into source files.
var tagCmd = &cobra.Command{
	Use:   "tag --profile <name> [files...]",
	Short: "Assign a coverage profile to source files",
	Long: `Write a // [CoverageProfile("Name")] marker into C# source files. An existing
marker is replaced; otherwise the marker goes right above the namespace or type
declaration.

Files come from positional arguments, --file-list, --dir or --pattern.

Examples:
  # Tag two files
  coverbouncer tag --profile Critical src/Payments/Charge.cs src/Payments/Refund.cs

  # Tag every file under src/Dto, without recursion
  coverbouncer tag --profile Dto --dir src/Dto --recursive=false

  # Tag by glob and preview first
  coverbouncer tag --profile Critical --pattern "**/Security/*.cs" --dry-run`,
	PreRunE: configSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		profile := flagString(cmd, "profile")
		if profile == "" {
			return errors.New("--profile is required")
		}
		opts := tagOptions(cmd)
		dir := flagString(cmd, "dir")
		pattern := flagString(cmd, "pattern")
		recursive := flagBool(cmd, "recursive")

		var result core.TaggingResult
		var err error
		switch {
		case pattern != "":
			result, err = core.TagByPattern(baseDir(dir), pattern, profile, opts)
		case dir != "" && len(args) == 0:
			result, err = core.TagDirectory(dir, profile, recursive, opts)
		default:
			var paths []string
			paths, err = collectPaths(cmd, args)
			if err == nil {
				result = core.TagFiles(paths, profile, opts)
			}
		}
		if err != nil {
			return err
		}
		return reportTagging(result, outwriter.TagAction{Verb: "Tagged", Profile: profile, DryRun: opts.DryRun})
	},
}

// untagCmd removes coverage profile markers from source files.
var untagCmd = &cobra.Command{
	Use:   "untag [files...]",
	Short: "Remove coverage profile markers so files fall back to the default profile",
	Long: `Remove the first [CoverageProfile("Name")] marker from each file. A comment line
that held only the marker is removed entirely.

Examples:
  # Untag a file
  coverbouncer untag src/Legacy/OldService.cs

  # Untag everything under src/Legacy
  coverbouncer untag --dir src/Legacy`,
	PreRunE: configSetupWrapper,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := tagOptions(cmd)
		dir := flagString(cmd, "dir")
		pattern := flagString(cmd, "pattern")
		recursive := flagBool(cmd, "recursive")

		var paths []string
		var err error
		switch {
		case pattern != "":
			paths, err = core.FindByPattern(baseDir(dir), pattern, opts.Excludes)
		case dir != "" && len(args) == 0:
			paths, err = core.FindByPattern(dir, dirPattern(recursive), opts.Excludes)
		default:
			paths, err = collectPaths(cmd, args)
		}
		if err != nil {
			return err
		}
		result := core.UntagFiles(paths, opts)
		return reportTagging(result, outwriter.TagAction{Verb: "Untagged", DryRun: opts.DryRun})
	},
}

// tagOptions reads the flags shared by tag and untag.
func tagOptions(cmd *cobra.Command) core.TagOptions {
	backup := flagBool(cmd, "backup")
	dryRun := flagBool(cmd, "dry-run")
	excludes := flagStringSlice(cmd, "exclude")
	return core.TagOptions{Backup: backup, DryRun: dryRun, Excludes: excludes}
}

// collectPaths merges positional files with --file-list entries, dropping duplicates.
func collectPaths(cmd *cobra.Command, args []string) ([]string, error) {
	paths := append([]string{}, args...)
	if fileList := flagString(cmd, "file-list"); fileList != "" {
		listed, err := core.ReadFileList(fileList)
		if err != nil {
			return nil, err
		}
		paths = append(paths, listed...)
	}
	if len(paths) == 0 {
		return nil, errors.New("no files given; pass files, --file-list, --dir or --pattern")
	}

	seen := make(map[string]struct{}, len(paths))
	unique := paths[:0]
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		unique = append(unique, p)
	}
	return unique, nil
}

// reportTagging prints the result and fails when any file could not be changed.
func reportTagging(result core.TaggingResult, action outwriter.TagAction) error {
	if err := outwriter.NewOutWriter().WriteTagging(result, action, cfg); err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d of %d file(s) could not be processed", len(result.Errors), result.FilesMatched)
	}
	return nil
}

func baseDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}

func dirPattern(recursive bool) string {
	if recursive {
		return "**"
	}
	return "*"
}
