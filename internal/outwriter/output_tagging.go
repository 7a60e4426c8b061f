package outwriter

import (
	"cmp"
	"encoding/csv"
	"fmt"
	"io"
	"slices"

	"github.com/huangsam/coverbouncer/core"
	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// TagAction describes what a tagging run did to the files it touched.
type TagAction struct {
	Verb    string // "Tagged" or "Untagged"
	Profile string // empty for untagging
	DryRun  bool
}

// Suggestion pairs a file with a suggested profile and any marker it already has.
type Suggestion struct {
	FilePath  string `json:"file"`
	Suggested string `json:"suggested_profile"`
	Current   string `json:"current_profile,omitempty"`
}

// SortSuggestions orders suggestions by suggested profile, then path.
func SortSuggestions(s []Suggestion) {
	slices.SortFunc(s, func(a, b Suggestion) int {
		return cmp.Or(cmp.Compare(a.Suggested, b.Suggested), cmp.Compare(a.FilePath, b.FilePath))
	})
}

// PrintTaggingResult outputs the outcome of a tag or untag operation.
func PrintTaggingResult(result core.TaggingResult, action TagAction, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"status", "file", "error"}, func(cw *csv.Writer) error {
				for _, f := range result.Tagged {
					if err := cw.Write([]string{"changed", f, ""}); err != nil {
						return err
					}
				}
				for _, f := range result.Skipped {
					if err := cw.Write([]string{"skipped", f, ""}); err != nil {
						return err
					}
				}
				for _, e := range result.Errors {
					if err := cw.Write([]string{"error", e.File, e.Err}); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeTaggingText(w, result, action, cfg)
		}, "Wrote text")
	}
}

func writeTaggingText(w io.Writer, result core.TaggingResult, action TagAction, cfg *contract.Config) error {
	headline := fmt.Sprintf("%s %d of %d file(s)", action.Verb, len(result.Tagged), result.FilesMatched)
	if action.Profile != "" {
		headline += fmt.Sprintf(" with profile %s", action.Profile)
	}
	if action.DryRun {
		headline += " (dry run, no files written)"
	}
	if _, err := fmt.Fprintln(w, withEmoji(cfg, "🏷️ ", headline)); err != nil {
		return err
	}

	for _, f := range result.Tagged {
		if _, err := fmt.Fprintf(w, "  %s %s\n", outcomeLabel(cfg, schema.PassedOutcome), f); err != nil {
			return err
		}
	}
	for _, f := range result.Skipped {
		if _, err := fmt.Fprintf(w, "  %s %s\n", outcomeLabel(cfg, schema.SkippedOutcome), f); err != nil {
			return err
		}
	}
	for _, e := range result.Errors {
		if _, err := fmt.Fprintf(w, "  %s %s: %s\n", outcomeLabel(cfg, schema.FailedOutcome), e.File, e.Err); err != nil {
			return err
		}
	}
	return nil
}

// PrintSuggestions outputs suggested profiles in the configured format.
func PrintSuggestions(suggestions []Suggestion, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, suggestions)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"file", "suggested_profile", "current_profile"}, func(cw *csv.Writer) error {
				for _, s := range suggestions {
					if err := cw.Write([]string{s.FilePath, s.Suggested, s.Current}); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSuggestionsText(w, suggestions, cfg)
		}, "Wrote text")
	}
}

func writeSuggestionsText(w io.Writer, suggestions []Suggestion, cfg *contract.Config) error {
	if _, err := fmt.Fprintln(w, withEmoji(cfg, "💡", "Suggested coverage profiles")); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Path", "Suggested", "Current"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignLeft
	})
	maxWidth := GetMaxTablePathWidth(cfg)
	var data [][]string
	for _, s := range suggestions {
		data = append(data, []string{contract.TruncatePath(s.FilePath, maxWidth), s.Suggested, s.Current})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "Apply a suggestion with: coverbouncer tag --profile <name> <files...>")
	return err
}
