package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/internal/parquet"
	"github.com/huangsam/coverbouncer/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintValidationResults outputs a verification result, dispatching on the configured format.
func PrintValidationResults(result *schema.ValidationResult, policy *schema.PolicyConfiguration, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return WriteValidationJSON(w, result, policy, duration)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeValidationCSV(w, result, cfg)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if cfg.OutputFile == "" {
			return fmt.Errorf("parquet output requires --output-file")
		}
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return parquet.WriteFileOutcomes(w, parquet.ConvertValidationResult(result))
		}, "Wrote Parquet"); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeValidationText(w, result, policy, cfg, duration)
		}, "Wrote text")
	}
	return nil
}

// jsonViolation adds display fields to a violation.
type jsonViolation struct {
	schema.CoverageViolation
	Description string `json:"description"`
	Label       string `json:"label"`
}

// jsonValidation is the JSON document for a verification run.
type jsonValidation struct {
	Success           bool                    `json:"success"`
	Summary           string                  `json:"summary"`
	DefaultProfile    string                  `json:"default_profile,omitempty"`
	TotalFilesChecked int                     `json:"total_files_checked"`
	SkippedFiles      int                     `json:"skipped_files"`
	FilesPassed       int                     `json:"files_passed"`
	FilesFailed       int                     `json:"files_failed"`
	ValidatedAt       time.Time               `json:"validated_at"`
	DurationMs        int64                   `json:"duration_ms"`
	Profiles          []schema.ProfileSummary `json:"profiles"`
	Violations        []jsonViolation         `json:"violations"`
	Outcomes          []schema.FileOutcome    `json:"outcomes,omitempty"`
}

// WriteValidationJSON writes a verification result as a JSON document.
// policy may be nil.
func WriteValidationJSON(w io.Writer, result *schema.ValidationResult, policy *schema.PolicyConfiguration, duration time.Duration) error {
	doc := jsonValidation{
		Success:           result.Success(),
		Summary:           result.Summary(),
		TotalFilesChecked: result.TotalFilesChecked,
		SkippedFiles:      result.SkippedFiles,
		FilesPassed:       result.FilesPassed(),
		FilesFailed:       result.FilesFailed(),
		ValidatedAt:       result.ValidatedAt,
		DurationMs:        duration.Milliseconds(),
		Profiles:          result.ProfileSummaries(),
		Violations:        []jsonViolation{},
		Outcomes:          result.Outcomes,
	}
	if policy != nil {
		doc.DefaultProfile = policy.DefaultProfile
	}
	for _, v := range result.SortedViolations() {
		doc.Violations = append(doc.Violations, jsonViolation{
			CoverageViolation: v,
			Description:       v.ViolationType.Label(),
			Label:             contract.GetPlainLabel(v.ActualCoverage),
		})
	}
	return writeJSON(w, doc)
}

// writeValidationCSV writes one row per violation.
func writeValidationCSV(w io.Writer, result *schema.ValidationResult, cfg *contract.Config) error {
	_, fmtRate := createFormatters(cfg.Precision)
	header := []string{"profile", "file", "violation_type", "required", "actual", "label"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, v := range result.SortedViolations() {
			rec := []string{
				v.ProfileName,
				v.FilePath,
				string(v.ViolationType),
				fmtRate(v.RequiredCoverage),
				fmtRate(v.ActualCoverage),
				contract.GetPlainLabel(v.ActualCoverage),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeValidationText renders the profile table, the violations grouped by
// profile and a summary footer.
func writeValidationText(w io.Writer, result *schema.ValidationResult, policy *schema.PolicyConfiguration, cfg *contract.Config, duration time.Duration) error {
	fmtPercent, _ := createFormatters(cfg.Precision)

	heading := "Coverage Verification"
	if policy != nil {
		heading = fmt.Sprintf("Coverage Verification (default profile: %s)", policy.DefaultProfile)
	}
	if _, err := fmt.Fprintln(w, withEmoji(cfg, "🛡️ ", heading)); err != nil {
		return err
	}

	if err := writeProfileSummaryTable(w, result, policy, fmtPercent); err != nil {
		return err
	}

	if !result.Success() {
		if _, err := fmt.Fprintln(w, withEmoji(cfg, "🚫", "Violations")); err != nil {
			return err
		}
		if err := writeViolationTable(w, result, cfg, fmtPercent); err != nil {
			return err
		}
	}

	status := schema.PassedOutcome
	if !result.Success() {
		status = schema.FailedOutcome
	}
	if _, err := fmt.Fprintf(w, "%s %s\n", outcomeLabel(cfg, status), result.Summary()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Verification completed in %v with %d workers. Cache backend: %s\n", duration, cfg.Workers, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}

// writeProfileSummaryTable lists every profile with its thresholds and per-run counts.
func writeProfileSummaryTable(w io.Writer, result *schema.ValidationResult, policy *schema.PolicyConfiguration, fmtPercent func(float64) string) error {
	counts := make(map[string]schema.ProfileSummary)
	var names []string
	for _, s := range result.ProfileSummaries() {
		counts[s.Profile] = s
		names = append(names, s.Profile)
	}
	if policy != nil {
		names = policy.ProfileNames()
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Profile", "Min Line", "Min Branch", "Checked", "Passed", "Failed"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, name := range names {
		var thresholds *schema.ProfileThresholds
		if policy != nil {
			thresholds, _ = policy.Thresholds(name)
		}
		s := counts[name]
		data = append(data, []string{
			name,
			formatThreshold(thresholdLine(thresholds), fmtPercent),
			formatThreshold(thresholdBranch(thresholds), fmtPercent),
			fmt.Sprintf("%d", s.Checked),
			fmt.Sprintf("%d", s.Passed),
			fmt.Sprintf("%d", s.Failed),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// writeViolationTable lists violations sorted by profile, then path.
func writeViolationTable(w io.Writer, result *schema.ValidationResult, cfg *contract.Config, fmtPercent func(float64) string) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Profile", "Path", "Check", "Actual", "Required", "Label"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignLeft
	})

	maxWidth := GetMaxTablePathWidth(cfg)
	var data [][]string
	for _, v := range result.SortedViolations() {
		data = append(data, []string{
			v.ProfileName,
			contract.TruncatePath(v.FilePath, maxWidth),
			checkName(v.ViolationType),
			fmtPercent(v.ActualCoverage),
			fmtPercent(v.RequiredCoverage),
			coverageLabel(cfg, v.ActualCoverage),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func checkName(v schema.ViolationType) string {
	switch v {
	case schema.LineCoverageTooLow:
		return "line"
	case schema.BranchCoverageTooLow:
		return "branch"
	default:
		return string(v)
	}
}

func thresholdLine(t *schema.ProfileThresholds) *float64 {
	if t == nil {
		return nil
	}
	return t.MinLine
}

func thresholdBranch(t *schema.ProfileThresholds) *float64 {
	if t == nil {
		return nil
	}
	return t.MinBranch
}

// formatThreshold renders an optional threshold, using "-" when it is not enforced.
func formatThreshold(v *float64, fmtPercent func(float64) string) string {
	if v == nil {
		return "-"
	}
	return fmtPercent(*v)
}
