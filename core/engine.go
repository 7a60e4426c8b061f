// Package core has core logic for coverage normalization, profile resolution and policy validation.
package core

import (
	"time"

	"github.com/huangsam/coverbouncer/schema"
)

// ValidateOptions controls how the validation engine treats a report.
type ValidateOptions struct {
	// FilteredRun skips files with zero covered lines instead of failing them.
	FilteredRun bool
	// EnforceBranches compares branch rates against minBranch where both exist.
	EnforceBranches bool
}

// Validate compares every file in report against the thresholds of its effective profile.
// Files are visited in sorted path order. A file whose effective profile is not
// defined in cfg aborts the run with a *schema.ProfileReferenceError.
// Neither input is mutated.
func Validate(cfg *schema.PolicyConfiguration, report *schema.CoverageReport, opts ValidateOptions) (*schema.ValidationResult, error) {
	result := &schema.ValidationResult{
		Violations:  []schema.CoverageViolation{},
		ValidatedAt: time.Now().UTC(),
	}

	for _, path := range report.SortedPaths() {
		file := report.Files[path]

		if opts.FilteredRun && file.CoveredLines == 0 {
			result.SkippedFiles++
			result.Outcomes = append(result.Outcomes, newOutcome(file, "", schema.SkippedOutcome, nil))
			continue
		}

		profile := file.EffectiveProfile(cfg.DefaultProfile)
		thresholds, ok := cfg.Thresholds(profile)
		if !ok {
			return nil, &schema.ProfileReferenceError{FilePath: path, Profile: profile}
		}

		violations := checkThresholds(file, profile, thresholds, opts)
		result.Violations = append(result.Violations, violations...)
		result.TotalFilesChecked++

		status := schema.PassedOutcome
		if len(violations) > 0 {
			status = schema.FailedOutcome
		}
		result.Outcomes = append(result.Outcomes, newOutcome(file, profile, status, thresholds.MinLine))
	}

	return result, nil
}

// checkThresholds applies the strict less-than rule to each configured threshold.
func checkThresholds(file *schema.FileCoverage, profile string, thresholds *schema.ProfileThresholds, opts ValidateOptions) []schema.CoverageViolation {
	var violations []schema.CoverageViolation

	if thresholds.MinLine != nil {
		if rate := file.LineRate(); rate < *thresholds.MinLine {
			violations = append(violations, schema.CoverageViolation{
				FilePath:         file.FilePath,
				ProfileName:      profile,
				ViolationType:    schema.LineCoverageTooLow,
				RequiredCoverage: *thresholds.MinLine,
				ActualCoverage:   rate,
			})
		}
	}

	if opts.EnforceBranches && thresholds.MinBranch != nil {
		if rate, ok := file.BranchRate(); ok && rate < *thresholds.MinBranch {
			violations = append(violations, schema.CoverageViolation{
				FilePath:         file.FilePath,
				ProfileName:      profile,
				ViolationType:    schema.BranchCoverageTooLow,
				RequiredCoverage: *thresholds.MinBranch,
				ActualCoverage:   rate,
			})
		}
	}

	return violations
}

func newOutcome(file *schema.FileCoverage, profile string, status schema.OutcomeStatus, required *float64) schema.FileOutcome {
	return schema.FileOutcome{
		FilePath:     file.FilePath,
		ProfileName:  profile,
		Status:       status,
		TotalLines:   file.TotalLines,
		CoveredLines: file.CoveredLines,
		LineRate:     file.LineRate(),
		RequiredLine: required,
	}
}
