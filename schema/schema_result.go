package schema

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// CoverageViolation is a file whose rate falls strictly below its profile's threshold.
type CoverageViolation struct {
	FilePath         string        `json:"file_path"`
	ProfileName      string        `json:"profile_name"`
	ViolationType    ViolationType `json:"violation_type"`
	RequiredCoverage float64       `json:"required_coverage"`
	ActualCoverage   float64       `json:"actual_coverage"`
}

// FileOutcome records how the engine treated a single file.
type FileOutcome struct {
	FilePath     string        `json:"file_path"`
	ProfileName  string        `json:"profile_name,omitempty"` // empty when skipped before lookup
	Status       OutcomeStatus `json:"status"`
	TotalLines   int           `json:"total_lines"`
	CoveredLines int           `json:"covered_lines"`
	LineRate     float64       `json:"line_rate"`
	RequiredLine *float64      `json:"required_line,omitempty"`
}

// ProfileSummary aggregates outcomes per profile for presentation.
type ProfileSummary struct {
	Profile string `json:"profile"`
	Checked int    `json:"checked"`
	Passed  int    `json:"passed"`
	Failed  int    `json:"failed"`
}

// ValidationResult is the uniform output of a validation run.
type ValidationResult struct {
	Violations        []CoverageViolation `json:"violations"`
	TotalFilesChecked int                 `json:"total_files_checked"`
	SkippedFiles      int                 `json:"skipped_files"`
	ValidatedAt       time.Time           `json:"validated_at"`
	Outcomes          []FileOutcome       `json:"outcomes,omitempty"`
}

// FilesFailed returns the number of distinct files with at least one violation.
func (r *ValidationResult) FilesFailed() int {
	seen := make(map[string]struct{}, len(r.Violations))
	for _, v := range r.Violations {
		seen[v.FilePath] = struct{}{}
	}
	return len(seen)
}

// FilesPassed returns the number of checked files without violations.
func (r *ValidationResult) FilesPassed() int {
	return r.TotalFilesChecked - r.FilesFailed()
}

// Success reports whether the run produced no violations.
func (r *ValidationResult) Success() bool {
	return len(r.Violations) == 0
}

// Summary returns a one-line description of the run.
func (r *ValidationResult) Summary() string {
	if r.Success() {
		msg := fmt.Sprintf("✓ All %d files meet coverage requirements", r.TotalFilesChecked)
		if r.SkippedFiles > 0 {
			msg += fmt.Sprintf(", %d skipped (filtered run)", r.SkippedFiles)
		}
		return msg
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "✗ %d file(s) with %d violation(s) (checked %d files, %d passed",
		r.FilesFailed(), len(r.Violations), r.TotalFilesChecked, r.FilesPassed())
	if r.SkippedFiles > 0 {
		fmt.Fprintf(&sb, ", %d skipped", r.SkippedFiles)
	}
	sb.WriteString(")")
	return sb.String()
}

// SortedViolations returns a copy of the violations ordered by profile, path and kind.
func (r *ValidationResult) SortedViolations() []CoverageViolation {
	out := slices.Clone(r.Violations)
	slices.SortStableFunc(out, func(a, b CoverageViolation) int {
		return cmp.Or(
			cmp.Compare(a.ProfileName, b.ProfileName),
			cmp.Compare(a.FilePath, b.FilePath),
			cmp.Compare(a.ViolationType, b.ViolationType),
		)
	})
	return out
}

// ProfileSummaries tallies non-skipped outcomes per profile, sorted by profile name.
func (r *ValidationResult) ProfileSummaries() []ProfileSummary {
	byProfile := make(map[string]*ProfileSummary)
	for _, o := range r.Outcomes {
		if o.Status == SkippedOutcome {
			continue
		}
		s, ok := byProfile[o.ProfileName]
		if !ok {
			s = &ProfileSummary{Profile: o.ProfileName}
			byProfile[o.ProfileName] = s
		}
		s.Checked++
		if o.Status == FailedOutcome {
			s.Failed++
		} else {
			s.Passed++
		}
	}

	out := make([]ProfileSummary, 0, len(byProfile))
	for _, s := range byProfile {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b ProfileSummary) int {
		return cmp.Compare(a.Profile, b.Profile)
	})
	return out
}
