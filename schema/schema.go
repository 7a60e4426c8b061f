// Package schema holds the data model shared by the coverage normalizer,
// profile resolver, validation engine and every output writer.
package schema

import (
	"slices"
	"time"
)

// FileCoverage holds the aggregated line (and optional branch) statistics of one source file.
type FileCoverage struct {
	FilePath        string  `json:"file_path"`
	TotalLines      int     `json:"total_lines"`
	CoveredLines    int     `json:"covered_lines"`
	TotalBranches   int     `json:"total_branches,omitempty"`
	CoveredBranches int     `json:"covered_branches,omitempty"`
	AssignedProfile *string `json:"assigned_profile,omitempty"` // set once by the profile resolver
}

// LineRate returns covered/total lines, or 0 when the file has no coverable lines.
func (f *FileCoverage) LineRate() float64 {
	if f.TotalLines <= 0 {
		return 0
	}
	return float64(f.CoveredLines) / float64(f.TotalLines)
}

// BranchRate returns covered/total branches. The second value is false when
// the source data carried no branch points for this file.
func (f *FileCoverage) BranchRate() (float64, bool) {
	if f.TotalBranches <= 0 {
		return 0, false
	}
	return float64(f.CoveredBranches) / float64(f.TotalBranches), true
}

// AssignProfile records an explicit profile found in the file's marker.
func (f *FileCoverage) AssignProfile(name string) {
	f.AssignedProfile = &name
}

// EffectiveProfile returns the assigned profile, falling back to defaultProfile.
func (f *FileCoverage) EffectiveProfile(defaultProfile string) string {
	if f.AssignedProfile != nil {
		return *f.AssignedProfile
	}
	return defaultProfile
}

// CoverageReport is the normalized, flat view of a coverage document.
type CoverageReport struct {
	Files       map[string]*FileCoverage `json:"files"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// NewCoverageReport returns an empty report stamped with the current time.
func NewCoverageReport() *CoverageReport {
	return &CoverageReport{
		Files:       make(map[string]*FileCoverage),
		GeneratedAt: time.Now().UTC(),
	}
}

// SortedPaths returns the report's file paths in lexical order.
func (r *CoverageReport) SortedPaths() []string {
	paths := make([]string, 0, len(r.Files))
	for p := range r.Files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}
