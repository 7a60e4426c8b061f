package core

import (
	"errors"
	"testing"

	"github.com/huangsam/coverbouncer/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFile(path string, total, covered int) *schema.FileCoverage {
	return &schema.FileCoverage{FilePath: path, TotalLines: total, CoveredLines: covered}
}

func newReport(files ...*schema.FileCoverage) *schema.CoverageReport {
	report := schema.NewCoverageReport()
	for _, f := range files {
		report.Files[f.FilePath] = f
	}
	return report
}

func newPolicy(defaultProfile string, profiles map[string]*schema.ProfileThresholds) *schema.PolicyConfiguration {
	cfg := schema.NewPolicyConfiguration()
	cfg.DefaultProfile = defaultProfile
	cfg.Profiles = profiles
	return cfg
}

func lineOnly(min float64) *schema.ProfileThresholds {
	return &schema.ProfileThresholds{MinLine: schema.Threshold(min)}
}

func TestValidateThresholdBoundary(t *testing.T) {
	cfg := newPolicy("Standard", map[string]*schema.ProfileThresholds{"Standard": lineOnly(0.60)})

	t.Run("equal rate passes", func(t *testing.T) {
		result, err := Validate(cfg, newReport(newFile("Foo.cs", 10, 6)), ValidateOptions{})
		require.NoError(t, err)
		assert.True(t, result.Success())
		assert.Equal(t, 1, result.TotalFilesChecked)
		assert.Equal(t, 1, result.FilesPassed())
	})

	t.Run("one line below fails", func(t *testing.T) {
		result, err := Validate(cfg, newReport(newFile("Foo.cs", 10, 5)), ValidateOptions{})
		require.NoError(t, err)
		require.Len(t, result.Violations, 1)
		v := result.Violations[0]
		assert.Equal(t, "Foo.cs", v.FilePath)
		assert.Equal(t, "Standard", v.ProfileName)
		assert.Equal(t, schema.LineCoverageTooLow, v.ViolationType)
		assert.InDelta(t, 0.60, v.RequiredCoverage, 1e-9)
		assert.InDelta(t, 0.50, v.ActualCoverage, 1e-9)
		assert.False(t, result.Success())
	})
}

func TestValidateZeroThresholdAcceptsUncovered(t *testing.T) {
	cfg := newPolicy("NoCoverage", map[string]*schema.ProfileThresholds{"NoCoverage": lineOnly(0)})
	result, err := Validate(cfg, newReport(newFile("Empty.cs", 12, 0)), ValidateOptions{})
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, 1, result.TotalFilesChecked)
}

func TestValidateUnknownProfile(t *testing.T) {
	cfg := newPolicy("Standard", map[string]*schema.ProfileThresholds{"Standard": lineOnly(0.5)})
	ghost := newFile("src/Haunted.cs", 10, 10)
	ghost.AssignProfile("Ghost")

	result, err := Validate(cfg, newReport(ghost, newFile("src/Ok.cs", 10, 10)), ValidateOptions{})
	assert.Nil(t, result)
	require.Error(t, err)

	var refErr *schema.ProfileReferenceError
	require.True(t, errors.As(err, &refErr))
	assert.Equal(t, "Ghost", refErr.Profile)
	assert.Equal(t, "src/Haunted.cs", refErr.FilePath)
	assert.ErrorIs(t, err, schema.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "Ghost")
	assert.Contains(t, err.Error(), "src/Haunted.cs")
}

func TestValidateFilteredRun(t *testing.T) {
	cfg := newPolicy("Standard", map[string]*schema.ProfileThresholds{
		"Standard": lineOnly(0.8),
		"Critical": lineOnly(1.0),
	})
	critical := newFile("Payments.cs", 20, 0)
	critical.AssignProfile("Critical")

	report := newReport(
		critical,
		newFile("A.cs", 5, 0),
		newFile("B.cs", 7, 0),
		newFile("Target.cs", 10, 9),
	)

	result, err := Validate(cfg, report, ValidateOptions{FilteredRun: true})
	require.NoError(t, err)
	assert.Equal(t, 3, result.SkippedFiles)
	assert.Equal(t, 1, result.TotalFilesChecked)
	assert.True(t, result.Success())

	skipped := 0
	for _, o := range result.Outcomes {
		if o.Status == schema.SkippedOutcome {
			skipped++
			assert.Empty(t, o.ProfileName)
		}
	}
	assert.Equal(t, 3, skipped)
}

func TestValidateFilteredSkipsUnknownProfileWithZeroCoverage(t *testing.T) {
	cfg := newPolicy("Standard", map[string]*schema.ProfileThresholds{"Standard": lineOnly(0.8)})
	ghost := newFile("Ghost.cs", 10, 0)
	ghost.AssignProfile("Ghost")

	result, err := Validate(cfg, newReport(ghost), ValidateOptions{FilteredRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SkippedFiles)
}

func TestValidateFilteredVersusFull(t *testing.T) {
	cfg := newPolicy("Standard", map[string]*schema.ProfileThresholds{"Standard": lineOnly(0.5)})
	report := newReport(
		newFile("A.cs", 10, 0),
		newFile("B.cs", 10, 3),
		newFile("C.cs", 10, 8),
		newFile("D.cs", 0, 0),
	)

	full, err := Validate(cfg, report, ValidateOptions{})
	require.NoError(t, err)
	filtered, err := Validate(cfg, report, ValidateOptions{FilteredRun: true})
	require.NoError(t, err)

	assert.Equal(t, full.TotalFilesChecked, filtered.SkippedFiles+filtered.TotalFilesChecked)

	fullViolations := map[string]bool{}
	for _, v := range full.Violations {
		fullViolations[v.FilePath] = true
	}
	assert.True(t, fullViolations["A.cs"], "skipped file violates under a full run")
	assert.True(t, fullViolations["D.cs"], "zero-line files have a zero rate")
	assert.True(t, fullViolations["B.cs"])
	assert.False(t, fullViolations["C.cs"])

	for _, v := range filtered.Violations {
		assert.NotEqual(t, "A.cs", v.FilePath)
		assert.NotEqual(t, "D.cs", v.FilePath)
	}
}

func TestValidateMarkerOverridesDefault(t *testing.T) {
	cfg := newPolicy("Strict", map[string]*schema.ProfileThresholds{
		"Strict": lineOnly(1.0),
		"Loose":  lineOnly(0.1),
	})
	loose := newFile("Loose.cs", 10, 2)
	loose.AssignProfile("Loose")
	strictByDefault := newFile("Default.cs", 10, 2)

	result, err := Validate(cfg, newReport(loose, strictByDefault), ValidateOptions{})
	require.NoError(t, err)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "Default.cs", result.Violations[0].FilePath)
	assert.Equal(t, "Strict", result.Violations[0].ProfileName)
}

func TestValidateBranchEnforcement(t *testing.T) {
	cfg := newPolicy("Standard", map[string]*schema.ProfileThresholds{
		"Standard": {MinLine: schema.Threshold(0.5), MinBranch: schema.Threshold(0.75)},
	})
	withBranches := &schema.FileCoverage{FilePath: "Branchy.cs", TotalLines: 10, CoveredLines: 10, TotalBranches: 4, CoveredBranches: 2}
	noBranches := newFile("Flat.cs", 10, 10)
	report := newReport(withBranches, noBranches)

	t.Run("disabled by default", func(t *testing.T) {
		result, err := Validate(cfg, report, ValidateOptions{})
		require.NoError(t, err)
		assert.True(t, result.Success())
	})

	t.Run("enforced", func(t *testing.T) {
		result, err := Validate(cfg, report, ValidateOptions{EnforceBranches: true})
		require.NoError(t, err)
		require.Len(t, result.Violations, 1)
		assert.Equal(t, schema.BranchCoverageTooLow, result.Violations[0].ViolationType)
		assert.Equal(t, "Branchy.cs", result.Violations[0].FilePath)
		assert.InDelta(t, 0.5, result.Violations[0].ActualCoverage, 1e-9)
	})

	t.Run("branch-only profile", func(t *testing.T) {
		branchOnly := newPolicy("B", map[string]*schema.ProfileThresholds{"B": {MinBranch: schema.Threshold(0.9)}})
		result, err := Validate(branchOnly, newReport(newFile("NoData.cs", 10, 0)), ValidateOptions{EnforceBranches: true})
		require.NoError(t, err)
		assert.True(t, result.Success(), "no line threshold and no branch data means nothing to compare")
	})
}

func TestValidateDeterministicOrderAndNoMutation(t *testing.T) {
	cfg := newPolicy("Standard", map[string]*schema.ProfileThresholds{"Standard": lineOnly(0.9)})
	report := newReport(newFile("z.cs", 10, 1), newFile("a.cs", 10, 1), newFile("m.cs", 10, 1))

	result, err := Validate(cfg, report, ValidateOptions{})
	require.NoError(t, err)
	require.Len(t, result.Violations, 3)
	assert.Equal(t, "a.cs", result.Violations[0].FilePath)
	assert.Equal(t, "m.cs", result.Violations[1].FilePath)
	assert.Equal(t, "z.cs", result.Violations[2].FilePath)

	for _, f := range report.Files {
		assert.Nil(t, f.AssignedProfile)
	}
	assert.Equal(t, 3, result.FilesFailed())
	assert.Equal(t, 0, result.FilesPassed())
}

func TestValidatePolicyRoundTrip(t *testing.T) {
	cfg := newPolicy("Standard", map[string]*schema.ProfileThresholds{
		"Standard": lineOnly(0.6),
		"Critical": {MinLine: schema.Threshold(1), MinBranch: schema.Threshold(0.9)},
	})
	critical := newFile("Critical.cs", 10, 9)
	critical.AssignProfile("Critical")
	report := newReport(critical, newFile("A.cs", 10, 5), newFile("B.cs", 10, 7))

	data, err := MarshalPolicy(cfg)
	require.NoError(t, err)
	reloaded, err := LoadPolicyJSON(data, "round-trip")
	require.NoError(t, err)

	before, err := Validate(cfg, report, ValidateOptions{})
	require.NoError(t, err)
	after, err := Validate(reloaded, report, ValidateOptions{})
	require.NoError(t, err)
	assert.Equal(t, before.Violations, after.Violations)
	assert.Equal(t, before.TotalFilesChecked, after.TotalFilesChecked)
}
