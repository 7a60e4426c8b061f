package schema

import (
	"fmt"
	"slices"
	"strings"
)

// ProfileThresholds holds the minimum rates a file must reach under one profile.
// A nil threshold is not enforced.
type ProfileThresholds struct {
	MinLine   *float64 `json:"minLine,omitempty"`
	MinBranch *float64 `json:"minBranch,omitempty"`
}

// PolicyConfiguration is the validated policy document.
type PolicyConfiguration struct {
	DefaultProfile     string                        `json:"defaultProfile"`
	Profiles           map[string]*ProfileThresholds `json:"profiles"`
	CoverageReportPath string                        `json:"coverageReportPath"`
}

// Threshold returns a pointer to v for building ProfileThresholds literals.
func Threshold(v float64) *float64 {
	return &v
}

// NewPolicyConfiguration returns an empty configuration with document defaults applied.
func NewPolicyConfiguration() *PolicyConfiguration {
	return &PolicyConfiguration{
		Profiles:           make(map[string]*ProfileThresholds),
		CoverageReportPath: DefaultCoverageReportPath,
	}
}

// Validate checks the range and presence rules of a single profile.
func (t *ProfileThresholds) Validate(profileName string) error {
	if t.MinLine != nil && (*t.MinLine < 0 || *t.MinLine > 1) {
		return &ConfigError{
			Field:   "minLine",
			Profile: profileName,
			Reason:  fmt.Sprintf("profile '%s': minLine must be between 0.0 and 1.0, got %g", profileName, *t.MinLine),
		}
	}
	if t.MinBranch != nil && (*t.MinBranch < 0 || *t.MinBranch > 1) {
		return &ConfigError{
			Field:   "minBranch",
			Profile: profileName,
			Reason:  fmt.Sprintf("profile '%s': minBranch must be between 0.0 and 1.0, got %g", profileName, *t.MinBranch),
		}
	}
	if t.MinLine == nil && t.MinBranch == nil {
		return &ConfigError{
			Field:   "profiles",
			Profile: profileName,
			Reason:  fmt.Sprintf("profile '%s' must define at least one of minLine or minBranch", profileName),
		}
	}
	return nil
}

// Validate checks every document invariant and reports the first one broken.
// Profiles are visited in name order so the reported profile is stable.
func (c *PolicyConfiguration) Validate() error {
	if strings.TrimSpace(c.DefaultProfile) == "" {
		return &ConfigError{Field: "defaultProfile", Reason: "defaultProfile cannot be empty"}
	}
	if len(c.Profiles) == 0 {
		return &ConfigError{Field: "profiles", Reason: "at least one profile must be defined"}
	}
	if _, ok := c.Profiles[c.DefaultProfile]; !ok {
		return &ConfigError{
			Field:   "defaultProfile",
			Profile: c.DefaultProfile,
			Reason: fmt.Sprintf("defaultProfile '%s' is not defined in profiles. Available profiles: %s",
				c.DefaultProfile, strings.Join(c.ProfileNames(), ", ")),
		}
	}

	names := c.ProfileNames()
	for _, name := range names {
		if c.Profiles[name] == nil {
			return &ConfigError{
				Field:   "profiles",
				Profile: name,
				Reason:  fmt.Sprintf("profile '%s' has no thresholds", name),
			}
		}
	}
	for _, name := range names {
		if err := c.Profiles[name].Validate(name); err != nil {
			return err
		}
	}

	if strings.TrimSpace(c.CoverageReportPath) == "" {
		return &ConfigError{Field: "coverageReportPath", Reason: "coverageReportPath cannot be empty"}
	}
	return nil
}

// ProfileNames returns the defined profile names in sorted order.
func (c *PolicyConfiguration) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Thresholds looks up a profile by its exact name.
func (c *PolicyConfiguration) Thresholds(name string) (*ProfileThresholds, bool) {
	t, ok := c.Profiles[name]
	return t, ok && t != nil
}
