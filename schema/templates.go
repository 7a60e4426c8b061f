package schema

import (
	"fmt"
	"slices"
	"strings"
)

// Starter policy templates offered by `coverbouncer init`.
const (
	TemplateBasic   = "basic"
	TemplateStrict  = "strict"
	TemplateRelaxed = "relaxed"
)

// TemplateNames lists the supported template names.
var TemplateNames = []string{TemplateBasic, TemplateStrict, TemplateRelaxed}

// GetTemplate returns a fresh copy of the named starter policy.
func GetTemplate(name string) (*PolicyConfiguration, error) {
	cfg := NewPolicyConfiguration()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case TemplateBasic:
		cfg.DefaultProfile = "Standard"
		cfg.Profiles["Standard"] = &ProfileThresholds{MinLine: Threshold(0.70), MinBranch: Threshold(0.60)}
		cfg.Profiles["BusinessLogic"] = &ProfileThresholds{MinLine: Threshold(0.90), MinBranch: Threshold(0.80)}
		cfg.Profiles["Critical"] = &ProfileThresholds{MinLine: Threshold(1.00), MinBranch: Threshold(1.00)}
		cfg.Profiles["Dto"] = &ProfileThresholds{MinLine: Threshold(0.00), MinBranch: Threshold(0.00)}
	case TemplateStrict:
		cfg.DefaultProfile = "High"
		cfg.Profiles["High"] = &ProfileThresholds{MinLine: Threshold(0.90), MinBranch: Threshold(0.85)}
		cfg.Profiles["Critical"] = &ProfileThresholds{MinLine: Threshold(1.00), MinBranch: Threshold(1.00)}
		cfg.Profiles["Moderate"] = &ProfileThresholds{MinLine: Threshold(0.75), MinBranch: Threshold(0.70)}
		cfg.Profiles["Low"] = &ProfileThresholds{MinLine: Threshold(0.50), MinBranch: Threshold(0.40)}
	case TemplateRelaxed:
		cfg.DefaultProfile = "Low"
		cfg.Profiles["Low"] = &ProfileThresholds{MinLine: Threshold(0.50)}
		cfg.Profiles["Moderate"] = &ProfileThresholds{MinLine: Threshold(0.70)}
		cfg.Profiles["Important"] = &ProfileThresholds{MinLine: Threshold(0.80), MinBranch: Threshold(0.70)}
		cfg.Profiles["Critical"] = &ProfileThresholds{MinLine: Threshold(1.00), MinBranch: Threshold(1.00)}
	default:
		return nil, fmt.Errorf("unknown template '%s'. must be one of: %s", name, strings.Join(TemplateNames, ", "))
	}
	return cfg, nil
}

// IsTemplate reports whether name matches a supported template.
func IsTemplate(name string) bool {
	return slices.Contains(TemplateNames, strings.ToLower(strings.TrimSpace(name)))
}
