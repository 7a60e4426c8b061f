package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// ProfileView is the presentation form of one policy profile.
type ProfileView struct {
	Name      string   `json:"name"`
	MinLine   *float64 `json:"min_line,omitempty"`
	MinBranch *float64 `json:"min_branch,omitempty"`
	Default   bool     `json:"default"`
}

// PolicyView is the presentation form of a policy document.
type PolicyView struct {
	PolicyPath         string        `json:"policy_path"`
	DefaultProfile     string        `json:"default_profile"`
	CoverageReportPath string        `json:"coverage_report_path"`
	Profiles           []ProfileView `json:"profiles"`
}

// BuildPolicyView flattens a policy into sorted profile rows.
func BuildPolicyView(policy *schema.PolicyConfiguration, policyPath string) PolicyView {
	view := PolicyView{
		PolicyPath:         policyPath,
		DefaultProfile:     policy.DefaultProfile,
		CoverageReportPath: policy.CoverageReportPath,
		Profiles:           []ProfileView{},
	}
	for _, name := range policy.ProfileNames() {
		t, _ := policy.Thresholds(name)
		view.Profiles = append(view.Profiles, ProfileView{
			Name:      name,
			MinLine:   thresholdLine(t),
			MinBranch: thresholdBranch(t),
			Default:   name == policy.DefaultProfile,
		})
	}
	return view
}

// PrintProfiles outputs the profiles of a policy in the configured format.
func PrintProfiles(policy *schema.PolicyConfiguration, policyPath string, cfg *contract.Config) error {
	view := BuildPolicyView(policy, policyPath)
	fmtPercent, fmtRate := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, view)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"profile", "min_line", "min_branch", "default"}, func(cw *csv.Writer) error {
				for _, p := range view.Profiles {
					rec := []string{p.Name, optionalRate(p.MinLine, fmtRate), optionalRate(p.MinBranch, fmtRate), fmt.Sprintf("%t", p.Default)}
					if err := cw.Write(rec); err != nil {
						return err
					}
				}
				return nil
			})
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeProfilesText(w, view, cfg, fmtPercent)
		}, "Wrote text")
	}
}

func writeProfilesText(w io.Writer, view PolicyView, cfg *contract.Config, fmtPercent func(float64) string) error {
	if _, err := fmt.Fprintln(w, withEmoji(cfg, "📋", "Policy: "+view.PolicyPath)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Coverage report: %s\n", view.CoverageReportPath); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Profile", "Min Line", "Min Branch", "Default"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignLeft
	})
	var data [][]string
	for _, p := range view.Profiles {
		def := ""
		if p.Default {
			def = "yes"
		}
		data = append(data, []string{p.Name, formatThreshold(p.MinLine, fmtPercent), formatThreshold(p.MinBranch, fmtPercent), def})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// optionalRate renders an optional fraction, leaving the cell empty when unset.
func optionalRate(v *float64, fmtRate func(float64) string) string {
	if v == nil {
		return ""
	}
	return fmtRate(*v)
}
