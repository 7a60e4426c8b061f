package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/schema"
)

// VerifyBuilder runs a verification step by step using a builder pattern.
type VerifyBuilder struct {
	ctx          context.Context
	cfg          *contract.Config
	mgr          contract.StoreManager
	startTime    time.Time
	policy       *schema.PolicyConfiguration
	policyPath   string
	coveragePath string
	report       *schema.CoverageReport
	result       *schema.ValidationResult
	skipped      bool
}

// NewVerifyBuilder creates a new builder for a verification run. mgr may be nil.
func NewVerifyBuilder(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) *VerifyBuilder {
	return &VerifyBuilder{
		ctx:       ctx,
		cfg:       cfg,
		mgr:       mgr,
		startTime: time.Now(),
	}
}

// LoadPolicy finds and loads the policy document.
func (b *VerifyBuilder) LoadPolicy() (*VerifyBuilder, error) {
	policy, path, err := LoadPolicySmart(b.cfg.PolicyPath)
	if err != nil {
		if b.skipMissing(err, "configuration file not found; run 'coverbouncer init' to create one") {
			return b, nil
		}
		return nil, err
	}
	b.policy = policy
	b.policyPath = path
	return b, nil
}

// LoadCoverage parses the coverage report named by the config or the policy.
func (b *VerifyBuilder) LoadCoverage() (*VerifyBuilder, error) {
	if b.skipped {
		return b, nil
	}
	b.coveragePath = b.cfg.CoveragePath
	if b.coveragePath == "" {
		b.coveragePath = b.policy.CoverageReportPath
	}

	report, err := ParseCoverageFile(b.coveragePath)
	if err != nil {
		if b.skipMissing(err, "coverage report not found; run tests with coverage collection enabled") {
			return b, nil
		}
		return nil, err
	}
	b.report = report
	return b, nil
}

// ResolveProfiles reads profile markers from the source files in the report.
func (b *VerifyBuilder) ResolveProfiles() (*VerifyBuilder, error) {
	if b.skipped {
		return b, nil
	}
	var cache contract.CacheStore
	if b.mgr != nil {
		cache = b.mgr.GetMarkerStore()
	}
	resolver := NewProfileResolver(b.cfg.SourceRoot, b.cfg.Workers, cache)
	if err := resolver.Resolve(b.ctx, b.report); err != nil {
		return nil, fmt.Errorf("failed to resolve coverage profiles: %w", err)
	}
	return b, nil
}

// Validate runs the validation engine over the resolved report.
func (b *VerifyBuilder) Validate() (*VerifyBuilder, error) {
	if b.skipped {
		return b, nil
	}
	result, err := Validate(b.policy, b.report, ValidateOptions{
		FilteredRun:     b.cfg.FilteredRun,
		EnforceBranches: b.cfg.EnforceBranches,
	})
	if err != nil {
		return nil, err
	}
	b.result = result
	return b, nil
}

// Record stores the run in the history store when one is configured.
// Failures are reported as warnings and never fail the verification.
func (b *VerifyBuilder) Record() *VerifyBuilder {
	if b.skipped || b.result == nil || b.mgr == nil {
		return b
	}
	store := b.mgr.GetHistoryStore()
	if store == nil {
		return b
	}

	runID, err := store.BeginRun(b.startTime, b.configParams())
	if err != nil {
		contract.LogWarn("failed to record verification run", err)
		return b
	}
	for _, outcome := range b.result.Outcomes {
		if err := store.RecordFileOutcome(runID, outcome); err != nil {
			contract.LogWarn("failed to record file outcome", err)
		}
	}
	err = store.EndRun(runID, schema.RunSummary{
		EndTime:           time.Now(),
		TotalFilesChecked: b.result.TotalFilesChecked,
		SkippedFiles:      b.result.SkippedFiles,
		ViolationCount:    len(b.result.Violations),
		Success:           b.result.Success(),
	})
	if err != nil {
		contract.LogWarn("failed to finish verification run", err)
	}
	return b
}

// GetResult returns the validation result.
func (b *VerifyBuilder) GetResult() *schema.ValidationResult {
	return b.result
}

// GetPolicy returns the loaded policy and the path it was read from.
func (b *VerifyBuilder) GetPolicy() (*schema.PolicyConfiguration, string) {
	return b.policy, b.policyPath
}

// Skipped reports whether a missing input ended the run early.
func (b *VerifyBuilder) Skipped() bool {
	return b.skipped
}

// skipMissing turns a not-found error into a warning and an empty passing result
// when the config allows it.
func (b *VerifyBuilder) skipMissing(err error, hint string) bool {
	if !b.cfg.SkipMissing || !errors.Is(err, schema.ErrNotFound) {
		return false
	}
	contract.LogWarn(hint+"; skipping coverage verification", err)
	b.skipped = true
	b.result = &schema.ValidationResult{
		Violations:  []schema.CoverageViolation{},
		ValidatedAt: time.Now().UTC(),
	}
	return true
}

func (b *VerifyBuilder) configParams() map[string]any {
	return map[string]any{
		"policy":           b.policyPath,
		"coverage":         b.coveragePath,
		"source_root":      b.cfg.SourceRoot,
		"filtered":         b.cfg.FilteredRun,
		"enforce_branches": b.cfg.EnforceBranches,
		"default_profile":  b.policy.DefaultProfile,
		"profiles":         b.policy.ProfileNames(),
	}
}

// ExecuteVerify runs the full verification pipeline and renders the result with out.
// The returned result decides the exit status; out may be nil.
func ExecuteVerify(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, out contract.ResultWriter) (*schema.ValidationResult, error) {
	builder := NewVerifyBuilder(ctx, cfg, mgr)

	if _, err := builder.LoadPolicy(); err != nil {
		return nil, err
	}
	if _, err := builder.LoadCoverage(); err != nil {
		return nil, err
	}
	if _, err := builder.ResolveProfiles(); err != nil {
		return nil, err
	}
	if _, err := builder.Validate(); err != nil {
		return nil, err
	}
	builder.Record()

	result := builder.GetResult()
	if builder.Skipped() || out == nil {
		return result, nil
	}
	policy, _ := builder.GetPolicy()
	if err := out.WriteValidation(result, policy, cfg, time.Since(builder.startTime)); err != nil {
		return result, fmt.Errorf("failed to write results: %w", err)
	}
	return result, nil
}
