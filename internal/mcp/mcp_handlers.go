package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/coverbouncer/core"
	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/internal/outwriter"
	"github.com/huangsam/coverbouncer/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
}

// jsonResultWriter captures a verification result as JSON for a tool response.
type jsonResultWriter struct {
	buf bytes.Buffer
}

func (jw *jsonResultWriter) WriteValidation(result *schema.ValidationResult, policy *schema.PolicyConfiguration, _ *contract.Config, duration time.Duration) error {
	return outwriter.WriteValidationJSON(&jw.buf, result, policy, duration)
}

// profileResolution is the resolve_profile response.
type profileResolution struct {
	FilePath         string                    `json:"file"`
	ExplicitProfile  string                    `json:"explicit_profile,omitempty"`
	EffectiveProfile string                    `json:"effective_profile"`
	Thresholds       *schema.ProfileThresholds `json:"thresholds"`
}

func (h *toolHandler) handleVerifyCoverage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if p := request.GetString("policy_path", ""); p != "" {
		cfg.PolicyPath = p
	}
	if c := request.GetString("coverage_path", ""); c != "" {
		cfg.CoveragePath = c
	}
	if r := request.GetString("source_root", ""); r != "" {
		cfg.SourceRoot = r
	}
	cfg.FilteredRun = request.GetBool("filtered", cfg.FilteredRun)
	cfg.EnforceBranches = request.GetBool("enforce_branches", cfg.EnforceBranches)
	cfg.SkipMissing = false

	out := &jsonResultWriter{}
	if _, err := core.ExecuteVerify(ctx, cfg, h.mgr, out); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("verification failed: %v", err)), nil
	}
	return mcp.NewToolResultText(out.buf.String()), nil
}

func (h *toolHandler) handleResolveProfile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath := request.GetString("file_path", "")
	if filePath == "" {
		return mcp.NewToolResultError("file_path is required"), nil
	}
	policy, err := h.loadPolicy(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load policy: %v", err)), nil
	}

	resolver := core.NewProfileResolver(h.baseCfg.SourceRoot, 1, h.markerStore())
	explicit, found := resolver.ResolveFile(filePath)

	resolution := profileResolution{FilePath: filePath, EffectiveProfile: policy.DefaultProfile}
	if found {
		resolution.ExplicitProfile = explicit
		resolution.EffectiveProfile = explicit
	}
	thresholds, ok := policy.Thresholds(resolution.EffectiveProfile)
	if !ok {
		refErr := &schema.ProfileReferenceError{FilePath: filePath, Profile: resolution.EffectiveProfile}
		return mcp.NewToolResultError(refErr.Error()), nil
	}
	resolution.Thresholds = thresholds

	jsonData, _ := json.MarshalIndent(resolution, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleListProfiles(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	policy, err := h.loadPolicy(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load policy: %v", err)), nil
	}
	view := outwriter.BuildPolicyView(policy, h.policyPath(request))
	jsonData, _ := json.MarshalIndent(view, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleSuggestProfile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath := request.GetString("file_path", "")
	if filePath == "" {
		return mcp.NewToolResultError("file_path is required"), nil
	}
	suggestion := outwriter.Suggestion{FilePath: filePath, Suggested: core.SuggestProfile(filePath)}
	if current, found := core.ReadProfileMarker(filePath); found {
		suggestion.Current = current
	}
	jsonData, _ := json.MarshalIndent(suggestion, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) policyPath(request mcp.CallToolRequest) string {
	return request.GetString("policy_path", h.baseCfg.PolicyPath)
}

func (h *toolHandler) loadPolicy(request mcp.CallToolRequest) (*schema.PolicyConfiguration, error) {
	policy, _, err := core.LoadPolicySmart(h.policyPath(request))
	return policy, err
}

func (h *toolHandler) markerStore() contract.CacheStore {
	if h.mgr == nil {
		return nil
	}
	return h.mgr.GetMarkerStore()
}
