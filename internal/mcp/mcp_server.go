// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the CoverBouncer MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"CoverBouncer Coverage Policy Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: verify_coverage ---
	s.AddTool(mcp.NewTool("verify_coverage",
		mcp.WithDescription("Validate a Coverlet JSON coverage report against the per-file coverage policy."),
		mcp.WithString("policy_path", mcp.Description("Path to coverbouncer.json (searched upwards from the working directory when omitted).")),
		mcp.WithString("coverage_path", mcp.Description("Path to the coverage report (defaults to the policy's coverageReportPath).")),
		mcp.WithString("source_root", mcp.Description("Directory that relative source paths in the report are resolved against.")),
		mcp.WithBoolean("filtered", mcp.Description("Skip files with zero covered lines, for runs that executed a subset of tests.")),
		mcp.WithBoolean("enforce_branches", mcp.Description("Also compare branch coverage against minBranch thresholds.")),
	), h.handleVerifyCoverage)

	// --- 2. Tool: resolve_profile ---
	s.AddTool(mcp.NewTool("resolve_profile",
		mcp.WithDescription("Report which coverage profile applies to a source file and its thresholds."),
		mcp.WithString("file_path", mcp.Description("Path to the source file."), mcp.Required()),
		mcp.WithString("policy_path", mcp.Description("Path to coverbouncer.json.")),
	), h.handleResolveProfile)

	// --- 3. Tool: list_profiles ---
	s.AddTool(mcp.NewTool("list_profiles",
		mcp.WithDescription("List the coverage profiles defined in the policy document."),
		mcp.WithString("policy_path", mcp.Description("Path to coverbouncer.json.")),
	), h.handleListProfiles)

	// --- 4. Tool: suggest_profile ---
	s.AddTool(mcp.NewTool("suggest_profile",
		mcp.WithDescription("Suggest a coverage profile for a source file from its name and folder."),
		mcp.WithString("file_path", mcp.Description("Path to the source file."), mcp.Required()),
	), h.handleSuggestProfile)

	return s
}

// StartMCPServer starts the CoverBouncer MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
