package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/coverbouncer/internal/contract"
	mcp_internal "github.com/huangsam/coverbouncer/internal/mcp"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	root         string
	policyPath   string
	coveragePath string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	write := func(rel, content string) string {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}
	f := fixture{root: root}
	f.policyPath = write("coverbouncer.json", `{
		"defaultProfile": "Standard",
		"profiles": { "Standard": { "minLine": 0.5 }, "Critical": { "minLine": 1.0 } }
	}`)
	f.coveragePath = write("coverage.json", `{"App.dll":{"Documents":{
		"src/Payments.cs": { "Lines": { "1": 1, "2": 0 } },
		"src/Plain.cs":    { "Lines": { "1": 1, "2": 0 } }
	}}}`)
	write("src/Payments.cs", "// [CoverageProfile(\"Critical\")]\nnamespace App;\n")
	write("src/Plain.cs", "namespace App;\n")
	write("src/Ghost.cs", "// [CoverageProfile(\"Ghost\")]\n")
	return f
}

func call(t *testing.T, baseCfg *contract.Config, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	s := mcp_internal.NewMCPServer(baseCfg, nil)
	tool := s.GetTool(name)
	require.NotNil(t, tool, "tool %s should exist", name)

	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	require.NotEmpty(t, res.Content)
	return res
}

func text(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestVerifyCoverage(t *testing.T) {
	f := newFixture(t)
	baseCfg := &contract.Config{SourceRoot: f.root, Workers: 2}

	res := call(t, baseCfg, "verify_coverage", map[string]any{
		"policy_path":   f.policyPath,
		"coverage_path": f.coveragePath,
	})
	require.False(t, res.IsError, text(res))

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(res)), &doc))
	assert.Equal(t, false, doc["success"])
	assert.Equal(t, "Standard", doc["default_profile"])
	violations := doc["violations"].([]any)
	require.Len(t, violations, 1)
	assert.Equal(t, "src/Payments.cs", violations[0].(map[string]any)["file_path"])
}

func TestVerifyCoverageFiltered(t *testing.T) {
	f := newFixture(t)
	baseCfg := &contract.Config{SourceRoot: f.root, Workers: 1, PolicyPath: f.policyPath, CoveragePath: f.coveragePath}

	res := call(t, baseCfg, "verify_coverage", map[string]any{"enforce_branches": true, "filtered": true})
	require.False(t, res.IsError, text(res))
	assert.Contains(t, text(res), `"skipped_files": 0`)
}

func TestVerifyCoverageErrors(t *testing.T) {
	f := newFixture(t)
	baseCfg := &contract.Config{SourceRoot: f.root, Workers: 1, SkipMissing: true}

	res := call(t, baseCfg, "verify_coverage", map[string]any{
		"policy_path":   f.policyPath,
		"coverage_path": filepath.Join(f.root, "missing.json"),
	})
	assert.True(t, res.IsError, "missing coverage is an error even when the CLI would skip it")
	assert.Contains(t, text(res), "verification failed")
}

func TestResolveProfile(t *testing.T) {
	f := newFixture(t)
	baseCfg := &contract.Config{SourceRoot: f.root, PolicyPath: f.policyPath}

	t.Run("explicit marker", func(t *testing.T) {
		res := call(t, baseCfg, "resolve_profile", map[string]any{"file_path": "src/Payments.cs"})
		require.False(t, res.IsError, text(res))
		assert.Contains(t, text(res), `"explicit_profile": "Critical"`)
		assert.Contains(t, text(res), `"minLine": 1`)
	})

	t.Run("default profile", func(t *testing.T) {
		res := call(t, baseCfg, "resolve_profile", map[string]any{"file_path": "src/Plain.cs"})
		require.False(t, res.IsError, text(res))
		assert.Contains(t, text(res), `"effective_profile": "Standard"`)
		assert.NotContains(t, text(res), "explicit_profile")
	})

	t.Run("unknown profile", func(t *testing.T) {
		res := call(t, baseCfg, "resolve_profile", map[string]any{"file_path": "src/Ghost.cs"})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "references profile 'Ghost' which does not exist in configuration")
	})

	t.Run("missing file_path", func(t *testing.T) {
		res := call(t, baseCfg, "resolve_profile", map[string]any{})
		assert.True(t, res.IsError)
		assert.Contains(t, text(res), "file_path is required")
	})
}

func TestListProfiles(t *testing.T) {
	f := newFixture(t)

	res := call(t, &contract.Config{}, "list_profiles", map[string]any{"policy_path": f.policyPath})
	require.False(t, res.IsError, text(res))
	var view struct {
		DefaultProfile string `json:"default_profile"`
		Profiles       []struct {
			Name string `json:"name"`
		} `json:"profiles"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(res)), &view))
	assert.Equal(t, "Standard", view.DefaultProfile)
	require.Len(t, view.Profiles, 2)
	assert.Equal(t, "Critical", view.Profiles[0].Name)

	res = call(t, &contract.Config{}, "list_profiles", map[string]any{"policy_path": filepath.Join(f.root, "missing-policy-7f3a.json")})
	assert.True(t, res.IsError)
	assert.Contains(t, text(res), "failed to load policy")
}

func TestSuggestProfile(t *testing.T) {
	res := call(t, &contract.Config{}, "suggest_profile", map[string]any{"file_path": "src/Controllers/HomeController.cs"})
	require.False(t, res.IsError, text(res))
	assert.Contains(t, text(res), `"suggested_profile": "Integration"`)
}
