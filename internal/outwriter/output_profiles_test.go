package outwriter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/coverbouncer/core"
	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPolicyView(t *testing.T) {
	view := BuildPolicyView(samplePolicy(), "coverbouncer.json")
	assert.Equal(t, "Standard", view.DefaultProfile)
	assert.Equal(t, schema.DefaultCoverageReportPath, view.CoverageReportPath)
	require.Len(t, view.Profiles, 2)
	assert.Equal(t, "Critical", view.Profiles[0].Name)
	assert.False(t, view.Profiles[0].Default)
	require.NotNil(t, view.Profiles[0].MinBranch)
	assert.True(t, view.Profiles[1].Default)
	assert.Nil(t, view.Profiles[1].MinBranch)
}

func TestPrintProfiles(t *testing.T) {
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "profiles.json")
		require.NoError(t, PrintProfiles(samplePolicy(), "coverbouncer.json", &contract.Config{Output: schema.JSONOut, OutputFile: path, Precision: 1}))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var view PolicyView
		require.NoError(t, json.Unmarshal(data, &view))
		assert.Len(t, view.Profiles, 2)
	})

	t.Run("csv", func(t *testing.T) {
		path := filepath.Join(dir, "profiles.csv")
		require.NoError(t, PrintProfiles(samplePolicy(), "coverbouncer.json", &contract.Config{Output: schema.CSVOut, OutputFile: path, Precision: 1}))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "profile,min_line,min_branch,default\nCritical,1.000,0.900,false\nStandard,0.600,,true\n", string(data))
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		view := BuildPolicyView(samplePolicy(), "coverbouncer.json")
		fmtPercent, _ := createFormatters(1)
		require.NoError(t, writeProfilesText(&buf, view, &contract.Config{}, fmtPercent))
		out := buf.String()
		assert.Contains(t, out, "Policy: coverbouncer.json")
		assert.Contains(t, out, "60.0%")
		assert.Contains(t, out, "yes")
	})
}

func TestWriteTaggingText(t *testing.T) {
	result := core.TaggingResult{
		FilesMatched: 3,
		Tagged:       []string{"A.cs"},
		Skipped:      []string{"B.cs"},
		Errors:       []core.TagError{{File: "C.cs", Err: "file not found"}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeTaggingText(&buf, result, TagAction{Verb: "Tagged", Profile: "Critical", DryRun: true}, &contract.Config{}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Tagged 1 of 3 file(s) with profile Critical (dry run, no files written)", lines[0])
	assert.Equal(t, "  PASS A.cs", lines[1])
	assert.Equal(t, "  SKIP B.cs", lines[2])
	assert.Equal(t, "  FAIL C.cs: file not found", lines[3])
}

func TestPrintTaggingResultCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tag.csv")
	result := core.TaggingResult{FilesMatched: 2, Tagged: []string{"A.cs"}, Skipped: []string{}, Errors: []core.TagError{{File: "C.cs", Err: "boom"}}}
	require.NoError(t, NewOutWriter().WriteTagging(result, TagAction{Verb: "Untagged"}, &contract.Config{Output: schema.CSVOut, OutputFile: path}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "status,file,error\nchanged,A.cs,\nerror,C.cs,boom\n", string(data))
}

func TestSuggestions(t *testing.T) {
	suggestions := []Suggestion{
		{FilePath: "src/Z.cs", Suggested: "Standard"},
		{FilePath: "src/Auth/Login.cs", Suggested: "Critical", Current: "Standard"},
		{FilePath: "src/A.cs", Suggested: "Standard"},
	}
	SortSuggestions(suggestions)
	assert.Equal(t, "src/Auth/Login.cs", suggestions[0].FilePath)
	assert.Equal(t, "src/A.cs", suggestions[1].FilePath)

	var buf bytes.Buffer
	require.NoError(t, writeSuggestionsText(&buf, suggestions, &contract.Config{Width: 120}))
	assert.Contains(t, buf.String(), "Critical")
	assert.Contains(t, buf.String(), "coverbouncer tag --profile")

	path := filepath.Join(t.TempDir(), "suggest.json")
	require.NoError(t, NewOutWriter().WriteSuggestions(suggestions, &contract.Config{Output: schema.JSONOut, OutputFile: path}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded []Suggestion
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, suggestions, decoded)
}
