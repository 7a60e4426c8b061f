package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/internal/iocache"
	"github.com/huangsam/coverbouncer/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	calls  int
	result *schema.ValidationResult
	policy *schema.PolicyConfiguration
	err    error
}

func (w *recordingWriter) WriteValidation(result *schema.ValidationResult, policy *schema.PolicyConfiguration, _ *contract.Config, _ time.Duration) error {
	w.calls++
	w.result = result
	w.policy = policy
	return w.err
}

// verifyFixture lays out a policy, a coverage report and two source files.
func verifyFixture(t *testing.T, coverage string) *contract.Config {
	t.Helper()
	root := t.TempDir()
	policyPath := writeSourceFile(t, root, "coverbouncer.json", `{
		"defaultProfile": "Standard",
		"profiles": { "Standard": { "minLine": 0.6 }, "Critical": { "minLine": 1.0 } }
	}`)
	coveragePath := writeSourceFile(t, root, "coverage.json", coverage)
	writeSourceFile(t, root, "src/Payments.cs", criticalTag+"\nnamespace App;\n")
	writeSourceFile(t, root, "src/Plain.cs", "namespace App;\n")

	return &contract.Config{
		PolicyPath:       policyPath,
		CoveragePath:     coveragePath,
		SourceRoot:       root,
		Workers:          2,
		FailOnViolations: true,
	}
}

const verifyCoverage = `{
  "App.dll": {
    "Documents": {
      "src/Payments.cs": { "Lines": { "1": 1, "2": 1, "3": 0 } },
      "src/Plain.cs":    { "Lines": { "1": 1, "2": 1, "3": 0 } }
    }
  }
}`

func TestExecuteVerify(t *testing.T) {
	cfg := verifyFixture(t, verifyCoverage)
	out := &recordingWriter{}

	result, err := ExecuteVerify(context.Background(), cfg, nil, out)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 2, result.TotalFilesChecked)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "src/Payments.cs", result.Violations[0].FilePath)
	assert.Equal(t, "Critical", result.Violations[0].ProfileName)
	assert.False(t, result.Success())

	assert.Equal(t, 1, out.calls)
	assert.Same(t, result, out.result)
	assert.Equal(t, "Standard", out.policy.DefaultProfile)
}

func TestExecuteVerifyFilteredRun(t *testing.T) {
	cfg := verifyFixture(t, `{"App.dll":{"Documents":{
		"src/Payments.cs": { "Lines": { "1": 0, "2": 0 } },
		"src/Plain.cs":    { "Lines": { "1": 1, "2": 1 } }
	}}}`)
	cfg.FilteredRun = true

	result, err := ExecuteVerify(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SkippedFiles)
	assert.Equal(t, 1, result.TotalFilesChecked)
	assert.True(t, result.Success())
}

func TestExecuteVerifyUnknownProfile(t *testing.T) {
	cfg := verifyFixture(t, verifyCoverage)
	writeSourceFile(t, cfg.SourceRoot, "src/Plain.cs", `// [CoverageProfile("Ghost")]`)
	out := &recordingWriter{}

	result, err := ExecuteVerify(context.Background(), cfg, nil, out)
	assert.Nil(t, result)
	var refErr *schema.ProfileReferenceError
	require.True(t, errors.As(err, &refErr))
	assert.Equal(t, "Ghost", refErr.Profile)
	assert.Zero(t, out.calls)
}

func TestExecuteVerifyCoveragePathFromPolicy(t *testing.T) {
	cfg := verifyFixture(t, verifyCoverage)
	relocated := filepath.Join(cfg.SourceRoot, "TestResults", "coverage.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(relocated), 0o755))
	require.NoError(t, os.Rename(cfg.CoveragePath, relocated))
	require.NoError(t, os.WriteFile(cfg.PolicyPath, []byte(`{
		"defaultProfile": "Standard",
		"coverageReportPath": "`+filepath.ToSlash(relocated)+`",
		"profiles": { "Standard": { "minLine": 0.5 }, "Critical": { "minLine": 0.5 } }
	}`), 0o644))
	cfg.CoveragePath = ""

	result, err := ExecuteVerify(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	assert.True(t, result.Success())
}

func TestExecuteVerifyMissingInputs(t *testing.T) {
	t.Run("missing coverage is fatal by default", func(t *testing.T) {
		cfg := verifyFixture(t, verifyCoverage)
		cfg.CoveragePath = filepath.Join(cfg.SourceRoot, "absent.json")
		_, err := ExecuteVerify(context.Background(), cfg, nil, nil)
		assert.ErrorIs(t, err, schema.ErrNotFound)
	})

	t.Run("missing coverage is skipped when allowed", func(t *testing.T) {
		cfg := verifyFixture(t, verifyCoverage)
		cfg.CoveragePath = filepath.Join(cfg.SourceRoot, "absent.json")
		cfg.SkipMissing = true
		out := &recordingWriter{}

		result, err := ExecuteVerify(context.Background(), cfg, nil, out)
		require.NoError(t, err)
		assert.True(t, result.Success())
		assert.Zero(t, result.TotalFilesChecked)
		assert.Zero(t, out.calls)
	})

	t.Run("missing policy is skipped when allowed", func(t *testing.T) {
		cfg := verifyFixture(t, verifyCoverage)
		cfg.PolicyPath = filepath.Join(cfg.SourceRoot, "missing-policy-7f3a.json")
		cfg.SkipMissing = true

		result, err := ExecuteVerify(context.Background(), cfg, nil, nil)
		require.NoError(t, err)
		assert.True(t, result.Success())
	})

	t.Run("malformed coverage is never skipped", func(t *testing.T) {
		cfg := verifyFixture(t, `[]`)
		cfg.SkipMissing = true
		_, err := ExecuteVerify(context.Background(), cfg, nil, nil)
		assert.ErrorIs(t, err, schema.ErrMalformedInput)
	})
}

func TestExecuteVerifyRecordsHistory(t *testing.T) {
	cfg := verifyFixture(t, verifyCoverage)

	history := &iocache.MockHistoryStore{}
	history.On("BeginRun", mock.Anything, mock.MatchedBy(func(params map[string]any) bool {
		return params["default_profile"] == "Standard" && params["policy"] == cfg.PolicyPath
	})).Return(int64(9), nil)
	history.On("RecordFileOutcome", int64(9), mock.Anything).Return(nil).Twice()
	history.On("EndRun", int64(9), mock.MatchedBy(func(s schema.RunSummary) bool {
		return s.TotalFilesChecked == 2 && s.ViolationCount == 1 && !s.Success
	})).Return(nil)

	mgr := &iocache.MockStoreManager{}
	mgr.On("GetMarkerStore").Return(nil)
	mgr.On("GetHistoryStore").Return(history)

	_, err := ExecuteVerify(context.Background(), cfg, mgr, nil)
	require.NoError(t, err)
	history.AssertExpectations(t)
	mgr.AssertExpectations(t)
}

func TestExecuteVerifyHistoryFailureIsNotFatal(t *testing.T) {
	cfg := verifyFixture(t, verifyCoverage)

	history := &iocache.MockHistoryStore{}
	history.On("BeginRun", mock.Anything, mock.Anything).Return(int64(0), assert.AnError)

	mgr := &iocache.MockStoreManager{}
	mgr.On("GetMarkerStore").Return(nil)
	mgr.On("GetHistoryStore").Return(history)

	result, err := ExecuteVerify(context.Background(), cfg, mgr, nil)
	require.NoError(t, err)
	assert.Len(t, result.Violations, 1)
	history.AssertNotCalled(t, "EndRun")
}

func TestExecuteVerifyWriterError(t *testing.T) {
	cfg := verifyFixture(t, verifyCoverage)
	out := &recordingWriter{err: assert.AnError}

	result, err := ExecuteVerify(context.Background(), cfg, nil, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NotNil(t, result)
}
