//go:build basic || integration || database

package integration

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	// sharedBinaryPath holds the path to a shared coverbouncer binary built once for all tests.
	sharedBinaryPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getBinary returns the path to the coverbouncer binary, building it once if needed.
func getBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "coverbouncer-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		binaryPath := filepath.Join(tempDir, "coverbouncer")
		buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if err := buildCmd.Run(); err != nil {
			panic(fmt.Sprintf("failed to build coverbouncer: %v", err))
		}

		sharedBinaryPath = binaryPath
	})

	return sharedBinaryPath
}

// projectPolicy gives Critical files a 100% line requirement and everything else 60%.
const projectPolicy = `{
  // generated for integration tests
  "defaultProfile": "Standard",
  "coverageReportPath": "TestResults/coverage.json",
  "profiles": {
    "Standard": { "minLine": 0.6 },
    "Critical": { "minLine": 1.0, "minBranch": 1.0 },
    "Dto":      { "minLine": 0.0 },
  },
}`

// projectCoverage covers Payments.cs at 75%, Orders.cs at 60% and leaves UserDto.cs untouched.
const projectCoverage = `{
  "App.dll": {
    "Documents": {
      "src/Payments.cs": { "Lines": { "1": 1, "2": 1, "3": 1, "4": 0 } },
      "src/Orders.cs":   { "Lines": { "1": 1, "2": 1, "3": 1, "4": 0, "5": 0 } },
      "src/UserDto.cs":  { "Lines": { "1": 0, "2": 0 } }
    }
  }
}`

// writeProject lays out a policy, a coverage report and three C# sources under a temp dir.
func writeProject(t *testing.T, coverage string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"coverbouncer.json":         projectPolicy,
		"TestResults/coverage.json": coverage,
		"src/Payments.cs":           "using System;\n\n// [CoverageProfile(\"Critical\")]\nnamespace App;\n\npublic class Payments { }\n",
		"src/Orders.cs":             "namespace App;\n\npublic class Orders { }\n",
		"src/UserDto.cs":            "namespace App;\n\npublic class UserDto { }\n",
	}
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// runCoverbouncer runs the binary in dir with HOME pointed at a scratch directory,
// returning combined output and the process exit code.
func runCoverbouncer(t *testing.T, dir string, env []string, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(getBinary(), args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	cmd.Env = append(cmd.Env, env...)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return string(output), 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(output), exitErr.ExitCode()
	}
	t.Fatalf("Command failed to start: %s: %v", cmd.String(), err)
	return "", -1
}
