// Package main provides a performance benchmarking tool for the CoverBouncer CLI.
// It generates synthetic C# projects of increasing size with matching Coverlet
// reports, then times `coverbouncer verify` without the marker cache, on a cold
// cache and on a warm cache, generating CSV output for performance analysis.
//
// Prerequisites:
// - coverbouncer binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Scratch directory for generated projects (default: a temp dir)
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Project     string
	Files       int
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir      string
	Timeout      time.Duration
	Workers      int
	NoCacheRuns  int
	CacheRuns    int
	ProjectSizes map[string]int
	ProjectOrder []string
}

func main() {
	if len(os.Args) > 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	workDir := ""
	if len(os.Args) == 2 {
		workDir = os.Args[1]
	} else {
		dir, err := os.MkdirTemp("", "coverbouncer-bench-*")
		if err != nil {
			fmt.Printf("Failed to create work dir: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = os.RemoveAll(dir) }()
		workDir = dir
	}

	config := BenchmarkConfig{
		WorkDir:      workDir,
		Timeout:      5 * time.Minute,
		Workers:      14,
		NoCacheRuns:  3,
		CacheRuns:    4,
		ProjectOrder: []string{"small", "medium", "large"},
		ProjectSizes: map[string]int{"small": 100, "medium": 2000, "large": 20000},
	}

	if _, err := exec.LookPath("coverbouncer"); err != nil {
		fmt.Printf("Prerequisites check failed: coverbouncer binary not found in PATH\n")
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// generateProject writes a policy, n C# sources and a Coverlet report covering them.
// Every tenth file carries a Critical marker.
func generateProject(dir string, n int) error {
	const policy = `{
  "defaultProfile": "Standard",
  "coverageReportPath": "TestResults/coverage.json",
  "profiles": { "Standard": { "minLine": 0.6 }, "Critical": { "minLine": 0.9 } }
}`
	if err := os.MkdirAll(filepath.Join(dir, "TestResults"), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "coverbouncer.json"), []byte(policy), 0o644); err != nil {
		return err
	}

	documents := make(map[string]map[string]map[string]int, n)
	for i := range n {
		rel := fmt.Sprintf("src/Module%03d/Class%05d.cs", i%100, i)
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}

		var src strings.Builder
		src.WriteString("using System;\n\n")
		if i%10 == 0 {
			src.WriteString("// [CoverageProfile(\"Critical\")]\n")
		}
		fmt.Fprintf(&src, "namespace Bench.Module%03d;\n\npublic class Class%05d\n{\n", i%100, i)
		for m := range 20 {
			fmt.Fprintf(&src, "    public int Method%d(int x) => x + %d;\n", m, m)
		}
		src.WriteString("}\n")
		if err := os.WriteFile(path, []byte(src.String()), 0o644); err != nil {
			return err
		}

		lines := make(map[string]int, 20)
		for l := range 20 {
			hits := 1
			if (i+l)%7 == 0 {
				hits = 0
			}
			lines[fmt.Sprint(l+5)] = hits
		}
		documents[rel] = map[string]map[string]int{"Lines": lines}
	}

	report := map[string]map[string]any{"Bench.dll": {"Documents": documents}}
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "TestResults", "coverage.json"), data, 0o644)
}

// runBenchmarks generates every project and benchmarks verify on it.
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d projects, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.ProjectOrder), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, project := range config.ProjectOrder {
		files := config.ProjectSizes[project]
		projectDir := filepath.Join(config.WorkDir, project)
		fmt.Printf("Generating %s project (%d files)\n", project, files)
		if err := generateProject(projectDir, files); err != nil {
			fmt.Printf("Warning: failed to generate %s: %v\n", project, err)
			continue
		}
		results = append(results, runBenchmarkSuite(config, project, projectDir, files))
	}

	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a project
func runBenchmarkSuite(config BenchmarkConfig, project, projectDir string, files int) BenchmarkResult {
	fmt.Printf("Running verify on %s\n", project)

	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, projectDir, cacheBackend, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: No-cache runs
	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")

	// Phase 2: Cache runs against a private SQLite file, so the first run is cold
	cacheFile := filepath.Join(projectDir, "markers.db")
	_ = os.Remove(cacheFile)
	coldTime, warmAvg := runPhase("sqlite:"+cacheFile, config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Project:     project,
		Files:       files,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes verify multiple times with the given cache backend and returns cold time and warm times.
// A backend of the form sqlite:<path> selects SQLite with an explicit database file.
func runBenchmark(config BenchmarkConfig, projectDir, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{"verify", "--fail-on-violations=false", "--workers", fmt.Sprint(config.Workers)}
	if backend, file, ok := strings.Cut(cacheBackend, ":"); ok {
		args = append(args, "--cache-backend", backend, "--cache-db-connect", file)
	} else {
		args = append(args, "--cache-backend", cacheBackend)
	}

	var times []float64
	for range numRuns {
		start := time.Now()

		cmd := exec.Command("coverbouncer", args...)
		cmd.Dir = projectDir

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Verification completed in") &&
		strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("coverbouncer_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"project", "files", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		if err := writer.Write([]string{result.Project, fmt.Sprint(result.Files), result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	fmt.Printf("Verify:\n")
	for _, result := range results {
		fmt.Printf("  %-8s (%6d files): No-cache: %s, Cold: %s, Warm: %s\n", result.Project, result.Files, result.NoCacheTime, result.ColdTime, result.WarmTime)
	}
}
