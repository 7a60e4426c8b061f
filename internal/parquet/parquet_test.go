package parquet

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/coverbouncer/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRuns() []VerificationRun {
	now := time.Now()
	end := now.Add(2 * time.Second)
	duration := int32(2000)
	params := `{"filtered":false,"policy":"coverbouncer.json"}`

	return []VerificationRun{
		{
			RunID:             1,
			StartTime:         now,
			EndTime:           &end,
			RunDurationMs:     &duration,
			TotalFilesChecked: 42,
			SkippedFiles:      3,
			ViolationCount:    2,
			Success:           false,
			ConfigParams:      &params,
		},
		{
			RunID:     2,
			StartTime: now.Add(time.Minute),
			// Still running: nullable fields are nil
		},
	}
}

func sampleOutcomes() []FileOutcome {
	required := 0.8
	now := time.Now()
	return []FileOutcome{
		{RunID: 1, FilePath: "src/Payments/Charge.cs", RecordedAt: now, ProfileName: "Critical", Status: "failed", TotalLines: 10, CoveredLines: 7, LineRate: 0.7, RequiredLine: &required},
		{RunID: 1, FilePath: "src/Dto/User.cs", RecordedAt: now, Status: "skipped", TotalLines: 4},
	}
}

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func TestVerificationRunStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(VerificationRun))
	for _, col := range []string{"run_id", "start_time", "end_time", "run_duration_ms", "total_files_checked", "skipped_files", "violation_count", "success", "config_params"} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "column %s should exist in schema", col)
	}
}

func TestFileOutcomeStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(FileOutcome))
	for _, col := range []string{"run_id", "file_path", "recorded_at", "profile_name", "status", "total_lines", "covered_lines", "line_rate", "required_line"} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "column %s should exist in schema", col)
	}
}

func TestWriteVerificationRunsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "runs.parquet")
	data := sampleRuns()
	require.NoError(t, WriteVerificationRunsParquet(data, outputPath))

	got := readAll[VerificationRun](t, outputPath)
	require.Len(t, got, len(data))

	assert.Equal(t, int64(1), got[0].RunID)
	assert.Equal(t, int32(42), got[0].TotalFilesChecked)
	assert.Equal(t, int32(2), got[0].ViolationCount)
	assert.False(t, got[0].Success)
	require.NotNil(t, got[0].EndTime)
	assert.WithinDuration(t, *data[0].EndTime, *got[0].EndTime, time.Nanosecond)
	require.NotNil(t, got[0].ConfigParams)
	assert.Equal(t, *data[0].ConfigParams, *got[0].ConfigParams)

	assert.Nil(t, got[1].EndTime)
	assert.Nil(t, got[1].RunDurationMs)
	assert.Nil(t, got[1].ConfigParams)
}

func TestWriteFileOutcomesParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "outcomes.parquet")
	data := sampleOutcomes()
	require.NoError(t, WriteFileOutcomesParquet(data, outputPath))

	got := readAll[FileOutcome](t, outputPath)
	require.Len(t, got, 2)
	assert.Equal(t, "src/Payments/Charge.cs", got[0].FilePath)
	assert.Equal(t, "failed", got[0].Status)
	assert.InDelta(t, 0.7, got[0].LineRate, 1e-9)
	require.NotNil(t, got[0].RequiredLine)
	assert.InDelta(t, 0.8, *got[0].RequiredLine, 1e-9)
	assert.Nil(t, got[1].RequiredLine)
	assert.Empty(t, got[1].ProfileName)
}

func TestWriteParquetEmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteVerificationRunsParquet([]VerificationRun{}, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0), "file should contain schema even if empty")
}

func TestWriteParquetInvalidPath(t *testing.T) {
	err := WriteFileOutcomesParquet(sampleOutcomes(), "/nonexistent/directory/output.parquet")
	assert.Error(t, err)
}

func TestWriteFileOutcomesToWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFileOutcomes(&buf, sampleOutcomes()))
	assert.Equal(t, "PAR1", buf.String()[:4])
}

func TestConvertRunRecords(t *testing.T) {
	end := time.Now()
	records := []schema.VerificationRunRecord{
		{RunID: 7, StartTime: end.Add(-time.Second), EndTime: &end, TotalFilesChecked: 5, ViolationCount: 1, Success: false},
	}
	rows := ConvertRunRecords(records)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(7), rows[0].RunID)
	assert.Equal(t, int32(5), rows[0].TotalFilesChecked)
	assert.Equal(t, &end, rows[0].EndTime)
}

func TestConvertFileOutcomeRecords(t *testing.T) {
	records := []schema.FileOutcomeRecord{
		{RunID: 3, FilePath: "A.cs", ProfileName: "Standard", Status: "passed", TotalLines: 10, CoveredLines: 9, LineRate: 0.9},
	}
	rows := ConvertFileOutcomeRecords(records)
	require.Len(t, rows, 1)
	assert.Equal(t, "A.cs", rows[0].FilePath)
	assert.Equal(t, int32(9), rows[0].CoveredLines)
}

func TestConvertValidationResult(t *testing.T) {
	required := 0.6
	result := &schema.ValidationResult{
		ValidatedAt: time.Now(),
		Outcomes: []schema.FileOutcome{
			{FilePath: "A.cs", ProfileName: "Standard", Status: schema.PassedOutcome, TotalLines: 10, CoveredLines: 6, LineRate: 0.6, RequiredLine: &required},
			{FilePath: "B.cs", Status: schema.SkippedOutcome, TotalLines: 3},
		},
	}

	rows := ConvertValidationResult(result)
	require.Len(t, rows, 2)
	assert.Equal(t, "passed", rows[0].Status)
	assert.Equal(t, int32(6), rows[0].CoveredLines)
	assert.Equal(t, result.ValidatedAt, rows[0].RecordedAt)
	assert.Equal(t, "skipped", rows[1].Status)
	assert.Zero(t, rows[1].RunID)
}
