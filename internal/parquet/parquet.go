// Package parquet provides row types and writers for exporting verification
// results and history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/coverbouncer/schema"
	"github.com/parquet-go/parquet-go"
)

// VerificationRun represents a single verification run with its summary.
// This struct maps to the coverbouncer_runs database table.
type VerificationRun struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when verification began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when verification completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	TotalFilesChecked int32 `parquet:"total_files_checked,snappy"`
	SkippedFiles      int32 `parquet:"skipped_files,snappy"`
	ViolationCount    int32 `parquet:"violation_count,snappy"`
	Success           bool  `parquet:"success,snappy"`

	// ConfigParams contains the JSON-encoded run settings (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// FileOutcome represents how a single file fared in a verification run.
// This struct maps to the coverbouncer_file_outcomes database table.
type FileOutcome struct {
	// RunID references the parent run; zero for outcomes exported straight from a verify
	RunID int64 `parquet:"run_id,snappy"`

	// FilePath is the path as it appears in the coverage report
	FilePath string `parquet:"file_path,snappy"`

	// RecordedAt is when the outcome was produced
	RecordedAt time.Time `parquet:"recorded_at,snappy"`

	// ProfileName is the effective profile; empty for skipped files
	ProfileName string `parquet:"profile_name,snappy"`

	// Status is passed, failed or skipped
	Status string `parquet:"status,snappy"`

	TotalLines   int32   `parquet:"total_lines,snappy"`
	CoveredLines int32   `parquet:"covered_lines,snappy"`
	LineRate     float64 `parquet:"line_rate,snappy"`

	// RequiredLine is the profile's minLine (nullable)
	RequiredLine *float64 `parquet:"required_line,optional,snappy"`
}

// writeRows writes rows of T to w using schema inference from struct tags.
func writeRows[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

func writeFile[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return writeRows(file, rows)
}

// WriteVerificationRunsParquet writes verification runs to a Parquet file.
func WriteVerificationRunsParquet(data []VerificationRun, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteFileOutcomesParquet writes file outcomes to a Parquet file.
func WriteFileOutcomesParquet(data []FileOutcome, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteFileOutcomes writes file outcomes to an already open writer.
func WriteFileOutcomes(w io.Writer, data []FileOutcome) error {
	return writeRows(w, data)
}

// ConvertRunRecords converts schema.VerificationRunRecord to VerificationRun for Parquet export.
func ConvertRunRecords(records []schema.VerificationRunRecord) []VerificationRun {
	result := make([]VerificationRun, len(records))
	for i, record := range records {
		result[i] = VerificationRun{
			RunID:             record.RunID,
			StartTime:         record.StartTime,
			EndTime:           record.EndTime,
			RunDurationMs:     record.RunDurationMs,
			TotalFilesChecked: record.TotalFilesChecked,
			SkippedFiles:      record.SkippedFiles,
			ViolationCount:    record.ViolationCount,
			Success:           record.Success,
			ConfigParams:      record.ConfigParams,
		}
	}
	return result
}

// ConvertFileOutcomeRecords converts schema.FileOutcomeRecord to FileOutcome for Parquet export.
func ConvertFileOutcomeRecords(records []schema.FileOutcomeRecord) []FileOutcome {
	result := make([]FileOutcome, len(records))
	for i, record := range records {
		result[i] = FileOutcome{
			RunID:        record.RunID,
			FilePath:     record.FilePath,
			RecordedAt:   record.RecordedAt,
			ProfileName:  record.ProfileName,
			Status:       record.Status,
			TotalLines:   record.TotalLines,
			CoveredLines: record.CoveredLines,
			LineRate:     record.LineRate,
			RequiredLine: record.RequiredLine,
		}
	}
	return result
}

// ConvertValidationResult flattens the per-file outcomes of a validation run.
func ConvertValidationResult(result *schema.ValidationResult) []FileOutcome {
	rows := make([]FileOutcome, len(result.Outcomes))
	for i, o := range result.Outcomes {
		rows[i] = FileOutcome{
			FilePath:     o.FilePath,
			RecordedAt:   result.ValidatedAt,
			ProfileName:  o.ProfileName,
			Status:       string(o.Status),
			TotalLines:   int32(o.TotalLines),
			CoveredLines: int32(o.CoveredLines),
			LineRate:     o.LineRate,
			RequiredLine: o.RequiredLine,
		}
	}
	return rows
}
