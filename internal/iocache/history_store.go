package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/schema"
)

// Table names for verification history.
const (
	runsTable         = "coverbouncer_runs"
	fileOutcomesTable = "coverbouncer_file_outcomes"
)

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.NoneBackend {
		return &HistoryStoreImpl{backend: backend}, nil
	}

	db, err := openDatabase(backend, connStr, GetHistoryDBFilePath())
	if err != nil {
		return nil, err
	}

	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

// createHistoryTables creates the history tables.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{runsTable, getCreateRunsQuery(backend)},
		{fileOutcomesTable, getCreateFileOutcomesQuery(backend)},
	}

	for _, table := range tables {
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}
	return nil
}

// getCreateRunsQuery returns the CREATE TABLE query for coverbouncer_runs.
func getCreateRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(runsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms INT,
				total_files_checked INT NOT NULL DEFAULT 0,
				skipped_files INT NOT NULL DEFAULT 0,
				violation_count INT NOT NULL DEFAULT 0,
				success BOOLEAN NOT NULL DEFAULT FALSE,
				config_params TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms INT,
				total_files_checked INT NOT NULL DEFAULT 0,
				skipped_files INT NOT NULL DEFAULT 0,
				violation_count INT NOT NULL DEFAULT 0,
				success BOOLEAN NOT NULL DEFAULT FALSE,
				config_params TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				total_files_checked INTEGER NOT NULL DEFAULT 0,
				skipped_files INTEGER NOT NULL DEFAULT 0,
				violation_count INTEGER NOT NULL DEFAULT 0,
				success INTEGER NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)
	}
}

// getCreateFileOutcomesQuery returns the CREATE TABLE query for coverbouncer_file_outcomes.
func getCreateFileOutcomesQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(fileOutcomesTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				file_path VARCHAR(512) NOT NULL,
				recorded_at DATETIME(6) NOT NULL,
				profile_name VARCHAR(255) NOT NULL,
				status VARCHAR(16) NOT NULL,
				total_lines INT NOT NULL,
				covered_lines INT NOT NULL,
				line_rate DOUBLE NOT NULL,
				required_line DOUBLE,
				PRIMARY KEY (run_id, file_path)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				file_path TEXT NOT NULL,
				recorded_at TIMESTAMPTZ NOT NULL,
				profile_name TEXT NOT NULL,
				status TEXT NOT NULL,
				total_lines INT NOT NULL,
				covered_lines INT NOT NULL,
				line_rate DOUBLE PRECISION NOT NULL,
				required_line DOUBLE PRECISION,
				PRIMARY KEY (run_id, file_path)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER NOT NULL,
				file_path TEXT NOT NULL,
				recorded_at TEXT NOT NULL,
				profile_name TEXT NOT NULL,
				status TEXT NOT NULL,
				total_lines INTEGER NOT NULL,
				covered_lines INTEGER NOT NULL,
				line_rate REAL NOT NULL,
				required_line REAL,
				PRIMARY KEY (run_id, file_path)
			);
		`, quotedTableName)
	}
}

// BeginRun creates a new verification run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	if hs.db == nil {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quotedTableName := quoteTableName(runsTable, hs.backend)

	var runID int64
	switch hs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES ($1, $2) RETURNING run_id`, quotedTableName)
		err = hs.db.QueryRow(query, startTime, string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, quotedTableName)
		var result sql.Result
		result, err = hs.db.Exec(query, formatTime(startTime, hs.backend), string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert verification run: %w", err)
	}
	return runID, nil
}

// RecordFileOutcome stores how a single file fared in the run.
func (hs *HistoryStoreImpl) RecordFileOutcome(runID int64, outcome schema.FileOutcome) error {
	if hs.db == nil {
		return nil
	}

	columns := []string{"run_id", "file_path", "recorded_at", "profile_name", "status", "total_lines", "covered_lines", "line_rate", "required_line"}
	marks := make([]string, len(columns))
	for i := range columns {
		marks[i] = placeholder(hs.backend, i+1)
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		quoteTableName(fileOutcomesTable, hs.backend), strings.Join(columns, ", "), strings.Join(marks, ", "))

	_, err := hs.db.Exec(query,
		runID, outcome.FilePath, formatTime(time.Now().UTC(), hs.backend), outcome.ProfileName, string(outcome.Status),
		outcome.TotalLines, outcome.CoveredLines, outcome.LineRate, outcome.RequiredLine,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outcome for %s: %w", outcome.FilePath, err)
	}
	return nil
}

// EndRun updates the run with completion data.
func (hs *HistoryStoreImpl) EndRun(runID int64, summary schema.RunSummary) error {
	if hs.db == nil {
		return nil
	}

	quotedTableName := quoteTableName(runsTable, hs.backend)
	row := hs.db.QueryRow(fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, quotedTableName, placeholder(hs.backend, 1)), runID)
	startTime, err := scanTime(row, hs.backend)
	if err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}

	durationMs := summary.EndTime.Sub(startTime).Milliseconds()

	assignments := []string{"end_time", "run_duration_ms", "total_files_checked", "skipped_files", "violation_count", "success"}
	for i, col := range assignments {
		assignments[i] = fmt.Sprintf("%s = %s", col, placeholder(hs.backend, i+1))
	}
	updateQuery := fmt.Sprintf(`UPDATE %s SET %s WHERE run_id = %s`,
		quotedTableName, strings.Join(assignments, ", "), placeholder(hs.backend, len(assignments)+1))

	_, err = hs.db.Exec(updateQuery,
		formatTime(summary.EndTime, hs.backend), durationMs, summary.TotalFilesChecked,
		summary.SkippedFiles, summary.ViolationCount, summary.Success, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update verification run: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.db == nil {
		return status, nil
	}

	quotedRuns := quoteTableName(runsTable, hs.backend)
	summaryQuery := fmt.Sprintf(`SELECT COUNT(*), COALESCE(SUM(total_files_checked), 0),
		COALESCE(SUM(CASE WHEN end_time IS NOT NULL AND success = %s THEN 1 ELSE 0 END), 0) FROM %s`,
		falseLiteral(hs.backend), quotedRuns)
	if err := hs.db.QueryRow(summaryQuery).Scan(&status.TotalRuns, &status.TotalFilesChecked, &status.FailedRuns); err != nil {
		return status, fmt.Errorf("failed to get run totals: %w", err)
	}

	if status.TotalRuns > 0 {
		row := hs.db.QueryRow(fmt.Sprintf("SELECT run_id FROM %s ORDER BY run_id DESC LIMIT 1", quotedRuns))
		if err := row.Scan(&status.LastRunID); err != nil {
			return status, fmt.Errorf("failed to get last run id: %w", err)
		}

		lastTime, err := scanTime(hs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id DESC LIMIT 1", quotedRuns)), hs.backend)
		if err != nil {
			return status, fmt.Errorf("failed to get last run time: %w", err)
		}
		status.LastRunTime = lastTime

		oldestTime, err := scanTime(hs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", quotedRuns)), hs.backend)
		if err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		status.OldestRunTime = oldestTime
	}

	for _, table := range []string{runsTable, fileOutcomesTable} {
		var count int64
		if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend))).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

// GetAllRuns retrieves all verification runs from the store.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.VerificationRunRecord, error) {
	if hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, start_time, end_time, run_duration_ms, total_files_checked,
		skipped_files, violation_count, success, config_params FROM %s ORDER BY run_id`, quoteTableName(runsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query verification runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.VerificationRunRecord
	for rows.Next() {
		var record schema.VerificationRunRecord

		switch hs.backend {
		case schema.SQLiteBackend:
			var startTimeStr string
			var endTimeStr *string
			if err := rows.Scan(&record.RunID, &startTimeStr, &endTimeStr, &record.RunDurationMs, &record.TotalFilesChecked,
				&record.SkippedFiles, &record.ViolationCount, &record.Success, &record.ConfigParams); err != nil {
				return nil, fmt.Errorf("failed to scan verification run: %w", err)
			}
			if record.StartTime, err = time.Parse(time.RFC3339Nano, startTimeStr); err != nil {
				return nil, fmt.Errorf("failed to parse start_time: %w", err)
			}
			if endTimeStr != nil {
				endTime, err := time.Parse(time.RFC3339Nano, *endTimeStr)
				if err != nil {
					return nil, fmt.Errorf("failed to parse end_time: %w", err)
				}
				record.EndTime = &endTime
			}
		default: // MySQL and PostgreSQL
			if err := rows.Scan(&record.RunID, &record.StartTime, &record.EndTime, &record.RunDurationMs, &record.TotalFilesChecked,
				&record.SkippedFiles, &record.ViolationCount, &record.Success, &record.ConfigParams); err != nil {
				return nil, fmt.Errorf("failed to scan verification run: %w", err)
			}
		}

		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating verification runs: %w", err)
	}
	return results, nil
}

// GetAllFileOutcomes retrieves all recorded file outcomes from the store.
func (hs *HistoryStoreImpl) GetAllFileOutcomes() ([]schema.FileOutcomeRecord, error) {
	if hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, file_path, recorded_at, profile_name, status,
		total_lines, covered_lines, line_rate, required_line
		FROM %s ORDER BY run_id, file_path`, quoteTableName(fileOutcomesTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query file outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.FileOutcomeRecord
	for rows.Next() {
		var record schema.FileOutcomeRecord

		switch hs.backend {
		case schema.SQLiteBackend:
			var recordedAtStr string
			if err := rows.Scan(&record.RunID, &record.FilePath, &recordedAtStr, &record.ProfileName, &record.Status,
				&record.TotalLines, &record.CoveredLines, &record.LineRate, &record.RequiredLine); err != nil {
				return nil, fmt.Errorf("failed to scan file outcome: %w", err)
			}
			if record.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAtStr); err != nil {
				return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
			}
		default: // MySQL and PostgreSQL
			if err := rows.Scan(&record.RunID, &record.FilePath, &record.RecordedAt, &record.ProfileName, &record.Status,
				&record.TotalLines, &record.CoveredLines, &record.LineRate, &record.RequiredLine); err != nil {
				return nil, fmt.Errorf("failed to scan file outcome: %w", err)
			}
		}

		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file outcomes: %w", err)
	}
	return results, nil
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	if backend == schema.SQLiteBackend {
		return t.Format(time.RFC3339Nano)
	}
	return t
}

// scanTime reads a single time column, which SQLite stores as RFC3339 text.
func scanTime(row *sql.Row, backend schema.DatabaseBackend) (time.Time, error) {
	if backend != schema.SQLiteBackend {
		var t time.Time
		err := row.Scan(&t)
		return t, err
	}
	var s string
	if err := row.Scan(&s); err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}

// falseLiteral returns the SQL literal compared against the success column.
func falseLiteral(backend schema.DatabaseBackend) string {
	if backend == schema.SQLiteBackend {
		return "0"
	}
	return "FALSE"
}
