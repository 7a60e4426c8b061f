package schema

import "time"

// MarkerEntry is the cached result of reading a source file's profile marker.
// Size, ModTime, Inode and ChangeTime identify the file version the entry was
// computed from. Inode and ChangeTime are zero where the platform lacks them.
type MarkerEntry struct {
	Profile    string `json:"profile"`
	Found      bool   `json:"found"`
	Size       int64  `json:"size"`
	ModTime    int64  `json:"mod_time"` // unix nanoseconds
	Inode      uint64 `json:"inode"`
	ChangeTime int64  `json:"change_time"` // unix nanoseconds
}

// RunSummary is the completion data written when a verification run ends.
type RunSummary struct {
	EndTime           time.Time
	TotalFilesChecked int
	SkippedFiles      int
	ViolationCount    int
	Success           bool
}

// VerificationRunRecord represents a row from the coverbouncer_runs table.
type VerificationRunRecord struct {
	RunID             int64
	StartTime         time.Time
	EndTime           *time.Time
	RunDurationMs     *int32
	TotalFilesChecked int32
	SkippedFiles      int32
	ViolationCount    int32
	Success           bool
	ConfigParams      *string
}

// FileOutcomeRecord represents a row from the coverbouncer_file_outcomes table.
type FileOutcomeRecord struct {
	RunID        int64
	FilePath     string
	RecordedAt   time.Time
	ProfileName  string
	Status       string
	TotalLines   int32
	CoveredLines int32
	LineRate     float64
	RequiredLine *float64
}
