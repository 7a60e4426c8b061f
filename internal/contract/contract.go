// Package contract provides interfaces and shared utilities for the CoverBouncer CLI's internal architecture.
package contract

import (
	"time"

	"github.com/huangsam/coverbouncer/schema"
)

// StoreManager defines the interface for managing persistence stores.
// This allows the persistence layer to be mocked for testing.
type StoreManager interface {
	GetMarkerStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for key-value cache storage.
// The profile resolver uses it to remember markers of unchanged source files.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for recording verification runs and per-file outcomes.
type HistoryStore interface {
	// BeginRun creates a new verification run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// RecordFileOutcome stores how a single file fared in the run
	RecordFileOutcome(runID int64, outcome schema.FileOutcome) error

	// EndRun updates the run with completion data
	EndRun(runID int64, summary schema.RunSummary) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns returns every recorded run, oldest first
	GetAllRuns() ([]schema.VerificationRunRecord, error)

	// GetAllFileOutcomes returns every recorded file outcome
	GetAllFileOutcomes() ([]schema.FileOutcomeRecord, error)

	// Close closes the underlying connection
	Close() error
}

// ResultWriter renders a finished validation in the configured output format.
type ResultWriter interface {
	WriteValidation(result *schema.ValidationResult, policy *schema.PolicyConfiguration, cfg *Config, duration time.Duration) error
}
