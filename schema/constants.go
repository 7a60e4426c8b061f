package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for the marker cache and run history.
	DatabaseBackend string

	// ViolationType is the stable discriminator of a coverage violation.
	ViolationType string

	// OutcomeStatus represents how the engine treated a single file.
	OutcomeStatus string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All violation kinds produced by the validation engine.
const (
	LineCoverageTooLow   ViolationType = "line_coverage_too_low"
	BranchCoverageTooLow ViolationType = "branch_coverage_too_low"
)

// All per-file outcomes recorded by the validation engine.
const (
	PassedOutcome  OutcomeStatus = "passed"
	FailedOutcome  OutcomeStatus = "failed"
	SkippedOutcome OutcomeStatus = "skipped"
)

// Defaults for the policy document.
const (
	DefaultPolicyFileName     = "coverbouncer.json"
	DefaultCoverageReportPath = "TestResults/coverage.json"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// Label returns the human-readable name of the violation kind.
func (v ViolationType) Label() string {
	switch v {
	case LineCoverageTooLow:
		return "Line coverage too low"
	case BranchCoverageTooLow:
		return "Branch coverage too low"
	default:
		return string(v)
	}
}
