package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fatih/color"
	"github.com/huangsam/coverbouncer/schema"
)

// Process exit codes.
const (
	ExitSuccess    = 0
	ExitViolations = 1 // policy violations were found
	ExitFatal      = 2 // tool misuse: missing input, malformed data, bad configuration
)

// Coverage label constants.
const (
	CriticalValue = "Critical" // Critical value
	LowValue      = "Low"      // Low value
	ModerateValue = "Moderate" // Moderate value
	HighValue     = "High"     // High value
)

// Status label constants.
const (
	PassValue = "PASS"
	FailValue = "FAIL"
	SkipValue = "SKIP"
)

// Color variables for console output.
var (
	CriticalColor = color.New(color.FgRed, color.Bold)   // criticalColor represents standard danger.
	LowColor      = color.New(color.FgMagenta)           // lowColor represents a clear shortfall.
	ModerateColor = color.New(color.FgYellow)            // moderateColor represents standard caution.
	HighColor     = color.New(color.FgGreen)             // highColor represents healthy coverage.
	PassColor     = color.New(color.FgGreen, color.Bold) // passColor marks passing files.
	FailColor     = color.New(color.FgRed, color.Bold)   // failColor marks violating files.
	SkipColor     = color.New(color.FgCyan)              // skipColor marks files excluded from the run.
)

// GetPlainLabel returns a plain text label describing how well a file is covered
// based on its coverage rate in [0, 1]. This is the core logic used for
// CSV, JSON, and table printing.
func GetPlainLabel(rate float64) string {
	switch {
	case rate < 0.4:
		return CriticalValue
	case rate < 0.6:
		return LowValue
	case rate < 0.8:
		return ModerateValue
	default:
		return HighValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(rate float64) string {
	text := GetPlainLabel(rate)

	switch text {
	case CriticalValue:
		return CriticalColor.Sprint(text)
	case LowValue:
		return LowColor.Sprint(text)
	case ModerateValue:
		return ModerateColor.Sprint(text)
	default: // "High"
		return HighColor.Sprint(text)
	}
}

// GetPlainStatus returns the short label of an outcome status.
func GetPlainStatus(status schema.OutcomeStatus) string {
	switch status {
	case schema.FailedOutcome:
		return FailValue
	case schema.SkippedOutcome:
		return SkipValue
	default:
		return PassValue
	}
}

// GetColorStatus returns a colored outcome label for console output.
func GetColorStatus(status schema.OutcomeStatus) string {
	text := GetPlainStatus(status)

	switch text {
	case FailValue:
		return FailColor.Sprint(text)
	case SkipValue:
		return SkipColor.Sprint(text)
	default:
		return PassColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// ShouldIgnore returns true if the given path matches any of the exclude patterns.
// Patterns containing wildcard characters (*, ?, [ ], { }) are doublestar globs,
// so "**" spans any number of directories. Patterns ending with '/' match a
// directory segment anywhere in the path. Patterns starting with '.' are treated
// as suffix (extension) matches. A user can provide patterns like "bin/", "obj/",
// "*.g.cs" or "**/Generated/*.cs". A trailing '/' on path marks a directory.
func ShouldIgnore(path string, excludes []string) bool {
	path = filepath.ToSlash(path)
	for _, ex := range excludes {
		ex = strings.TrimSpace(ex)
		if ex == "" {
			continue
		}

		if strings.ContainsAny(ex, "*?[{") {
			if matchGlob(ex, path) {
				return true
			}
			continue
		}

		switch {
		case strings.HasSuffix(ex, "/"):
			if strings.HasPrefix(path, ex) || strings.Contains(path, "/"+ex) {
				return true
			}
		case strings.HasPrefix(ex, "."):
			if strings.HasSuffix(path, ex) {
				return true
			}
		case strings.Contains(path, ex):
			return true
		}
	}
	return false
}

// matchGlob matches pattern against the full path and against its base name.
func matchGlob(pattern, path string) bool {
	candidate := strings.TrimSuffix(path, "/")
	if ok, err := doublestar.Match(pattern, candidate); err == nil && ok {
		return true
	}
	ok, err := doublestar.Match(pattern, filepath.Base(candidate))
	return err == nil && ok
}

// LogFatal logs an error and exits the program with ExitFatal.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(ExitFatal)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the marker cache.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".coverbouncer_cache.db"
	}
	return filepath.Join(homeDir, ".coverbouncer_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for verification history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".coverbouncer_history.db"
	}
	return filepath.Join(homeDir, ".coverbouncer_history.db")
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to leave room for the "..." prefix and at least one character.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// FormatPercent renders a rate in [0, 1] as a percentage with the given precision.
func FormatPercent(rate float64, precision int) string {
	return fmt.Sprintf("%.*f%%", precision, rate*100)
}
