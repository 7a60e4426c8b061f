package schema

import (
	"errors"
	"fmt"
)

// Error categories surfaced by loading and validation.
var (
	// ErrNotFound is wrapped when a coverage report or policy document is missing.
	ErrNotFound = errors.New("not found")

	// ErrMalformedInput is wrapped when a document cannot be parsed into the expected shape.
	ErrMalformedInput = errors.New("malformed input")

	// ErrInvalidConfiguration is the category of every semantic policy error.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ConfigError identifies the first broken invariant of a PolicyConfiguration.
type ConfigError struct {
	Field   string // JSON field the rule applies to
	Profile string // offending profile, empty for document-level rules
	Reason  string
}

func (e *ConfigError) Error() string {
	return e.Reason
}

// Unwrap lets callers match the error with errors.Is(err, ErrInvalidConfiguration).
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

// ProfileReferenceError is returned when a file resolves to a profile the policy does not define.
type ProfileReferenceError struct {
	FilePath string
	Profile  string
}

func (e *ProfileReferenceError) Error() string {
	return fmt.Sprintf("file '%s' references profile '%s' which does not exist in configuration", e.FilePath, e.Profile)
}

// Unwrap lets callers match the error with errors.Is(err, ErrInvalidConfiguration).
func (e *ProfileReferenceError) Unwrap() error {
	return ErrInvalidConfiguration
}
