// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/huangsam/coverbouncer/core"
	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

var _ contract.ResultWriter = &OutWriter{} // Compile-time check

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteValidation prints a verification result using the configured output format.
func (ow *OutWriter) WriteValidation(result *schema.ValidationResult, policy *schema.PolicyConfiguration, cfg *contract.Config, duration time.Duration) error {
	return PrintValidationResults(result, policy, cfg, duration)
}

// WriteProfiles prints the profiles defined by a policy document.
func (ow *OutWriter) WriteProfiles(policy *schema.PolicyConfiguration, policyPath string, cfg *contract.Config) error {
	return PrintProfiles(policy, policyPath, cfg)
}

// WriteTagging prints the outcome of a tag or untag operation.
func (ow *OutWriter) WriteTagging(result core.TaggingResult, action TagAction, cfg *contract.Config) error {
	return PrintTaggingResult(result, action, cfg)
}

// WriteSuggestions prints suggested profiles for a set of files.
func (ow *OutWriter) WriteSuggestions(suggestions []Suggestion, cfg *contract.Config) error {
	return PrintSuggestions(suggestions, cfg)
}
