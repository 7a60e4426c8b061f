package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/schema"
)

// writeWithFile opens outputFile (or stdout when empty), runs writer against it and
// reports where the output went.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON encodes data with two-space indentation.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader writes header followed by the rows produced by writeRows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	return writeRows(csvWriter)
}

// createFormatters returns a percentage formatter and a fraction formatter for
// the configured precision.
func createFormatters(precision int) (fmtPercent func(float64) string, fmtRate func(float64) string) {
	fmtPercent = func(rate float64) string {
		return contract.FormatPercent(rate, precision)
	}
	fmtRate = func(rate float64) string {
		return fmt.Sprintf("%.*f", precision+2, rate)
	}
	return fmtPercent, fmtRate
}

// coverageLabel returns the coverage-level label, colored when colors are enabled.
func coverageLabel(cfg *contract.Config, rate float64) string {
	if cfg.UseColors {
		return contract.GetColorLabel(rate)
	}
	return contract.GetPlainLabel(rate)
}

// outcomeLabel returns the PASS/FAIL/SKIP label, colored when colors are enabled.
func outcomeLabel(cfg *contract.Config, status schema.OutcomeStatus) string {
	if cfg.UseColors {
		return contract.GetColorStatus(status)
	}
	return contract.GetPlainStatus(status)
}

// withEmoji prefixes a heading with an emoji when emojis are enabled.
func withEmoji(cfg *contract.Config, emoji, heading string) string {
	if cfg.UseEmojis {
		return emoji + " " + heading
	}
	return heading
}
