package outwriter

import (
	"os"

	"github.com/huangsam/coverbouncer/internal/contract"
	"golang.org/x/term"
)

// GetMaxTablePathWidth calculates the maximum width for file paths in table output
// based on terminal width and table configuration.
func GetMaxTablePathWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for CI logs
		} else {
			termWidth = detectedWidth
		}
	}

	// Profile + Check + Actual + Required + Label columns with borders
	baseWidth := 60

	available := termWidth - baseWidth
	if available < 20 {
		return 20
	}
	if available > 90 {
		return 90
	}
	return available
}
