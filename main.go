// Package main is the entry point for the coverbouncer CLI.
package main

import (
	"errors"
	"os"

	"github.com/huangsam/coverbouncer/cmd"
	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/internal/iocache"
)

func main() {
	err := cmd.Execute()

	iocache.CloseStores()
	if perr := cmd.StopProfiling(); perr != nil {
		contract.LogWarn("failed to stop profiling", perr)
	}

	switch {
	case err == nil:
		os.Exit(contract.ExitSuccess)
	case errors.Is(err, cmd.ErrViolations):
		os.Exit(contract.ExitViolations)
	default:
		contract.LogFatal("coverbouncer", err)
	}
}
