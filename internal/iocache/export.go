package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/internal/parquet"
)

// ExecuteHistoryExport exports verification history to a pair of Parquet files
// named <outputFile>.runs.parquet and <outputFile>.file_outcomes.parquet.
func ExecuteHistoryExport(store contract.HistoryStore, outputFile string, w io.Writer) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("history store is not enabled; set --history-backend")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no verification history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total verification runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total file outcomes: %d\n", status.TableSizes[fileOutcomesTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve verification runs: %w", err)
	}
	outcomes, err := store.GetAllFileOutcomes()
	if err != nil {
		return fmt.Errorf("failed to retrieve file outcomes: %w", err)
	}

	runRows := parquet.ConvertRunRecords(runs)
	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteVerificationRunsParquet(runRows, runsFile); err != nil {
		return fmt.Errorf("failed to write verification runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d verification runs to: %s\n", len(runRows), runsFile)

	outcomeRows := parquet.ConvertFileOutcomeRecords(outcomes)
	outcomesFile := outputFile + ".file_outcomes.parquet"
	if err := parquet.WriteFileOutcomesParquet(outcomeRows, outcomesFile); err != nil {
		return fmt.Errorf("failed to write file outcomes: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d file outcomes to: %s\n", len(outcomeRows), outcomesFile)
	return nil
}
