package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driving"
)

// Ingest flags.
var (
	ingestSinceDays   int
	ingestForceAll    bool
	ingestForceFileID string
	ingestWorkers     int
)

// progressInterval is how often progress is polled during a run.
const progressInterval = 500 * time.Millisecond

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest new and changed documents",
	Long: `Lists the configured folder and processes files that are new, modified,
moved, previously failed or partial, or modified within the look-back window.

--force-file-id processes exactly one file regardless of its change status.
--force-all reprocesses every supported file.

The command exits non-zero only when the run itself fails (store or source
unreachable, dimension mismatch). Documents that fail are reported in the
summary and retried on the next run.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{validateProviders: "true"},
	RunE:        runIngest,
}

func init() {
	ingestCmd.Flags().IntVar(&ingestSinceDays, "since-days", 0,
		"also re-process files modified in the last N days (default from config, 0 disables)")
	ingestCmd.Flags().BoolVar(&ingestForceAll, "force-all", false, "re-process every supported file")
	ingestCmd.Flags().StringVar(&ingestForceFileID, "force-file-id", "", "process exactly this file ID")
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 0, "documents processed concurrently (default from config)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	if ingestor == nil {
		return errors.New("ingest service not configured")
	}

	policy := domain.SelectionPolicy{
		SinceDays:   defaultSinceDays,
		ForceAll:    ingestForceAll,
		ForceFileID: ingestForceFileID,
	}
	if cmd.Flags().Changed("since-days") {
		policy.SinceDays = ingestSinceDays
	}

	switch {
	case policy.ForceFileID != "":
		cmd.Printf("Ingesting file %s...\n", policy.ForceFileID)
	case policy.ForceAll:
		cmd.Println("Re-ingesting all files...")
	default:
		cmd.Printf("Ingesting changes (look-back %d days)...\n", policy.SinceDays)
	}

	summary, err := ingestWithProgress(commandContext(cmd), cmd, ingestor, policy)
	if summary != nil {
		newPrinter(cmd.OutOrStdout()).summary(summary)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return nil
}

// ingestWithProgress runs the pipeline while printing progress updates.
func ingestWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	ing driving.Ingestor,
	policy domain.SelectionPolicy,
) (*domain.RunSummary, error) {
	type result struct {
		summary *domain.RunSummary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		s, err := ing.Run(ctx, policy)
		done <- result{s, err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case r := <-done:
			if lastCount > 0 {
				cmd.Println()
			}
			return r.summary, r.err
		case <-ticker.C:
			p := ing.Progress()
			if p.Running && p.Processed > lastCount {
				cmd.Printf("\rProcessed %d/%d documents (%d failed)", p.Processed, p.Selected, p.Failed)
				lastCount = p.Processed
			}
		}
	}
}
