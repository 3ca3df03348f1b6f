package driving

import (
	"context"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// Ingestor runs the incremental ingestion pipeline.
type Ingestor interface {
	// Run lists the source, selects files per policy and processes them.
	// A non-nil error means the run aborted (store or source unreachable,
	// dimension mismatch, cancellation). Per-document failures are reported
	// in the summary, not as an error.
	Run(ctx context.Context, policy domain.SelectionPolicy) (*domain.RunSummary, error)

	// Progress returns the state of the current or last run.
	Progress() IngestProgress
}

// IngestProgress represents the current state of an ingestion run.
type IngestProgress struct {
	// Running indicates if a run is in progress.
	Running bool

	// Selected is the number of documents chosen for processing.
	Selected int

	// Processed is the count of documents with a recorded outcome.
	Processed int

	// Failed is the number of documents that failed.
	Failed int
}
