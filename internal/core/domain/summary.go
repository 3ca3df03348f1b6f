package domain

import "time"

// DocumentOutcome is what happened to one selected document during a run.
type DocumentOutcome struct {
	DocumentID string
	Name       string
	Reason     SelectionReason
	Status     DocumentStatus
	Unchanged  bool
	Attempted  int
	Chunks     int
	OCRPages   int
	Error      string
	Duration   time.Duration
}

// RunSummary reports the counts of one ingestion run.
type RunSummary struct {
	StartedAt  time.Time
	FinishedAt time.Time

	// Scanned is the number of files in the listing.
	Scanned int

	// Unsupported is the number of listed files no extractor handles.
	Unsupported int

	// Selected is the number of files chosen for processing.
	Selected int

	// Skipped is the number of listed files not processed.
	Skipped int

	Indexed int
	Partial int
	Failed  int

	// Unchanged counts selected files whose fetched content matched the
	// last ingestion, so nothing was extracted or written.
	Unchanged int

	// ChunksInserted counts chunk rows written by committed documents.
	ChunksInserted int

	// OCRPages counts pages and slides whose committed text came from OCR.
	OCRPages int

	Outcomes []DocumentOutcome
}

// Record adds a document outcome to the summary counts.
func (s *RunSummary) Record(o DocumentOutcome) {
	s.Outcomes = append(s.Outcomes, o)
	if o.Unchanged {
		s.Unchanged++
		return
	}
	switch o.Status {
	case StatusIndexed:
		s.Indexed++
	case StatusPartial:
		s.Partial++
	default:
		s.Failed++
		return
	}
	s.ChunksInserted += o.Chunks
	s.OCRPages += o.OCRPages
}

// Processed returns the number of documents with a recorded outcome.
func (s *RunSummary) Processed() int {
	return s.Indexed + s.Partial + s.Failed
}
