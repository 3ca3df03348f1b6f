package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
	"github.com/custodia-labs/folio/internal/core/ports/driving"
	"github.com/custodia-labs/folio/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.Ingestor = (*Ingestor)(nil)

// IngestorConfig configures a run.
type IngestorConfig struct {
	// FolderID is the root folder passed to the file source.
	FolderID string

	// Dimension is the configured embedding width. The store schema and
	// the embedding provider must both agree with it.
	Dimension int

	// Workers bounds how many documents are processed concurrently.
	Workers int
}

// Ingestor sequences change detection, extraction, chunking, embedding and
// persistence for each selected document. A failure in one document is
// recorded against that document and never stops the others.
type Ingestor struct {
	source    driven.FileSource
	store     driven.IndexStore
	extractor *Extractor
	chunker   *Chunker
	embedder  *Embedder
	cfg       IngestorConfig
	now       func() time.Time

	// Status tracking
	mu       sync.RWMutex
	progress driving.IngestProgress
}

// NewIngestor creates an ingestor.
func NewIngestor(
	source driven.FileSource,
	store driven.IndexStore,
	extractor *Extractor,
	chunker *Chunker,
	embedder *Embedder,
	cfg IngestorConfig,
) *Ingestor {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = embedder.Dimensions()
	}
	return &Ingestor{
		source:    source,
		store:     store,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run executes one ingestion run.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (i *Ingestor) Run(ctx context.Context, policy domain.SelectionPolicy) (*domain.RunSummary, error) {
	// 1. PREFLIGHT: store reachable, dimensions agree
	if err := i.preflight(ctx); err != nil {
		return nil, err
	}

	// 2. LIST the source tree
	logger.Section("Listing")
	files, err := i.source.ListFiles(ctx, i.cfg.FolderID)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", domain.ErrSourceUnavailable, i.cfg.FolderID, err)
	}
	summary := &domain.RunSummary{StartedAt: i.now(), Scanned: len(files)}
	logger.Info("Listed %d files from %s source", len(files), i.source.Type())

	supported := make([]domain.SourceFile, 0, len(files))
	var unsupported []domain.SourceFile
	for _, f := range files {
		if i.extractor.Supports(f.MIMEType) {
			supported = append(supported, f)
		} else {
			unsupported = append(unsupported, f)
		}
	}
	summary.Unsupported = len(unsupported)

	// 3. DETECT changes against persisted state
	persisted, err := i.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %w", domain.ErrStoreUnavailable, err)
	}
	byID := make(map[string]domain.Document, len(persisted))
	for _, d := range persisted {
		byID[d.ID] = d
	}

	if policy.ForceFileID != "" {
		for _, f := range unsupported {
			if f.ID == policy.ForceFileID {
				return i.rejectUnsupported(ctx, summary, f)
			}
		}
	}

	selections, err := DetectChanges(supported, byID, policy, i.now())
	if err != nil {
		return nil, err
	}
	summary.Selected = len(selections)
	summary.Skipped = summary.Scanned - summary.Selected
	logger.Info("Selected %d of %d files (%d unsupported)", summary.Selected, summary.Scanned, summary.Unsupported)

	// 4. PROCESS each selected document with a bounded pool
	logger.Section("Processing")
	i.startProgress(len(selections))
	defer i.stopProgress()

	outcomes := make([]domain.DocumentOutcome, len(selections))
	recorded := make([]bool, len(selections))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.cfg.Workers)
	for idx, sel := range selections {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out, err := i.processOne(gctx, sel)
			if err != nil {
				return err
			}
			outcomes[idx] = out
			recorded[idx] = true
			i.advanceProgress(out)
			return nil
		})
	}
	runErr := g.Wait()

	for idx, ok := range recorded {
		if ok {
			summary.Record(outcomes[idx])
		}
	}

	// 5. REFRESH planner statistics after bulk inserts
	if summary.ChunksInserted > 0 && ctx.Err() == nil {
		if err := i.store.RefreshStatistics(ctx); err != nil {
			logger.Warn("Refreshing index statistics failed: %v", err)
		}
	}

	summary.FinishedAt = i.now()
	logger.Info("Run complete: %d indexed, %d partial, %d failed, %d unchanged, %d skipped, %d chunks, %d OCR pages",
		summary.Indexed, summary.Partial, summary.Failed, summary.Unchanged, summary.Skipped,
		summary.ChunksInserted, summary.OCRPages)

	if runErr != nil {
		return summary, runErr
	}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("run interrupted: %w", err)
	}
	return summary, nil
}

// Progress returns the state of the current or last run.
func (i *Ingestor) Progress() driving.IngestProgress {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.progress
}

// preflight checks the store and agrees the vector width before any write.
func (i *Ingestor) preflight(ctx context.Context) error {
	if err := i.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	schemaDim, err := i.store.EmbeddingDimension(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSchemaMissing) {
			return fmt.Errorf("%w: run 'folio schema init' first", err)
		}
		return fmt.Errorf("%w: read schema dimension: %w", domain.ErrStoreUnavailable, err)
	}

	want := i.cfg.Dimension
	if schemaDim != want {
		return fmt.Errorf("%w: configured %d, schema %d", domain.ErrDimensionMismatch, want, schemaDim)
	}
	if got := i.embedder.ProviderDimensions(); got != want {
		return fmt.Errorf("%w: configured %d, embedding provider %d", domain.ErrDimensionMismatch, want, got)
	}
	return nil
}

// processOne runs the per-document pipeline. The returned error is non-nil
// only for run-level failures; everything else is folded into the outcome.
//
//nolint:gocyclo // Pipeline orchestration with sequential steps
func (i *Ingestor) processOne(ctx context.Context, sel domain.Selection) (domain.DocumentOutcome, error) {
	start := i.now()
	file := sel.File
	out := domain.DocumentOutcome{DocumentID: file.ID, Name: file.Name, Reason: sel.Reason}
	doc := domain.DocumentFromFile(file)

	if err := ctx.Err(); err != nil {
		return out, err
	}
	logger.Debug("Processing %s (%s, %s)", file.Name, file.ID, sel.Reason)

	// 1. FETCH
	data, err := i.source.FetchBytes(ctx, file)
	if err != nil {
		return i.fail(ctx, doc, out, start, fmt.Errorf("fetch: %w", err))
	}
	hash := domain.HashContent(data, domain.HashAlgorithm(file.ContentHash))
	doc.ContentHash = &hash

	if sel.Reason == domain.ReasonUnverified && hash == sel.KnownHash {
		logger.Debug("Unchanged %s (%s): content matches last ingestion", file.Name, file.ID)
		out.Unchanged = true
		out.Duration = i.now().Sub(start)
		return out, nil
	}

	// 2. EXTRACT per page, native or OCR
	ext, err := i.extractor.Extract(ctx, data, file.MIMEType)
	if err != nil {
		return i.fail(ctx, doc, out, start, fmt.Errorf("extract: %w", err))
	}
	out.Attempted = ext.Attempted
	out.OCRPages = ext.OCRPages

	// 3. CHUNK one per page
	chunks := i.chunker.Build(doc, ext.Pages)
	status := domain.ClassifyStatus(ext.Usable(), len(chunks))
	if status == domain.StatusFailed {
		return i.fail(ctx, doc, out, start,
			fmt.Errorf("%w: %s", domain.ErrNoUsableText, describeFailures(ext)))
	}

	// 4. EMBED all chunk texts
	texts := make([]string, len(chunks))
	for n := range chunks {
		texts[n] = chunks[n].Text
	}
	vectors, err := i.embedder.Embed(ctx, texts)
	if err != nil {
		return i.fail(ctx, doc, out, start, fmt.Errorf("embed: %w", err))
	}
	for n := range chunks {
		chunks[n].Embedding = vectors[n]
	}

	// 5. STORE document and chunks atomically
	doc.Status = status
	doc.LastIngestedAt = i.now()
	if status == domain.StatusPartial {
		msg := fmt.Sprintf("%d of %d units failed: %s",
			len(ext.Failures), ext.Usable(), describeFailures(ext))
		doc.Error = &msg
		out.Error = msg
	}
	if err := i.store.CommitDocument(ctx, &doc, chunks); err != nil {
		if fatal := i.checkStore(ctx, err); fatal != nil {
			return out, fatal
		}
		return i.fail(ctx, doc, out, start, fmt.Errorf("commit: %w", err))
	}

	out.Status = status
	out.Chunks = len(chunks)
	out.Duration = i.now().Sub(start)
	logger.Info("%s %s: %d chunks (%d OCR) in %s",
		status, file.Name, len(chunks), ext.OCRPages, out.Duration.Round(time.Millisecond))
	return out, nil
}

// fail records a failed outcome. Existing chunks are left untouched.
func (i *Ingestor) fail(
	ctx context.Context, doc domain.Document, out domain.DocumentOutcome, start time.Time, cause error,
) (domain.DocumentOutcome, error) {
	if err := ctx.Err(); err != nil {
		return out, err
	}

	msg := cause.Error()
	doc.Status = domain.StatusFailed
	doc.Error = &msg
	doc.LastIngestedAt = i.now()

	out.Status = domain.StatusFailed
	out.Error = msg
	out.Chunks = 0
	out.Duration = i.now().Sub(start)
	logger.Warn("failed %s (%s): %s", doc.Name, doc.ID, msg)

	if err := i.store.MarkDocument(ctx, &doc); err != nil {
		if fatal := i.checkStore(ctx, err); fatal != nil {
			return out, fatal
		}
		logger.Error("Recording failure for %s: %v", doc.ID, err)
	}
	return out, nil
}

// checkStore decides whether a persistence error means the store itself is
// gone, in which case the run must stop.
func (i *Ingestor) checkStore(ctx context.Context, cause error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := i.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w (ping: %w)", domain.ErrStoreUnavailable, cause, err)
	}
	return nil
}

// rejectUnsupported records a forced file whose type has no extractor.
func (i *Ingestor) rejectUnsupported(
	ctx context.Context, summary *domain.RunSummary, f domain.SourceFile,
) (*domain.RunSummary, error) {
	summary.Selected = 1
	summary.Skipped = summary.Scanned - 1
	out := domain.DocumentOutcome{DocumentID: f.ID, Name: f.Name, Reason: domain.ReasonForced}
	out, err := i.fail(ctx, domain.DocumentFromFile(f), out, i.now(),
		fmt.Errorf("%w: %s", domain.ErrUnsupportedType, f.MIMEType))
	if err != nil {
		return summary, err
	}
	summary.Record(out)
	summary.FinishedAt = i.now()
	return summary, nil
}

func (i *Ingestor) startProgress(selected int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.progress = driving.IngestProgress{Running: true, Selected: selected}
}

func (i *Ingestor) advanceProgress(out domain.DocumentOutcome) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.progress.Processed++
	if !out.Unchanged && out.Status == domain.StatusFailed {
		i.progress.Failed++
	}
}

func (i *Ingestor) stopProgress() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.progress.Running = false
}

// describeFailures renders page failures for the document error column.
func describeFailures(ext *domain.Extraction) string {
	failures := ext.Failures
	switch {
	case ext.Attempted == 0:
		return "document has no pages"
	case len(failures) == 0:
		return fmt.Sprintf("all %d units are blank", ext.Blank)
	}
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, fmt.Sprintf("unit %d: %s", f.Number, f.Reason))
	}
	return strings.Join(parts, "; ")
}
