package services

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
	"github.com/custodia-labs/folio/internal/logger"
)

// EmbedderConfig tunes batching, retries and provider throttling.
type EmbedderConfig struct {
	// Dimension is the expected vector width.
	Dimension int

	// BatchSize is the maximum number of texts per provider call.
	BatchSize int

	// MaxAttempts bounds calls per batch, including the first.
	MaxAttempts int

	// RequestsPerSecond limits provider calls across all documents.
	// Zero disables the limit.
	RequestsPerSecond float64

	// MaxConcurrent bounds in-flight provider calls.
	MaxConcurrent int

	// InitialBackoff and MaxBackoff shape the exponential retry delay.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Embedder batches texts through an EmbeddingService, retrying transient
// failures and enforcing the count and width of the returned vectors.
// One Embedder is shared by every document worker of a run.
type Embedder struct {
	svc     driven.EmbeddingService
	cfg     EmbedderConfig
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

// NewEmbedder creates an embedder around svc.
func NewEmbedder(svc driven.EmbeddingService, cfg EmbedderConfig) *Embedder {
	if cfg.Dimension <= 0 {
		cfg.Dimension = svc.Dimensions()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Embedder{
		svc:     svc,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.MaxConcurrent),
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// Dimensions returns the vector width the embedder enforces.
func (e *Embedder) Dimensions() int {
	return e.cfg.Dimension
}

// ProviderDimensions returns the width the underlying service reports.
func (e *Embedder) ProviderDimensions() int {
	return e.svc.Dimensions()
}

// Embed returns one vector per text, in order. Any failure fails the whole
// call; partial results are never returned.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(texts))
		batch := texts[start:end]

		vectors, err := e.embedBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: sent %d texts, received %d vectors",
				domain.ErrEmbeddingMismatch, len(batch), len(vectors))
		}
		for i, v := range vectors {
			if len(v) != e.cfg.Dimension {
				return nil, fmt.Errorf("%w: vector %d has width %d, want %d",
					domain.ErrEmbeddingMismatch, start+i, len(v), e.cfg.Dimension)
			}
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// embedBatch performs one provider call with retries.
func (e *Embedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	attempt := 0
	op := func() ([][]float32, error) {
		attempt++
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		vectors, err := e.svc.EmbedBatch(ctx, batch)
		if err == nil {
			return vectors, nil
		}
		if !domain.IsTransient(err) {
			return nil, backoff.Permanent(err)
		}
		logger.Debug("Embedding attempt %d/%d failed: %v", attempt, e.cfg.MaxAttempts, err)
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.InitialBackoff
	b.MaxInterval = e.cfg.MaxBackoff

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(e.cfg.MaxAttempts)), //nolint:gosec // validated positive
	)
}
