// Package memory provides an in-process IndexStore.
//
// It is used by tests and for dry runs; nothing is persisted.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// Ensure IndexStore implements the interfaces.
var (
	_ driven.IndexStore        = (*IndexStore)(nil)
	_ driven.SchemaProvisioner = (*IndexStore)(nil)
)

// IndexStore is an in-memory implementation of driven.IndexStore.
// CommitDocument holds the write lock for the whole replacement, so
// readers never observe a partially replaced chunk set.
type IndexStore struct {
	mu        sync.RWMutex
	dimension int
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
}

// NewIndexStore creates a store provisioned for the given vector width.
// A zero dimension leaves the store unprovisioned.
func NewIndexStore(dimension int) *IndexStore {
	return &IndexStore{
		dimension: dimension,
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// Provision sets the vector width.
func (s *IndexStore) Provision(_ context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("%w: provisioned %d, requested %d", domain.ErrDimensionMismatch, s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

// ListDocuments returns every tracked document ordered by ID.
func (s *IndexStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.documents))
	for _, d := range s.documents {
		docs = append(docs, d)
	}
	slices.SortFunc(docs, func(a, b domain.Document) int { return cmp.Compare(a.ID, b.ID) })
	return docs, nil
}

// GetDocument retrieves a document by ID.
func (s *IndexStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListChunks returns a document's chunks ordered by page or slide.
func (s *IndexStore) ListChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.chunks[documentID]), nil
}

// CommitDocument replaces a document's row and chunks.
func (s *IndexStore) CommitDocument(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension == 0 {
		return domain.ErrSchemaMissing
	}
	for _, c := range chunks {
		if c.DocumentID != doc.ID {
			return fmt.Errorf("%w: chunk %s belongs to %s, not %s", domain.ErrInvalidInput, c.ID, c.DocumentID, doc.ID)
		}
		if len(c.Embedding) != s.dimension {
			return fmt.Errorf("%w: chunk %s has width %d, schema %d",
				domain.ErrDimensionMismatch, c.ID, len(c.Embedding), s.dimension)
		}
	}

	stored := slices.Clone(chunks)
	slices.SortStableFunc(stored, func(a, b domain.Chunk) int { return cmp.Compare(a.PageOrSlide, b.PageOrSlide) })

	s.documents[doc.ID] = *doc
	s.chunks[doc.ID] = stored
	return nil
}

// MarkDocument upserts the document row only.
func (s *IndexStore) MarkDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// Overview returns counts across the whole index.
func (s *IndexStore) Overview(_ context.Context) (*domain.IndexOverview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var o domain.IndexOverview
	for _, d := range s.documents {
		o.Documents++
		switch d.Status {
		case domain.StatusIndexed:
			o.Indexed++
		case domain.StatusPartial:
			o.Partial++
		case domain.StatusFailed:
			o.Failed++
		}
		if d.LastIngestedAt.After(o.LastIngestedAt) {
			o.LastIngestedAt = d.LastIngestedAt
		}
	}
	for _, cs := range s.chunks {
		o.Chunks += len(cs)
		for _, c := range cs {
			if c.TextOrigin == domain.OriginOCR {
				o.OCRChunks++
			}
		}
	}
	return &o, nil
}

// EmbeddingDimension returns the provisioned vector width.
func (s *IndexStore) EmbeddingDimension(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dimension == 0 {
		return 0, domain.ErrSchemaMissing
	}
	return s.dimension, nil
}

// RefreshStatistics is a no-op.
func (s *IndexStore) RefreshStatistics(_ context.Context) error {
	return nil
}

// Ping always succeeds.
func (s *IndexStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *IndexStore) Close() error {
	return nil
}
