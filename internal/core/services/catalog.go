package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
	"github.com/custodia-labs/folio/internal/core/ports/driving"
)

// Ensure CatalogService implements the interface.
var _ driving.CatalogService = (*CatalogService)(nil)

// CatalogService provides read access to ingested documents.
type CatalogService struct {
	store driven.IndexStore
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(store driven.IndexStore) *CatalogService {
	return &CatalogService{store: store}
}

// Overview returns counts by status and the last ingestion time.
func (s *CatalogService) Overview(ctx context.Context) (*domain.IndexOverview, error) {
	return s.store.Overview(ctx)
}

// ListDocuments returns tracked documents, optionally filtered by status.
func (s *CatalogService) ListDocuments(
	ctx context.Context, status domain.DocumentStatus,
) ([]domain.Document, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if status == "" {
		return docs, nil
	}
	filtered := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		if d.Status == status {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// GetDocument returns one document and its chunks.
func (s *CatalogService) GetDocument(
	ctx context.Context, id string,
) (*domain.Document, []domain.Chunk, error) {
	if id == "" {
		return nil, nil, domain.ErrInvalidInput
	}
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	chunks, err := s.store.ListChunks(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("list chunks: %w", err)
	}
	return doc, chunks, nil
}
