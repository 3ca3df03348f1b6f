package driving

import (
	"context"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// CatalogService reads what has been ingested.
type CatalogService interface {
	// Overview returns counts by status and the last ingestion time.
	Overview(ctx context.Context) (*domain.IndexOverview, error)

	// ListDocuments returns tracked documents, optionally filtered by status.
	// An empty status returns all documents.
	ListDocuments(ctx context.Context, status domain.DocumentStatus) ([]domain.Document, error)

	// GetDocument returns one document and its chunks.
	GetDocument(ctx context.Context, id string) (*domain.Document, []domain.Chunk, error)
}

// SchemaService provisions the store.
type SchemaService interface {
	// Init creates tables and indexes for vectors of the given width.
	Init(ctx context.Context, dimension int) error
}
