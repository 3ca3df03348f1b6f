package driven

import (
	"context"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// IndexStore persists documents and their chunks.
//
// Writes for one document are atomic: a reader never observes a document
// whose chunk set is half replaced.
type IndexStore interface {
	// ListDocuments returns every tracked document.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// GetDocument returns a document by ID or domain.ErrNotFound.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListChunks returns a document's chunks ordered by page or slide.
	ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// CommitDocument upserts the document row, deletes all of its chunks and
	// inserts the given ones, in a single transaction. Every chunk embedding
	// must match EmbeddingDimension or nothing is written.
	CommitDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// MarkDocument upserts the document row only. Existing chunks are kept.
	MarkDocument(ctx context.Context, doc *domain.Document) error

	// Overview returns counts across the whole index.
	Overview(ctx context.Context) (*domain.IndexOverview, error)

	// EmbeddingDimension returns the vector width the schema was provisioned
	// with, or domain.ErrSchemaMissing.
	EmbeddingDimension(ctx context.Context) (int, error)

	// RefreshStatistics updates planner statistics after bulk inserts.
	RefreshStatistics(ctx context.Context) error

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// SchemaProvisioner creates the tables and indexes an IndexStore needs.
// Provisioning is a one-time setup step, separate from ingestion runs.
type SchemaProvisioner interface {
	// Provision creates the schema for vectors of the given width.
	// It is safe to call again with the same dimension.
	Provision(ctx context.Context, dimension int) error
}
