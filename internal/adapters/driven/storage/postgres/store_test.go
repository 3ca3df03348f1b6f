package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/folio/internal/core/domain"
)

func TestRenderSchema(t *testing.T) {
	ddl, err := renderSchema(1536, 50)

	require.NoError(t, err)
	assert.Contains(t, ddl, "vector(1536) NOT NULL")
	assert.Contains(t, ddl, "USING ivfflat (embedding vector_cosine_ops) WITH (lists = 50)")
	assert.Contains(t, ddl, "UNIQUE (document_id, source_type, page_or_slide)")
	assert.Contains(t, ddl, "chunks_document_idx ON chunks (document_id)")
	assert.Contains(t, ddl, "chunks_folder_path_idx ON chunks (folder_path)")
	assert.Contains(t, ddl, "documents_folder_path_idx ON documents (folder_path)")
	assert.NotContains(t, ddl, "{{")
}

func TestNewStore_RequiresURL(t *testing.T) {
	_, err := NewStore(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewStore_InvalidURL(t *testing.T) {
	_, err := NewStore(context.Background(), Config{DatabaseURL: "postgres://%zz"})
	assert.Error(t, err)
}

func TestNullTime(t *testing.T) {
	assert.Nil(t, nullTime(time.Time{}))
	now := time.Now()
	require.NotNil(t, nullTime(now))
	assert.True(t, now.Equal(*nullTime(now)))
}

func TestCheckChunks(t *testing.T) {
	doc := &domain.Document{ID: "doc-1"}

	ok := []domain.Chunk{{ID: "c1", DocumentID: "doc-1", Embedding: []float32{1, 2, 3}}}
	assert.NoError(t, checkChunks(doc, ok, 3))
	assert.NoError(t, checkChunks(doc, nil, 3))

	wide := []domain.Chunk{{ID: "c1", DocumentID: "doc-1", Embedding: []float32{1, 2, 3, 4}}}
	assert.ErrorIs(t, checkChunks(doc, wide, 3), domain.ErrDimensionMismatch)

	stray := []domain.Chunk{{ID: "c1", DocumentID: "doc-2", Embedding: []float32{1, 2, 3}}}
	assert.ErrorIs(t, checkChunks(doc, stray, 3), domain.ErrInvalidInput)
}

// Integration test - only runs against a scratch database with pgvector.
func TestStore_Integration(t *testing.T) {
	url := os.Getenv("FOLIO_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("FOLIO_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()

	store, err := NewStore(ctx, Config{DatabaseURL: url, Lists: 1})
	require.NoError(t, err)
	defer store.Close()

	_, err = store.pool.Exec(ctx, "DROP TABLE IF EXISTS chunks, documents")
	require.NoError(t, err)

	_, err = store.EmbeddingDimension(ctx)
	require.ErrorIs(t, err, domain.ErrSchemaMissing)

	require.NoError(t, store.Provision(ctx, 3))
	require.NoError(t, store.Provision(ctx, 3))
	assert.ErrorIs(t, store.Provision(ctx, 4), domain.ErrDimensionMismatch)

	dim, err := store.EmbeddingDimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, dim)

	doc := &domain.Document{
		ID:             "doc-1",
		Name:           "Deck",
		MIMEType:       "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		Status:         domain.StatusIndexed,
		LastIngestedAt: time.Now().UTC(),
	}
	chunk := func(page int) domain.Chunk {
		return domain.Chunk{
			ID:          uuid.NewString(),
			DocumentID:  "doc-1",
			SourceType:  domain.SourceTypePPTSlide,
			PageOrSlide: page,
			TextOrigin:  domain.OriginOCR,
			Text:        "slide",
			Embedding:   []float32{0.1, 0.2, float32(page)},
			CreatedAt:   time.Now().UTC(),
		}
	}

	require.NoError(t, store.CommitDocument(ctx, doc, []domain.Chunk{chunk(2), chunk(1)}))
	require.NoError(t, store.CommitDocument(ctx, doc, []domain.Chunk{chunk(1), chunk(2), chunk(3)}))
	require.NoError(t, store.RefreshStatistics(ctx))

	chunks, err := store.ListChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, 1, chunks[0].PageOrSlide)
	assert.Equal(t, []float32{0.1, 0.2, 3}, chunks[2].Embedding)

	wide := chunk(1)
	wide.Embedding = []float32{1, 2, 3, 4}
	err = store.CommitDocument(ctx, doc, []domain.Chunk{wide})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	chunks, err = store.ListChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, chunks, 3, "a rejected commit writes nothing")

	doc.Status = domain.StatusFailed
	msg := "embed: rate limited"
	doc.Error = &msg
	require.NoError(t, store.MarkDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Nil(t, got.ContentHash)

	o, err := store.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, o.Failed)
	assert.Equal(t, 3, o.Chunks)
	assert.Equal(t, 3, o.OCRChunks)

	_, err = store.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
