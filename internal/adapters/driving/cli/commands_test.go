package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/folio/internal/core/domain"
)

func strPtr(s string) *string { return &s }

func sampleDocs() []domain.Document {
	return []domain.Document{
		{ID: "pdf-1", Name: "Triage.pdf", Status: domain.StatusIndexed, FolderPath: "Protocols",
			ContentHash: strPtr("md5:abc"), LastIngestedAt: time.Now()},
		{ID: "deck-1", Name: "Handover.pptx", Status: domain.StatusFailed,
			Error: strPtr("embed: rate limited")},
	}
}

// ==================== status ====================

func TestStatusCmd(t *testing.T) {
	cat := &mockCatalog{overview: &domain.IndexOverview{Documents: 3, Indexed: 2, Failed: 1, Chunks: 14, OCRChunks: 3}}
	withServices(t, &Services{Catalog: cat})

	out, err := execute(t, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "Index status")
	assert.Contains(t, out, "14")
	assert.Contains(t, out, "never")
}

func TestStatusCmd_Errors(t *testing.T) {
	withServices(t, &Services{})
	_, err := execute(t, "status")
	assert.ErrorContains(t, err, "catalog service not configured")

	withServices(t, &Services{Catalog: &mockCatalog{err: domain.ErrSchemaMissing}})
	_, err = execute(t, "status")
	assert.ErrorIs(t, err, domain.ErrSchemaMissing)
}

// ==================== documents ====================

func TestDocumentsCmd_List(t *testing.T) {
	cat := &mockCatalog{docs: sampleDocs()}
	withServices(t, &Services{Catalog: cat})

	out, err := execute(t, "documents")

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatus(""), cat.status)
	assert.Contains(t, out, "Triage.pdf")
	assert.Contains(t, out, "Protocols · pdf-1")
	assert.Contains(t, out, "embed: rate limited")
	assert.Contains(t, out, "Total: 2 documents")
}

func TestDocumentsCmd_StatusFilter(t *testing.T) {
	cat := &mockCatalog{}
	withServices(t, &Services{Catalog: cat})

	out, err := execute(t, "documents", "--status", "failed")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, cat.status)
	assert.Contains(t, out, "No documents found.")
}

func TestDocumentsCmd_InvalidStatus(t *testing.T) {
	withServices(t, &Services{Catalog: &mockCatalog{}})

	_, err := execute(t, "documents", "--status", "done")

	assert.ErrorContains(t, err, `unknown status "done"`)
}

func TestDocumentsCmd_Get(t *testing.T) {
	cat := &mockCatalog{
		docs: sampleDocs(),
		chunks: []domain.Chunk{
			{PageOrSlide: 1, TextOrigin: domain.OriginNative, Text: "Triage levels\nmore"},
			{PageOrSlide: 2, TextOrigin: domain.OriginOCR, Text: "Scanned flowchart"},
		},
	}
	withServices(t, &Services{Catalog: cat})

	out, err := execute(t, "documents", "get", "pdf-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document: Triage.pdf")
	assert.Contains(t, out, "md5:abc")
	assert.Contains(t, out, "Chunks (2)")
	assert.Contains(t, out, "Triage levels")
	assert.NotContains(t, out, "more")
	assert.Contains(t, out, "ocr")
}

func TestDocumentsCmd_GetNotFound(t *testing.T) {
	withServices(t, &Services{Catalog: &mockCatalog{}})

	_, err := execute(t, "documents", "get", "nope")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ==================== schema ====================

func TestSchemaInitCmd(t *testing.T) {
	t.Run("uses configured dimension", func(t *testing.T) {
		schema := &mockSchema{}
		withServices(t, &Services{Schema: schema, Dimension: 1536})

		out, err := execute(t, "schema", "init")

		require.NoError(t, err)
		assert.Equal(t, 1536, schema.dim)
		assert.Contains(t, out, "Schema ready (dimension 1536)")
	})

	t.Run("flag overrides", func(t *testing.T) {
		schema := &mockSchema{}
		withServices(t, &Services{Schema: schema, Dimension: 1536})

		_, err := execute(t, "schema", "init", "--dim", "768")

		require.NoError(t, err)
		assert.Equal(t, 768, schema.dim)
	})

	t.Run("mismatch reported", func(t *testing.T) {
		withServices(t, &Services{Schema: &mockSchema{err: domain.ErrDimensionMismatch}, Dimension: 8})

		_, err := execute(t, "schema", "init")

		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})

	t.Run("invalid dimension", func(t *testing.T) {
		withServices(t, &Services{Schema: &mockSchema{}})

		_, err := execute(t, "schema", "init")

		assert.ErrorContains(t, err, "invalid dimension 0")
	})
}

// ==================== mcp ====================

func TestMCPServeCmd_RequiresCatalog(t *testing.T) {
	withServices(t, &Services{Ingestor: &mockIngestor{}})

	_, err := execute(t, "mcp", "serve")

	assert.ErrorContains(t, err, "catalog service not configured")
}

// ==================== version ====================

func TestVersionCmd_Executes(t *testing.T) {
	original := version
	SetVersion("test-version-1.0.0")
	defer func() { version = original }()

	out, err := execute(t, "version")

	assert.NoError(t, err)
	assert.Contains(t, out, "folio version test-version-1.0.0")
}

// ==================== bootstrap ====================

func TestBootstrap(t *testing.T) {
	withServices(t, &Services{})

	var got BootstrapOptions
	closed := false
	cat := &mockCatalog{overview: &domain.IndexOverview{}}
	SetBootstrap(func(_ context.Context, opts BootstrapOptions) (*Services, error) {
		got = opts
		return &Services{Catalog: cat, Close: func() error { closed = true; return nil }}, nil
	})

	_, err := execute(t, "--config", "/tmp/folio.toml", "status")

	require.NoError(t, err)
	assert.Equal(t, "/tmp/folio.toml", got.ConfigPath)
	assert.True(t, closed, "services are closed after the command")
}

func TestBootstrap_PassesWorkers(t *testing.T) {
	withServices(t, &Services{})

	var got BootstrapOptions
	SetBootstrap(func(_ context.Context, opts BootstrapOptions) (*Services, error) {
		got = opts
		return &Services{Ingestor: &mockIngestor{summary: &domain.RunSummary{}}}, nil
	})

	_, err := execute(t, "ingest", "--workers", "4")

	require.NoError(t, err)
	assert.Equal(t, 4, got.Workers)
	assert.True(t, got.ValidateProviders)
}

func TestBootstrap_NoProviderCheckForStatus(t *testing.T) {
	withServices(t, &Services{})

	var got BootstrapOptions
	SetBootstrap(func(_ context.Context, opts BootstrapOptions) (*Services, error) {
		got = opts
		return &Services{Catalog: &mockCatalog{overview: &domain.IndexOverview{}}}, nil
	})

	_, err := execute(t, "status")

	require.NoError(t, err)
	assert.False(t, got.ValidateProviders)
}

func TestBootstrap_Error(t *testing.T) {
	withServices(t, &Services{})
	SetBootstrap(func(context.Context, BootstrapOptions) (*Services, error) {
		return nil, errors.New("config: source.folder_id is required")
	})

	_, err := execute(t, "status")

	assert.ErrorContains(t, err, "folder_id is required")
}

func TestBootstrap_SkippedForVersion(t *testing.T) {
	withServices(t, &Services{})
	called := false
	SetBootstrap(func(context.Context, BootstrapOptions) (*Services, error) {
		called = true
		return &Services{}, nil
	})

	_, err := execute(t, "version")

	require.NoError(t, err)
	assert.False(t, called)
}

// ==================== render helpers ====================

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short\nsecond", 10))
	assert.Equal(t, "abcd…", preview("abcdefgh", 5))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "never", formatTime(time.Time{}))
	assert.NotEqual(t, "never", formatTime(time.Now()))
}
