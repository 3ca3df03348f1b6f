// Package postgres provides the PostgreSQL + pgvector IndexStore.
//
// Chunks are stored with a vector(D) embedding column and an ivfflat
// cosine index. The width D is fixed when the schema is provisioned and
// read back from the catalog on every run.
package postgres

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
	"github.com/custodia-labs/folio/internal/logger"
)

// Ensure Store implements the interfaces.
var (
	_ driven.IndexStore        = (*Store)(nil)
	_ driven.SchemaProvisioner = (*Store)(nil)
)

//go:embed schema.sql.tmpl
var schemaSQL string

var schemaTemplate = template.Must(template.New("schema").Parse(schemaSQL))

// DefaultLists is the ivfflat list count used when none is configured.
const DefaultLists = 100

// Config configures the PostgreSQL store.
type Config struct {
	// DatabaseURL is a libpq connection string or URL.
	DatabaseURL string

	// MaxConns bounds the pool size. Zero uses the pgxpool default.
	MaxConns int32

	// Lists is the ivfflat list count for the embedding index.
	Lists int
}

// Store is a PostgreSQL-based IndexStore.
type Store struct {
	pool  *pgxpool.Pool
	lists int
}

// NewStore creates a pooled store. Connections are opened lazily.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("%w: database URL is required", domain.ErrInvalidInput)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.AfterConnect = registerVectorTypes

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	lists := cfg.Lists
	if lists <= 0 {
		lists = DefaultLists
	}
	return &Store{pool: pool, lists: lists}, nil
}

// registerVectorTypes teaches a new connection the pgvector binary format.
// Before provisioning the extension may not exist yet, so registration is
// skipped and the connection still serves catalog queries.
func registerVectorTypes(ctx context.Context, conn *pgx.Conn) error {
	var installed bool
	err := conn.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'vector')").Scan(&installed)
	if err != nil {
		return fmt.Errorf("checking vector type: %w", err)
	}
	if !installed {
		return nil
	}
	return pgxvec.RegisterTypes(ctx, conn)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ==================== Schema ====================

// renderSchema fills the DDL template for the given width.
func renderSchema(dimension, lists int) (string, error) {
	var buf bytes.Buffer
	err := schemaTemplate.Execute(&buf, struct{ Dimension, Lists int }{dimension, lists})
	if err != nil {
		return "", fmt.Errorf("rendering schema: %w", err)
	}
	return buf.String(), nil
}

// Provision creates the vector extension, tables and indexes for vectors of
// the given width. Re-provisioning with the same width is a no-op; a
// different width is refused.
func (s *Store) Provision(ctx context.Context, dimension int) error {
	current, err := s.EmbeddingDimension(ctx)
	switch {
	case err == nil && current != dimension:
		return fmt.Errorf("%w: provisioned %d, requested %d", domain.ErrDimensionMismatch, current, dimension)
	case err != nil && !errors.Is(err, domain.ErrSchemaMissing):
		return err
	}

	ddl, err := renderSchema(dimension, s.lists)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("creating vector extension: %w", err)
	}
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	// Drop connections opened before the extension existed.
	s.pool.Reset()
	logger.Debug("Provisioned pgvector schema (dimension %d, lists %d)", dimension, s.lists)
	return nil
}

// EmbeddingDimension reads the declared width of chunks.embedding.
func (s *Store) EmbeddingDimension(ctx context.Context) (int, error) {
	var dim int
	err := s.pool.QueryRow(ctx, `
		SELECT a.atttypmod
		FROM pg_attribute a
		WHERE a.attrelid = to_regclass('chunks')
		  AND a.attname = 'embedding'
		  AND NOT a.attisdropped
	`).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrSchemaMissing
	}
	if err != nil {
		return 0, fmt.Errorf("reading embedding dimension: %w", err)
	}
	return dim, nil
}

// RefreshStatistics updates planner statistics for the chunks table.
func (s *Store) RefreshStatistics(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "ANALYZE chunks"); err != nil {
		return fmt.Errorf("analyze chunks: %w", err)
	}
	return nil
}

// ==================== Documents ====================

const documentColumns = `id, name, mime_type, folder_path, url, modified_time,
	content_hash, status, last_ingested_at, error`

const upsertDocument = `
	INSERT INTO documents (` + documentColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		mime_type = EXCLUDED.mime_type,
		folder_path = EXCLUDED.folder_path,
		url = EXCLUDED.url,
		modified_time = EXCLUDED.modified_time,
		content_hash = EXCLUDED.content_hash,
		status = EXCLUDED.status,
		last_ingested_at = EXCLUDED.last_ingested_at,
		error = EXCLUDED.error`

const insertChunk = `
	INSERT INTO chunks (id, document_id, doc_title, folder_path, doc_modified_time, doc_url,
		source_type, page_or_slide, text_origin, text, embedding, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func documentArgs(doc *domain.Document) []any {
	return []any{
		doc.ID, doc.Name, doc.MIMEType, doc.FolderPath, doc.URL, nullTime(doc.ModifiedTime),
		doc.ContentHash, string(doc.Status), doc.LastIngestedAt, doc.Error,
	}
}

// MarkDocument upserts the document row without touching its chunks.
func (s *Store) MarkDocument(ctx context.Context, doc *domain.Document) error {
	if !doc.Status.Valid() {
		return fmt.Errorf("%w: status %q", domain.ErrInvalidInput, doc.Status)
	}
	if _, err := s.pool.Exec(ctx, upsertDocument, documentArgs(doc)...); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// checkChunks validates chunks against their document and the schema width
// before anything is written.
func checkChunks(doc *domain.Document, chunks []domain.Chunk, dimension int) error {
	for _, c := range chunks {
		if c.DocumentID != doc.ID {
			return fmt.Errorf("%w: chunk %s belongs to %s, not %s", domain.ErrInvalidInput, c.ID, c.DocumentID, doc.ID)
		}
		if len(c.Embedding) != dimension {
			return fmt.Errorf("%w: chunk %s has width %d, schema %d",
				domain.ErrDimensionMismatch, c.ID, len(c.Embedding), dimension)
		}
	}
	return nil
}

// CommitDocument replaces a document's row and all of its chunks in one
// transaction. Chunk inserts are sent as a single batch.
func (s *Store) CommitDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if !doc.Status.Valid() {
		return fmt.Errorf("%w: status %q", domain.ErrInvalidInput, doc.Status)
	}
	dim, err := s.EmbeddingDimension(ctx)
	if err != nil {
		return err
	}
	if err := checkChunks(doc, chunks, dim); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, upsertDocument, documentArgs(doc)...); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM chunks WHERE document_id = $1", doc.ID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	if len(chunks) > 0 {
		batch := &pgx.Batch{}
		for _, c := range chunks {
			batch.Queue(insertChunk,
				c.ID, c.DocumentID, c.DocTitle, c.FolderPath, nullTime(c.DocModifiedTime), c.DocURL,
				string(c.SourceType), c.PageOrSlide, string(c.TextOrigin), c.Text,
				pgvector.NewVector(c.Embedding), c.CreatedAt)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting chunks: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = $1", id)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// ListDocuments returns every tracked document ordered by ID.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// ==================== Chunks ====================

// ListChunks returns a document's chunks ordered by page or slide.
func (s *Store) ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, document_id, doc_title, folder_path, doc_modified_time, doc_url,
			source_type, page_or_slide, text_origin, text, embedding, created_at
		FROM chunks WHERE document_id = $1
		ORDER BY page_or_slide
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.Chunk
		var sourceType, origin string
		var modified *time.Time
		var vec pgvector.Vector
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.DocTitle, &c.FolderPath, &modified, &c.DocURL,
			&sourceType, &c.PageOrSlide, &origin, &c.Text, &vec, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.SourceType = domain.SourceType(sourceType)
		c.TextOrigin = domain.TextOrigin(origin)
		if modified != nil {
			c.DocModifiedTime = *modified
		}
		c.Embedding = vec.Slice()
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// Overview returns counts across the whole index.
func (s *Store) Overview(ctx context.Context) (*domain.IndexOverview, error) {
	var o domain.IndexOverview
	var last *time.Time

	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'indexed'),
			COUNT(*) FILTER (WHERE status = 'partial'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			MAX(last_ingested_at)
		FROM documents
	`).Scan(&o.Documents, &o.Indexed, &o.Partial, &o.Failed, &last)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	if last != nil {
		o.LastIngestedAt = *last
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE text_origin = 'ocr') FROM chunks
	`).Scan(&o.Chunks, &o.OCRChunks)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	return &o, nil
}

// ==================== Helper Functions ====================

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var doc domain.Document
	var status string
	var modified *time.Time

	if err := row.Scan(&doc.ID, &doc.Name, &doc.MIMEType, &doc.FolderPath, &doc.URL,
		&modified, &doc.ContentHash, &status, &doc.LastIngestedAt, &doc.Error); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	if modified != nil {
		doc.ModifiedTime = *modified
	}
	return &doc, nil
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
