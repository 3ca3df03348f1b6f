package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/folio/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.IndexStore        = (*Store)(nil)
	_ driven.SchemaProvisioner = (*Store)(nil)
)

// Store is a SQLite-based IndexStore.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.folio/data/index.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".folio", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Schema ====================

// Provision records the embedding width. Tables are created by migrations.
// Re-provisioning with the same width is a no-op.
func (s *Store) Provision(ctx context.Context, dimension int) error {
	current, err := s.EmbeddingDimension(ctx)
	switch {
	case err == nil && current == dimension:
		return nil
	case err == nil:
		return fmt.Errorf("%w: provisioned %d, requested %d", domain.ErrDimensionMismatch, current, dimension)
	case !errors.Is(err, domain.ErrSchemaMissing):
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO schema_meta (id, dimension) VALUES (1, ?)", dimension); err != nil {
		return fmt.Errorf("recording dimension: %w", err)
	}
	return nil
}

// EmbeddingDimension returns the provisioned vector width.
func (s *Store) EmbeddingDimension(ctx context.Context) (int, error) {
	var dim int
	err := s.db.QueryRowContext(ctx, "SELECT dimension FROM schema_meta WHERE id = 1").Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrSchemaMissing
	}
	if err != nil {
		return 0, fmt.Errorf("reading dimension: %w", err)
	}
	return dim, nil
}

// RefreshStatistics updates the query planner statistics.
func (s *Store) RefreshStatistics(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	return nil
}

// ==================== Documents ====================

const documentColumns = `id, name, mime_type, folder_path, url, modified_time,
	content_hash, status, last_ingested_at, error`

const upsertDocument = `
	INSERT INTO documents (` + documentColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		mime_type = excluded.mime_type,
		folder_path = excluded.folder_path,
		url = excluded.url,
		modified_time = excluded.modified_time,
		content_hash = excluded.content_hash,
		status = excluded.status,
		last_ingested_at = excluded.last_ingested_at,
		error = excluded.error`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveDocument(ctx context.Context, db execer, doc *domain.Document) error {
	if !doc.Status.Valid() {
		return fmt.Errorf("%w: status %q", domain.ErrInvalidInput, doc.Status)
	}
	_, err := db.ExecContext(ctx, upsertDocument,
		doc.ID, doc.Name, doc.MIMEType, doc.FolderPath, doc.URL, nullTime(doc.ModifiedTime),
		doc.ContentHash, string(doc.Status), doc.LastIngestedAt.UTC(), doc.Error)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// MarkDocument upserts the document row without touching its chunks.
func (s *Store) MarkDocument(ctx context.Context, doc *domain.Document) error {
	return saveDocument(ctx, s.db, doc)
}

// CommitDocument replaces a document's row and all of its chunks in one
// transaction.
func (s *Store) CommitDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	dim, err := s.EmbeddingDimension(ctx)
	if err != nil {
		return err
	}
	for _, c := range chunks {
		if c.DocumentID != doc.ID {
			return fmt.Errorf("%w: chunk %s belongs to %s, not %s", domain.ErrInvalidInput, c.ID, c.DocumentID, doc.ID)
		}
		if len(c.Embedding) != dim {
			return fmt.Errorf("%w: chunk %s has width %d, schema %d",
				domain.ErrDimensionMismatch, c.ID, len(c.Embedding), dim)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := saveDocument(ctx, tx, doc); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, doc_title, folder_path, doc_modified_time, doc_url,
			source_type, page_or_slide, text_origin, text, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.DocTitle, c.FolderPath,
			nullTime(c.DocModifiedTime), c.DocURL, string(c.SourceType), c.PageOrSlide,
			string(c.TextOrigin), c.Text, float32SliceToBytes(c.Embedding), c.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("saving chunk %d: %w", c.PageOrSlide, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// ListDocuments returns every tracked document ordered by ID.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY id")
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, doc_title, folder_path, doc_modified_time, doc_url,
			source_type, page_or_slide, text_origin, text, embedding, created_at
		FROM chunks WHERE document_id = ?
		ORDER BY page_or_slide
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// Overview returns counts across the whole index.
func (s *Store) Overview(ctx context.Context) (*domain.IndexOverview, error) {
	var o domain.IndexOverview

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'indexed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'partial' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)
		FROM documents
	`).Scan(&o.Documents, &o.Indexed, &o.Partial, &o.Failed)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN text_origin = 'ocr' THEN 1 ELSE 0 END), 0)
		FROM chunks
	`).Scan(&o.Chunks, &o.OCRChunks)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}

	var last sql.NullTime
	err = s.db.QueryRowContext(ctx,
		"SELECT last_ingested_at FROM documents ORDER BY last_ingested_at DESC LIMIT 1").Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reading last ingestion: %w", err)
	}
	if last.Valid {
		o.LastIngestedAt = last.Time
	}

	return &o, nil
}

// ==================== Helper Functions ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a document row selected with documentColumns.
// sql.ErrNoRows is returned unwrapped.
func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var status string
	var modified sql.NullTime
	var hash, errMsg sql.NullString

	if err := row.Scan(&doc.ID, &doc.Name, &doc.MIMEType, &doc.FolderPath, &doc.URL,
		&modified, &hash, &status, &doc.LastIngestedAt, &errMsg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Status = domain.DocumentStatus(status)
	if modified.Valid {
		doc.ModifiedTime = modified.Time
	}
	if hash.Valid {
		doc.ContentHash = &hash.String
	}
	if errMsg.Valid {
		doc.Error = &errMsg.String
	}
	return &doc, nil
}

func scanChunk(row scanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var sourceType, origin string
	var modified sql.NullTime
	var embeddingBlob []byte

	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.DocTitle, &chunk.FolderPath,
		&modified, &chunk.DocURL, &sourceType, &chunk.PageOrSlide, &origin, &chunk.Text,
		&embeddingBlob, &chunk.CreatedAt); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.SourceType = domain.SourceType(sourceType)
	chunk.TextOrigin = domain.TextOrigin(origin)
	if modified.Valid {
		chunk.DocModifiedTime = modified.Time
	}
	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	return &chunk, nil
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
