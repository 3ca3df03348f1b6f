package driven

import (
	"context"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// FileSource provides a recursive listing of a shared folder and the raw
// bytes of its files.
//
// Implementations include the Google Drive API, the public share page of a
// Drive folder, and a local directory tree.
type FileSource interface {
	// Type identifies the source kind (e.g. "google-drive").
	Type() string

	// ListFiles returns every file below folderID, descending into
	// sub-folders. FolderPath on each entry is stable across runs.
	// An error here aborts the run.
	ListFiles(ctx context.Context, folderID string) ([]domain.SourceFile, error)

	// FetchBytes downloads the content of a listed file.
	// An error here fails only that document.
	FetchBytes(ctx context.Context, file domain.SourceFile) ([]byte, error)

	// Close releases resources.
	Close() error
}
