// Package filesystem serves a local directory tree as a file source.
//
// File IDs are slash-separated paths relative to the listed folder, so a
// document keeps its ID as long as it is not renamed or moved.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.FileSource = (*Source)(nil)

// Source lists and reads files below a local directory.
type Source struct {
	// maxFileSize bounds one read. Zero means unlimited.
	maxFileSize int64
}

// New creates a filesystem source.
func New(maxFileSize int64) *Source {
	return &Source{maxFileSize: maxFileSize}
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return "filesystem"
}

// ListFiles walks the directory folderID. Hidden files and directories are
// skipped, as are symlinks. Each file is hashed with sha256.
func (s *Source) ListFiles(ctx context.Context, folderID string) ([]domain.SourceFile, error) {
	root, err := filepath.Abs(folderID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", folderID, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}

	var files []domain.SourceFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		f, err := s.describe(root, path, d)
		if err != nil {
			return err
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

func (s *Source) describe(root, path string, d fs.DirEntry) (domain.SourceFile, error) {
	info, err := d.Info()
	if err != nil {
		return domain.SourceFile{}, err
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return domain.SourceFile{}, err
	}
	rel = filepath.ToSlash(rel)

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return domain.SourceFile{}, fmt.Errorf("detect type of %s: %w", rel, err)
	}
	hash, err := hashFile(path)
	if err != nil {
		return domain.SourceFile{}, err
	}

	folder := filepath.ToSlash(filepath.Dir(rel))
	if folder == "." {
		folder = ""
	}

	return domain.SourceFile{
		ID:           rel,
		Name:         d.Name(),
		MIMEType:     mtype.String(),
		FolderPath:   folder,
		URL:          FileURL(path),
		ModifiedTime: info.ModTime().UTC().Truncate(time.Microsecond),
		ContentHash:  hash,
		Size:         info.Size(),
	}, nil
}

// FetchBytes reads the file behind a listed entry's URL.
func (s *Source) FetchBytes(_ context.Context, file domain.SourceFile) ([]byte, error) {
	path := ResolvePath(file.URL)
	if path == "" || !filepath.IsAbs(path) {
		return nil, fmt.Errorf("%w: %s has no local path", domain.ErrInvalidInput, file.ID)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, file.ID)
		}
		return nil, fmt.Errorf("open %s: %w", file.ID, err)
	}
	defer f.Close()

	var r io.Reader = f
	if s.maxFileSize > 0 {
		r = io.LimitReader(f, s.maxFileSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.ID, err)
	}
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", file.ID, s.maxFileSize)
	}
	return data, nil
}

// Close releases resources.
func (s *Source) Close() error {
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return domain.HashSHA256 + ":" + hex.EncodeToString(h.Sum(nil)), nil
}
