// Package drive lists and downloads a shared folder through the Google
// Drive v3 API.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/custodia-labs/folio/internal/connectors/google"
	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
	"github.com/custodia-labs/folio/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.FileSource = (*Source)(nil)

// maxAttempts bounds retries of one Drive request.
const maxAttempts = 5

// ErrFileTooLarge indicates a download exceeded the configured limit.
var ErrFileTooLarge = errors.New("drive: file too large")

// Source lists a folder tree with files.list and downloads with files.get
// or files.export.
type Source struct {
	svc     *drive.Service
	cfg     Config
	limiter *google.RateLimiter

	// exports remembers which listed files must be exported, keyed by ID.
	exports sync.Map
}

// New creates a Drive source authorised per auth.
func New(ctx context.Context, auth google.AuthConfig, cfg Config, opts ...option.ClientOption) (*Source, error) {
	svc, err := google.NewDriveService(ctx, auth, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService creates a Drive source around an existing service.
func NewWithService(svc *drive.Service, cfg Config) *Source {
	cfg = cfg.withDefaults()
	return &Source{
		svc:     svc,
		cfg:     cfg,
		limiter: google.NewRateLimiter(cfg.RateLimit),
	}
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return "google-drive"
}

// ListFiles walks folderID depth first. Folders reached twice through
// multiple parents are listed once.
func (s *Source) ListFiles(ctx context.Context, folderID string) ([]domain.SourceFile, error) {
	if folderID == "" {
		return nil, fmt.Errorf("%w: folder id is empty", domain.ErrInvalidInput)
	}

	var files []domain.SourceFile
	visited := map[string]bool{}

	var walk func(id, path string) error
	walk = func(id, path string) error {
		if visited[id] {
			return nil
		}
		visited[id] = true

		children, err := s.listChildren(ctx, id)
		if err != nil {
			return fmt.Errorf("list folder %s: %w", id, err)
		}
		for _, f := range children {
			switch f.MimeType {
			case MimeTypeFolder:
				if err := walk(f.Id, joinPath(path, f.Name)); err != nil {
					return err
				}
			case MimeTypeShortcut:
				logger.Debug("Skipping shortcut %s (%s)", f.Name, f.Id)
			default:
				if export, ok := exportFormats[f.MimeType]; ok {
					s.exports.Store(f.Id, export)
				}
				files = append(files, toSourceFile(f, path))
			}
		}
		return nil
	}

	if err := walk(folderID, ""); err != nil {
		return nil, err
	}
	logger.Debug("Drive listing of %s: %d files in %d folders", folderID, len(files), len(visited))
	return files, nil
}

// listChildren returns every non-trashed child of a folder across pages.
func (s *Source) listChildren(ctx context.Context, folderID string) ([]*drive.File, error) {
	var out []*drive.File
	pageToken := ""
	for {
		call := s.svc.Files.List().
			Q(fmt.Sprintf("'%s' in parents and trashed = false", folderID)).
			Fields(listFields).
			OrderBy("name").
			PageSize(s.cfg.PageSize).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		list, err := retry(ctx, s, func() (*drive.FileList, error) {
			return call.Context(ctx).Do()
		})
		if err != nil {
			return nil, err
		}

		out = append(out, list.Files...)
		if list.NextPageToken == "" {
			return out, nil
		}
		pageToken = list.NextPageToken
	}
}

// FetchBytes downloads a listed file, exporting Workspace files first.
func (s *Source) FetchBytes(ctx context.Context, file domain.SourceFile) ([]byte, error) {
	resp, err := retry(ctx, s, func() (*http.Response, error) {
		if export, ok := s.exports.Load(file.ID); ok {
			return s.svc.Files.Export(file.ID, export.(string)).Context(ctx).Download()
		}
		return s.svc.Files.Get(file.ID).SupportsAllDrives(true).Context(ctx).Download()
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", file.ID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.ID, err)
	}
	if int64(len(data)) > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, file.Name, s.cfg.MaxFileSize)
	}
	return data, nil
}

// Close releases resources.
func (s *Source) Close() error {
	return nil
}

// retry runs call under the rate limiter, retrying rate limits and 5xx
// responses with exponential backoff.
func retry[T any](ctx context.Context, s *Source, call func() (T, error)) (T, error) {
	op := func() (T, error) {
		var zero T
		if err := s.limiter.Wait(ctx); err != nil {
			return zero, backoff.Permanent(err)
		}

		v, err := call()
		if err == nil {
			return v, nil
		}

		wrapped := google.WrapError(err)
		if google.IsRateLimited(err) {
			s.limiter.RecordRateLimitError(retryAfter(err))
		}
		if !domain.IsTransient(wrapped) {
			return zero, backoff.Permanent(wrapped)
		}
		logger.Debug("Drive request failed, retrying: %v", err)
		return zero, wrapped
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxAttempts),
	)
}

// retryAfter reads the Retry-After header of a googleapi error.
func retryAfter(err error) time.Duration {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}
	secs, convErr := strconv.Atoi(gerr.Header.Get("Retry-After"))
	if convErr != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
