// Package publicshare lists and downloads a publicly shared Google Drive
// folder without API credentials.
//
// Listings are read from the folder page's embedded _DRIVE_ivd payload and
// files are downloaded from the uc?export=download endpoint. Neither is a
// documented API; the drive package is the supported alternative.
package publicshare

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/custodia-labs/folio/internal/connectors/google"
	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
	"github.com/custodia-labs/folio/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.FileSource = (*Source)(nil)

// Default configuration values.
const (
	DefaultBaseURL     = "https://drive.google.com"
	DefaultTimeout     = 60 * time.Second
	DefaultMaxFileSize = 256 << 20
	maxPageSize        = 16 << 20
	maxAttempts        = 4
	folderMIMEType     = "application/vnd.google-apps.folder"
)

// ErrConfirmationRequired indicates Drive answered a download with its
// interstitial page instead of the file.
var ErrConfirmationRequired = errors.New("publicshare: download requires confirmation")

// ErrFileTooLarge indicates a download exceeded the configured limit.
var ErrFileTooLarge = errors.New("publicshare: file too large")

// Config configures the public share source.
type Config struct {
	// BaseURL is the Drive web origin (default: https://drive.google.com).
	BaseURL string

	// Timeout bounds one HTTP request (default: 60s).
	Timeout time.Duration

	// MaxFileSize bounds one download (default: 256MB).
	MaxFileSize int64

	// RateLimit throttles page and download requests.
	RateLimit google.RateLimitConfig
}

// Source scrapes a public folder.
type Source struct {
	client      *http.Client
	baseURL     string
	maxFileSize int64
	limiter     *google.RateLimiter
}

// New creates a public share source.
func New(cfg Config) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	return &Source{
		client:      &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		maxFileSize: cfg.MaxFileSize,
		limiter:     google.NewRateLimiter(cfg.RateLimit),
	}
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return "google-drive-public"
}

// ListFiles walks the folder pages depth first.
func (s *Source) ListFiles(ctx context.Context, folderID string) ([]domain.SourceFile, error) {
	if folderID == "" {
		return nil, fmt.Errorf("%w: folder id is empty", domain.ErrInvalidInput)
	}

	var files []domain.SourceFile
	visited := map[string]bool{}

	var walk func(id string, path []string) error
	walk = func(id string, path []string) error {
		if visited[id] {
			return nil
		}
		visited[id] = true

		page, err := s.get(ctx, s.baseURL+"/drive/folders/"+url.PathEscape(id), maxPageSize)
		if err != nil {
			return fmt.Errorf("folder %s: %w", id, err)
		}
		nodes, err := parseFolderPage(page)
		if err != nil {
			return fmt.Errorf("folder %s: %w", id, err)
		}

		for _, n := range nodes {
			if n.MIMEType == folderMIMEType {
				if err := walk(n.ID, append(path[:len(path):len(path)], n.Name)); err != nil {
					return err
				}
				continue
			}
			files = append(files, domain.SourceFile{
				ID:           n.ID,
				Name:         n.Name,
				MIMEType:     n.MIMEType,
				FolderPath:   strings.Join(path, "/"),
				URL:          viewURL(n.ID),
				ModifiedTime: n.ModifiedTime,
			})
		}
		return nil
	}

	if err := walk(folderID, nil); err != nil {
		return nil, err
	}
	logger.Debug("Public listing of %s: %d files in %d folders", folderID, len(files), len(visited))
	return files, nil
}

// FetchBytes downloads a file through the export endpoint.
func (s *Source) FetchBytes(ctx context.Context, file domain.SourceFile) ([]byte, error) {
	q := url.Values{"export": {"download"}, "id": {file.ID}}
	body, contentType, err := s.fetch(ctx, s.baseURL+"/uc?"+q.Encode(), s.maxFileSize)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", file.ID, err)
	}
	if isHTML(contentType) && !isHTML(file.MIMEType) {
		return nil, fmt.Errorf("%w: %s", ErrConfirmationRequired, file.Name)
	}
	return body, nil
}

// Close releases idle connections.
func (s *Source) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Source) get(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	body, _, err := s.fetch(ctx, rawURL, limit)
	return body, err
}

type response struct {
	body        []byte
	contentType string
}

// fetch GETs rawURL under the rate limiter, retrying 429 and 5xx
// responses and transport errors.
func (s *Source) fetch(ctx context.Context, rawURL string, limit int64) ([]byte, string, error) {
	op := func() (response, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return response{}, backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
		if err != nil {
			return response{}, backoff.Permanent(err)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return response{}, backoff.Permanent(ctx.Err())
			}
			return response{}, fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			s.limiter.RecordRateLimitError(0)
			return response{}, fmt.Errorf("%w: status %d", domain.ErrRateLimited, resp.StatusCode)
		case resp.StatusCode >= http.StatusInternalServerError:
			return response{}, fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
		case resp.StatusCode == http.StatusNotFound:
			return response{}, backoff.Permanent(fmt.Errorf("%w: status %d", domain.ErrNotFound, resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			return response{}, backoff.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
		if err != nil {
			return response{}, fmt.Errorf("%w: read body: %w", domain.ErrProviderUnavailable, err)
		}
		if int64(len(body)) > limit {
			return response{}, backoff.Permanent(fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, limit))
		}
		return response{body: body, contentType: resp.Header.Get("Content-Type")}, nil
	}

	r, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxAttempts),
	)
	if err != nil {
		return nil, "", err
	}
	return r.body, r.contentType, nil
}

func viewURL(id string) string {
	return "https://drive.google.com/file/d/" + id + "/view"
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/html"
}
