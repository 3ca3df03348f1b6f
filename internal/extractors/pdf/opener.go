// Package pdf opens PDF documents page by page using poppler-utils.
//
// pdfinfo counts pages, pdftotext reads the text layer of one page and
// pdftoppm renders one page to PNG for OCR.
package pdf

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/folio/internal/adapters/driven/command"
	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// Ensure Opener implements the interface.
var _ driven.DocumentOpener = (*Opener)(nil)

// MIMEType is the PDF MIME type.
const MIMEType = "application/pdf"

// DefaultDPI is the render resolution for OCR candidates, about twice
// the 72 dpi PDF user space.
const DefaultDPI = 150

// Tools required on PATH.
var tools = []string{"pdfinfo", "pdftotext", "pdftoppm"}

// ErrPDFToolNotFound indicates poppler-utils is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext, pdfinfo or pdftoppm not found in PATH")

// Opener opens PDF bytes.
type Opener struct {
	runner  driven.CommandRunner
	dpi     int
	tempDir string
}

// Option configures the opener.
type Option func(*Opener)

// WithDPI sets the render resolution for OCR candidates.
func WithDPI(dpi int) Option {
	return func(o *Opener) {
		if dpi > 0 {
			o.dpi = dpi
		}
	}
}

// WithTempDir sets where documents are staged for the poppler tools.
func WithTempDir(dir string) Option {
	return func(o *Opener) {
		o.tempDir = dir
	}
}

// New creates an opener that executes the poppler tools directly.
func New(opts ...Option) *Opener {
	return NewWithRunner(command.NewExecRunner(), opts...)
}

// NewWithRunner creates an opener with a custom command runner.
func NewWithRunner(runner driven.CommandRunner, opts ...Option) *Opener {
	o := &Opener{runner: runner, dpi: DefaultDPI}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SupportedMIMETypes returns the MIME types this opener handles.
func (o *Opener) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// SourceType returns the unit kind.
func (o *Opener) SourceType() domain.SourceType {
	return domain.SourceTypePDFPage
}

// Open stages data in a temporary directory and counts its pages.
func (o *Opener) Open(ctx context.Context, data []byte) (driven.UnitReader, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", domain.ErrInvalidInput)
	}

	dir, err := os.MkdirTemp(o.tempDir, "folio-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	path := filepath.Join(dir, "document.pdf")
	if err := os.WriteFile(path, data, 0600); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("staging document: %w", err)
	}

	info, err := o.runner.Run(ctx, "pdfinfo", path)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("pdfinfo failed: %w", err)
	}
	pages, err := parsePageCount(info)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	return &reader{opener: o, dir: dir, path: path, pages: pages}, nil
}

// parsePageCount reads the "Pages:" line of pdfinfo output.
func parsePageCount(info []byte) (int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(info))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || strings.TrimSpace(key) != "Pages" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid page count %q", strings.TrimSpace(value))
		}
		return n, nil
	}
	return 0, errors.New("pdfinfo reported no page count")
}

// reader serves pages of one staged PDF.
type reader struct {
	opener *Opener
	dir    string
	path   string
	pages  int
}

func (r *reader) Units() int {
	return r.pages
}

// NativeText returns the text layer of page n with layout preserved.
func (r *reader) NativeText(ctx context.Context, n int) (string, error) {
	if err := r.check(n); err != nil {
		return "", err
	}
	page := strconv.Itoa(n)
	out, err := r.opener.runner.Run(ctx, "pdftotext",
		"-f", page, "-l", page, "-layout", "-enc", "UTF-8", r.path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	// pdftotext ends each page with a form feed.
	return strings.TrimSpace(strings.ReplaceAll(string(out), "\f", "")), nil
}

// Images renders page n as a single PNG.
func (r *reader) Images(ctx context.Context, n int) ([]domain.Image, error) {
	if err := r.check(n); err != nil {
		return nil, err
	}
	page := strconv.Itoa(n)
	out, err := r.opener.runner.Run(ctx, "pdftoppm",
		"-f", page, "-l", page, "-r", strconv.Itoa(r.opener.dpi), "-png", "-singlefile", r.path)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return []domain.Image{{Data: out, MIMEType: "image/png"}}, nil
}

// Close removes the staged document.
func (r *reader) Close() error {
	return os.RemoveAll(r.dir)
}

func (r *reader) check(n int) error {
	if n < 1 || n > r.pages {
		return fmt.Errorf("%w: page %d of %d", domain.ErrInvalidInput, n, r.pages)
	}
	return nil
}

// CheckAvailable verifies the poppler tools are on PATH.
func CheckAvailable() error {
	if err := command.LookPath(tools...); err != nil {
		return fmt.Errorf("%w: %w", ErrPDFToolNotFound, err)
	}
	return nil
}

// InstallInstructions returns platform-specific install hints.
func InstallInstructions() string {
	return `PDF extraction requires pdftotext, pdfinfo and pdftoppm (poppler-utils).

Install:
  macOS:         brew install poppler
  Ubuntu/Debian: apt install poppler-utils
  Fedora:        dnf install poppler-utils
  Windows:       choco install poppler`
}
