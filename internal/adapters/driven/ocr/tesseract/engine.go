// Package tesseract recognises text with the tesseract CLI.
package tesseract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/folio/internal/adapters/driven/command"
	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.OCREngine = (*Engine)(nil)

// DefaultLanguage is the tesseract language pack used when none is set.
const DefaultLanguage = "eng"

// ErrTesseractNotFound indicates tesseract is not installed.
var ErrTesseractNotFound = errors.New("tesseract not found")

// extensions maps image MIME types to the file extension tesseract expects.
var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
	"image/webp": ".webp",
}

// Engine runs `tesseract <image> stdout -l <lang>` for each image.
type Engine struct {
	runner   driven.CommandRunner
	language string
	tempDir  string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguage sets the tesseract language, e.g. "eng+deu".
func WithLanguage(lang string) Option {
	return func(e *Engine) {
		if lang != "" {
			e.language = lang
		}
	}
}

// WithTempDir sets where images are staged. Defaults to os.TempDir().
func WithTempDir(dir string) Option {
	return func(e *Engine) {
		e.tempDir = dir
	}
}

// New creates an engine that runs tesseract with os/exec.
func New(opts ...Option) *Engine {
	return NewWithRunner(command.NewExecRunner(), opts...)
}

// NewWithRunner creates an engine with a custom command runner.
func NewWithRunner(runner driven.CommandRunner, opts ...Option) *Engine {
	e := &Engine{runner: runner, language: DefaultLanguage}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name identifies the engine.
func (e *Engine) Name() string {
	return "tesseract"
}

// Recognize stages img in a temp file and returns tesseract's trimmed output.
func (e *Engine) Recognize(ctx context.Context, img domain.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", nil
	}

	f, err := os.CreateTemp(e.tempDir, "folio-ocr-*"+extension(img.MIMEType))
	if err != nil {
		return "", fmt.Errorf("stage image: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(img.Data); err != nil {
		f.Close()
		return "", fmt.Errorf("stage image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("stage image: %w", err)
	}

	out, err := e.runner.Run(ctx, "tesseract", path, "stdout", "-l", e.language)
	if err != nil {
		if errors.Is(err, command.ErrToolNotFound) {
			return "", fmt.Errorf("%w: %s", ErrTesseractNotFound, InstallInstructions())
		}
		return "", fmt.Errorf("tesseract %s: %w", filepath.Base(path), err)
	}

	return strings.TrimSpace(strings.ReplaceAll(string(out), "\f", "")), nil
}

// Close releases resources.
func (e *Engine) Close() error {
	return nil
}

// CheckAvailable reports whether tesseract is on PATH.
func CheckAvailable() error {
	if err := command.LookPath("tesseract"); err != nil {
		return fmt.Errorf("%w: %s", ErrTesseractNotFound, InstallInstructions())
	}
	return nil
}

// InstallInstructions returns how to install tesseract.
func InstallInstructions() string {
	return `tesseract is required for local OCR.
  macOS:  brew install tesseract
  Debian: apt install tesseract-ocr
Set ocr.engine = "none" to index native text only.`
}

func extension(mimeType string) string {
	if ext, ok := extensions[mimeType]; ok {
		return ext
	}
	return ".png"
}
