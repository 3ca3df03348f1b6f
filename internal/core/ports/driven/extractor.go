package driven

import (
	"context"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// DocumentOpener opens document bytes of a particular format as a sequence
// of independently addressable units (pages or slides).
type DocumentOpener interface {
	// SupportedMIMETypes returns the MIME types this opener handles.
	SupportedMIMETypes() []string

	// SourceType is the unit kind produced by this opener.
	SourceType() domain.SourceType

	// Open parses data. An error means the document is unreadable as a whole.
	Open(ctx context.Context, data []byte) (UnitReader, error)
}

// UnitReader reads the pages or slides of one opened document.
// Methods may be called concurrently for different unit numbers.
type UnitReader interface {
	// Units returns the number of pages or slides.
	Units() int

	// NativeText returns the text layer of unit n (1-based).
	NativeText(ctx context.Context, n int) (string, error)

	// Images returns the OCR candidates of unit n: the rendered page for
	// PDFs, or the pictures placed on a slide.
	Images(ctx context.Context, n int) ([]domain.Image, error)

	// Close releases temporary resources.
	Close() error
}
