package driven

import (
	"context"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// OCREngine recognises text in an image.
// This is an optional service - when nil, only native text is extracted.
type OCREngine interface {
	// Name identifies the engine in logs.
	Name() string

	// Recognize returns the text found in img, trimmed. An image with no
	// text returns an empty string and no error.
	Recognize(ctx context.Context, img domain.Image) (string, error)

	// Close releases resources.
	Close() error
}
