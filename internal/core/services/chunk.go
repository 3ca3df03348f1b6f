package services

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// Chunker turns extracted pages into chunk records, one per page or slide.
// Pages are never merged or split.
type Chunker struct {
	newID func() string
	now   func() time.Time
}

// ChunkerOption configures the chunker.
type ChunkerOption func(*Chunker)

// WithIDGenerator overrides chunk ID generation.
func WithIDGenerator(fn func() string) ChunkerOption {
	return func(c *Chunker) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithChunkClock overrides the clock used for CreatedAt.
func WithChunkClock(fn func() time.Time) ChunkerOption {
	return func(c *Chunker) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewChunker creates a chunker with the given options.
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{
		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Build creates chunks for doc from its extracted pages, in page order.
// Pages with only whitespace are dropped. Embeddings are left empty.
func (c *Chunker) Build(doc domain.Document, pages []domain.PageText) []domain.Chunk {
	ordered := slices.Clone(pages)
	slices.SortStableFunc(ordered, func(a, b domain.PageText) int {
		return cmp.Compare(a.Number, b.Number)
	})

	created := c.now()
	chunks := make([]domain.Chunk, 0, len(ordered))
	for _, p := range ordered {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ID:              c.newID(),
			DocumentID:      doc.ID,
			DocTitle:        doc.Name,
			FolderPath:      doc.FolderPath,
			DocModifiedTime: doc.ModifiedTime,
			DocURL:          doc.URL,
			SourceType:      p.SourceType,
			PageOrSlide:     p.Number,
			TextOrigin:      p.Origin,
			Text:            text,
			CreatedAt:       created,
		})
	}
	return chunks
}
