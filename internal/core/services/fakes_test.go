package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// --- Shared test doubles for the pipeline services ---

const mimePDF = "application/pdf"

// fakeSource implements driven.FileSource over an in-memory listing.
type fakeSource struct {
	mu       sync.Mutex
	files    []domain.SourceFile
	content  map[string][]byte
	fetchErr map[string]error
	listErr  error
	fetched  []string
}

var _ driven.FileSource = (*fakeSource)(nil)

func (s *fakeSource) Type() string { return "fake" }

func (s *fakeSource) ListFiles(_ context.Context, _ string) ([]domain.SourceFile, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.files, nil
}

func (s *fakeSource) FetchBytes(_ context.Context, f domain.SourceFile) ([]byte, error) {
	s.mu.Lock()
	s.fetched = append(s.fetched, f.ID)
	s.mu.Unlock()
	if err := s.fetchErr[f.ID]; err != nil {
		return nil, err
	}
	data, ok := s.content[f.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (s *fakeSource) Close() error { return nil }

// fakeUnit scripts one page or slide.
type fakeUnit struct {
	native    string
	nativeErr error
	images    []domain.Image
	imagesErr error
}

// fakeDoc scripts one document. The document bytes are its key.
type fakeDoc struct {
	units   []fakeUnit
	openErr error
}

// fakeOpener implements driven.DocumentOpener over scripted documents.
type fakeOpener struct {
	mimeTypes  []string
	sourceType domain.SourceType
	docs       map[string]fakeDoc
}

var _ driven.DocumentOpener = (*fakeOpener)(nil)

func (o *fakeOpener) SupportedMIMETypes() []string   { return o.mimeTypes }
func (o *fakeOpener) SourceType() domain.SourceType { return o.sourceType }

func (o *fakeOpener) Open(_ context.Context, data []byte) (driven.UnitReader, error) {
	doc, ok := o.docs[string(data)]
	if !ok {
		return nil, errors.New("unknown document")
	}
	if doc.openErr != nil {
		return nil, doc.openErr
	}
	return &fakeReader{doc: doc}, nil
}

type fakeReader struct {
	doc    fakeDoc
	closed bool
}

func (r *fakeReader) Units() int { return len(r.doc.units) }

func (r *fakeReader) NativeText(_ context.Context, n int) (string, error) {
	u := r.doc.units[n-1]
	return u.native, u.nativeErr
}

func (r *fakeReader) Images(_ context.Context, n int) ([]domain.Image, error) {
	u := r.doc.units[n-1]
	return u.images, u.imagesErr
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

// fakeOCR implements driven.OCREngine keyed by image bytes.
type fakeOCR struct {
	mu    sync.Mutex
	text  map[string]string
	errs  map[string]error
	calls int
}

var _ driven.OCREngine = (*fakeOCR)(nil)

func (o *fakeOCR) Name() string { return "fake" }

func (o *fakeOCR) Recognize(_ context.Context, img domain.Image) (string, error) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()
	if err := o.errs[string(img.Data)]; err != nil {
		return "", err
	}
	return o.text[string(img.Data)], nil
}

func (o *fakeOCR) Close() error { return nil }

func (o *fakeOCR) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// fakeEmbedding implements driven.EmbeddingService with deterministic vectors.
type fakeEmbedding struct {
	mu        sync.Mutex
	dim       int
	calls     int
	batches   [][]string
	errs      []error // returned in order, one per call, before succeeding
	dropLast  bool
	wrongSize bool
}

var _ driven.EmbeddingService = (*fakeEmbedding)(nil)

func (e *fakeEmbedding) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.batches = append(e.batches, append([]string(nil), texts...))
	if len(e.errs) > 0 {
		err := e.errs[0]
		e.errs = e.errs[1:]
		return nil, err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		width := e.dim
		if e.wrongSize {
			width = e.dim + 1
		}
		v := make([]float32, width)
		v[0] = float32(len(t))
		out = append(out, v)
	}
	if e.dropLast && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (e *fakeEmbedding) Dimensions() int             { return e.dim }
func (e *fakeEmbedding) ModelName() string           { return "fake-embed" }
func (e *fakeEmbedding) Ping(_ context.Context) error { return nil }
func (e *fakeEmbedding) Close() error                { return nil }

func (e *fakeEmbedding) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// pngImage encodes a w x h grayscale PNG. seed makes the bytes distinct.
func pngImage(t *testing.T, w, h int, seed uint8) domain.Image {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	img.SetGray(0, 0, color.Gray{Y: seed})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return domain.Image{Data: buf.Bytes(), MIMEType: "image/png"}
}
