package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

const testMinChars = 80

func newTestExtractor(docs map[string]fakeDoc, ocr driven.OCREngine) *Extractor {
	opener := &fakeOpener{
		mimeTypes:  []string{mimePDF},
		sourceType: domain.SourceTypePDFPage,
		docs:       docs,
	}
	return NewExtractor([]driven.DocumentOpener{opener}, ocr, ExtractorConfig{
		MinChars:       testMinChars,
		MinImageWidth:  500,
		MinImageHeight: 300,
		PageWorkers:    4,
	})
}

func TestExtractor_NativeTextAtThreshold(t *testing.T) {
	text := strings.Repeat("a", testMinChars)
	ocr := &fakeOCR{}
	e := newTestExtractor(map[string]fakeDoc{
		"doc": {units: []fakeUnit{{native: "  " + text + "  "}}},
	}, ocr)

	out, err := e.Extract(context.Background(), []byte("doc"), mimePDF)

	require.NoError(t, err)
	require.Len(t, out.Pages, 1)
	assert.Equal(t, text, out.Pages[0].Text)
	assert.Equal(t, domain.OriginNative, out.Pages[0].Origin)
	assert.Equal(t, 0, ocr.callCount(), "OCR is not attempted at the threshold")
	assert.Equal(t, 1, out.Attempted)
	assert.Equal(t, 0, out.OCRPages)
}

func TestExtractor_OCRBelowThreshold(t *testing.T) {
	t.Run("ocr text wins", func(t *testing.T) {
		img := pngImage(t, 600, 400, 1)
		ocr := &fakeOCR{text: map[string]string{string(img.Data): "  scanned text  "}}
		e := newTestExtractor(map[string]fakeDoc{
			"doc": {units: []fakeUnit{{native: "short", images: []domain.Image{img}}}},
		}, ocr)

		out, err := e.Extract(context.Background(), []byte("doc"), mimePDF)

		require.NoError(t, err)
		require.Len(t, out.Pages, 1)
		assert.Equal(t, "scanned text", out.Pages[0].Text)
		assert.Equal(t, domain.OriginOCR, out.Pages[0].Origin)
		assert.Equal(t, 1, out.OCRPages)
	})

	t.Run("falls back to short native text", func(t *testing.T) {
		img := pngImage(t, 600, 400, 2)
		ocr := &fakeOCR{text: map[string]string{string(img.Data): "   "}}
		e := newTestExtractor(map[string]fakeDoc{
			"doc": {units: []fakeUnit{{native: "short", images: []domain.Image{img}}}},
		}, ocr)

		out, err := e.Extract(context.Background(), []byte("doc"), mimePDF)

		require.NoError(t, err)
		require.Len(t, out.Pages, 1)
		assert.Equal(t, "short", out.Pages[0].Text)
		assert.Equal(t, domain.OriginNative, out.Pages[0].Origin)
		assert.Equal(t, 0, out.OCRPages)
	})

	t.Run("ocr error falls back to native", func(t *testing.T) {
		img := pngImage(t, 600, 400, 3)
		ocr := &fakeOCR{errs: map[string]error{string(img.Data): errors.New("engine crashed")}}
		e := newTestExtractor(map[string]fakeDoc{
			"doc": {units: []fakeUnit{{native: "short", images: []domain.Image{img}}}},
		}, ocr)

		out, err := e.Extract(context.Background(), []byte("doc"), mimePDF)

		require.NoError(t, err)
		require.Len(t, out.Pages, 1)
		assert.Equal(t, domain.OriginNative, out.Pages[0].Origin)
	})

	t.Run("nothing recognised is blank", func(t *testing.T) {
		img := pngImage(t, 600, 400, 4)
		ocr := &fakeOCR{}
		e := newTestExtractor(map[string]fakeDoc{
			"doc": {units: []fakeUnit{{native: "", images: []domain.Image{img}}}},
		}, ocr)

		out, err := e.Extract(context.Background(), []byte("doc"), mimePDF)

		require.NoError(t, err)
		assert.Empty(t, out.Pages)
		assert.Empty(t, out.Failures)
		assert.Equal(t, 1, out.Blank)
		assert.Equal(t, 1, out.Attempted)
		assert.Equal(t, 0, out.Usable())
	})

	t.Run("ocr error with no text is a page failure", func(t *testing.T) {
		img := pngImage(t, 600, 400, 10)
		ocr := &fakeOCR{errs: map[string]error{string(img.Data): errors.New("quota exceeded")}}
		e := newTestExtractor(map[string]fakeDoc{
			"doc": {units: []fakeUnit{{native: "", images: []domain.Image{img}}}},
		}, ocr)

		out, err := e.Extract(context.Background(), []byte("doc"), mimePDF)

		require.NoError(t, err)
		assert.Empty(t, out.Pages)
		assert.Equal(t, 0, out.Blank)
		require.Len(t, out.Failures, 1)
		assert.Equal(t, 1, out.Failures[0].Number)
		assert.Contains(t, out.Failures[0].Reason, "quota exceeded")
	})
}

func TestExtractor_SmallImagesSkipped(t *testing.T) {
	logo := pngImage(t, 120, 80, 5)
	tall := pngImage(t, 600, 200, 6)
	ocr := &fakeOCR{text: map[string]string{
		string(logo.Data): "ACME",
		string(tall.Data): "banner",
	}}
	e := newTestExtractor(map[string]fakeDoc{
		"doc": {units: []fakeUnit{{native: "", images: []domain.Image{logo, tall}}}},
	}, ocr)

	out, err := e.Extract(context.Background(), []byte("doc"), mimePDF)

	require.NoError(t, err)
	assert.Equal(t, 0, ocr.callCount())
	assert.Empty(t, out.Pages)
	assert.Empty(t, out.Failures)
	assert.Equal(t, 1, out.Blank)
}

func TestExtractor_UndecodableImageSkipped(t *testing.T) {
	junk := domain.Image{Data: []byte("not an image"), MIMEType: "image/png"}
	ocr := &fakeOCR{text: map[string]string{"not an image": "text"}}
	e := newTestExtractor(map[string]fakeDoc{
		"doc": {units: []fakeUnit{{native: "tiny", images: []domain.Image{junk}}}},
	}, ocr)

	out, err := e.Extract(context.Background(), []byte("doc"), mimePDF)

	require.NoError(t, err)
	assert.Equal(t, 0, ocr.callCount())
	require.Len(t, out.Pages, 1)
	assert.Equal(t, "tiny", out.Pages[0].Text)
}

func TestExtractor_MultipleImagesJoined(t *testing.T) {
	a := pngImage(t, 600, 400, 7)
	b := pngImage(t, 800, 600, 8)
	ocr := &fakeOCR{text: map[string]string{
		string(a.Data): "left panel",
		string(b.Data): "right panel",
	}}
	e := newTestExtractor(map[string]fakeDoc{
		"doc": {units: []fakeUnit{{images: []domain.Image{a, b}}}},
	}, ocr)

	out, err := e.Extract(context.Background(), []byte("doc"), mimePDF)

	require.NoError(t, err)
	require.Len(t, out.Pages, 1)
	assert.Equal(t, "left panel\nright panel", out.Pages[0].Text)
}

func TestExtractor_NativeErrorTriesOCR(t *testing.T) {
	img := pngImage(t, 600, 400, 9)
	ocr := &fakeOCR{text: map[string]string{string(img.Data): "recovered"}}
	e := newTestExtractor(map[string]fakeDoc{
		"doc": {units: []fakeUnit{{nativeErr: errors.New("broken text layer"), images: []domain.Image{img}}}},
	}, ocr)

	out, err := e.Extract(context.Background(), []byte("doc"), mimePDF)

	require.NoError(t, err)
	require.Len(t, out.Pages, 1)
	assert.Equal(t, "recovered", out.Pages[0].Text)
	assert.Equal(t, domain.OriginOCR, out.Pages[0].Origin)
}

func TestExtractor_NoOCREngine(t *testing.T) {
	e := newTestExtractor(map[string]fakeDoc{
		"doc": {units: []fakeUnit{{native: "short"}, {native: ""}}},
	}, nil)

	out, err := e.Extract(context.Background(), []byte("doc"), mimePDF)

	require.NoError(t, err)
	require.Len(t, out.Pages, 1)
	assert.Equal(t, "short", out.Pages[0].Text)
	assert.Empty(t, out.Failures)
	assert.Equal(t, 1, out.Blank)
}

func TestExtractor_NativeErrorWithoutOCRIsFailure(t *testing.T) {
	e := newTestExtractor(map[string]fakeDoc{
		"doc": {units: []fakeUnit{{native: longText}, {nativeErr: errors.New("broken text layer")}}},
	}, nil)

	out, err := e.Extract(context.Background(), []byte("doc"), mimePDF)

	require.NoError(t, err)
	require.Len(t, out.Pages, 1)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, 2, out.Failures[0].Number)
	assert.Contains(t, out.Failures[0].Reason, "broken text layer")
	assert.Equal(t, 2, out.Usable())
}

func TestExtractor_PagesInOrder(t *testing.T) {
	units := make([]fakeUnit, 12)
	for i := range units {
		units[i] = fakeUnit{native: strings.Repeat(string(rune('a'+i)), testMinChars)}
	}
	e := newTestExtractor(map[string]fakeDoc{"doc": {units: units}}, &fakeOCR{})

	out, err := e.Extract(context.Background(), []byte("doc"), mimePDF)

	require.NoError(t, err)
	require.Len(t, out.Pages, 12)
	for i, p := range out.Pages {
		assert.Equal(t, i+1, p.Number)
		assert.Equal(t, domain.SourceTypePDFPage, p.SourceType)
	}
}

func TestExtractor_DecodeError(t *testing.T) {
	e := newTestExtractor(map[string]fakeDoc{
		"corrupt": {openErr: errors.New("xref table missing")},
	}, nil)

	_, err := e.Extract(context.Background(), []byte("corrupt"), mimePDF)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDecode)
	assert.Contains(t, err.Error(), "xref table missing")
}

func TestExtractor_UnsupportedType(t *testing.T) {
	e := newTestExtractor(map[string]fakeDoc{}, nil)

	assert.False(t, e.Supports("text/csv"))

	_, err := e.Extract(context.Background(), []byte("a,b,c\n1,2,3\n"), "text/csv")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestExtractor_SniffsGenericType(t *testing.T) {
	data := "%PDF-1.4\n%fake"
	e := newTestExtractor(map[string]fakeDoc{
		data: {units: []fakeUnit{{native: strings.Repeat("x", testMinChars)}}},
	}, nil)

	assert.True(t, e.Supports("application/octet-stream"))

	out, err := e.Extract(context.Background(), []byte(data), "application/octet-stream")

	require.NoError(t, err)
	assert.Equal(t, domain.SourceTypePDFPage, out.SourceType)
	assert.Len(t, out.Pages, 1)
}

func TestExtractor_Cancelled(t *testing.T) {
	e := newTestExtractor(map[string]fakeDoc{
		"doc": {units: []fakeUnit{{native: "a"}, {native: "b"}}},
	}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, []byte("doc"), mimePDF)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractor_SupportedMIMETypes(t *testing.T) {
	e := newTestExtractor(nil, nil)
	assert.Equal(t, []string{mimePDF}, e.SupportedMIMETypes())
	assert.True(t, e.Supports(mimePDF))
}
