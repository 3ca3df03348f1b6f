package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	// Decoders for image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
	"github.com/custodia-labs/folio/internal/logger"
)

// genericMIMEType is what sources report when they do not know the type.
const genericMIMEType = "application/octet-stream"

// ExtractorConfig tunes per-page extraction.
type ExtractorConfig struct {
	// MinChars is the native text length below which OCR is attempted.
	MinChars int

	// MinImageWidth and MinImageHeight filter out small OCR candidates
	// such as logos and icons.
	MinImageWidth  int
	MinImageHeight int

	// PageWorkers bounds concurrent page extraction within a document.
	PageWorkers int
}

// Extractor produces per-page text from document bytes, choosing between
// the native text layer and OCR for each page independently.
type Extractor struct {
	openers map[string]driven.DocumentOpener
	ocr     driven.OCREngine
	cfg     ExtractorConfig
}

// NewExtractor creates an extractor. ocr may be nil, in which case only
// native text is used.
func NewExtractor(openers []driven.DocumentOpener, ocr driven.OCREngine, cfg ExtractorConfig) *Extractor {
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = 1
	}
	byType := make(map[string]driven.DocumentOpener)
	for _, o := range openers {
		for _, mt := range o.SupportedMIMETypes() {
			byType[mt] = o
		}
	}
	return &Extractor{openers: byType, ocr: ocr, cfg: cfg}
}

// Supports reports whether a declared MIME type can be extracted.
// Generic types are accepted and resolved by content sniffing.
func (e *Extractor) Supports(mimeType string) bool {
	if mimeType == genericMIMEType {
		return true
	}
	_, ok := e.openers[mimeType]
	return ok
}

// SupportedMIMETypes returns the MIME types with a registered opener.
func (e *Extractor) SupportedMIMETypes() []string {
	types := make([]string, 0, len(e.openers))
	for mt := range e.openers {
		types = append(types, mt)
	}
	return types
}

// opener resolves the opener for declared type, sniffing data when the
// declared type has none.
func (e *Extractor) opener(data []byte, declared string) (driven.DocumentOpener, error) {
	if o, ok := e.openers[declared]; ok {
		return o, nil
	}
	detected := mimetype.Detect(data)
	for mt, o := range e.openers {
		if detected.Is(mt) {
			logger.Debug("Sniffed %s as %s", declared, mt)
			return o, nil
		}
	}
	return nil, fmt.Errorf("%w: %s (detected %s)", domain.ErrUnsupportedType, declared, detected.String())
}

// unitResult is the outcome of one page or slide.
type unitResult struct {
	page    *domain.PageText
	failure *domain.PageFailure
	ocr     bool
	blank   bool
}

// Extract opens data and extracts every page or slide.
// A document that cannot be opened returns an error wrapping
// domain.ErrDecode. Individual page failures are reported in the result.
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType string) (*domain.Extraction, error) {
	opener, err := e.opener(data, mimeType)
	if err != nil {
		return nil, err
	}

	reader, err := opener.Open(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	defer reader.Close()

	units := reader.Units()
	results := make([]unitResult, units)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.PageWorkers)
	for i := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.extractUnit(gctx, reader, opener.SourceType(), i+1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &domain.Extraction{
		SourceType: opener.SourceType(),
		Attempted:  units,
	}
	for _, r := range results {
		if r.page != nil {
			out.Pages = append(out.Pages, *r.page)
			if r.ocr {
				out.OCRPages++
			}
		}
		if r.failure != nil {
			out.Failures = append(out.Failures, *r.failure)
		}
		if r.blank {
			out.Blank++
		}
	}
	return out, nil
}

// extractUnit applies the native-or-OCR decision to unit n.
func (e *Extractor) extractUnit(
	ctx context.Context, r driven.UnitReader, st domain.SourceType, n int,
) unitResult {
	var reasons []string

	native, err := r.NativeText(ctx, n)
	if err != nil {
		reasons = append(reasons, fmt.Sprintf("native text: %v", err))
		native = ""
	}
	native = strings.TrimSpace(native)

	if e.ocr == nil || !domain.NeedsOCR(native, e.cfg.MinChars) {
		if native != "" {
			return unitResult{page: &domain.PageText{Number: n, SourceType: st, Text: native, Origin: domain.OriginNative}}
		}
		if len(reasons) == 0 {
			return unitResult{blank: true}
		}
		return unitResult{failure: &domain.PageFailure{Number: n, Reason: strings.Join(reasons, "; ")}}
	}

	text, err := e.recognise(ctx, r, n)
	if err != nil {
		reasons = append(reasons, fmt.Sprintf("ocr: %v", err))
	}
	switch {
	case text != "":
		return unitResult{page: &domain.PageText{Number: n, SourceType: st, Text: text, Origin: domain.OriginOCR}, ocr: true}
	case native != "":
		return unitResult{page: &domain.PageText{Number: n, SourceType: st, Text: native, Origin: domain.OriginNative}}
	case len(reasons) == 0:
		return unitResult{blank: true}
	default:
		reasons = append(reasons, "no text after ocr")
		return unitResult{failure: &domain.PageFailure{Number: n, Reason: strings.Join(reasons, "; ")}}
	}
}

// recognise OCRs every sufficiently large image of unit n and joins the
// non-empty results. An image that fails OCR contributes no text.
func (e *Extractor) recognise(ctx context.Context, r driven.UnitReader, n int) (string, error) {
	images, err := r.Images(ctx, n)
	if err != nil {
		return "", err
	}

	var fragments []string
	var errs []error
	for _, img := range images {
		if !e.largeEnough(img) {
			continue
		}
		text, err := e.ocr.Recognize(ctx, img)
		if err != nil {
			logger.Debug("OCR failed on unit %d: %v", n, err)
			errs = append(errs, err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			fragments = append(fragments, text)
		}
	}
	return strings.Join(fragments, "\n"), errors.Join(errs...)
}

// largeEnough reports whether img meets the minimum OCR dimensions.
// Images whose header cannot be decoded are skipped.
func (e *Extractor) largeEnough(img domain.Image) bool {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return false
	}
	return cfg.Width >= e.cfg.MinImageWidth && cfg.Height >= e.cfg.MinImageHeight
}
