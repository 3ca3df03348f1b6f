// Package pptx opens PowerPoint presentations slide by slide.
//
// Slides are read in presentation order from ppt/presentation.xml. The
// native text of a slide is the text of its shapes; its OCR candidates are
// the pictures placed on it.
package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// Ensure Opener implements the interface.
var _ driven.DocumentOpener = (*Opener)(nil)

// MIMEType is the PPTX MIME type.
const MIMEType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

// XML namespaces used by slide parts.
const (
	nsDrawing       = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPresentation  = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// maxPartSize bounds how much of one zip entry is read.
const maxPartSize = 64 << 20

// Opener opens PPTX bytes.
type Opener struct{}

// New creates a new PPTX opener.
func New() *Opener {
	return &Opener{}
}

// SupportedMIMETypes returns the MIME types this opener handles.
func (o *Opener) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// SourceType returns the unit kind.
func (o *Opener) SourceType() domain.SourceType {
	return domain.SourceTypePPTSlide
}

// Open parses the presentation structure and every slide's text and
// picture references. Picture bytes are read on demand.
func (o *Opener) Open(_ context.Context, data []byte) (driven.UnitReader, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("not a zip archive: %w", err)
	}

	files := make(map[string]*zip.File, len(archive.File))
	for _, f := range archive.File {
		files[f.Name] = f
	}

	slidePaths, err := slideOrder(files)
	if err != nil {
		return nil, err
	}

	slides := make([]slide, len(slidePaths))
	for i, p := range slidePaths {
		s, err := parseSlide(files, p)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i+1, err)
		}
		slides[i] = s
	}

	return &reader{files: files, slides: slides}, nil
}

// ==================== Presentation structure ====================

type presentationXML struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsXML struct {
	Relationships []relationship `xml:"Relationship"`
}

type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

// slideOrder returns slide part names in presentation order.
func slideOrder(files map[string]*zip.File) ([]string, error) {
	var pres presentationXML
	if err := readXML(files, "ppt/presentation.xml", &pres); err != nil {
		return nil, fmt.Errorf("reading presentation: %w", err)
	}

	rels, err := readRelationships(files, "ppt/presentation.xml")
	if err != nil {
		return nil, fmt.Errorf("reading presentation relationships: %w", err)
	}

	paths := make([]string, 0, len(pres.SlideIDs))
	for _, id := range pres.SlideIDs {
		rel, ok := rels[id.RelID]
		if !ok {
			return nil, fmt.Errorf("slide relationship %s not found", id.RelID)
		}
		paths = append(paths, resolveTarget("ppt/presentation.xml", rel.Target))
	}
	return paths, nil
}

// readRelationships reads the .rels part belonging to partName.
// A part without relationships returns an empty map.
func readRelationships(files map[string]*zip.File, partName string) (map[string]relationship, error) {
	dir, file := path.Split(partName)
	relsName := dir + "_rels/" + file + ".rels"

	out := make(map[string]relationship)
	if _, ok := files[relsName]; !ok {
		return out, nil
	}

	var rels relationshipsXML
	if err := readXML(files, relsName, &rels); err != nil {
		return nil, err
	}
	for _, r := range rels.Relationships {
		out[r.ID] = r
	}
	return out, nil
}

// resolveTarget resolves a relationship target relative to its source part.
func resolveTarget(sourcePart, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(path.Dir(sourcePart), target))
}

// ==================== Slides ====================

// slide holds what Open learned about one slide.
type slide struct {
	text   string
	images []string // zip part names of placed pictures, in document order
}

// parseSlide streams a slide part. Text is gathered per shape, paragraphs
// joined by newlines; pictures are collected from blip references inside
// p:pic elements.
func parseSlide(files map[string]*zip.File, partName string) (slide, error) {
	content, err := readPart(files, partName)
	if err != nil {
		return slide{}, err
	}
	rels, err := readRelationships(files, partName)
	if err != nil {
		return slide{}, err
	}

	var (
		shapes    []string
		paragraph strings.Builder
		shape     []string
		inShape   int
		inPicture int
		inText    bool
		images    []string
		seen      = make(map[string]bool)
	)

	dec := xml.NewDecoder(bytes.NewReader(content))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return slide{}, fmt.Errorf("parsing %s: %w", partName, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Space == nsPresentation && t.Name.Local == "sp":
				inShape++
				if inShape == 1 {
					shape = shape[:0]
				}
			case t.Name.Space == nsPresentation && t.Name.Local == "pic":
				inPicture++
			case t.Name.Space == nsDrawing && t.Name.Local == "p":
				paragraph.Reset()
			case t.Name.Space == nsDrawing && t.Name.Local == "t":
				inText = true
			case t.Name.Space == nsDrawing && t.Name.Local == "br":
				paragraph.WriteString("\n")
			case t.Name.Space == nsDrawing && t.Name.Local == "blip" && inPicture > 0:
				for _, attr := range t.Attr {
					if attr.Name.Space != nsRelationships || attr.Name.Local != "embed" {
						continue
					}
					rel, ok := rels[attr.Value]
					if !ok || rel.TargetMode == "External" {
						continue
					}
					target := resolveTarget(partName, rel.Target)
					if !seen[target] {
						seen[target] = true
						images = append(images, target)
					}
				}
			}

		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}

		case xml.EndElement:
			switch {
			case t.Name.Space == nsDrawing && t.Name.Local == "t":
				inText = false
			case t.Name.Space == nsDrawing && t.Name.Local == "p":
				if inShape > 0 {
					shape = append(shape, paragraph.String())
				}
			case t.Name.Space == nsPresentation && t.Name.Local == "sp":
				inShape--
				if inShape == 0 {
					if text := strings.TrimSpace(strings.Join(shape, "\n")); text != "" {
						shapes = append(shapes, text)
					}
				}
			case t.Name.Space == nsPresentation && t.Name.Local == "pic":
				inPicture--
			}
		}
	}

	return slide{text: strings.Join(shapes, "\n"), images: images}, nil
}

// ==================== Reader ====================

// reader serves slides of one opened presentation. The zip reader is
// backed by an in-memory byte slice, so concurrent reads are safe.
type reader struct {
	files  map[string]*zip.File
	slides []slide
}

func (r *reader) Units() int {
	return len(r.slides)
}

// NativeText returns the shape text of slide n.
func (r *reader) NativeText(_ context.Context, n int) (string, error) {
	s, err := r.slide(n)
	if err != nil {
		return "", err
	}
	return s.text, nil
}

// Images returns the pictures placed on slide n. Pictures that cannot be
// read are skipped.
func (r *reader) Images(ctx context.Context, n int) ([]domain.Image, error) {
	s, err := r.slide(n)
	if err != nil {
		return nil, err
	}

	images := make([]domain.Image, 0, len(s.images))
	for _, name := range s.images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := readPart(r.files, name)
		if err != nil {
			continue
		}
		images = append(images, domain.Image{Data: data, MIMEType: mimetype.Detect(data).String()})
	}
	return images, nil
}

// Close is a no-op; nothing is staged on disk.
func (r *reader) Close() error {
	return nil
}

func (r *reader) slide(n int) (slide, error) {
	if n < 1 || n > len(r.slides) {
		return slide{}, fmt.Errorf("%w: slide %d of %d", domain.ErrInvalidInput, n, len(r.slides))
	}
	return r.slides[n-1], nil
}

// ==================== Helper Functions ====================

func readPart(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("part %s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, maxPartSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return content, nil
}

func readXML(files map[string]*zip.File, name string, v any) error {
	content, err := readPart(files, name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(content, v); err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	return nil
}
