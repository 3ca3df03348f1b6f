package domain

import "time"

// DocumentStatus is the outcome of the most recent ingestion of a document.
type DocumentStatus string

const (
	// StatusIndexed means every page or slide was extracted and embedded.
	StatusIndexed DocumentStatus = "indexed"

	// StatusPartial means some, but not all, pages or slides succeeded.
	StatusPartial DocumentStatus = "partial"

	// StatusFailed means no page or slide produced usable text, or a
	// document-level step (fetch, decode, embed, persist) failed.
	StatusFailed DocumentStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusIndexed, StatusPartial, StatusFailed:
		return true
	default:
		return false
	}
}

// NeedsRetry reports whether a document with this status should be
// re-processed on the next run even when the source has not changed.
func (s DocumentStatus) NeedsRetry() bool {
	return s == StatusFailed || s == StatusPartial
}

// SourceType identifies the kind of unit a chunk was cut from.
type SourceType string

const (
	// SourceTypePDFPage is a single page of a PDF document.
	SourceTypePDFPage SourceType = "pdf_page"

	// SourceTypePPTSlide is a single slide of a presentation.
	SourceTypePPTSlide SourceType = "ppt_slide"
)

// TextOrigin records how a chunk's text was obtained.
type TextOrigin string

const (
	// OriginNative is text read from the document's own text layer.
	OriginNative TextOrigin = "native_text"

	// OriginOCR is text recognised from a rendered page or embedded image.
	OriginOCR TextOrigin = "ocr"
)

// Document is a tracked source file.
// There is at most one Document per source file ID.
type Document struct {
	// ID is the source's stable file identifier.
	ID string

	// Name is the file name shown to users and copied onto chunks as the title.
	Name string

	// MIMEType is the declared content type of the file.
	MIMEType string

	// FolderPath is the slash-joined chain of folder names from the
	// root folder down to the file's parent. Empty for files in the root.
	FolderPath string

	// URL is a link that opens the file in the source's viewer.
	URL string

	// ModifiedTime is the source's last-modified timestamp.
	// Zero when the source does not report one.
	ModifiedTime time.Time

	// ContentHash is "algo:hex" of the bytes last ingested.
	// Nil when no hash was computed, for example for an unsupported type.
	ContentHash *string

	// Status is the outcome of the most recent ingestion.
	Status DocumentStatus

	// LastIngestedAt is when the document was last processed.
	LastIngestedAt time.Time

	// Error describes why the last ingestion failed or was partial.
	Error *string
}

// Chunk is one embedded page or slide.
// Document metadata is copied onto every chunk so that readers of the
// store never need to join against documents.
type Chunk struct {
	// ID is a unique identifier generated when the chunk is built.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	DocTitle        string
	FolderPath      string
	DocModifiedTime time.Time
	DocURL          string

	// SourceType is the kind of unit the text came from.
	SourceType SourceType

	// PageOrSlide is the 1-based page or slide number.
	PageOrSlide int

	// TextOrigin records whether the text is native or OCR output.
	TextOrigin TextOrigin

	// Text is the trimmed page or slide text.
	Text string

	// Embedding is the vector for Text. Its length equals the
	// configured dimension.
	Embedding []float32

	// CreatedAt is when the chunk was built.
	CreatedAt time.Time
}

// IndexOverview summarises the persisted index.
type IndexOverview struct {
	Documents      int
	Indexed        int
	Partial        int
	Failed         int
	Chunks         int
	OCRChunks      int
	LastIngestedAt time.Time
}
