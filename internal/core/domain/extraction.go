package domain

// Image is an OCR candidate: a rendered page or a picture embedded in a slide.
type Image struct {
	Data     []byte
	MIMEType string
}

// PageText is the usable text of one page or slide.
type PageText struct {
	Number     int
	SourceType SourceType
	Text       string
	Origin     TextOrigin
}

// PageFailure records a page or slide that yielded no usable text.
type PageFailure struct {
	Number int
	Reason string
}

// Extraction is the result of extracting one document.
type Extraction struct {
	// SourceType is the unit kind of every page in Pages.
	SourceType SourceType

	// Attempted is the number of pages or slides in the document.
	Attempted int

	// Pages holds the units that produced text, ordered by number.
	Pages []PageText

	// Failures holds the units that produced nothing because of an error,
	// ordered by number.
	Failures []PageFailure

	// Blank counts units that have no text at all and raised no error,
	// such as divider slides. They contribute no chunk and are not failures.
	Blank int

	// OCRPages counts the units whose text came from OCR.
	OCRPages int
}

// Usable is the number of units expected to yield text.
func (e *Extraction) Usable() int {
	return e.Attempted - e.Blank
}
