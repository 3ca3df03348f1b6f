// Package extractors provides DocumentOpener implementations that split
// documents into pages or slides. Each opener exposes the native text layer
// and the OCR candidate images of every unit; the choice between them is
// made by the extraction service.
package extractors
