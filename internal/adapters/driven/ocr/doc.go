// Package ocr groups the OCR engine adapters.
//
// Each sub-package implements driven.OCREngine:
//
//   - tesseract: the local tesseract CLI, run through a driven.CommandRunner
//   - vision: Google Cloud Vision DOCUMENT_TEXT_DETECTION
//
// Engines return trimmed text; an image without text yields "" and no error.
package ocr
