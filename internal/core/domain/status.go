package domain

import (
	"strings"
	"unicode/utf8"
)

// ClassifyStatus derives a document's status from how many of its pages or
// slides were attempted and how many produced a chunk.
func ClassifyStatus(attempted, succeeded int) DocumentStatus {
	switch {
	case attempted <= 0 || succeeded <= 0:
		return StatusFailed
	case succeeded >= attempted:
		return StatusIndexed
	default:
		return StatusPartial
	}
}

// NeedsOCR reports whether native text is too short to trust.
// Text with exactly minChars characters (after trimming) is kept as is.
func NeedsOCR(nativeText string, minChars int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(nativeText)) < minChars
}
