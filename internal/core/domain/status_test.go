package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name      string
		attempted int
		succeeded int
		expected  DocumentStatus
	}{
		{"all pages succeed", 3, 3, StatusIndexed},
		{"single page succeeds", 1, 1, StatusIndexed},
		{"some pages fail", 3, 2, StatusPartial},
		{"one of many succeeds", 10, 1, StatusPartial},
		{"no page succeeds", 3, 0, StatusFailed},
		{"empty document", 0, 0, StatusFailed},
		{"negative attempted", -1, 0, StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyStatus(tt.attempted, tt.succeeded))
		})
	}
}

func TestNeedsOCR_ThresholdBoundary(t *testing.T) {
	const minChars = 80

	exactly := strings.Repeat("a", minChars)
	oneShort := strings.Repeat("a", minChars-1)

	assert.False(t, NeedsOCR(exactly, minChars), "text at the threshold is kept")
	assert.True(t, NeedsOCR(oneShort, minChars), "text one short of the threshold is OCRed")
}

func TestNeedsOCR(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		minChars int
		expected bool
	}{
		{"empty text", "", 10, true},
		{"whitespace only", "   \n\t  ", 1, true},
		{"padded text is trimmed", "   abcde   ", 6, true},
		{"multibyte runes count once", "ééééé", 5, false},
		{"zero threshold never OCRs", "", 0, false},
		{"long text", strings.Repeat("word ", 40), 80, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NeedsOCR(tt.text, tt.minChars))
		})
	}
}

func TestDocumentStatus_NeedsRetry(t *testing.T) {
	assert.False(t, StatusIndexed.NeedsRetry())
	assert.True(t, StatusPartial.NeedsRetry())
	assert.True(t, StatusFailed.NeedsRetry())
}

func TestDocumentStatus_Valid(t *testing.T) {
	assert.True(t, StatusIndexed.Valid())
	assert.True(t, StatusPartial.Valid())
	assert.True(t, StatusFailed.Valid())
	assert.False(t, DocumentStatus("pending").Valid())
	assert.False(t, DocumentStatus("").Valid())
}
