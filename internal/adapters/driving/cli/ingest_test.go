package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/folio/internal/core/domain"
)

func sampleSummary() *domain.RunSummary {
	start := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	return &domain.RunSummary{
		StartedAt:      start,
		FinishedAt:     start.Add(3 * time.Second),
		Scanned:        12,
		Unsupported:    2,
		Selected:       3,
		Skipped:        9,
		Indexed:        2,
		Failed:         1,
		ChunksInserted: 7,
		OCRPages:       1,
		Outcomes: []domain.DocumentOutcome{
			{DocumentID: "a", Name: "Onboarding.pptx", Reason: domain.ReasonNew, Status: domain.StatusIndexed},
			{DocumentID: "b", Name: "Scan.pdf", Reason: domain.ReasonRetry, Status: domain.StatusFailed,
				Error: "no usable text"},
		},
	}
}

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest", ingestCmd.Use)
	assert.Contains(t, ingestCmd.Long, "--force-file-id")
}

func TestIngestCmd_DefaultPolicy(t *testing.T) {
	ing := &mockIngestor{summary: sampleSummary()}
	withServices(t, &Services{Ingestor: ing, SinceDays: 8})

	out, err := execute(t, "ingest")

	require.NoError(t, err)
	require.NotNil(t, ing.policy)
	assert.Equal(t, domain.SelectionPolicy{SinceDays: 8}, *ing.policy)
	assert.Contains(t, out, "look-back 8 days")
	assert.Contains(t, out, "Ingestion summary")
	assert.Contains(t, out, "Chunks inserted:")
	assert.Contains(t, out, "Scan.pdf")
	assert.Contains(t, out, "no usable text")
}

func TestIngestCmd_Flags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want domain.SelectionPolicy
		msg  string
	}{
		{
			name: "since days overrides config",
			args: []string{"ingest", "--since-days", "30"},
			want: domain.SelectionPolicy{SinceDays: 30},
			msg:  "look-back 30 days",
		},
		{
			name: "zero disables window",
			args: []string{"ingest", "--since-days=0"},
			want: domain.SelectionPolicy{SinceDays: 0},
			msg:  "look-back 0 days",
		},
		{
			name: "force all",
			args: []string{"ingest", "--force-all"},
			want: domain.SelectionPolicy{SinceDays: 8, ForceAll: true},
			msg:  "Re-ingesting all files",
		},
		{
			name: "force file id",
			args: []string{"ingest", "--force-file-id", "1AbC"},
			want: domain.SelectionPolicy{SinceDays: 8, ForceFileID: "1AbC"},
			msg:  "Ingesting file 1AbC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := &mockIngestor{summary: &domain.RunSummary{}}
			withServices(t, &Services{Ingestor: ing, SinceDays: 8})

			out, err := execute(t, tt.args...)

			require.NoError(t, err)
			assert.Equal(t, tt.want, *ing.policy)
			assert.Contains(t, out, tt.msg)
		})
	}
}

func TestIngestCmd_FatalError(t *testing.T) {
	ing := &mockIngestor{err: domain.ErrStoreUnavailable}
	withServices(t, &Services{Ingestor: ing})

	_, err := execute(t, "ingest")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "ingest failed")
}

func TestIngestCmd_FatalErrorStillPrintsPartialSummary(t *testing.T) {
	ing := &mockIngestor{summary: sampleSummary(), err: errors.New("store lost")}
	withServices(t, &Services{Ingestor: ing})

	out, err := execute(t, "ingest")

	require.Error(t, err)
	assert.Contains(t, out, "Ingestion summary")
}

func TestIngestCmd_FailedDocumentsDoNotFailCommand(t *testing.T) {
	withServices(t, &Services{Ingestor: &mockIngestor{summary: sampleSummary()}})

	_, err := execute(t, "ingest")

	assert.NoError(t, err)
}

func TestIngestCmd_ServiceNotConfigured(t *testing.T) {
	withServices(t, &Services{})

	_, err := execute(t, "ingest")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest service not configured")
}

func TestIngestCmd_RejectsArgs(t *testing.T) {
	withServices(t, &Services{Ingestor: &mockIngestor{summary: &domain.RunSummary{}}})

	_, err := execute(t, "ingest", "extra")

	assert.Error(t, err)
}
