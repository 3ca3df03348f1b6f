package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// StatusInput is the (empty) input schema for the index_status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the index_status tool.
type StatusOutput struct {
	Documents      int    `json:"documents"`
	Indexed        int    `json:"indexed"`
	Partial        int    `json:"partial"`
	Failed         int    `json:"failed"`
	Chunks         int    `json:"chunks"`
	OCRChunks      int    `json:"ocr_chunks"`
	LastIngestedAt string `json:"last_ingested_at,omitempty"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct {
	Status string `json:"status,omitempty" jsonschema:"only return documents with this status: indexed, partial or failed"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of documents to return (default 50)"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
	Total     int              `json:"total"`
}

// DocumentOutput represents one tracked document.
type DocumentOutput struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	FolderPath     string `json:"folder_path,omitempty"`
	URL            string `json:"url,omitempty"`
	Status         string `json:"status"`
	ModifiedTime   string `json:"modified_time,omitempty"`
	LastIngestedAt string `json:"last_ingested_at,omitempty"`
	Error          string `json:"error,omitempty"`
}

// GetDocumentInput is the input schema for the get_document tool.
type GetDocumentInput struct {
	ID string `json:"id" jsonschema:"the source file ID of the document"`
}

// GetDocumentOutput is the output schema for the get_document tool.
type GetDocumentOutput struct {
	Document DocumentOutput `json:"document"`
	Chunks   []ChunkOutput  `json:"chunks"`
}

// ChunkOutput represents one page or slide of a document.
type ChunkOutput struct {
	PageOrSlide int    `json:"page_or_slide"`
	SourceType  string `json:"source_type"`
	TextOrigin  string `json:"text_origin"`
	Text        string `json:"text"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	SinceDays   int    `json:"since_days,omitempty" jsonschema:"also re-process files modified in the last N days"`
	ForceAll    bool   `json:"force_all,omitempty" jsonschema:"re-process every file in the folder"`
	ForceFileID string `json:"force_file_id,omitempty" jsonschema:"re-process exactly this file"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	Scanned        int    `json:"scanned"`
	Selected       int    `json:"selected"`
	Skipped        int    `json:"skipped"`
	Unsupported    int    `json:"unsupported"`
	Indexed        int    `json:"indexed"`
	Partial        int    `json:"partial"`
	Failed         int    `json:"failed"`
	Unchanged      int    `json:"unchanged"`
	ChunksInserted int    `json:"chunks_inserted"`
	OCRPages       int    `json:"ocr_pages"`
	Duration       string `json:"duration"`
}

const defaultListLimit = 50

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_status",
		Description: "Summarise the document index: counts by status, chunk totals and the last ingestion time",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List tracked documents with their ingestion status",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Show one document and the text of each of its pages or slides",
	}, s.handleGetDocument)

	if s.ports.Ingestor != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest",
			Description: "Run an incremental ingestion of the configured folder",
		}, s.handleIngest)
	}
}

func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	o, err := s.ports.Catalog.Overview(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{
		Documents:      o.Documents,
		Indexed:        o.Indexed,
		Partial:        o.Partial,
		Failed:         o.Failed,
		Chunks:         o.Chunks,
		OCRChunks:      o.OCRChunks,
		LastIngestedAt: formatTime(o.LastIngestedAt),
	}, nil
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	status := domain.DocumentStatus(input.Status)
	if status != "" && !status.Valid() {
		return nil, ListDocumentsOutput{}, fmt.Errorf("unknown status %q", input.Status)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	docs, err := s.ports.Catalog.ListDocuments(ctx, status)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{Total: len(docs)}
	if len(docs) > limit {
		docs = docs[:limit]
	}
	output.Documents = make([]DocumentOutput, len(docs))
	for i := range docs {
		output.Documents[i] = toDocumentOutput(&docs[i])
	}
	output.Count = len(output.Documents)

	return nil, output, nil
}

func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDocumentInput,
) (*mcp.CallToolResult, GetDocumentOutput, error) {
	if input.ID == "" {
		return nil, GetDocumentOutput{}, fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}

	doc, chunks, err := s.ports.Catalog.GetDocument(ctx, input.ID)
	if err != nil {
		return nil, GetDocumentOutput{}, err
	}

	output := GetDocumentOutput{
		Document: toDocumentOutput(doc),
		Chunks:   make([]ChunkOutput, len(chunks)),
	}
	for i := range chunks {
		output.Chunks[i] = ChunkOutput{
			PageOrSlide: chunks[i].PageOrSlide,
			SourceType:  string(chunks[i].SourceType),
			TextOrigin:  string(chunks[i].TextOrigin),
			Text:        chunks[i].Text,
		}
	}
	return nil, output, nil
}

// handleIngest runs ingestion synchronously. A fatal run error is returned
// to the client; per-document failures are only counted.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	summary, err := s.ports.Ingestor.Run(ctx, domain.SelectionPolicy{
		SinceDays:   input.SinceDays,
		ForceAll:    input.ForceAll,
		ForceFileID: input.ForceFileID,
	})
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{
		Scanned:        summary.Scanned,
		Selected:       summary.Selected,
		Skipped:        summary.Skipped,
		Unsupported:    summary.Unsupported,
		Indexed:        summary.Indexed,
		Partial:        summary.Partial,
		Failed:         summary.Failed,
		Unchanged:      summary.Unchanged,
		ChunksInserted: summary.ChunksInserted,
		OCRPages:       summary.OCRPages,
		Duration:       summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond).String(),
	}, nil
}

func toDocumentOutput(d *domain.Document) DocumentOutput {
	out := DocumentOutput{
		ID:             d.ID,
		Name:           d.Name,
		FolderPath:     d.FolderPath,
		URL:            d.URL,
		Status:         string(d.Status),
		ModifiedTime:   formatTime(d.ModifiedTime),
		LastIngestedAt: formatTime(d.LastIngestedAt),
	}
	if d.Error != nil {
		out.Error = *d.Error
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
