package mcp

import (
	"context"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driving"
)

// mockCatalogService is a mock implementation of driving.CatalogService.
type mockCatalogService struct {
	overview *domain.IndexOverview
	docs     []domain.Document
	chunks   []domain.Chunk
	status   domain.DocumentStatus
	err      error
}

func (m *mockCatalogService) Overview(_ context.Context) (*domain.IndexOverview, error) {
	return m.overview, m.err
}

func (m *mockCatalogService) ListDocuments(_ context.Context, status domain.DocumentStatus) ([]domain.Document, error) {
	m.status = status
	return m.docs, m.err
}

func (m *mockCatalogService) GetDocument(_ context.Context, id string) (*domain.Document, []domain.Chunk, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], m.chunks, nil
		}
	}
	return nil, nil, domain.ErrNotFound
}

// mockIngestor is a mock implementation of driving.Ingestor.
type mockIngestor struct {
	policy  domain.SelectionPolicy
	summary *domain.RunSummary
	err     error
}

func (m *mockIngestor) Run(_ context.Context, policy domain.SelectionPolicy) (*domain.RunSummary, error) {
	m.policy = policy
	return m.summary, m.err
}

func (m *mockIngestor) Progress() driving.IngestProgress {
	return driving.IngestProgress{}
}
