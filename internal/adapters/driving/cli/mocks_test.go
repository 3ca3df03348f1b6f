package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driving"
)

// mockIngestor records the policy it was run with.
type mockIngestor struct {
	mu      sync.Mutex
	policy  *domain.SelectionPolicy
	summary *domain.RunSummary
	err     error
}

func (m *mockIngestor) Run(_ context.Context, policy domain.SelectionPolicy) (*domain.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policy = &policy
	return m.summary, m.err
}

func (m *mockIngestor) Progress() driving.IngestProgress {
	return driving.IngestProgress{}
}

type mockCatalog struct {
	overview *domain.IndexOverview
	docs     []domain.Document
	chunks   []domain.Chunk
	err      error
	status   domain.DocumentStatus
}

func (m *mockCatalog) Overview(_ context.Context) (*domain.IndexOverview, error) {
	return m.overview, m.err
}

func (m *mockCatalog) ListDocuments(_ context.Context, status domain.DocumentStatus) ([]domain.Document, error) {
	m.status = status
	return m.docs, m.err
}

func (m *mockCatalog) GetDocument(_ context.Context, id string) (*domain.Document, []domain.Chunk, error) {
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

type mockSchema struct {
	dim int
	err error
}

func (m *mockSchema) Init(_ context.Context, dimension int) error {
	m.dim = dimension
	return m.err
}

// withServices installs s for one test and restores the previous state.
func withServices(t *testing.T, s *Services) {
	t.Helper()
	old := Services{
		Ingestor:  ingestor,
		Catalog:   catalogService,
		Schema:    schemaService,
		SinceDays: defaultSinceDays,
		Dimension: defaultDimension,
		Close:     closeServices,
	}
	oldBootstrap := bootstrap
	bootstrap = nil
	SetServices(s)
	t.Cleanup(func() {
		SetServices(&old)
		bootstrap = oldBootstrap
	})
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default so state does not leak
// between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
