package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
	"github.com/custodia-labs/folio/internal/core/ports/driving"
	"github.com/custodia-labs/folio/internal/logger"
)

// Ensure SchemaService implements the interface.
var _ driving.SchemaService = (*SchemaService)(nil)

// SchemaService provisions the index store.
type SchemaService struct {
	provisioner driven.SchemaProvisioner
}

// NewSchemaService creates a new schema service.
func NewSchemaService(provisioner driven.SchemaProvisioner) *SchemaService {
	return &SchemaService{provisioner: provisioner}
}

// Init creates tables and indexes for vectors of the given width.
func (s *SchemaService) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidInput, dimension)
	}
	logger.Info("Provisioning schema for %d-dimensional embeddings", dimension)
	if err := s.provisioner.Provision(ctx, dimension); err != nil {
		return fmt.Errorf("provision schema: %w", err)
	}
	return nil
}
