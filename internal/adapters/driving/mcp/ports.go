package mcp

import (
	"github.com/custodia-labs/folio/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Catalog reads documents and chunks.
	Catalog driving.CatalogService

	// Ingestor runs ingestion. Optional; the ingest tool is only
	// registered when it is set.
	Ingestor driving.Ingestor
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Catalog == nil {
		return ErrMissingCatalogService
	}
	return nil
}
