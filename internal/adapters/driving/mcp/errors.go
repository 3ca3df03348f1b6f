// Package mcp provides an MCP (Model Context Protocol) server adapter for folio.
// It lets AI assistants inspect the index and trigger ingestion runs.
package mcp

import "errors"

// ErrMissingCatalogService is returned when the catalog service is not provided.
var ErrMissingCatalogService = errors.New("mcp: catalog service is required")
