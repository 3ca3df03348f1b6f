// Package domain defines the core business entities for folio.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A tracked source file and its last ingestion outcome
//   - Chunk: One embedded page or slide of a document
//   - SourceFile: A listing entry reported by a file source
//   - SelectionPolicy: The operator's choice of what a run re-processes
//   - Extraction: Per-page text produced from a document's bytes
//   - RunSummary: Counts and outcomes of one ingestion run
//
// It also holds the pure decisions of the pipeline: ClassifyStatus,
// NeedsOCR and HashContent.
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
