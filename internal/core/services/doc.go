// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The ingestion pipeline is split into ChangeDetector (DetectChanges),
// Extractor, Chunker and Embedder, sequenced by Ingestor.
//
// Services are pure Go with no CGO.
package services
