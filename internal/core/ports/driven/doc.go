// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - FileSource: Lists a folder tree and fetches file bytes
//   - EmbeddingService: Turns text into fixed-width vectors
//   - IndexStore: Persists documents and chunks transactionally
//   - DocumentOpener: Opens document bytes as pages or slides
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - OCREngine: Recognises text in images. Without it, only native text is used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or extractor package
package driven
