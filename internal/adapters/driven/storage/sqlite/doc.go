// Package sqlite provides a local SQLite-backed IndexStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It stores the same documents and chunks
// tables as the PostgreSQL store, with embeddings kept as float32 blobs, so a
// pipeline can run end-to-end without a database server.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. The embedding width is not part of the DDL; it is
// recorded in schema_meta by Provision and checked on every run.
//
// # Data Location
//
// By default, the database is stored at ~/.folio/data/index.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode, and each document commit runs in one transaction.
package sqlite
