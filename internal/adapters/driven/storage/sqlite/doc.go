// Package sqlite provides the SQLite-backed implementation of the
// ContentStore driven port.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO, enabling easy cross-compilation. Documents,
// chunks, and embeddings live in a single database file; embedding
// vectors are stored as little-endian float32 blobs.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in
// the migrations/ directory and embedded at compile time.
//
// # Data Location
//
// By default, the database is stored at ~/.vectdb/vectdb.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
