// Package postgres implements the Postgres-backed repositories: the
// connection pool, the document registry, versioned encryption keys,
// and the encrypted vector store with pgvector similarity search.
//
// The Pool is the only component permitted to open physical database
// connections. Session-level setup (application name, UTC timezone,
// pgvector type registration, caller-supplied statements) runs exactly
// once per physical connection, not per logical acquisition.
package postgres
