package postgres

import (
	"context"
	"fmt"
)

// Schema returns the DDL statements for all tables, parameterized by
// embedding dimensionality. Statements are idempotent.
func Schema(dimensions int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			content_hash TEXT NOT NULL,
			filename TEXT NOT NULL DEFAULT '',
			source_type TEXT NOT NULL DEFAULT '',
			user_id UUID,
			status TEXT NOT NULL,
			total_chunks INT NOT NULL DEFAULT 0,
			chunks_processed INT NOT NULL DEFAULT 0,
			chunks_failed INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS documents_hash_user_idx
			ON documents (content_hash, COALESCE(user_id, '00000000-0000-0000-0000-000000000000'))`,

		`CREATE TABLE IF NOT EXISTS encryption_keys (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			version INT NOT NULL UNIQUE,
			is_active BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		// Exactly one active key at a time.
		`CREATE UNIQUE INDEX IF NOT EXISTS encryption_keys_single_active_idx
			ON encryption_keys (is_active) WHERE is_active`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS vector_records (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES documents(id),
			user_id UUID,
			chunk_index INT NOT NULL,
			content_embedding vector(%d) NOT NULL,
			encrypted_text BYTEA,
			encrypted_metadata BYTEA,
			encryption_key_id BIGINT REFERENCES encryption_keys(id),
			source_type TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT encryption_all_or_nothing CHECK (
				(encryption_key_id IS NULL) =
				(encrypted_text IS NULL AND encrypted_metadata IS NULL)
			)
		)`, dimensions),

		`CREATE INDEX IF NOT EXISTS vector_records_document_idx
			ON vector_records (document_id) WHERE is_active`,

		`CREATE INDEX IF NOT EXISTS vector_records_active_source_idx
			ON vector_records (source_type) WHERE is_active`,
	}
}

// EnsureSchema applies the DDL through the pool.
func (p *Pool) EnsureSchema(ctx context.Context, dimensions int) error {
	for _, stmt := range Schema(dimensions) {
		if _, err := p.ExecWithRetry(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
