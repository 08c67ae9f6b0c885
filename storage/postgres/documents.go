// Copyright 2026 Polisight Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/polisight/vectra/core"
	"github.com/polisight/vectra/storage"
)

// DocumentRepository implements storage.DocumentRepository over Postgres.
type DocumentRepository struct {
	pool *Pool
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a document repository on the pool.
func NewDocumentRepository(pool *Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

// CreateDocument persists a new document row.
func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}
	if doc.Id == uuid.Nil {
		doc.Id = uuid.New()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err := r.pool.ExecWithRetry(ctx, `
		INSERT INTO documents
			(id, content_hash, filename, source_type, user_id, status,
			 total_chunks, chunks_processed, chunks_failed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		doc.Id, doc.ContentHash, doc.Filename, doc.SourceType, doc.UserId,
		doc.Status.String(), doc.TotalChunks, doc.ChunksProcessed,
		doc.ChunksFailed, doc.CreatedAt, doc.UpdatedAt)
	return err
}

// GetDocument retrieves a document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id uuid.UUID) (*core.Document, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, content_hash, filename, source_type, user_id, status,
		       total_chunks, chunks_processed, chunks_failed, created_at, updated_at
		FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

// FindByContentHash looks a document up by content hash within the
// user's scope. A nil userID matches the shared scope only.
func (r *DocumentRepository) FindByContentHash(ctx context.Context, hash string, userID *uuid.UUID) (*core.Document, error) {
	if hash == "" {
		return nil, core.ErrEmptyContentHash
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id, content_hash, filename, source_type, user_id, status,
		       total_chunks, chunks_processed, chunks_failed, created_at, updated_at
		FROM documents
		WHERE content_hash = $1 AND user_id IS NOT DISTINCT FROM $2`,
		hash, userID)
	return scanDocument(row)
}

// UpdateDocument persists status and chunk-count changes.
func (r *DocumentRepository) UpdateDocument(ctx context.Context, doc *core.Document) error {
	doc.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.ExecWithRetry(ctx, `
		UPDATE documents
		SET status = $2, total_chunks = $3, chunks_processed = $4,
		    chunks_failed = $5, updated_at = $6
		WHERE id = $1`,
		doc.Id, doc.Status.String(), doc.TotalChunks, doc.ChunksProcessed,
		doc.ChunksFailed, doc.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*core.Document, error) {
	var doc core.Document
	var status string
	err := row.Scan(&doc.Id, &doc.ContentHash, &doc.Filename, &doc.SourceType,
		&doc.UserId, &status, &doc.TotalChunks, &doc.ChunksProcessed,
		&doc.ChunksFailed, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	doc.Status = core.ParseDocumentStatus(status)
	return &doc, nil
}
