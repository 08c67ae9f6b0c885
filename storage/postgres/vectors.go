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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/polisight/vectra/core"
	"github.com/polisight/vectra/encryption"
	"github.com/polisight/vectra/storage"
)

// ErrBatchShape indicates a write whose chunk and embedding slices
// don't line up.
var ErrBatchShape = errors.New("chunks and embeddings must be parallel and non-empty")

// VectorStore implements storage.VectorRepository over Postgres with
// pgvector similarity search.
//
// Writes encrypt each chunk's text and metadata independently under the
// active key inside a single transaction: an encryption or insert
// failure rolls back the whole batch. Reads decrypt per row by the key
// version recorded on the row; a row that fails decryption is logged
// and skipped, never aborting the search.
type VectorStore struct {
	pool   *Pool
	codec  *encryption.Codec
	keys   storage.KeyRepository
	logger *slog.Logger
}

var _ storage.VectorRepository = (*VectorStore)(nil)

// NewVectorStore creates a vector store on the pool.
func NewVectorStore(pool *Pool, codec *encryption.Codec, keys storage.KeyRepository) *VectorStore {
	return &VectorStore{
		pool:   pool,
		codec:  codec,
		keys:   keys,
		logger: slog.Default().With("component", "vectorstore"),
	}
}

// StoreVectors persists one batch of chunk embeddings, all-or-nothing.
func (s *VectorStore) StoreVectors(ctx context.Context, write *storage.VectorWrite) error {
	if write == nil || len(write.Chunks) == 0 || len(write.Chunks) != len(write.Embeddings) {
		return ErrBatchShape
	}

	key, err := s.keys.EnsureActiveKey(ctx)
	if err != nil {
		return fmt.Errorf("resolve active key: %w", err)
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	for i, chunk := range write.Chunks {
		if len(write.Embeddings[i]) == 0 {
			return fmt.Errorf("chunk %d: %w", chunk.Index, core.ErrEmptyEmbedding)
		}

		encText, err := s.codec.Encrypt([]byte(chunk.Text), key.Version)
		if err != nil {
			return fmt.Errorf("encrypt chunk %d: %w", chunk.Index, err)
		}

		metaJSON, err := json.Marshal(core.ChunkMetadata{
			Filename:   write.Filename,
			SourceType: write.SourceType,
			ChunkIndex: chunk.Index,
			ByteLen:    chunk.ByteLen,
		})
		if err != nil {
			return fmt.Errorf("marshal chunk %d metadata: %w", chunk.Index, err)
		}
		encMeta, err := s.codec.Encrypt(metaJSON, key.Version)
		if err != nil {
			return fmt.Errorf("encrypt chunk %d metadata: %w", chunk.Index, err)
		}

		record := &core.VectorRecord{
			Id:                uuid.New(),
			DocumentId:        write.DocumentId,
			UserId:            write.UserId,
			ChunkIndex:        chunk.Index,
			Embedding:         write.Embeddings[i],
			EncryptedText:     encText,
			EncryptedMetadata: encMeta,
			EncryptionKeyId:   &key.Id,
			SourceType:        write.SourceType,
			IsActive:          true,
			CreatedAt:         now,
		}
		// Same invariant the schema CHECK enforces, caught before the
		// round-trip.
		if err := core.ValidateVectorRecord(record); err != nil {
			return fmt.Errorf("chunk %d: %w", chunk.Index, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO vector_records
				(id, document_id, user_id, chunk_index, content_embedding,
				 encrypted_text, encrypted_metadata, encryption_key_id,
				 source_type, is_active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			record.Id, record.DocumentId, record.UserId, record.ChunkIndex,
			pgvector.NewVector(record.Embedding), record.EncryptedText,
			record.EncryptedMetadata, record.EncryptionKeyId,
			record.SourceType, record.IsActive, record.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", chunk.Index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	s.logger.Debug("vector batch stored",
		"documentId", write.DocumentId, "chunks", len(write.Chunks), "keyVersion", key.Version)
	return nil
}

// SearchSimilar returns active rows ranked by cosine similarity.
func (s *VectorStore) SearchSimilar(ctx context.Context, embedding []float32, filters storage.SearchFilters, threshold float32, limit int) ([]*core.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, core.ErrEmptyEmbedding
	}
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	query, args := buildSearchQuery(embedding, filters, threshold, limit)
	rows, err := s.pool.QueryWithRetry(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Key versions are resolved at most once per search.
	versions := map[int64]int{}
	var results []*core.SearchResult

	for rows.Next() {
		var (
			docID      uuid.UUID
			chunkIndex int
			encText    []byte
			encMeta    []byte
			keyID      *int64
			sourceType string
			similarity float32
		)
		if err := rows.Scan(&docID, &chunkIndex, &encText, &encMeta, &keyID, &sourceType, &similarity); err != nil {
			return nil, err
		}

		result := &core.SearchResult{
			DocumentId: docID,
			ChunkIndex: chunkIndex,
			SourceType: sourceType,
			Similarity: similarity,
		}

		if keyID == nil {
			// The schema forbids this; treat it as undecryptable.
			s.logger.Warn("row without encryption key, skipping",
				"documentId", docID, "chunkIndex", chunkIndex)
			continue
		}

		version, ok := versions[*keyID]
		if !ok {
			key, err := s.keys.GetKey(ctx, *keyID)
			if err != nil {
				s.logger.Warn("unknown encryption key, skipping row",
					"documentId", docID, "chunkIndex", chunkIndex, "keyId", *keyID)
				continue
			}
			version = key.Version
			versions[*keyID] = version
		}

		text, err := s.codec.Decrypt(encText, version)
		if err != nil {
			s.logger.Warn("chunk decryption failed, skipping row",
				"documentId", docID, "chunkIndex", chunkIndex, "error", err)
			continue
		}
		result.Text = string(text)

		if metaJSON, err := s.codec.Decrypt(encMeta, version); err == nil {
			// Metadata is best-effort; the text is the payload.
			_ = json.Unmarshal(metaJSON, &result.Metadata)
		}

		results = append(results, result)
	}
	return results, rows.Err()
}

// DeactivateDocument marks all vectors for a document inactive.
func (s *VectorStore) DeactivateDocument(ctx context.Context, documentID uuid.UUID) error {
	_, err := s.pool.ExecWithRetry(ctx, `
		UPDATE vector_records SET is_active = false
		WHERE document_id = $1 AND is_active`, documentID)
	return err
}

// CountActive returns the number of active vectors for a document.
func (s *VectorStore) CountActive(ctx context.Context, documentID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM vector_records
		WHERE document_id = $1 AND is_active`, documentID).Scan(&count)
	return count, err
}

// buildSearchQuery assembles the similarity query. Cosine similarity is
// 1 - (embedding <=> query); ordering by the raw distance ascending
// yields results in non-increasing similarity.
func buildSearchQuery(embedding []float32, filters storage.SearchFilters, threshold float32, limit int) (string, []any) {
	var sb strings.Builder
	args := []any{pgvector.NewVector(embedding)}

	sb.WriteString(`
		SELECT document_id, chunk_index, encrypted_text, encrypted_metadata,
		       encryption_key_id, source_type,
		       1 - (content_embedding <=> $1) AS similarity
		FROM vector_records
		WHERE is_active`)

	if filters.UserId != nil {
		args = append(args, *filters.UserId)
		fmt.Fprintf(&sb, " AND user_id = $%d", len(args))
	}
	if filters.SourceType != "" {
		args = append(args, filters.SourceType)
		fmt.Fprintf(&sb, " AND source_type = $%d", len(args))
	}

	args = append(args, threshold)
	fmt.Fprintf(&sb, " AND 1 - (content_embedding <=> $1) >= $%d", len(args))

	args = append(args, limit)
	fmt.Fprintf(&sb, " ORDER BY content_embedding <=> $1 LIMIT $%d", len(args))

	return sb.String(), args
}
