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


package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/polisight/vectra/core"
)

// JobRepository provides durable storage for async jobs.
// The persisted job row is the source of truth for job state; in-memory
// completion signaling is layered on top as an optimization only.
type JobRepository interface {
	// AddJob persists a new job. Generates a new ID from sequence,
	// sets Status to Pending if unset, and populates CreatedAt and
	// UpdatedAt. Returns the job with those fields populated.
	AddJob(ctx context.Context, job *core.Job) (*core.Job, error)

	// UpdateJob persists a job's current state, refreshing UpdatedAt.
	// Returns ErrNotFound if the job doesn't exist.
	UpdateJob(ctx context.Context, job *core.Job) error

	// GetJob retrieves a single job by ID.
	// Returns ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id core.ID) (*core.Job, error)

	// PendingJobs returns all jobs still in StatusPending, in ID order.
	// Used to recover queued work after a restart.
	PendingJobs(ctx context.Context) ([]*core.Job, error)

	// StaleJobs returns jobs stuck in StatusProcessing whose last
	// update is older than the given age. These indicate workers that
	// died mid-flight and are surfaced for operator inspection.
	StaleJobs(ctx context.Context, olderThan time.Duration) ([]*core.Job, error)

	// PurgeTerminal deletes completed and failed jobs whose last update
	// is older than the given age. Returns the number of jobs removed.
	PurgeTerminal(ctx context.Context, olderThan time.Duration) (int, error)

	// DeleteJobs removes jobs by their IDs.
	// Returns ErrNotFound if any job doesn't exist.
	DeleteJobs(ctx context.Context, ids ...core.ID) error

	// Close releases the ID sequence and any other resources.
	Close() error
}

// SearchFilters narrows a similarity search. Nil or zero fields are
// ignored.
type SearchFilters struct {
	// UserId restricts results to vectors owned by the given user.
	UserId *uuid.UUID

	// SourceType restricts results to a single document source type.
	SourceType string
}

// VectorWrite is one batch of chunk embeddings destined for a single
// document. Chunks and Embeddings are parallel slices.
type VectorWrite struct {
	DocumentId uuid.UUID
	UserId     *uuid.UUID
	Filename   string
	SourceType string
	Chunks     []core.Chunk
	Embeddings [][]float32
}

// VectorRepository provides storage and similarity search for encrypted
// embedding vectors. Implementations own encryption: chunk text and
// metadata are encrypted on write and decrypted on read, keyed by the
// version recorded on each row.
type VectorRepository interface {
	// StoreVectors persists a batch of vector records in a single
	// transaction. Each chunk's text and metadata are encrypted
	// independently under the active key. The batch is all-or-nothing:
	// any failure, including an encryption failure, rolls back every
	// record.
	StoreVectors(ctx context.Context, write *VectorWrite) error

	// SearchSimilar returns active vectors ranked by cosine similarity
	// to the query embedding. Only results with similarity >= threshold
	// are returned, up to limit. Rows whose text cannot be decrypted
	// are skipped, never surfaced as errors.
	SearchSimilar(ctx context.Context, embedding []float32, filters SearchFilters, threshold float32, limit int) ([]*core.SearchResult, error)

	// DeactivateDocument marks all vectors for a document inactive so
	// they no longer appear in search results. Used before reprocessing.
	DeactivateDocument(ctx context.Context, documentID uuid.UUID) error

	// CountActive returns the number of active vectors for a document.
	CountActive(ctx context.Context, documentID uuid.UUID) (int, error)
}

// DocumentRepository tracks document lifecycle and deduplication state.
type DocumentRepository interface {
	// CreateDocument persists a new document row.
	CreateDocument(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id uuid.UUID) (*core.Document, error)

	// FindByContentHash looks a document up by its content hash,
	// scoped to the same user (nil matches the shared scope).
	// Returns ErrNotFound if no document matches.
	FindByContentHash(ctx context.Context, hash string, userID *uuid.UUID) (*core.Document, error)

	// UpdateDocument persists status and chunk-count changes.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateDocument(ctx context.Context, doc *core.Document) error
}

// KeyRepository manages versioned encryption key metadata. Key material
// itself never enters storage; only version numbers are persisted.
type KeyRepository interface {
	// ActiveKey returns the single active encryption key.
	// Returns ErrNoActiveKey if none exists.
	ActiveKey(ctx context.Context) (*core.EncryptionKey, error)

	// GetKey retrieves key metadata by ID.
	// Returns ErrNotFound if the key doesn't exist.
	GetKey(ctx context.Context, id int64) (*core.EncryptionKey, error)

	// EnsureActiveKey returns the active key, creating version 1 if no
	// key exists yet. Safe to call concurrently.
	EnsureActiveKey(ctx context.Context) (*core.EncryptionKey, error)
}
