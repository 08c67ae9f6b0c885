package core

//go:generate go run ../cmd/musgen

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID is a unique identifier for job records.
// It is generated from database sequences.
type ID uint64

// HashContent returns the hex-encoded BLAKE2b-256 digest of raw content.
// Used to detect byte-identical documents before any processing happens.
func HashContent(data []byte) string {
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// JobType identifies the kind of work a job performs.
type JobType int

const (
	// JobTypeParse converts raw document bytes into extracted text.
	JobTypeParse JobType = iota + 1
	// JobTypeEmbed converts a batch of text chunks into embedding vectors.
	JobTypeEmbed
)

// String returns the persisted name of the job type.
func (t JobType) String() string {
	switch t {
	case JobTypeParse:
		return "parse"
	case JobTypeEmbed:
		return "embed"
	default:
		return "unknown"
	}
}

// JobStatus tracks a job through its lifecycle.
// Valid transitions: pending -> processing -> completed | failed.
// Terminal states are final; no re-entry.
type JobStatus int

const (
	JobStatusPending JobStatus = iota + 1
	JobStatusProcessing
	JobStatusCompleted
	JobStatusFailed
)

// String returns the persisted name of the job status.
func (s JobStatus) String() string {
	switch s {
	case JobStatusPending:
		return "pending"
	case JobStatusProcessing:
		return "processing"
	case JobStatusCompleted:
		return "completed"
	case JobStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is an asynchronous unit of work tracked by the queue.
// Payload is immutable after creation. Once terminal, exactly one of
// Result or Error is populated.
type Job struct {
	Id          ID
	Type        JobType
	Status      JobStatus
	Payload     []byte // opaque JSON input, specific to the job type
	Result      []byte // JSON output, set when completed
	Error       string // non-empty when failed
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time // zero until the job reaches a terminal state
}

// DocumentStatus tracks a document through the vectorization pipeline.
type DocumentStatus int

const (
	DocumentStatusUploading DocumentStatus = iota + 1
	DocumentStatusParsing
	DocumentStatusChunking
	DocumentStatusEmbedding
	DocumentStatusStoring
	DocumentStatusCompleted
	DocumentStatusFailed
)

// String returns the persisted name of the document status.
func (s DocumentStatus) String() string {
	switch s {
	case DocumentStatusUploading:
		return "uploading"
	case DocumentStatusParsing:
		return "parsing"
	case DocumentStatusChunking:
		return "chunking"
	case DocumentStatusEmbedding:
		return "embedding"
	case DocumentStatusStoring:
		return "storing"
	case DocumentStatusCompleted:
		return "completed"
	case DocumentStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseDocumentStatus maps a persisted status name back to its value.
// Unknown names map to zero.
func ParseDocumentStatus(name string) DocumentStatus {
	for s := DocumentStatusUploading; s <= DocumentStatusFailed; s++ {
		if s.String() == name {
			return s
		}
	}
	return 0
}

// Document represents an ingested document and its processing progress.
type Document struct {
	Id              uuid.UUID
	ContentHash     string // hex BLAKE2b-256 of the raw upload, used for dedup
	Filename        string
	SourceType      string // e.g. "policy", "regulatory_filing"
	UserId          *uuid.UUID
	Status          DocumentStatus
	TotalChunks     int
	ChunksProcessed int
	ChunksFailed    int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Chunk is a bounded span of a document's extracted text.
// Chunks are transient: they exist only between chunking and storing,
// and are never persisted standalone.
type Chunk struct {
	Index   int
	Text    string
	ByteLen int
}

// ChunkMetadata is the per-chunk metadata encrypted alongside the chunk text.
type ChunkMetadata struct {
	Filename   string `json:"filename,omitempty"`
	SourceType string `json:"source_type,omitempty"`
	ChunkIndex int    `json:"chunk_index"`
	ByteLen    int    `json:"byte_len"`
}

// VectorRecord is the persisted form of an embedded chunk.
// A record with a non-nil EncryptionKeyId always carries non-nil
// EncryptedText and EncryptedMetadata; encryption is all-or-nothing
// per record. Records are never mutated in place: re-processing a
// document creates new records and deactivates the old ones.
type VectorRecord struct {
	Id                uuid.UUID
	DocumentId        uuid.UUID
	UserId            *uuid.UUID
	ChunkIndex        int
	Embedding         []float32
	EncryptedText     []byte
	EncryptedMetadata []byte
	EncryptionKeyId   *int64
	SourceType        string
	IsActive          bool
	CreatedAt         time.Time
}

// EncryptionKey identifies a versioned encryption key.
// Exactly one key is active at a time; records reference the key that
// was active when they were written, so rotation never invalidates
// historical records.
type EncryptionKey struct {
	Id        int64
	Version   int
	Active    bool
	CreatedAt time.Time
}

// SearchResult is a decrypted similarity-search hit.
type SearchResult struct {
	DocumentId uuid.UUID
	ChunkIndex int
	Text       string
	Metadata   ChunkMetadata
	SourceType string
	Similarity float32
}

// IngestResult summarizes the outcome of driving one document through
// the pipeline. A document completes with partial coverage when some
// embedding batches fail; it is marked failed only when parsing fails.
type IngestResult struct {
	DocumentId      uuid.UUID
	Duplicate       bool
	Status          DocumentStatus
	TotalChunks     int
	ChunksProcessed int
	ChunksFailed    int
	VectorsCreated  int
}
