package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/polisight/vectra/ai"
	"github.com/polisight/vectra/ai/mock"
	"github.com/polisight/vectra/core"
	"github.com/polisight/vectra/jobs"
	"github.com/polisight/vectra/storage"
	storagebadger "github.com/polisight/vectra/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memDocuments is an in-memory storage.DocumentRepository.
type memDocuments struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*core.Document
}

func newMemDocuments() *memDocuments {
	return &memDocuments{docs: map[uuid.UUID]*core.Document{}}
}

func (m *memDocuments) CreateDocument(ctx context.Context, doc *core.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.Id == uuid.Nil {
		doc.Id = uuid.New()
	}
	clone := *doc
	m.docs[doc.Id] = &clone
	return nil
}

func (m *memDocuments) GetDocument(ctx context.Context, id uuid.UUID) (*core.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *doc
	return &clone, nil
}

func (m *memDocuments) FindByContentHash(ctx context.Context, hash string, userID *uuid.UUID) (*core.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.docs {
		if doc.ContentHash != hash {
			continue
		}
		if (doc.UserId == nil) != (userID == nil) {
			continue
		}
		if doc.UserId != nil && *doc.UserId != *userID {
			continue
		}
		clone := *doc
		return &clone, nil
	}
	return nil, storage.ErrNotFound
}

func (m *memDocuments) UpdateDocument(ctx context.Context, doc *core.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.Id]; !ok {
		return storage.ErrNotFound
	}
	clone := *doc
	m.docs[doc.Id] = &clone
	return nil
}

// memVectors is an in-memory storage.VectorRepository with an
// injectable write failure.
type memVectors struct {
	mu          sync.Mutex
	writes      []*storage.VectorWrite
	deactivated []uuid.UUID
	failWrite   func(write *storage.VectorWrite) error
}

func (m *memVectors) StoreVectors(ctx context.Context, write *storage.VectorWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		if err := m.failWrite(write); err != nil {
			return err
		}
	}
	m.writes = append(m.writes, write)
	return nil
}

func (m *memVectors) SearchSimilar(ctx context.Context, embedding []float32, filters storage.SearchFilters, threshold float32, limit int) ([]*core.SearchResult, error) {
	return nil, nil
}

func (m *memVectors) DeactivateDocument(ctx context.Context, documentID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deactivated = append(m.deactivated, documentID)
	return nil
}

func (m *memVectors) CountActive(ctx context.Context, documentID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, w := range m.writes {
		if w.DocumentId == documentID {
			count += len(w.Chunks)
		}
	}
	return count, nil
}

func (m *memVectors) storedChunks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, w := range m.writes {
		count += len(w.Chunks)
	}
	return count
}

type fixture struct {
	orchestrator *Orchestrator
	docs         *memDocuments
	vectors      *memVectors
	parser       *mock.Parser
	embedder     *mock.Embedder
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	repo, backend, err := storagebadger.NewMemoryJobRepository()
	require.NoError(t, err)
	queue, err := jobs.NewQueue(repo, jobs.WithPoolSize(4))
	require.NoError(t, err)
	t.Cleanup(func() {
		queue.Release()
		repo.Close()
		backend.Close()
	})

	parser := mock.NewParser()
	embedder := mock.NewEmbedder()
	require.NoError(t, queue.Register(core.JobTypeParse, NewParseHandler(parser)))
	require.NoError(t, queue.Register(core.JobTypeEmbed, NewEmbedHandler(embedder)))

	docs := newMemDocuments()
	vectors := &memVectors{}

	base := []Option{
		WithChunking(50, 0),
		WithBatching(1, 0),
		WithMinTextLength(10),
		WithTimeouts(5*time.Second, 5*time.Second),
	}
	orchestrator, err := NewOrchestrator(queue, docs, vectors, append(base, opts...)...)
	require.NoError(t, err)

	return &fixture{
		orchestrator: orchestrator,
		docs:         docs,
		vectors:      vectors,
		parser:       parser,
		embedder:     embedder,
	}
}

// threeChunkUpload parses into exactly three 50-rune chunks (a, b, c).
func threeChunkUpload() Upload {
	text := strings.Repeat("a", 50) + strings.Repeat("b", 50) + strings.Repeat("c", 50)
	return Upload{
		Bytes:       []byte(text),
		Filename:    "policy.txt",
		ContentType: "text/plain",
		SourceType:  "policy",
	}
}

func TestProcess_HappyPath(t *testing.T) {
	f := newFixture(t)

	result, err := f.orchestrator.Process(context.Background(), threeChunkUpload())
	require.NoError(t, err)

	assert.False(t, result.Duplicate)
	assert.Equal(t, core.DocumentStatusCompleted, result.Status)
	assert.Equal(t, 3, result.TotalChunks)
	assert.Equal(t, 3, result.ChunksProcessed)
	assert.Zero(t, result.ChunksFailed)
	assert.Equal(t, 3, result.VectorsCreated)
	assert.Equal(t, 3, f.vectors.storedChunks())

	doc, err := f.docs.GetDocument(context.Background(), result.DocumentId)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusCompleted, doc.Status)
	assert.NotEmpty(t, doc.ContentHash)
}

func TestProcess_EmptyUpload(t *testing.T) {
	f := newFixture(t)

	_, err := f.orchestrator.Process(context.Background(), Upload{Filename: "empty.txt"})
	assert.ErrorIs(t, err, ErrEmptyUpload)
}

func TestProcess_DuplicateShortCircuits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.orchestrator.Process(ctx, threeChunkUpload())
	require.NoError(t, err)
	parseCalls := f.parser.CallCount()

	second, err := f.orchestrator.Process(ctx, threeChunkUpload())
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.DocumentId, second.DocumentId)
	assert.Equal(t, first.TotalChunks, second.TotalChunks)
	assert.Equal(t, parseCalls, f.parser.CallCount(), "duplicate must not be re-parsed")
	assert.Equal(t, 3, f.vectors.storedChunks(), "duplicate must not be re-stored")
}

func TestProcess_SameContentDifferentUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := uuid.New()
	bob := uuid.New()

	upload := threeChunkUpload()
	upload.UserId = &alice
	first, err := f.orchestrator.Process(ctx, upload)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	upload.UserId = &bob
	second, err := f.orchestrator.Process(ctx, upload)
	require.NoError(t, err)
	assert.False(t, second.Duplicate, "dedup is scoped per user")
	assert.NotEqual(t, first.DocumentId, second.DocumentId)
}

func TestProcess_ParseFailureFailsDocument(t *testing.T) {
	f := newFixture(t)
	f.parser.ParseFunc = func(ctx context.Context, req ai.ParseRequest) (*ai.ParseResult, error) {
		return nil, &ai.PermanentError{Reason: "document is corrupt"}
	}

	result, err := f.orchestrator.Process(context.Background(), threeChunkUpload())
	require.NoError(t, err)

	assert.Equal(t, core.DocumentStatusFailed, result.Status)
	assert.Zero(t, f.vectors.storedChunks())

	doc, err := f.docs.GetDocument(context.Background(), result.DocumentId)
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusFailed, doc.Status)
}

func TestProcess_InsufficientTextFailsDocument(t *testing.T) {
	f := newFixture(t)

	result, err := f.orchestrator.Process(context.Background(), Upload{
		Bytes:    []byte("too short"),
		Filename: "tiny.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, core.DocumentStatusFailed, result.Status)
	assert.Zero(t, f.vectors.storedChunks())
}

func TestProcess_OneFailedBatchStillCompletes(t *testing.T) {
	f := newFixture(t)
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if strings.Contains(texts[0], "b") {
			return nil, errors.New("embedding service unavailable")
		}
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.DeterministicVector(text, 8)
		}
		return vectors, nil
	}

	result, err := f.orchestrator.Process(context.Background(), threeChunkUpload())
	require.NoError(t, err)

	assert.Equal(t, core.DocumentStatusCompleted, result.Status,
		"partial embedding failure must not fail the document")
	assert.Equal(t, 3, result.TotalChunks)
	assert.Equal(t, 2, result.ChunksProcessed)
	assert.Equal(t, 1, result.ChunksFailed)
	assert.Equal(t, result.TotalChunks, result.ChunksProcessed+result.ChunksFailed)
	assert.Equal(t, 2, f.vectors.storedChunks())
}

func TestProcess_StoreFailureCountsBatchFailed(t *testing.T) {
	f := newFixture(t)
	f.vectors.failWrite = func(write *storage.VectorWrite) error {
		if strings.Contains(write.Chunks[0].Text, "c") {
			return errors.New("connection reset")
		}
		return nil
	}

	result, err := f.orchestrator.Process(context.Background(), threeChunkUpload())
	require.NoError(t, err)

	assert.Equal(t, core.DocumentStatusCompleted, result.Status)
	assert.Equal(t, 2, result.ChunksProcessed)
	assert.Equal(t, 1, result.ChunksFailed)
	assert.Equal(t, 2, f.vectors.storedChunks())
}

func TestReprocess_DeactivatesPriorRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.orchestrator.Process(ctx, threeChunkUpload())
	require.NoError(t, err)
	require.Equal(t, 3, f.vectors.storedChunks())

	result, err := f.orchestrator.Reprocess(ctx, threeChunkUpload())
	require.NoError(t, err)

	assert.Equal(t, first.DocumentId, result.DocumentId)
	assert.Equal(t, core.DocumentStatusCompleted, result.Status)
	assert.Equal(t, []uuid.UUID{first.DocumentId}, f.vectors.deactivated)
	assert.Equal(t, 6, f.vectors.storedChunks(), "reprocessing writes a fresh chunk set")
}

func TestReprocess_UnknownDocument(t *testing.T) {
	f := newFixture(t)

	_, err := f.orchestrator.Reprocess(context.Background(), threeChunkUpload())
	assert.ErrorIs(t, err, ErrNotReprocessable)
}
