package postgres

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/polisight/vectra/core"
	"github.com/polisight/vectra/encryption"
	"github.com/polisight/vectra/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newIntegrationStore opens a store against the database named by
// DATABASE_URL, or skips the test when none is configured.
func newIntegrationStore(t *testing.T) (*VectorStore, *Pool, int) {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping database integration test")
	}

	dims := 1536
	if v := os.Getenv("EMBEDDING_DIMENSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		require.NoError(t, err)
		dims = n
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, PoolConfig{URL: url})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, pool.EnsureSchema(ctx, dims))

	codec, err := encryption.NewCodec([]byte("integration-test-secret"))
	require.NoError(t, err)

	return NewVectorStore(pool, codec, NewKeyRepository(pool)), pool, dims
}

func integrationWrite(documentID uuid.UUID, dims, chunks int) *storage.VectorWrite {
	write := &storage.VectorWrite{
		DocumentId: documentID,
		Filename:   "policy.pdf",
		SourceType: "policy",
	}
	for i := 0; i < chunks; i++ {
		write.Chunks = append(write.Chunks, core.Chunk{
			Index:   i,
			Text:    fmt.Sprintf("Section %d: coverage applies.", i),
			ByteLen: 28,
		})
		embedding := make([]float32, dims)
		embedding[0] = float32(i + 1)
		write.Embeddings = append(write.Embeddings, embedding)
	}
	return write
}

func cleanupDocument(t *testing.T, pool *Pool, documentID uuid.UUID) {
	t.Cleanup(func() {
		_, err := pool.Exec(context.Background(),
			`DELETE FROM vector_records WHERE document_id = $1`, documentID)
		assert.NoError(t, err)
	})
}

func TestStoreVectors_MidBatchFailureLeavesNoRows(t *testing.T) {
	store, pool, dims := newIntegrationStore(t)
	ctx := context.Background()

	documentID := uuid.New()
	cleanupDocument(t, pool, documentID)

	// Chunk 2 of 4 cannot be embedded; the batch must roll back whole.
	write := integrationWrite(documentID, dims, 4)
	write.Embeddings[2] = nil

	err := store.StoreVectors(ctx, write)
	require.ErrorIs(t, err, core.ErrEmptyEmbedding)

	count, err := store.CountActive(ctx, documentID)
	require.NoError(t, err)
	assert.Zero(t, count, "a failed batch must leave no active records")
}

func TestStoreVectors_FullBatchAllActive(t *testing.T) {
	store, pool, dims := newIntegrationStore(t)
	ctx := context.Background()

	documentID := uuid.New()
	cleanupDocument(t, pool, documentID)

	require.NoError(t, store.StoreVectors(ctx, integrationWrite(documentID, dims, 3)))

	count, err := store.CountActive(ctx, documentID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, store.DeactivateDocument(ctx, documentID))
	count, err = store.CountActive(ctx, documentID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
