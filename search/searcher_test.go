package search

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/polisight/vectra/ai/mock"
	"github.com/polisight/vectra/core"
	"github.com/polisight/vectra/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVectors returns canned results, optionally failing.
type fakeVectors struct {
	results []*core.SearchResult
	err     error

	lastFilters   storage.SearchFilters
	lastThreshold float32
	lastLimit     int
}

func (f *fakeVectors) StoreVectors(ctx context.Context, write *storage.VectorWrite) error {
	return nil
}

func (f *fakeVectors) SearchSimilar(ctx context.Context, embedding []float32, filters storage.SearchFilters, threshold float32, limit int) ([]*core.SearchResult, error) {
	f.lastFilters = filters
	f.lastThreshold = threshold
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	results := f.results
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (f *fakeVectors) DeactivateDocument(ctx context.Context, documentID uuid.UUID) error {
	return nil
}

func (f *fakeVectors) CountActive(ctx context.Context, documentID uuid.UUID) (int, error) {
	return 0, nil
}

// recordingMonitor captures hook invocations.
type recordingMonitor struct {
	started     string
	dimensions  int
	vectorHits  int
	verbatim    []*core.SearchResult
	finished    bool
	finishCount int
}

func (m *recordingMonitor) Start(query string)       { m.started = query }
func (m *recordingMonitor) AfterQueryEmbedding(d int) { m.dimensions = d }
func (m *recordingMonitor) AfterVectorSearch(results []*core.SearchResult) {
	m.vectorHits = len(results)
}
func (m *recordingMonitor) VerbatimHit(result *core.SearchResult) {
	m.verbatim = append(m.verbatim, result)
}
func (m *recordingMonitor) Finish(results []*core.SearchResult) {
	m.finished = true
	m.finishCount = len(results)
}

func rankedResults() []*core.SearchResult {
	return []*core.SearchResult{
		{DocumentId: uuid.New(), ChunkIndex: 0, Text: "Coverage applies to flood damage in the insured premises.", Similarity: 0.92},
		{DocumentId: uuid.New(), ChunkIndex: 3, Text: "Exclusions include intentional acts.", Similarity: 0.81},
		{DocumentId: uuid.New(), ChunkIndex: 1, Text: "Premiums are due quarterly.", Similarity: 0.74},
	}
}

func TestNewSearcher_Validation(t *testing.T) {
	_, err := NewSearcher(nil, mock.NewEmbedder())
	assert.ErrorIs(t, err, ErrVectorsRequired)

	_, err = NewSearcher(&fakeVectors{}, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestSearch_RanksBySimilarity(t *testing.T) {
	vectors := &fakeVectors{results: rankedResults()}
	searcher, err := NewSearcher(vectors, mock.NewEmbedder())
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "flood coverage", storage.SearchFilters{}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	sorted := sort.SliceIsSorted(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	assert.True(t, sorted, "similarity must be non-increasing")
}

func TestSearch_PassesFiltersAndLimit(t *testing.T) {
	vectors := &fakeVectors{results: rankedResults()}
	searcher, err := NewSearcher(vectors, mock.NewEmbedder(), WithThreshold(0.75))
	require.NoError(t, err)

	userID := uuid.New()
	results, err := searcher.Search(context.Background(), "coverage",
		storage.SearchFilters{UserId: &userID, SourceType: "policy"}, 2)
	require.NoError(t, err)

	assert.Len(t, results, 2)
	assert.Equal(t, &userID, vectors.lastFilters.UserId)
	assert.Equal(t, "policy", vectors.lastFilters.SourceType)
	assert.Equal(t, float32(0.75), vectors.lastThreshold)
	assert.Equal(t, 2, vectors.lastLimit)
}

func TestSearch_EmptyQuery(t *testing.T) {
	searcher, err := NewSearcher(&fakeVectors{}, mock.NewEmbedder())
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), "   ", storage.SearchFilters{}, 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = searcher.Search(context.Background(), "query", storage.SearchFilters{}, 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestSearch_PropagatesStoreError(t *testing.T) {
	vectors := &fakeVectors{err: errors.New("connection reset")}
	searcher, err := NewSearcher(vectors, mock.NewEmbedder())
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), "coverage", storage.SearchFilters{}, 5)
	assert.Error(t, err)
}

func TestSearchWithMonitor_ObservesStages(t *testing.T) {
	vectors := &fakeVectors{results: rankedResults()}
	searcher, err := NewSearcher(vectors, mock.NewEmbedder())
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	results, err := searcher.SearchWithMonitor(context.Background(),
		"flood coverage", storage.SearchFilters{}, 10, monitor)
	require.NoError(t, err)

	assert.Equal(t, "flood coverage", monitor.started)
	assert.Equal(t, 384, monitor.dimensions)
	assert.Equal(t, len(results), monitor.vectorHits)
	assert.True(t, monitor.finished)
	assert.Equal(t, len(results), monitor.finishCount)

	// Only the first canned result contains both query words.
	require.Len(t, monitor.verbatim, 1)
	assert.Equal(t, 0, monitor.verbatim[0].ChunkIndex)
}

func TestContainsAllQueryWords(t *testing.T) {
	tests := []struct {
		name  string
		chunk string
		query string
		want  bool
	}{
		{"all present", "Flood damage is covered under section 4.", "flood damage", true},
		{"missing word", "Flood events are described here.", "flood damage", false},
		{"stop words ignored", "Damage to the premises.", "the damage", true},
		{"case and punctuation", "DAMAGE, flood!", "Flood damage.", true},
		{"only stop words", "anything at all", "the and of", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsAllQueryWords(tt.chunk, tt.query))
		})
	}
}
