package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_InvalidArguments(t *testing.T) {
	_, err := Split("text", 0, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = Split("text", 100, -1)
	assert.ErrorIs(t, err, ErrInvalidOverlap)

	_, err = Split("text", 100, 100)
	assert.ErrorIs(t, err, ErrInvalidOverlap)
}

func TestSplit_EmptyInput(t *testing.T) {
	chunks, err := Split("", 100, 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = Split("   \n\t  ", 100, 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_ShortInputSingleChunk(t *testing.T) {
	chunks, err := Split("A short policy clause.", 100, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "A short policy clause.", chunks[0].Text)
	assert.Equal(t, len(chunks[0].Text), chunks[0].ByteLen)
}

// Scenario from the ingestion contract: a 3000-character document with
// size=1500 and overlap=100 produces exactly 2 chunks.
func TestSplit_ThreeThousandCharTwoChunks(t *testing.T) {
	text := strings.Repeat("a", 2999) + "."
	require.Len(t, text, 3000)

	chunks, err := Split(text, 1500, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[1].Index)
	assert.Len(t, chunks[0].Text, 1500)

	// Consecutive chunks share the declared overlap.
	assert.Equal(t, chunks[0].Text[1400:], chunks[1].Text[:100])
}

func TestSplit_ExtendsToSentenceTerminator(t *testing.T) {
	// The window boundary falls mid-sentence; the terminator 20 runes
	// later is within the lookahead, so the window extends to it.
	text := strings.Repeat("a", 90) + strings.Repeat("b", 20) + ". " + strings.Repeat("c", 200)

	chunks, err := Split(text, 100, 10)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.True(t, strings.HasSuffix(chunks[0].Text, "."),
		"first chunk should end on the sentence terminator, got %q", chunks[0].Text[len(chunks[0].Text)-5:])
}

func TestSplit_NoExtensionBeyondLookahead(t *testing.T) {
	// No terminator within 100 runes of the boundary: cut mid-sentence.
	text := strings.Repeat("a", 400)

	chunks, err := Split(text, 100, 10)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Len(t, chunks[0].Text, 100)
}

// Concatenating chunks minus the declared overlaps reconstructs the
// original text.
func TestSplit_Reconstruction(t *testing.T) {
	inputs := []string{
		strings.Repeat("The insured shall notify the insurer of any material change. ", 40),
		strings.Repeat("x", 1234),
		"Exactly one sentence here.",
	}

	const size, overlap = 200, 40
	for _, text := range inputs {
		chunks, err := Split(text, size, overlap)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		rebuilt := chunks[0].Text
		for _, c := range chunks[1:] {
			require.GreaterOrEqual(t, len(c.Text), overlap)
			rebuilt += c.Text[overlap:]
		}
		assert.Equal(t, text, rebuilt)
	}
}

// Every chunk except possibly the last is at least size-overlap long.
func TestSplit_MinimumChunkLength(t *testing.T) {
	text := strings.Repeat("Coverage applies to losses arising from covered perils. ", 60)

	const size, overlap = 300, 50
	chunks, err := Split(text, size, overlap)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, c := range chunks[:len(chunks)-1] {
		assert.GreaterOrEqual(t, len([]rune(c.Text)), size-overlap, "chunk %d too short", i)
	}
}

func TestSplit_IndicesAreSequential(t *testing.T) {
	text := strings.Repeat("a. ", 500)
	chunks, err := Split(text, 100, 20)
	require.NoError(t, err)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}
