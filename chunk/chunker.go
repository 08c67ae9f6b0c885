// Package chunk splits extracted document text into overlapping windows
// suitable for embedding. Splitting is a pure function: no I/O, fully
// deterministic.
package chunk

import (
	"errors"
	"strings"

	"github.com/polisight/vectra/core"
)

// sentenceLookahead is how far past the window boundary we search for a
// sentence terminator before cutting mid-sentence.
const sentenceLookahead = 100

var (
	// ErrInvalidSize indicates a non-positive window size.
	ErrInvalidSize = errors.New("chunk size must be greater than zero")

	// ErrInvalidOverlap indicates an overlap that is negative or not
	// smaller than the window size.
	ErrInvalidOverlap = errors.New("overlap must be non-negative and smaller than size")
)

// Split divides text into ordered chunks of roughly size characters with
// overlap characters shared between consecutive chunks.
//
// The window boundary is extended to the next sentence terminator when
// one occurs within the lookahead, so chunks prefer to end on sentence
// boundaries. The next window starts at currentEnd - overlap. A trailing
// partial window shorter than size is still emitted if it is non-empty
// after trimming. Empty or whitespace-only input yields no chunks.
func Split(text string, size, overlap int) ([]core.Chunk, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	if overlap < 0 || overlap >= size {
		return nil, ErrInvalidOverlap
	}

	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	var chunks []core.Chunk

	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = extendToSentence(runes, end)
		}

		span := string(runes[start:end])
		if strings.TrimSpace(span) != "" {
			chunks = append(chunks, core.Chunk{
				Index:   len(chunks),
				Text:    span,
				ByteLen: len(span),
			})
		}

		if end == len(runes) {
			break
		}
		start = end - overlap
	}

	return chunks, nil
}

// extendToSentence moves end forward to just past the next sentence
// terminator, provided one occurs within the lookahead window. If the
// boundary already sits on a terminator, or none is found in time, end
// is returned unchanged.
func extendToSentence(runes []rune, end int) int {
	if isTerminator(runes[end-1]) {
		return end
	}

	limit := end + sentenceLookahead
	if limit > len(runes) {
		limit = len(runes)
	}

	for i := end; i < limit; i++ {
		if isTerminator(runes[i]) {
			return i + 1
		}
	}
	return end
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
