package ai

import "context"

// Parser extracts text from raw document bytes via an external
// document-parsing service. Implementations must be thread-safe for
// concurrent use.
type Parser interface {
	// Parse submits a document and returns the extracted text with any
	// service-reported metadata. Returns an error if parsing fails; the
	// error distinguishes transient failures (worth retrying) from
	// permanent input errors (malformed document, unsupported type).
	Parse(ctx context.Context, req ParseRequest) (*ParseResult, error)
}

// Embedder generates vector embeddings from text for semantic similarity
// search. Implementations must be thread-safe for concurrent use and
// must return vectors of the configured fixed dimensionality.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings
	// in a batch. The returned slice contains embeddings in the same
	// order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
