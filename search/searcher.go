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


package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/polisight/vectra/ai"
	"github.com/polisight/vectra/core"
	"github.com/polisight/vectra/storage"
)

const defaultThreshold = 0.60

// Searcher answers similarity queries over the encrypted vector store.
type Searcher struct {
	vectors   storage.VectorRepository
	embedder  ai.Embedder
	threshold float32
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithThreshold sets the default minimum similarity for results.
func WithThreshold(threshold float32) Option {
	return func(s *Searcher) error {
		s.threshold = threshold
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "search")
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(vectors storage.VectorRepository, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if vectors == nil {
		return nil, ErrVectorsRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		vectors:   vectors,
		embedder:  embedder,
		threshold: defaultThreshold,
		logger:    slog.Default().With("component", "search"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Search returns up to limit chunks similar to the query, ranked by
// cosine similarity in non-increasing order.
func (s *Searcher) Search(ctx context.Context, query string, filters storage.SearchFilters, limit int) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, query, filters, limit, nil)
}

// SearchWithMonitor is Search with per-stage observation hooks.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, filters storage.SearchFilters, limit int, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}
	monitor.AfterQueryEmbedding(len(embedding))

	results, err := s.vectors.SearchSimilar(ctx, embedding, filters, s.threshold, limit)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(results)

	// Verbatim matches are surfaced to the monitor only; similarity
	// ordering from the store is preserved.
	for _, result := range results {
		if containsAllQueryWords(result.Text, query) {
			monitor.VerbatimHit(result)
		}
	}

	monitor.Finish(results)
	return results, nil
}
