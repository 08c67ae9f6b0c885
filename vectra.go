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


// Package vectra wires the document vectorization and retrieval
// pipeline: the Postgres connection pool and encrypted vector store,
// the durable job queue, the rate-limited parsing and embedding
// clients, the orchestrator, and the searcher.
//
// Every service is constructed once in New and passed by reference;
// there is no module-level mutable state.
package vectra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/polisight/vectra/ai"
	"github.com/polisight/vectra/ai/docparse"
	"github.com/polisight/vectra/ai/openai"
	"github.com/polisight/vectra/config"
	"github.com/polisight/vectra/core"
	"github.com/polisight/vectra/encryption"
	"github.com/polisight/vectra/jobs"
	"github.com/polisight/vectra/pipeline"
	"github.com/polisight/vectra/ratelimit"
	"github.com/polisight/vectra/search"
	"github.com/polisight/vectra/storage"
	storagebadger "github.com/polisight/vectra/storage/badger"
	"github.com/polisight/vectra/storage/postgres"
)

// Vectra owns every long-lived service of the pipeline.
type Vectra struct {
	pool         *postgres.Pool
	backend      *storagebadger.Backend
	jobRepo      storage.JobRepository
	queue        *jobs.Queue
	orchestrator *pipeline.Orchestrator
	searcher     *search.Searcher
	logger       *slog.Logger

	retentionStop chan struct{}
}

// New constructs the full pipeline from configuration. Initialization
// failure of any component is fatal and propagates; partially
// constructed services are torn down.
func New(ctx context.Context, cfg *config.Config) (*Vectra, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := slog.Default().With("component", "vectra")

	codec, err := encryption.NewCodec([]byte(cfg.MasterSecret))
	if err != nil {
		return nil, fmt.Errorf("encryption codec: %w", err)
	}

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		URL:      cfg.DatabaseURL,
		MinConns: cfg.PoolMinConns,
		MaxConns: cfg.PoolMaxConns,
	})
	if err != nil {
		return nil, err
	}
	if err := pool.EnsureSchema(ctx, cfg.EmbeddingDimensions); err != nil {
		pool.Close()
		return nil, err
	}

	keys := postgres.NewKeyRepository(pool)
	documents := postgres.NewDocumentRepository(pool)
	vectors := postgres.NewVectorStore(pool, codec, keys)

	backend, err := storagebadger.OpenBackend(cfg.JobStorePath, false)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open job store: %w", err)
	}
	jobRepo, err := storagebadger.NewJobRepository(backend)
	if err != nil {
		backend.Close()
		pool.Close()
		return nil, err
	}

	queue, err := jobs.NewQueue(jobRepo, jobs.WithPoolSize(cfg.WorkerPoolSize))
	if err != nil {
		jobRepo.Close()
		backend.Close()
		pool.Close()
		return nil, err
	}

	v := &Vectra{
		pool:          pool,
		backend:       backend,
		jobRepo:       jobRepo,
		queue:         queue,
		logger:        logger,
		retentionStop: make(chan struct{}),
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(cfg.EmbeddingBaseURL),
		ai.WithEmbeddingAPIKey(cfg.EmbeddingAPIKey),
		ai.WithEmbeddingModel(cfg.EmbeddingModel),
		ai.WithDimensions(cfg.EmbeddingDimensions),
		ai.WithParserHost(cfg.ParserBaseURL),
		ai.WithParserAPIKey(cfg.ParserAPIKey),
	)

	parser, err := docparse.NewClient(aiConfig)
	if err != nil {
		v.teardown()
		return nil, err
	}
	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		v.teardown()
		return nil, err
	}

	parserLimiter, err := ratelimit.NewLimiter(cfg.ParserMaxConcurrent, cfg.ParserMinInterval)
	if err != nil {
		v.teardown()
		return nil, err
	}
	embedLimiter, err := ratelimit.NewLimiter(cfg.EmbedMaxConcurrent, cfg.EmbedMinInterval)
	if err != nil {
		v.teardown()
		return nil, err
	}

	policy := ai.DefaultRetryPolicy()
	throttledParser := ai.NewThrottledParser(parser, parserLimiter, policy)
	throttledEmbedder := ai.NewThrottledEmbedder(embedder, embedLimiter, policy)

	if err := queue.Register(core.JobTypeParse, pipeline.NewParseHandler(throttledParser)); err != nil {
		v.teardown()
		return nil, err
	}
	if err := queue.Register(core.JobTypeEmbed, pipeline.NewEmbedHandler(throttledEmbedder)); err != nil {
		v.teardown()
		return nil, err
	}

	orchestrator, err := pipeline.NewOrchestrator(queue, documents, vectors,
		pipeline.WithChunking(cfg.ChunkSize, cfg.ChunkOverlap),
		pipeline.WithBatching(cfg.EmbedBatchSize, cfg.BatchPause),
		pipeline.WithTimeouts(cfg.ParseTimeout, cfg.EmbedTimeout),
		pipeline.WithMinTextLength(cfg.MinTextLength),
	)
	if err != nil {
		v.teardown()
		return nil, err
	}
	v.orchestrator = orchestrator

	searcher, err := search.NewSearcher(vectors, throttledEmbedder)
	if err != nil {
		v.teardown()
		return nil, err
	}
	v.searcher = searcher

	// Jobs persisted as pending by a previous process run again now.
	if recovered, err := queue.Recover(ctx); err != nil {
		logger.Warn("pending-job recovery failed", "err", err)
	} else if recovered > 0 {
		logger.Info("recovered pending jobs", "count", recovered)
	}

	go v.retentionLoop(cfg.JobRetention)

	return v, nil
}

// retentionLoop periodically purges consumed terminal jobs.
func (v *Vectra) retentionLoop(retention time.Duration) {
	if retention <= 0 {
		return
	}
	interval := retention / 4
	if interval > time.Hour {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := v.queue.CleanupTerminal(context.Background(), retention)
			if err != nil {
				v.logger.Warn("job retention cleanup failed", "err", err)
				continue
			}
			if removed > 0 {
				v.logger.Info("purged terminal jobs", "count", removed)
			}
		case <-v.retentionStop:
			return
		}
	}
}

// Pipeline returns the document orchestrator.
func (v *Vectra) Pipeline() *pipeline.Orchestrator {
	return v.orchestrator
}

// Searcher returns the similarity searcher.
func (v *Vectra) Searcher() *search.Searcher {
	return v.searcher
}

// Queue returns the job queue.
func (v *Vectra) Queue() *jobs.Queue {
	return v.queue
}

// HealthCheck reports pool round-trip health.
func (v *Vectra) HealthCheck(ctx context.Context) postgres.HealthReport {
	return v.pool.HealthCheck(ctx)
}

// Close tears the services down in reverse construction order.
func (v *Vectra) Close() error {
	close(v.retentionStop)
	return v.teardown()
}

func (v *Vectra) teardown() error {
	if v.queue != nil {
		v.queue.Release()
	}

	var firstErr error
	if v.jobRepo != nil {
		if err := v.jobRepo.Close(); err != nil {
			v.logger.Error("error closing job repository", "err", err)
			firstErr = err
		}
	}
	if v.backend != nil {
		if err := v.backend.Close(); err != nil {
			v.logger.Error("error closing job store backend", "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if v.pool != nil {
		v.pool.Close()
	}
	return firstErr
}
