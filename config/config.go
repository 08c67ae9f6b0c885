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


// Package config loads process configuration from the environment.
// Configuration is read once at startup; there is no hot reload.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the pipeline needs at process start.
type Config struct {
	// DatabaseURL is the Postgres connection string for the vector store.
	DatabaseURL string

	// PoolMinConns and PoolMaxConns bound the connection pool.
	PoolMinConns int32
	PoolMaxConns int32

	// JobStorePath is the directory for the durable job-state store.
	JobStorePath string

	// ParserBaseURL and ParserAPIKey configure the external
	// document-parsing service.
	ParserBaseURL string
	ParserAPIKey  string

	// EmbeddingBaseURL, EmbeddingAPIKey and EmbeddingModel configure the
	// external embedding service (OpenAI-compatible).
	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string

	// EmbeddingDimensions is the fixed dimensionality of stored vectors.
	// Embeddings of any other length are truncated or zero-padded.
	EmbeddingDimensions int

	// Rate limiting per external client: concurrency cap and minimum
	// spacing between call starts.
	ParserMaxConcurrent int
	ParserMinInterval   time.Duration
	EmbedMaxConcurrent  int
	EmbedMinInterval    time.Duration

	// Chunking parameters.
	ChunkSize    int
	ChunkOverlap int

	// EmbedBatchSize is the number of chunks per embedding job;
	// BatchPause is the gap between batch submissions.
	EmbedBatchSize int
	BatchPause     time.Duration

	// Stage wait timeouts.
	ParseTimeout time.Duration
	EmbedTimeout time.Duration

	// MinTextLength is the minimum extracted-text length considered
	// meaningful; shorter documents fail permanently.
	MinTextLength int

	// MasterSecret is the process-wide secret that versioned encryption
	// keys are derived from. Chunk text and metadata are always
	// encrypted at rest, so the secret is required.
	MasterSecret string

	// JobRetention is how long consumed terminal jobs are kept before
	// cleanup.
	JobRetention time.Duration

	// WorkerPoolSize is the number of concurrent job workers.
	WorkerPoolSize int
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		PoolMinConns:        int32(envInt("POOL_MIN_CONNS", 2)),
		PoolMaxConns:        int32(envInt("POOL_MAX_CONNS", 10)),
		JobStorePath:        envString("JOB_STORE_PATH", "data/jobs"),
		ParserBaseURL:       os.Getenv("PARSER_BASE_URL"),
		ParserAPIKey:        os.Getenv("PARSER_API_KEY"),
		EmbeddingBaseURL:    envString("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingAPIKey:     os.Getenv("EMBEDDING_API_KEY"),
		EmbeddingModel:      envString("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimensions: envInt("EMBEDDING_DIMENSIONS", 1536),
		ParserMaxConcurrent: envInt("PARSER_MAX_CONCURRENT", 2),
		ParserMinInterval:   envDuration("PARSER_MIN_INTERVAL", 5*time.Second),
		EmbedMaxConcurrent:  envInt("EMBED_MAX_CONCURRENT", 3),
		EmbedMinInterval:    envDuration("EMBED_MIN_INTERVAL", time.Second),
		ChunkSize:           envInt("CHUNK_SIZE", 1500),
		ChunkOverlap:        envInt("CHUNK_OVERLAP", 100),
		EmbedBatchSize:      envInt("EMBED_BATCH_SIZE", 5),
		BatchPause:          envDuration("BATCH_PAUSE", 200*time.Millisecond),
		ParseTimeout:        envDuration("PARSE_TIMEOUT", 2*time.Minute),
		EmbedTimeout:        envDuration("EMBED_TIMEOUT", time.Minute),
		MinTextLength:       envInt("MIN_TEXT_LENGTH", 100),
		MasterSecret:        os.Getenv("ENCRYPTION_MASTER_SECRET"),
		JobRetention:        envDuration("JOB_RETENTION", 24*time.Hour),
		WorkerPoolSize:      envInt("WORKER_POOL_SIZE", 8),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is complete and coherent.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL is required")
	}
	if c.PoolMinConns < 0 || c.PoolMaxConns <= 0 || c.PoolMinConns > c.PoolMaxConns {
		return errors.New("config: pool bounds must satisfy 0 <= min <= max, max > 0")
	}
	if c.ParserBaseURL == "" {
		return errors.New("config: PARSER_BASE_URL is required")
	}
	if c.EmbeddingDimensions <= 0 {
		return errors.New("config: EMBEDDING_DIMENSIONS must be positive")
	}
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return errors.New("config: chunk overlap must be non-negative and smaller than chunk size")
	}
	if c.EmbedBatchSize <= 0 {
		return errors.New("config: EMBED_BATCH_SIZE must be positive")
	}
	if c.ParserMaxConcurrent <= 0 || c.EmbedMaxConcurrent <= 0 {
		return errors.New("config: rate limit concurrency must be positive")
	}
	if c.MasterSecret == "" {
		return errors.New("config: ENCRYPTION_MASTER_SECRET is required")
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
