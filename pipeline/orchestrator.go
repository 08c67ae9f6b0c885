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


package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/polisight/vectra/chunk"
	"github.com/polisight/vectra/core"
	"github.com/polisight/vectra/jobs"
	"github.com/polisight/vectra/storage"
)

const (
	defaultChunkSize     = 1500
	defaultChunkOverlap  = 100
	defaultBatchSize     = 5
	defaultBatchPause    = 200 * time.Millisecond
	defaultParseTimeout  = 2 * time.Minute
	defaultEmbedTimeout  = time.Minute
	defaultMinTextLength = 100
)

// Upload is one document handed to the pipeline.
type Upload struct {
	Bytes       []byte
	Filename    string
	ContentType string
	SourceType  string
	UserId      *uuid.UUID
}

// Orchestrator drives documents through the vectorization pipeline.
// It is the single place where per-document success and failure are
// judged; lower layers report structured errors up to it.
//
// Concurrent Process calls for different documents are safe. Callers
// must not re-process the same document concurrently; batches are
// transactional but not mutually exclusive across writers.
type Orchestrator struct {
	queue     *jobs.Queue
	documents storage.DocumentRepository
	vectors   storage.VectorRepository
	logger    *slog.Logger

	chunkSize     int
	chunkOverlap  int
	batchSize     int
	batchPause    time.Duration
	parseTimeout  time.Duration
	embedTimeout  time.Duration
	minTextLength int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithChunking sets the chunk size and overlap in runes.
func WithChunking(size, overlap int) Option {
	return func(o *Orchestrator) error {
		if size <= 0 {
			return chunk.ErrInvalidSize
		}
		if overlap < 0 || overlap >= size {
			return chunk.ErrInvalidOverlap
		}
		o.chunkSize = size
		o.chunkOverlap = overlap
		return nil
	}
}

// WithBatching sets the embedding batch size and the pause between
// batch submissions.
func WithBatching(size int, pause time.Duration) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}
		o.batchSize = size
		o.batchPause = pause
		return nil
	}
}

// WithTimeouts sets how long the orchestrator waits on parse and embed
// jobs. The underlying jobs are not cancelled by these timeouts.
func WithTimeouts(parse, embed time.Duration) Option {
	return func(o *Orchestrator) error {
		if parse > 0 {
			o.parseTimeout = parse
		}
		if embed > 0 {
			o.embedTimeout = embed
		}
		return nil
	}
}

// WithMinTextLength sets the minimum extracted-text length below which
// a document is considered unprocessable.
func WithMinTextLength(n int) Option {
	return func(o *Orchestrator) error {
		if n < 0 {
			n = 0
		}
		o.minTextLength = n
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger.With("component", "pipeline")
		return nil
	}
}

// NewOrchestrator wires the pipeline over its dependencies.
func NewOrchestrator(queue *jobs.Queue, documents storage.DocumentRepository, vectors storage.VectorRepository, opts ...Option) (*Orchestrator, error) {
	if queue == nil {
		return nil, ErrQueueRequired
	}
	if documents == nil {
		return nil, ErrDocumentsRequired
	}
	if vectors == nil {
		return nil, ErrVectorsRequired
	}

	o := &Orchestrator{
		queue:         queue,
		documents:     documents,
		vectors:       vectors,
		logger:        slog.Default().With("component", "pipeline"),
		chunkSize:     defaultChunkSize,
		chunkOverlap:  defaultChunkOverlap,
		batchSize:     defaultBatchSize,
		batchPause:    defaultBatchPause,
		parseTimeout:  defaultParseTimeout,
		embedTimeout:  defaultEmbedTimeout,
		minTextLength: defaultMinTextLength,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Process drives one document through the full pipeline.
//
// A duplicate upload (same content hash within the user's scope)
// short-circuits without re-processing. Document-level failure is a
// structured result, not an error: the returned error is non-nil only
// for infrastructure faults where no verdict could be recorded.
func (o *Orchestrator) Process(ctx context.Context, upload Upload) (*core.IngestResult, error) {
	if len(upload.Bytes) == 0 {
		return nil, ErrEmptyUpload
	}

	hash := core.HashContent(upload.Bytes)
	existing, err := o.documents.FindByContentHash(ctx, hash, upload.UserId)
	if err == nil {
		o.logger.Info("duplicate upload short-circuited",
			"filename", upload.Filename, "documentId", existing.Id)
		return &core.IngestResult{
			DocumentId:      existing.Id,
			Duplicate:       true,
			Status:          existing.Status,
			TotalChunks:     existing.TotalChunks,
			ChunksProcessed: existing.ChunksProcessed,
			ChunksFailed:    existing.ChunksFailed,
		}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("duplicate lookup: %w", err)
	}

	doc := &core.Document{
		ContentHash: hash,
		Filename:    upload.Filename,
		SourceType:  upload.SourceType,
		UserId:      upload.UserId,
		Status:      core.DocumentStatusUploading,
	}
	if err := o.documents.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	return o.drive(ctx, doc, upload)
}

// Reprocess re-runs the pipeline for a previously ingested document.
// Prior vector records are deactivated first so search never mixes old
// and new chunk sets.
func (o *Orchestrator) Reprocess(ctx context.Context, upload Upload) (*core.IngestResult, error) {
	if len(upload.Bytes) == 0 {
		return nil, ErrEmptyUpload
	}

	hash := core.HashContent(upload.Bytes)
	doc, err := o.documents.FindByContentHash(ctx, hash, upload.UserId)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotReprocessable
		}
		return nil, err
	}

	if err := o.vectors.DeactivateDocument(ctx, doc.Id); err != nil {
		return nil, fmt.Errorf("deactivate prior records: %w", err)
	}

	doc.Status = core.DocumentStatusUploading
	doc.TotalChunks = 0
	doc.ChunksProcessed = 0
	doc.ChunksFailed = 0
	if err := o.documents.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}

	return o.drive(ctx, doc, upload)
}

// drive runs parse → chunk → embed → store for an existing document row.
func (o *Orchestrator) drive(ctx context.Context, doc *core.Document, upload Upload) (*core.IngestResult, error) {
	text, err := o.parse(ctx, doc, upload)
	if err != nil {
		// No text to chunk: the only failure that fails the document.
		return o.fail(ctx, doc, err)
	}

	if err := o.transition(ctx, doc, core.DocumentStatusChunking); err != nil {
		return nil, err
	}
	chunks, err := chunk.Split(text, o.chunkSize, o.chunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("chunk document: %w", err)
	}
	if len(chunks) == 0 {
		return o.fail(ctx, doc, fmt.Errorf("no usable text after chunking"))
	}

	doc.TotalChunks = len(chunks)
	if err := o.transition(ctx, doc, core.DocumentStatusEmbedding); err != nil {
		return nil, err
	}

	batches := o.makeBatches(chunks)
	embedJobs, err := o.submitBatches(ctx, batches)
	if err != nil {
		return nil, err
	}

	if err := o.transition(ctx, doc, core.DocumentStatusStoring); err != nil {
		return nil, err
	}
	o.collectAndStore(ctx, doc, upload, batches, embedJobs)

	// Partial embedding failure still completes the document; the
	// counts carry the verdict.
	doc.Status = core.DocumentStatusCompleted
	if err := o.documents.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}

	o.logger.Info("document processed",
		"documentId", doc.Id, "totalChunks", doc.TotalChunks,
		"processed", doc.ChunksProcessed, "failed", doc.ChunksFailed)

	return &core.IngestResult{
		DocumentId:      doc.Id,
		Status:          doc.Status,
		TotalChunks:     doc.TotalChunks,
		ChunksProcessed: doc.ChunksProcessed,
		ChunksFailed:    doc.ChunksFailed,
		VectorsCreated:  doc.ChunksProcessed,
	}, nil
}

// parse runs the parse job and validates the extracted text.
func (o *Orchestrator) parse(ctx context.Context, doc *core.Document, upload Upload) (string, error) {
	if err := o.transition(ctx, doc, core.DocumentStatusParsing); err != nil {
		return "", err
	}

	payload, err := json.Marshal(ParsePayload{
		Filename:    upload.Filename,
		ContentType: upload.ContentType,
		FileBytes:   upload.Bytes,
	})
	if err != nil {
		return "", err
	}

	job, err := o.queue.Enqueue(ctx, core.JobTypeParse, payload)
	if err != nil {
		return "", fmt.Errorf("enqueue parse job: %w", err)
	}

	done, err := o.queue.WaitFor(ctx, job.Id, o.parseTimeout)
	if err != nil {
		return "", fmt.Errorf("parse job: %w", err)
	}
	if done.Status == core.JobStatusFailed {
		return "", fmt.Errorf("parsing failed: %s", done.Error)
	}

	var outcome ParseOutcome
	if err := json.Unmarshal(done.Result, &outcome); err != nil {
		return "", fmt.Errorf("decode parse result: %w", err)
	}
	if len(outcome.Text) < o.minTextLength {
		return "", fmt.Errorf("extracted text too short: %d chars (minimum %d)", len(outcome.Text), o.minTextLength)
	}
	return outcome.Text, nil
}

// submitBatches enqueues one embed job per batch with a short pause
// between submissions to avoid saturating the rate limiter.
func (o *Orchestrator) submitBatches(ctx context.Context, batches [][]core.Chunk) ([]*core.Job, error) {
	embedJobs := make([]*core.Job, 0, len(batches))
	for i, batch := range batches {
		if i > 0 && o.batchPause > 0 {
			select {
			case <-time.After(o.batchPause):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}
		payload, err := json.Marshal(EmbedPayload{Texts: texts})
		if err != nil {
			return nil, err
		}

		job, err := o.queue.Enqueue(ctx, core.JobTypeEmbed, payload)
		if err != nil {
			return nil, fmt.Errorf("enqueue embed batch %d: %w", i, err)
		}
		embedJobs = append(embedJobs, job)
	}
	return embedJobs, nil
}

// collectAndStore awaits each embed job and stores successful batches.
// A failed batch increments the failure count and never aborts the
// remaining batches.
func (o *Orchestrator) collectAndStore(ctx context.Context, doc *core.Document, upload Upload, batches [][]core.Chunk, embedJobs []*core.Job) {
	for i, job := range embedJobs {
		batch := batches[i]

		done, err := o.queue.WaitFor(ctx, job.Id, o.embedTimeout)
		if err != nil || done.Status == core.JobStatusFailed {
			o.logBatchFailure(doc, i, done, err)
			doc.ChunksFailed += len(batch)
			continue
		}

		var outcome EmbedOutcome
		if err := json.Unmarshal(done.Result, &outcome); err != nil || len(outcome.Vectors) != len(batch) {
			o.logger.Error("embed batch result malformed", "documentId", doc.Id, "batch", i)
			doc.ChunksFailed += len(batch)
			continue
		}

		err = o.vectors.StoreVectors(ctx, &storage.VectorWrite{
			DocumentId: doc.Id,
			UserId:     doc.UserId,
			Filename:   upload.Filename,
			SourceType: doc.SourceType,
			Chunks:     batch,
			Embeddings: outcome.Vectors,
		})
		if err != nil {
			// The write is all-or-nothing, so the whole batch failed.
			o.logger.Error("store embed batch", "documentId", doc.Id, "batch", i, "err", err)
			doc.ChunksFailed += len(batch)
			continue
		}
		doc.ChunksProcessed += len(batch)
	}
}

func (o *Orchestrator) logBatchFailure(doc *core.Document, batch int, done *core.Job, err error) {
	if err != nil {
		o.logger.Warn("embed batch not collected", "documentId", doc.Id, "batch", batch, "err", err)
		return
	}
	o.logger.Warn("embed batch failed", "documentId", doc.Id, "batch", batch, "jobError", done.Error)
}

func (o *Orchestrator) makeBatches(chunks []core.Chunk) [][]core.Chunk {
	var batches [][]core.Chunk
	for start := 0; start < len(chunks); start += o.batchSize {
		end := start + o.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[start:end])
	}
	return batches
}

func (o *Orchestrator) transition(ctx context.Context, doc *core.Document, status core.DocumentStatus) error {
	doc.Status = status
	if err := o.documents.UpdateDocument(ctx, doc); err != nil {
		return fmt.Errorf("transition to %s: %w", status, err)
	}
	return nil
}

// fail records a failed verdict on the document row and returns it as a
// structured result.
func (o *Orchestrator) fail(ctx context.Context, doc *core.Document, cause error) (*core.IngestResult, error) {
	o.logger.Warn("document failed", "documentId", doc.Id, "err", cause)
	doc.Status = core.DocumentStatusFailed
	if err := o.documents.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("record failure (%v): %w", cause, err)
	}
	return &core.IngestResult{
		DocumentId:  doc.Id,
		Status:      core.DocumentStatusFailed,
		TotalChunks: doc.TotalChunks,
	}, nil
}
