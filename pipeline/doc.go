// Package pipeline orchestrates document vectorization: deduplication
// by content hash, parsing through the job queue, chunking, batched
// embedding, and encrypted vector storage.
//
// Each document moves through uploading → parsing → chunking →
// embedding → storing → completed or failed. A document fails only
// when parsing fails or yields too little text; embedding batches fail
// independently and the document still completes with partial coverage
// and the failure counts surfaced to the caller.
package pipeline
