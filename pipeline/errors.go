package pipeline

import "errors"

var (
	// ErrQueueRequired indicates orchestrator construction without a queue.
	ErrQueueRequired = errors.New("job queue is required")

	// ErrDocumentsRequired indicates a missing document repository.
	ErrDocumentsRequired = errors.New("document repository is required")

	// ErrVectorsRequired indicates a missing vector repository.
	ErrVectorsRequired = errors.New("vector repository is required")

	// ErrEmptyUpload indicates an upload with no bytes.
	ErrEmptyUpload = errors.New("upload cannot be empty")

	// ErrNotReprocessable indicates a reprocess request for a document
	// that was never ingested.
	ErrNotReprocessable = errors.New("document has not been ingested before")
)
