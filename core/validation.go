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


package core

import "fmt"

// ValidateJob validates a Job according to domain rules.
//
// Validation rules:
//   - Type must be a known JobType
//   - Payload must not be empty
//   - a failed job must carry a non-empty error string
//
// NOT validated (populated by the queue):
//   - ID (0 is valid from database sequences)
//   - Result (empty until the job completes)
func ValidateJob(job *Job) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}

	if err := ValidateJobType(job.Type); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	if len(job.Payload) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyPayload)
	}

	if job.Status == JobStatusFailed && job.Error == "" {
		return fmt.Errorf("%w: failed job requires an error string", ErrInvalidJob)
	}

	return nil
}

// ValidateJobType validates that a JobType has a valid value.
func ValidateJobType(t JobType) error {
	if t != JobTypeParse && t != JobTypeEmbed {
		return fmt.Errorf("%w: value %d", ErrInvalidJobType, t)
	}
	return nil
}

// ValidateJobStatus validates that a JobStatus has a valid value.
func ValidateJobStatus(s JobStatus) error {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return nil
	}
	return fmt.Errorf("%w: value %d", ErrInvalidJobStatus, s)
}

// ValidateDocument validates a Document according to domain rules.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.ContentHash == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContentHash)
	}

	return nil
}

// ValidateVectorRecord validates a VectorRecord according to domain rules.
//
// Enforces the all-or-nothing encryption invariant: a record referencing
// an encryption key must carry both encrypted text and encrypted metadata.
func ValidateVectorRecord(record *VectorRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if len(record.Embedding) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyEmbedding)
	}

	if record.EncryptionKeyId != nil {
		if len(record.EncryptedText) == 0 || len(record.EncryptedMetadata) == 0 {
			return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrPartialEncryption)
		}
	}

	return nil
}
