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

import "errors"

// Domain validation errors
var (
	// ErrInvalidJob indicates a Job failed validation.
	ErrInvalidJob = errors.New("invalid job")

	// ErrInvalidJobType indicates an unrecognized JobType value.
	ErrInvalidJobType = errors.New("invalid job type")

	// ErrInvalidJobStatus indicates an unrecognized JobStatus value.
	ErrInvalidJobStatus = errors.New("invalid job status")

	// ErrEmptyPayload indicates the job Payload field is empty.
	ErrEmptyPayload = errors.New("payload cannot be empty")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyContentHash indicates the document ContentHash field is empty.
	ErrEmptyContentHash = errors.New("content hash cannot be empty")

	// ErrInvalidRecord indicates a VectorRecord failed validation.
	ErrInvalidRecord = errors.New("invalid vector record")

	// ErrEmptyEmbedding indicates the record Embedding field is empty.
	ErrEmptyEmbedding = errors.New("embedding cannot be empty")

	// ErrPartialEncryption indicates a record referenced an encryption key
	// without carrying both ciphertexts.
	ErrPartialEncryption = errors.New("record with encryption key must have encrypted text and metadata")
)
