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
	"fmt"

	"github.com/polisight/vectra/ai"
	"github.com/polisight/vectra/core"
	"github.com/polisight/vectra/jobs"
)

// ParsePayload is the JSON body of a parse job. File bytes ride along
// base64-encoded so the persisted job is self-contained and survives a
// restart.
type ParsePayload struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	FileBytes   []byte `json:"file_bytes"`
}

// ParseOutcome is the JSON result of a completed parse job.
type ParseOutcome struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// EmbedPayload is the JSON body of an embed job: one batch of chunk
// texts.
type EmbedPayload struct {
	Texts []string `json:"texts"`
}

// EmbedOutcome is the JSON result of a completed embed job.
type EmbedOutcome struct {
	Vectors [][]float32 `json:"vectors"`
}

// NewParseHandler returns the job handler that drives the (throttled)
// parsing client.
func NewParseHandler(parser ai.Parser) jobs.Handler {
	return func(ctx context.Context, job *core.Job) ([]byte, error) {
		var payload ParsePayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode parse payload: %w", err)
		}

		result, err := parser.Parse(ctx, ai.ParseRequest{
			FileBytes:   payload.FileBytes,
			Filename:    payload.Filename,
			ContentType: payload.ContentType,
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(ParseOutcome{Text: result.Text, Metadata: result.Metadata})
	}
}

// NewEmbedHandler returns the job handler that drives the (throttled)
// embedding client for one batch.
func NewEmbedHandler(embedder ai.Embedder) jobs.Handler {
	return func(ctx context.Context, job *core.Job) ([]byte, error) {
		var payload EmbedPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode embed payload: %w", err)
		}
		if len(payload.Texts) == 0 {
			return nil, core.ErrEmptyPayload
		}

		vectors, err := embedder.EmbedTexts(ctx, payload.Texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(payload.Texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(payload.Texts))
		}
		return json.Marshal(EmbedOutcome{Vectors: vectors})
	}
}
