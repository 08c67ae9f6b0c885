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


package docparse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/polisight/vectra/ai"
	"github.com/polisight/vectra/retry"
	"github.com/tidwall/gjson"
)

// ErrEmptyDocument indicates a parse request with no bytes.
var ErrEmptyDocument = errors.New("document bytes cannot be empty")

// Client implements ai.Parser over the parsing service's HTTP API.
//
// Request: multipart upload of the file bytes plus filename and content
// type. Response body: {"success": bool, "text": string,
// "metadata": object, "error": string}.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

var _ ai.Parser = (*Client)(nil)

// NewClient creates a parsing-service client from the configuration.
func NewClient(config *ai.Config) (*Client, error) {
	if config.ParserHost == "" {
		return nil, errors.New("ai config: ParserHost is required")
	}
	config.Normalize()

	http := resty.New().
		SetBaseURL(config.ParserHost).
		SetTimeout(2 * time.Minute)
	if config.ParserAPIKey != "" {
		http.SetAuthToken(config.ParserAPIKey)
	}

	return &Client{
		http:   http,
		logger: slog.Default().With("component", "docparse-client"),
	}, nil
}

// Parse submits a document and returns the extracted text.
//
// Error classification drives the caller's retry decision: transport
// errors and 5xx responses are plain (retryable) errors, 429 carries the
// service's Retry-After value, and 4xx input rejections are permanent.
func (c *Client) Parse(ctx context.Context, req ai.ParseRequest) (*ai.ParseResult, error) {
	if len(req.FileBytes) == 0 {
		return nil, &ai.PermanentError{Reason: ErrEmptyDocument.Error()}
	}

	c.logger.Debug("submitting document for parsing",
		"filename", req.Filename, "bytes", len(req.FileBytes))

	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", req.Filename, bytes.NewReader(req.FileBytes)).
		SetFormData(map[string]string{
			"filename":     req.Filename,
			"content_type": req.ContentType,
		}).
		Post("/parse")
	if err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}

	if err := c.classifyStatus(resp); err != nil {
		return nil, err
	}

	body := resp.Body()
	if !gjson.GetBytes(body, "success").Bool() {
		// The service rejected the input; retrying cannot fix it.
		reason := gjson.GetBytes(body, "error").String()
		if reason == "" {
			reason = "parsing service reported failure"
		}
		return nil, &ai.PermanentError{Reason: reason}
	}

	result := &ai.ParseResult{
		Text:     gjson.GetBytes(body, "text").String(),
		Metadata: map[string]string{},
	}
	gjson.GetBytes(body, "metadata").ForEach(func(key, value gjson.Result) bool {
		result.Metadata[key.String()] = value.String()
		return true
	})

	c.logger.Debug("document parsed", "filename", req.Filename, "textLength", len(result.Text))
	return result, nil
}

// classifyStatus maps HTTP status codes onto the error taxonomy.
func (c *Client) classifyStatus(resp *resty.Response) error {
	code := resp.StatusCode()
	switch {
	case code == http.StatusOK:
		return nil

	case code == http.StatusTooManyRequests:
		after := retryAfter(resp)
		c.logger.Warn("parsing service rate limited", "retryAfter", after)
		return &retry.RetryAfterError{
			Err:   fmt.Errorf("parsing service returned %d", code),
			After: after,
		}

	case code >= 500:
		return fmt.Errorf("parsing service returned %d: %s", code, resp.String())

	default:
		// Remaining 4xx: the input itself is the problem.
		return &ai.PermanentError{
			Reason: fmt.Sprintf("parsing service rejected document (%d): %s", code, resp.String()),
		}
	}
}

// retryAfter reads the Retry-After header (seconds). The advertised
// value is honored verbatim by the retry policy.
func retryAfter(resp *resty.Response) time.Duration {
	header := resp.Header().Get("Retry-After")
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
