package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/polisight/vectra/ratelimit"
	"github.com/polisight/vectra/retry"
)

// DefaultRetryPolicy is the retry behavior applied to external calls:
// bounded exponential backoff, capped, and no retry on permanent input
// errors. A rate-limit response's advertised retry-after overrides the
// computed delay (see retry.RetryAfterError).
func DefaultRetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Retryable:   func(err error) bool { return !IsPermanent(err) },
	}
}

// ThrottledParser wraps a Parser with a process-wide rate limiter and
// retry policy. Every attempt counts as a call start for spacing
// purposes, and in-flight attempts never exceed the limiter's cap.
type ThrottledParser struct {
	inner   Parser
	limiter *ratelimit.Limiter
	policy  retry.Policy
	logger  *slog.Logger
}

var _ Parser = (*ThrottledParser)(nil)

// NewThrottledParser wraps parser with the limiter and policy.
func NewThrottledParser(parser Parser, limiter *ratelimit.Limiter, policy retry.Policy) *ThrottledParser {
	return &ThrottledParser{
		inner:   parser,
		limiter: limiter,
		policy:  policy,
		logger:  slog.Default().With("component", "throttled-parser"),
	}
}

// Parse submits the document through the gate with retry. Exhausting
// retries returns the final error; the caller judges the failure, the
// process never crashes.
func (p *ThrottledParser) Parse(ctx context.Context, req ParseRequest) (*ParseResult, error) {
	var result *ParseResult
	err := retry.Do(ctx, p.policy, func() error {
		if err := p.limiter.Acquire(ctx); err != nil {
			return err
		}
		defer p.limiter.Release()

		var err error
		result, err = p.inner.Parse(ctx, req)
		return err
	})
	if err != nil {
		p.logger.Error("parse failed after retries", "filename", req.Filename, "err", err)
		return nil, fmt.Errorf("parsing %s: %w", req.Filename, err)
	}
	return result, nil
}

// ThrottledEmbedder wraps an Embedder with a process-wide rate limiter
// and retry policy.
type ThrottledEmbedder struct {
	inner   Embedder
	limiter *ratelimit.Limiter
	policy  retry.Policy
	logger  *slog.Logger
}

var _ Embedder = (*ThrottledEmbedder)(nil)

// NewThrottledEmbedder wraps embedder with the limiter and policy.
func NewThrottledEmbedder(embedder Embedder, limiter *ratelimit.Limiter, policy retry.Policy) *ThrottledEmbedder {
	return &ThrottledEmbedder{
		inner:   embedder,
		limiter: limiter,
		policy:  policy,
		logger:  slog.Default().With("component", "throttled-embedder"),
	}
}

// EmbedText generates an embedding for a single text through the gate.
func (e *ThrottledEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := retry.Do(ctx, e.policy, func() error {
		if err := e.limiter.Acquire(ctx); err != nil {
			return err
		}
		defer e.limiter.Release()

		var err error
		vector, err = e.inner.EmbedText(ctx, text)
		return err
	})
	if err != nil {
		e.logger.Error("embedding failed after retries", "err", err)
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	return vector, nil
}

// EmbedTexts generates embeddings for a batch through the gate. One
// batch is one external call start.
func (e *ThrottledEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := retry.Do(ctx, e.policy, func() error {
		if err := e.limiter.Acquire(ctx); err != nil {
			return err
		}
		defer e.limiter.Release()

		var err error
		vectors, err = e.inner.EmbedTexts(ctx, texts)
		return err
	})
	if err != nil {
		e.logger.Error("batch embedding failed after retries", "count", len(texts), "err", err)
		return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
	}
	return vectors, nil
}
