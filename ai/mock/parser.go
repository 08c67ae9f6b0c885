package mock

import (
	"context"
	"sync/atomic"

	"github.com/polisight/vectra/ai"
)

// Parser is a test double for ai.Parser.
type Parser struct {
	// ParseFunc is called by Parse if set.
	// If nil, returns the document bytes interpreted as UTF-8 text.
	ParseFunc func(ctx context.Context, req ai.ParseRequest) (*ai.ParseResult, error)

	callCount atomic.Int64
}

// NewParser creates a mock parser with default pass-through behavior.
// Returns the concrete type to allow test assertions.
func NewParser() *Parser {
	return &Parser{}
}

// Parse returns the request bytes as extracted text unless a custom
// ParseFunc is injected.
func (m *Parser) Parse(ctx context.Context, req ai.ParseRequest) (*ai.ParseResult, error) {
	m.callCount.Add(1)

	if m.ParseFunc != nil {
		return m.ParseFunc(ctx, req)
	}

	return &ai.ParseResult{
		Text: string(req.FileBytes),
		Metadata: map[string]string{
			"filename":     req.Filename,
			"content_type": req.ContentType,
		},
	}, nil
}

// CallCount returns the number of times Parse was called.
func (m *Parser) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *Parser) Reset() {
	m.callCount.Store(0)
	m.ParseFunc = nil
}
