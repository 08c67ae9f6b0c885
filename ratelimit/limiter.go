package ratelimit

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates calls to an external service. It enforces two conditions
// before a call may start: at most MaxConcurrent calls in flight, and a
// minimum interval between successive call starts. Both are process-wide
// across all logical callers.
type Limiter struct {
	slots    chan struct{}
	spacing  *rate.Limiter
	inFlight atomic.Int64
}

var (
	// ErrInvalidConcurrency indicates a non-positive concurrency cap.
	ErrInvalidConcurrency = errors.New("max concurrent must be greater than zero")
)

// NewLimiter creates a limiter allowing maxConcurrent in-flight calls
// with at least minInterval between call starts. A zero minInterval
// disables spacing.
func NewLimiter(maxConcurrent int, minInterval time.Duration) (*Limiter, error) {
	if maxConcurrent <= 0 {
		return nil, ErrInvalidConcurrency
	}

	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}

	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		spacing: rate.NewLimiter(limit, 1),
	}, nil
}

// Acquire blocks until a concurrency slot is free and the spacing
// interval since the previous call start has elapsed. Callers must
// Release exactly once per successful Acquire.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	// Spacing is checked while holding the slot so call starts stay
	// separated even when slots free up in bursts.
	if err := l.spacing.Wait(ctx); err != nil {
		<-l.slots
		return err
	}

	l.inFlight.Add(1)
	return nil
}

// Release frees a concurrency slot.
func (l *Limiter) Release() {
	l.inFlight.Add(-1)
	<-l.slots
}

// InFlight returns the number of calls currently in flight.
func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}

// MaxConcurrent returns the concurrency cap.
func (l *Limiter) MaxConcurrent() int {
	return cap(l.slots)
}
