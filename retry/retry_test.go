package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: 10 * time.Millisecond}
}

func TestDo_Success(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		return nil
	}

	err := Do(context.Background(), testPolicy(3), operation)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestDo_EventualSuccess(t *testing.T) {
	attempts := 0
	operation := func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	err := Do(context.Background(), testPolicy(5), operation)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestDo_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	operation := func() error {
		attempts++
		return expectedErr
	}

	err := Do(context.Background(), testPolicy(3), operation)
	require.Error(t, err)
	assert.Equal(t, expectedErr, err, "should return the original error")
	assert.Equal(t, 3, attempts, "should attempt exactly MaxAttempts times")
}

func TestDo_NonRetryableFailsFast(t *testing.T) {
	permanent := errors.New("unsupported content type")
	attempts := 0

	policy := Policy{
		MaxAttempts: 5,
		BaseDelay:   10 * time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, permanent) },
	}

	err := Do(context.Background(), policy, func() error {
		attempts++
		return permanent
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "non-retryable errors must not be retried")
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	operation := func() error {
		attempts++
		if attempts == 2 {
			cancel() // Cancel after second attempt
		}
		return errors.New("error")
	}

	err := Do(ctx, testPolicy(10), operation)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2, "should stop when context is canceled")
}

func TestDo_RetryAfterTakesPrecedence(t *testing.T) {
	attempts := 0
	start := time.Now()

	policy := Policy{MaxAttempts: 3, BaseDelay: 1 * time.Millisecond}
	err := Do(context.Background(), policy, func() error {
		attempts++
		if attempts == 1 {
			return &RetryAfterError{Err: errors.New("rate limited"), After: 60 * time.Millisecond}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond,
		"advertised retry-after must override the computed backoff")
}

func TestDo_MaxDelayCapsBackoff(t *testing.T) {
	policy := Policy{MaxAttempts: 5, BaseDelay: 10 * time.Millisecond, MaxDelay: 15 * time.Millisecond}

	// 4th attempt would be 10ms * 2^3 = 80ms uncapped
	delay := policy.delay(4, errors.New("error"))
	assert.Equal(t, 15*time.Millisecond, delay)
}

func TestDo_ExponentialBackoff(t *testing.T) {
	attempts := 0
	var delays []time.Duration
	lastTime := time.Now()

	operation := func() error {
		attempts++
		if attempts > 1 {
			delays = append(delays, time.Since(lastTime))
		}
		lastTime = time.Now()
		if attempts < 4 {
			return errors.New("error")
		}
		return nil
	}

	err := Do(context.Background(), testPolicy(5), operation)
	require.NoError(t, err)
	assert.Equal(t, 4, attempts)

	require.Len(t, delays, 3, "should have 3 delays")

	// Allow some tolerance for timing variance
	assert.Greater(t, delays[1], delays[0], "second delay should be greater than first")
	assert.Greater(t, delays[2], delays[1], "third delay should be greater than second")
}

func TestDo_ZeroMaxAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), testPolicy(0), func() error {
		attempts++
		return errors.New("error")
	})
	require.ErrorIs(t, err, ErrInvalidMaxAttempts)
	assert.Equal(t, 0, attempts)
}

func TestRetryAfterError_Unwrap(t *testing.T) {
	inner := errors.New("too many requests")
	err := &RetryAfterError{Err: inner, After: time.Second}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "retry after")
}
