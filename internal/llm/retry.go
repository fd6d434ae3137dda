package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryClient wraps a Client with the completion retry contract:
// each attempt gets its own timeout, a timed-out attempt is abandoned
// rather than waited on, and backoff doubles each retry.
type RetryClient struct {
	inner       Client
	timeout     time.Duration
	maxAttempts int
	logger      *zap.Logger

	// sleep is swappable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryClient wraps inner with the retry policy.
func NewRetryClient(inner Client, timeout time.Duration, maxAttempts int, logger *zap.Logger) *RetryClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryClient{
		inner:       inner,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		logger:      logger,
		sleep:       sleepCtx,
	}
}

type completion struct {
	text string
	err  error
}

// Complete runs attempts until one succeeds, the attempts are
// exhausted, or the parent context is done. A hung attempt keeps
// running in its goroutine but is never waited on again; the buffered
// channel lets it finish and be collected.
func (r *RetryClient) Complete(ctx context.Context, req Request) (string, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			r.logger.Warn("Retrying LLM call",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			if err := r.sleep(ctx, backoff); err != nil {
				return "", err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		done := make(chan completion, 1)
		go func() {
			text, err := r.inner.Complete(attemptCtx, req)
			done <- completion{text, err}
		}()

		select {
		case res := <-done:
			cancel()
			if res.err == nil {
				return res.text, nil
			}
			// Malformed output is a loud failure, not a flaky
			// transport; retrying the same prompt hides a bug.
			if errors.Is(res.err, ErrValidation) {
				return "", res.err
			}
			lastErr = res.err
		case <-attemptCtx.Done():
			cancel()
			lastErr = fmt.Errorf("llm attempt %d timed out after %s: %w",
				attempt+1, r.timeout, attemptCtx.Err())
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
		}
	}
	return "", fmt.Errorf("llm call failed after %d attempts: %w", r.maxAttempts, lastErr)
}

// Close closes the wrapped client.
func (r *RetryClient) Close() error {
	return r.inner.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
