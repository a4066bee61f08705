// Package retry implements the request/retry/backoff wrapper shared by every
// component that talks to a remote service.
package retry

import (
	"context"
	"errors"
	"log"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultTimeout    = 30 * time.Second
	defaultInterval   = time.Second
	maxRetriesCap     = 10
)

// AttemptFunc performs one remote call under the per-attempt context and
// returns the response content.
type AttemptFunc func(ctx context.Context) (string, error)

// Caller retries an AttemptFunc with exponential backoff. A single Caller is
// reused across all cases in a batch; it carries no per-call state.
type Caller struct {
	maxRetries int
	timeout    time.Duration
	interval   time.Duration
	logger     *log.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs a Caller. maxRetries is the number of retries after the
// first attempt; timeout bounds each attempt; interval is both the backoff
// base and the pacing delay after a successful call.
func New(maxRetries int, timeout, interval time.Duration, logger *log.Logger) *Caller {
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	if maxRetries > maxRetriesCap {
		maxRetries = maxRetriesCap
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if interval < 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Caller{
		maxRetries: maxRetries,
		timeout:    timeout,
		interval:   interval,
		logger:     logger,
		sleep:      sleepWithContext,
	}
}

// Call runs attempt up to maxRetries+1 times. It returns the first
// successful content together with the number of retries spent. After the
// final failed attempt it returns an empty content and the last error so the
// caller decides degradation policy; it never panics and never aborts the
// surrounding batch.
func (c *Caller) Call(ctx context.Context, name string, attempt AttemptFunc) (string, int, error) {
	if c == nil {
		return "", 0, errors.New("retry: nil caller")
	}
	if ctx == nil {
		return "", 0, errors.New("retry: nil context")
	}
	if attempt == nil {
		return "", 0, errors.New("retry: nil attempt")
	}

	var lastErr error
	attempts := c.maxRetries + 1

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return "", i, lastErr
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		content, err := attempt(attemptCtx)
		cancel()

		if err == nil && content != "" {
			// Pacing delay after a successful call; skipped on failure paths.
			// An interrupted pacing sleep does not void the result in hand.
			_ = c.sleep(ctx, c.interval)
			return content, i, nil
		}

		if err == nil {
			err = errors.New("empty response")
		}
		lastErr = err
		c.logger.Printf("warn: %s: attempt %d/%d failed: %v", name, i+1, attempts, err)

		if i == attempts-1 {
			break
		}
		if serr := c.sleep(ctx, backoff(c.interval, i)); serr != nil {
			return "", i + 1, lastErr
		}
	}

	return "", c.maxRetries, lastErr
}

// backoff computes interval * 2^attempt.
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 || attempt < 0 {
		return 0
	}
	return base * time.Duration(1<<attempt)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
