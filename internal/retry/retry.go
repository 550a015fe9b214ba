// Package retry runs operations with bounded exponential-backoff retries.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/scoremilk/chat-gateway/pkg/logger"
)

const (
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries = 3
	// BaseDelay is the delay before the first retry.
	BaseDelay = 1000 * time.Millisecond
	// MaxDelay caps the exponential backoff.
	MaxDelay = 10 * time.Second
)

// Executor retries failing operations with exponential backoff.
type Executor struct {
	log   logger.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an Executor logging through the given logger.
func NewExecutor(log logger.Logger) *Executor {
	return &Executor{
		log:   log,
		sleep: sleepCtx,
	}
}

// NewExecutorWithSleep creates an Executor with a custom sleep function.
// Used in tests to avoid real backoff delays.
func NewExecutorWithSleep(log logger.Logger, sleep func(ctx context.Context, d time.Duration) error) *Executor {
	return &Executor{log: log, sleep: sleep}
}

// BackoffDelay computes the delay before retrying after the given 0-indexed
// failed attempt: min(BaseDelay * 2^attempt, MaxDelay).
func BackoffDelay(attempt int) time.Duration {
	delay := BaseDelay << attempt
	if delay > MaxDelay || delay <= 0 {
		return MaxDelay
	}
	return delay
}

// Do runs op, retrying on failure up to MaxRetries times. The last error is
// returned after the final attempt; intermediate failures are logged as
// warnings with the computed delay, the terminal failure as an error.
func Do[T any](ctx context.Context, e *Executor, label string, op func(ctx context.Context) (T, error)) (T, error) {
	var lastErr error
	var zero T

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == MaxRetries {
			e.log.Error("operation failed after all attempts",
				logger.StringField("operation", label),
				logger.IntField("attempts", MaxRetries+1),
				logger.ErrorField(lastErr))
			break
		}

		delay := BackoffDelay(attempt)
		e.log.Warn("operation failed, retrying",
			logger.StringField("operation", label),
			logger.IntField("attempt", attempt+1),
			logger.IntField("max_attempts", MaxRetries+1),
			logger.DurationField("retry_in", delay),
			logger.ErrorField(lastErr))

		if err := e.sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("%s: %w", label, err)
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", label, MaxRetries+1, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
