package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tr181-tools/tr181-go/pkg/faults"
)

// Retry defaults.
const (
	// DefaultMaxAttempts is the default number of attempts.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the default initial backoff delay.
	DefaultBaseDelay = 1 * time.Second

	// DefaultMaxDelay is the default cap on backoff delays.
	DefaultMaxDelay = 10 * time.Second
)

// RetryConfig controls the behavior of Do.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration

	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration

	// BackoffFactor multiplies the delay after each attempt.
	BackoffFactor float64

	// Jitter is the symmetric jitter fraction. Zero uses JitterFraction;
	// negative disables jitter.
	Jitter float64
}

// withDefaults normalizes zero fields.
func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.BackoffFactor <= 1 {
		c.BackoffFactor = BackoffMultiplier
	}
	return c
}

// Do calls op up to cfg.MaxAttempts times with exponential backoff between
// attempts. It stops early when the context is cancelled or when op returns
// an error the fault taxonomy marks non-retryable (anything outside the
// connection, timeout and protocol categories).
//
// After exhausting all attempts, the last error is surfaced wrapped with
// attempt context.
func Do(ctx context.Context, cfg RetryConfig, op func() error) error {
	cfg = cfg.withDefaults()

	backoff := NewBackoffWithConfig(BackoffConfig{
		Initial:    cfg.BaseDelay,
		Max:        cfg.MaxDelay,
		Multiplier: cfg.BackoffFactor,
		Jitter:     cfg.Jitter,
	})

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if !faults.Retryable(lastErr) {
			return lastErr
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		if err := Sleep(ctx, backoff.Next()); err != nil {
			return err
		}
	}

	var f *faults.Fault
	if errors.As(lastErr, &f) {
		return f.WithAttempts(cfg.MaxAttempts, cfg.MaxAttempts)
	}
	return fmt.Errorf("after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// Sleep waits for the given duration or until the context is done,
// whichever comes first. Returns ctx.Err() if the context was cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}
}
