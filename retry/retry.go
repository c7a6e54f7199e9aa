// Package retry provides the bounded retry executor used when re-running
// work a multiple-retry resolution rule has scheduled.
package retry

import (
	"context"
	"time"

	merrors "github.com/c0deZ3R0/go-migrate-kit/errors"
)

// Config configures the retry behavior.
type Config struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	// Ignored when Infinite is set.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration

	// Multiplier is the factor by which the delay increases.
	Multiplier float64

	// Infinite retries until the operation succeeds, a non-retryable error
	// occurs, or the context is cancelled. It mirrors the "Infinite" value
	// of the multiple-retry resolution action and must be opted into
	// explicitly.
	Infinite bool
}

// DefaultConfig returns the retry defaults: 5 attempts, 100ms initial delay
// doubling up to 30s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

func (c *Config) setDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Multiplier < 1 {
		c.Multiplier = 2.0
	}
}

type exponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
}

func (eb *exponentialBackoff) nextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(eb.initialDelay)
	for i := 0; i < attempt; i++ {
		delay *= eb.multiplier
	}
	result := time.Duration(delay)
	if result > eb.maxDelay {
		result = eb.maxDelay
	}
	return result
}

// Do runs operation until it succeeds, returns a non-retryable error, the
// attempt budget is exhausted, or ctx is cancelled. Retryability is decided
// by errors.IsRetryable, so storage failures retry while validation failures
// fail fast.
func Do(ctx context.Context, config Config, operation func(ctx context.Context) error) error {
	config.setDefaults()
	eb := &exponentialBackoff{
		initialDelay: config.InitialDelay,
		maxDelay:     config.MaxDelay,
		multiplier:   config.Multiplier,
	}

	// Initial attempt, no delay
	err := operation(ctx)
	if err == nil {
		return nil
	}
	if !merrors.IsRetryable(err) {
		return err
	}

	// Starting from 1 since we already did attempt 0
	for attempt := 1; config.Infinite || attempt < config.MaxAttempts; attempt++ {
		delay := eb.nextDelay(attempt - 1)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		err = operation(ctx)
		if err == nil {
			return nil
		}
		if !merrors.IsRetryable(err) {
			return err
		}
	}

	return err
}
