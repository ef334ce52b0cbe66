// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig configures per-batch retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// InitialBackoff is the wait before the first retry. Default: 1s
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between retries. Default: 30s
	MaxBackoff time.Duration

	// BackoffFactor is the exponential multiplier. Default: 2.0
	BackoffFactor float64

	// JitterFactor is the maximum jitter as a fraction of the backoff
	// (0-1). Prevents thundering herd against the evaluator. Default: 0.2
	JitterFactor float64
}

// DefaultRetryConfig returns sensible defaults for evaluator retries.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		JitterFactor:   0.2,
	}
}

// Validate checks the retry configuration.
func (c RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1", ErrInvalidRetryConfig)
	}
	if c.InitialBackoff <= 0 || c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("%w: backoff bounds must satisfy 0 < initial <= max", ErrInvalidRetryConfig)
	}
	if c.BackoffFactor < 1.0 {
		return fmt.Errorf("%w: backoff factor must be at least 1.0", ErrInvalidRetryConfig)
	}
	return nil
}

// RetryableFunc is one attempt against the evaluator. Return nil on
// success; wrap failures with Transient or Malformed so Retry can decide
// whether another attempt is worthwhile.
type RetryableFunc func(ctx context.Context, attempt int) error

// Retry executes fn with exponential backoff, retrying only transient
// failures (per IsTransient). Malformed responses and other terminal
// errors return immediately.
//
// Returns the number of attempts made and the last error (nil on success).
func Retry(ctx context.Context, config RetryConfig, fn RetryableFunc) (int, error) {
	backoff := config.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if !IsTransient(err) {
			return attempt, err
		}
		if attempt == config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(withJitter(backoff, config.JitterFactor)):
		}

		backoff = nextBackoff(backoff, config.BackoffFactor, config.MaxBackoff)
	}

	return config.MaxAttempts, lastErr
}

// withJitter spreads the backoff across [base*(1-j), base*(1+j)].
func withJitter(base time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return base
	}
	jitter := (rand.Float64()*2 - 1) * jitterFactor
	return time.Duration(float64(base) * (1.0 + jitter))
}

func nextBackoff(current time.Duration, factor float64, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * factor)
	if next > max {
		return max
	}
	return next
}
