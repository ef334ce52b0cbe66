// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// Sentinel Errors
// =============================================================================

// Sentinel errors for analysis sessions.
var (
	// ErrEmptyDocument indicates the request carried no analyzable clauses.
	// This is the only per-session configuration error fatal to the call.
	ErrEmptyDocument = errors.New("document has no analyzable paragraphs")

	// ErrInvalidBatchSize indicates a non-positive batch size.
	ErrInvalidBatchSize = errors.New("batch size must be positive")

	// ErrInvalidRetryConfig indicates an unusable retry configuration.
	ErrInvalidRetryConfig = errors.New("invalid retry configuration")

	// ErrSessionNotFound indicates an unknown session ID.
	ErrSessionNotFound = errors.New("analysis session not found")

	// ErrSessionNotComplete indicates a result query on a session that has
	// not reached its terminal state yet.
	ErrSessionNotComplete = errors.New("analysis session not complete")

	// ErrSessionRunning indicates a destructive operation on a session that
	// is still running.
	ErrSessionRunning = errors.New("analysis session still running")
)

// =============================================================================
// Evaluator Error Classification
// =============================================================================

// transientError marks an evaluator failure worth retrying: timeouts, rate
// limits, transport hiccups.
type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return fmt.Sprintf("transient evaluator error: %v", e.err)
}

func (e *transientError) Unwrap() error { return e.err }

// malformedError marks an evaluator response the engine could not use:
// unparseable payload, schema violation. Terminal for the batch, no retry.
type malformedError struct {
	err error
}

func (e *malformedError) Error() string {
	return fmt.Sprintf("malformed evaluator response: %v", e.err)
}

func (e *malformedError) Unwrap() error { return e.err }

// Transient wraps err as a retryable evaluator failure.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Malformed wraps err as a terminal, non-retryable evaluator failure.
func Malformed(err error) error {
	if err == nil {
		return nil
	}
	return &malformedError{err: err}
}

// IsTransient reports whether err is (or wraps) a transient evaluator
// failure. Only transient failures are retried.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// IsMalformed reports whether err is (or wraps) a malformed-response
// failure.
func IsMalformed(err error) bool {
	var m *malformedError
	return errors.As(err, &m)
}
