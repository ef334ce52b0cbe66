// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package evaluator adapts a chat-completion backend into the engine's
// Evaluator capability: it builds the per-batch prompts, calls the
// backend, and parses the response into raw findings.
package evaluator

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/clausewise/clausewise/services/analyzer/datatypes"
	"github.com/clausewise/clausewise/services/analyzer/engine"
	"github.com/clausewise/clausewise/services/llm"
)

// =============================================================================
// LLM Evaluator
// =============================================================================

// Config controls the evaluator's sampling parameters.
type Config struct {
	// Temperature for analysis calls. Low by default: risk analysis wants
	// consistency, not creativity.
	Temperature float32

	// MaxTokens per response. Defaults to 8192.
	MaxTokens int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{Temperature: 0.2, MaxTokens: 8192}
}

// LLMEvaluator evaluates clause batches through an LLM backend.
//
// # Thread Safety
//
// Safe for concurrent use; all state is read-only after construction.
type LLMEvaluator struct {
	client llm.LLMClient
	config Config
	logger *slog.Logger
}

var _ engine.Evaluator = (*LLMEvaluator)(nil)

// NewLLMEvaluator wraps a backend client.
func NewLLMEvaluator(client llm.LLMClient, config Config) *LLMEvaluator {
	if config.MaxTokens <= 0 {
		config.MaxTokens = 8192
	}
	return &LLMEvaluator{
		client: client,
		config: config,
		logger: slog.Default(),
	}
}

// EvaluateBatch implements engine.Evaluator.
//
// Error classification drives the orchestrator's retry decision:
//   - transport failures, timeouts, and retryable API statuses (429, 5xx)
//     come back wrapped as transient;
//   - a response unparseable as findings comes back as malformed, which is
//     terminal for the batch: repeating the same prompt against the same
//     model is not expected to change the shape of the answer;
//   - permanent API errors (auth, bad request) come back unwrapped and
//     fail the batch on the spot.
func (e *LLMEvaluator) EvaluateBatch(ctx context.Context, bc engine.BatchContext) (*datatypes.RawFindings, error) {
	system := BuildSystemPrompt(bc.Document)
	user := BuildBatchPrompt(bc)

	temp := e.config.Temperature
	maxTokens := e.config.MaxTokens
	params := llm.GenerationParams{
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	}

	text, err := e.client.Complete(ctx, system, user, params)
	if err != nil {
		return nil, classifyCallError(err)
	}

	findings, err := ParseRawFindings(text)
	if err != nil {
		e.logger.Warn("unparseable evaluator response",
			"batch_id", bc.Batch.BatchID,
			"response_length", len(text),
			"error", err)
		return nil, engine.Malformed(err)
	}
	return findings, nil
}

func classifyCallError(err error) error {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Retryable() {
			return engine.Transient(err)
		}
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return engine.Transient(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return engine.Transient(err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	// Unknown failure mode from the backend; treat as transient so a
	// flaky connection does not cost the batch.
	return engine.Transient(err)
}
