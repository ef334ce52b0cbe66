// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evaluator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clausewise/clausewise/services/analyzer/datatypes"
	"github.com/clausewise/clausewise/services/analyzer/engine"
	"github.com/clausewise/clausewise/services/llm"
)

// stubClient returns a canned completion and records what it was asked.
type stubClient struct {
	response string
	err      error

	calls  int
	system string
	user   string
	params llm.GenerationParams
}

func (c *stubClient) Complete(ctx context.Context, system, user string, params llm.GenerationParams) (string, error) {
	c.calls++
	c.system = system
	c.user = user
	c.params = params
	return c.response, c.err
}

func batchContext() engine.BatchContext {
	return engine.BatchContext{
		Batch: &datatypes.Batch{
			BatchID: 1,
			Clauses: []datatypes.ClauseRecord{{ParaID: "p-1", Text: "Clause text."}},
		},
		Document: datatypes.DocumentContext{
			ContractType:   "psa",
			Representation: "buyer",
			Aggressiveness: 4,
		},
		TotalBatches: 2,
	}
}

func TestEvaluateBatch_ParsesResponse(t *testing.T) {
	client := &stubClient{
		response: "```json\n{\"risks\": [{\"risk_id\": \"r1\", \"para_id\": \"p-1\", \"severity\": \"high\", \"title\": \"Risk\"}]}\n```",
	}
	eval := NewLLMEvaluator(client, DefaultConfig())

	findings, err := eval.EvaluateBatch(context.Background(), batchContext())
	require.NoError(t, err)
	require.Len(t, findings.Risks, 1)
	assert.Equal(t, "r1", findings.Risks[0].RiskID)

	assert.Contains(t, client.system, "You represent the BUYER")
	assert.Contains(t, client.user, "(batch 1 of 2)")
	require.NotNil(t, client.params.Temperature)
	assert.InDelta(t, 0.2, float64(*client.params.Temperature), 0.001)
	require.NotNil(t, client.params.MaxTokens)
	assert.Equal(t, 8192, *client.params.MaxTokens)
}

func TestEvaluateBatch_UnparseableResponseIsTerminalMalformed(t *testing.T) {
	client := &stubClient{response: "Sorry, I cannot analyze these clauses."}
	eval := NewLLMEvaluator(client, DefaultConfig())

	_, err := eval.EvaluateBatch(context.Background(), batchContext())
	require.Error(t, err)
	assert.True(t, engine.IsMalformed(err))
	assert.False(t, engine.IsTransient(err), "a malformed response must fail the batch without retry")
}

func TestEvaluateBatch_MalformedResponseNotRetried(t *testing.T) {
	client := &stubClient{response: "this is not JSON"}
	eval := NewLLMEvaluator(client, DefaultConfig())

	config := engine.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Microsecond,
		MaxBackoff:     10 * time.Microsecond,
		BackoffFactor:  2.0,
	}
	attempts, err := engine.Retry(context.Background(), config, func(ctx context.Context, attempt int) error {
		_, evalErr := eval.EvaluateBatch(ctx, batchContext())
		return evalErr
	})
	require.Error(t, err)
	assert.True(t, engine.IsMalformed(err))
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, client.calls, "parse failures are terminal for the batch")
}

func TestEvaluateBatch_CallErrorClassified(t *testing.T) {
	client := &stubClient{err: &llm.APIError{Backend: "openai", StatusCode: 429, Message: "rate limited"}}
	eval := NewLLMEvaluator(client, DefaultConfig())

	_, err := eval.EvaluateBatch(context.Background(), batchContext())
	require.Error(t, err)
	assert.True(t, engine.IsTransient(err))
}

func TestClassifyCallError(t *testing.T) {
	testCases := []struct {
		name      string
		err       error
		transient bool
	}{
		{"rate limit", &llm.APIError{StatusCode: 429}, true},
		{"timeout status", &llm.APIError{StatusCode: 408}, true},
		{"server error", &llm.APIError{StatusCode: 503}, true},
		{"auth failure", &llm.APIError{StatusCode: 401}, false},
		{"bad request", &llm.APIError{StatusCode: 400}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"cancelled", context.Canceled, false},
		{"unknown", errors.New("connection reset"), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			classified := classifyCallError(tc.err)
			assert.Equal(t, tc.transient, engine.IsTransient(classified))
			assert.ErrorIs(t, classified, tc.err)
		})
	}
}

func TestNewLLMEvaluator_DefaultsMaxTokens(t *testing.T) {
	client := &stubClient{response: "{}"}
	eval := NewLLMEvaluator(client, Config{Temperature: 0.5})

	_, err := eval.EvaluateBatch(context.Background(), batchContext())
	require.NoError(t, err)
	require.NotNil(t, client.params.MaxTokens)
	assert.Equal(t, 8192, *client.params.MaxTokens)
}
