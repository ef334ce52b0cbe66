// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides the chat-completion backends the analyzer's
// evaluator runs on: OpenAI, Anthropic, and a local Ollama server.
package llm

import (
	"context"
	"fmt"
	"net/http"
)

// GenerationParams are the optional sampling parameters for one call.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient is the standard interface for any chat-completion backend.
//
// Complete sends one system prompt and one user prompt and returns the
// model's text. Errors carrying a non-2xx HTTP status are wrapped in
// *APIError so callers can classify them.
type LLMClient interface {
	Complete(ctx context.Context, system, user string, params GenerationParams) (string, error)
}

// APIError is a non-2xx response from a backend API.
type APIError struct {
	Backend    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Backend, e.StatusCode, e.Message)
}

// Retryable reports whether the failure is worth retrying: rate limits,
// server errors, and upstream timeouts. Auth and request-shape errors are
// permanent.
func (e *APIError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return true
	}
	return e.StatusCode >= 500
}
