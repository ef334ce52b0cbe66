// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_Retryable(t *testing.T) {
	testCases := []struct {
		status    int
		retryable bool
	}{
		{429, true},
		{408, true},
		{500, true},
		{502, true},
		{503, true},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{422, false},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d", tc.status), func(t *testing.T) {
			err := &APIError{Backend: "openai", StatusCode: tc.status}
			assert.Equal(t, tc.retryable, err.Retryable())
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Backend: "anthropic", StatusCode: 429, Message: "rate limit exceeded"}
	assert.Equal(t, "anthropic API returned status 429: rate limit exceeded", err.Error())
}

func TestAPIError_ErrorsAs(t *testing.T) {
	var target *APIError
	wrapped := fmt.Errorf("calling backend: %w", &APIError{Backend: "ollama", StatusCode: 503})
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "ollama", target.Backend)
}
