// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetrics_Idempotent(t *testing.T) {
	first := InitMetrics()
	require.NotNil(t, first)

	// A second service instance in the same process must not hit a
	// duplicate promauto registration.
	second := InitMetrics()
	assert.Same(t, first, second)
	assert.Same(t, first, DefaultMetrics)
}
