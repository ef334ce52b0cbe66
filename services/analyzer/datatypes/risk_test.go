// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Severity Tests
// =============================================================================

func TestSeverity_Index_Ordering(t *testing.T) {
	// info < low < medium < high < critical
	assert.Equal(t, 0, SeverityInfo.Index())
	assert.Equal(t, 1, SeverityLow.Index())
	assert.Equal(t, 2, SeverityMedium.Index())
	assert.Equal(t, 3, SeverityHigh.Index())
	assert.Equal(t, 4, SeverityCritical.Index())
}

func TestSeverity_Index_Unknown(t *testing.T) {
	assert.Equal(t, -1, Severity("").Index())
	assert.Equal(t, -1, Severity("severe").Index())
	assert.Equal(t, -1, Severity("CRITICAL").Index())
}

func TestSeverityFromIndex_Clamps(t *testing.T) {
	testCases := []struct {
		name     string
		index    int
		expected Severity
	}{
		{"below floor", -3, SeverityInfo},
		{"floor", 0, SeverityInfo},
		{"middle", 2, SeverityMedium},
		{"ceiling", 4, SeverityCritical},
		{"above ceiling", 9, SeverityCritical},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SeverityFromIndex(tc.index))
		})
	}
}

func TestSeverityFromIndex_Index_RoundTrip(t *testing.T) {
	for i := 0; i <= MaxSeverityIndex; i++ {
		assert.Equal(t, i, SeverityFromIndex(i).Index())
	}
}

func TestParseSeverity_CaseInsensitive(t *testing.T) {
	testCases := []struct {
		raw      string
		expected Severity
	}{
		{"critical", SeverityCritical},
		{"CRITICAL", SeverityCritical},
		{"High", SeverityHigh},
		{"medium", SeverityMedium},
		{"LOW", SeverityLow},
		{"Info", SeverityInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := ParseSeverity(tc.raw)
			require.True(t, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestParseSeverity_Invalid(t *testing.T) {
	for _, raw := range []string{"", "severe", "moderate", "3", "high "} {
		t.Run(raw, func(t *testing.T) {
			_, ok := ParseSeverity(raw)
			assert.False(t, ok, "severity %q should not parse", raw)
		})
	}
}

// =============================================================================
// Risk Tests
// =============================================================================

func TestRisk_ResolvedCounts_SkipDangling(t *testing.T) {
	r := &Risk{
		MitigatedBy: []RiskRef{
			{RiskID: "R1-1"},
			{RiskID: "risk_9", Dangling: true},
		},
		AmplifiedBy: []RiskRef{
			{RiskID: "R2-3"},
			{RiskID: "R2-4"},
			{RiskID: "gone", Dangling: true},
		},
	}

	assert.Equal(t, 1, r.ResolvedMitigators())
	assert.Equal(t, 2, r.ResolvedAmplifiers())
}

func TestRisk_ResolvedCounts_Empty(t *testing.T) {
	r := &Risk{}
	assert.Equal(t, 0, r.ResolvedMitigators())
	assert.Equal(t, 0, r.ResolvedAmplifiers())
}

func TestRisk_JSON_OmitsEmptyOptionalFields(t *testing.T) {
	r := Risk{
		RiskID:            "R1-1",
		ParaID:            "p-1",
		Category:          "financial",
		Title:             "Uncapped indemnity",
		Description:       "Indemnification has no liability cap.",
		BaseSeverity:      SeverityHigh,
		EffectiveSeverity: SeverityHigh,
		BatchID:           1,
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "mitigated_by")
	assert.NotContains(t, string(data), "highlight_text")
	assert.Contains(t, string(data), `"risk_id":"R1-1"`)
	assert.Contains(t, string(data), `"base_severity":"high"`)
}
