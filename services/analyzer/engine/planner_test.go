// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clausewise/clausewise/services/analyzer/datatypes"
)

func makeClauses(n int) []datatypes.ClauseRecord {
	out := make([]datatypes.ClauseRecord, n)
	for i := range out {
		out[i] = datatypes.ClauseRecord{
			ParaID: fmt.Sprintf("p-%d", i+1),
			Text:   fmt.Sprintf("Clause %d text.", i+1),
		}
	}
	return out
}

func TestPlanBatches_ExactPartition(t *testing.T) {
	clauses := makeClauses(12)
	batches, err := PlanBatches(clauses, 5)
	require.NoError(t, err)
	require.Len(t, batches, 3)

	// 12 clauses at size 5 -> 5, 5, 2
	assert.Len(t, batches[0].Clauses, 5)
	assert.Len(t, batches[1].Clauses, 5)
	assert.Len(t, batches[2].Clauses, 2)

	// Every clause appears exactly once, in document order.
	var got []string
	for _, b := range batches {
		got = append(got, b.ParaIDs()...)
	}
	require.Len(t, got, 12)
	for i, id := range got {
		assert.Equal(t, clauses[i].ParaID, id)
	}
}

func TestPlanBatches_OneBasedIDs(t *testing.T) {
	batches, err := PlanBatches(makeClauses(7), 3)
	require.NoError(t, err)
	require.Len(t, batches, 3)
	for i, b := range batches {
		assert.Equal(t, i+1, b.BatchID)
		assert.Equal(t, datatypes.BatchPending, b.Status)
	}
}

func TestPlanBatches_SingleClause(t *testing.T) {
	batches, err := PlanBatches(makeClauses(1), 5)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Len(t, batches[0].Clauses, 1)
}

func TestPlanBatches_BatchSizeLargerThanDocument(t *testing.T) {
	batches, err := PlanBatches(makeClauses(3), 50)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Len(t, batches[0].Clauses, 3)
}

func TestPlanBatches_EmptyDocument(t *testing.T) {
	_, err := PlanBatches(nil, 5)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestPlanBatches_InvalidBatchSize(t *testing.T) {
	_, err := PlanBatches(makeClauses(3), 0)
	assert.ErrorIs(t, err, ErrInvalidBatchSize)

	_, err = PlanBatches(makeClauses(3), -1)
	assert.ErrorIs(t, err, ErrInvalidBatchSize)
}

func TestBuildDocumentMap_OneLinePerClause(t *testing.T) {
	clauses := []datatypes.ClauseRecord{
		{ParaID: "p-1", Text: "Short clause.", SectionRef: "1.1"},
		{ParaID: "p-2", Text: "No section on this one."},
	}
	m := BuildDocumentMap(clauses)

	lines := strings.Split(strings.TrimRight(m, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "- p-1 [1.1]: Short clause.", lines[0])
	assert.Equal(t, "- p-2: No section on this one.", lines[1])
}

func TestBuildDocumentMap_TruncatesLongText(t *testing.T) {
	long := strings.Repeat("x", 500)
	m := BuildDocumentMap([]datatypes.ClauseRecord{{ParaID: "p-1", Text: long}})

	assert.Contains(t, m, "...")
	assert.Less(t, len(m), 200)
}

func TestBuildDocumentMap_FlattensNewlines(t *testing.T) {
	m := BuildDocumentMap([]datatypes.ClauseRecord{{ParaID: "p-1", Text: "line one\nline two"}})
	lines := strings.Split(strings.TrimRight(m, "\n"), "\n")
	assert.Len(t, lines, 1)
}
