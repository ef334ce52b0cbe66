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

	"github.com/clausewise/clausewise/services/analyzer/datatypes"
)

// =============================================================================
// Batch Planning
// =============================================================================

// DefaultBatchSize is the number of clauses per evaluator call when the
// caller does not override it.
const DefaultBatchSize = 5

// documentMapPreviewLen is how much clause text the condensed document map
// shows per paragraph.
const documentMapPreviewLen = 80

// BatchContext is everything one evaluator call receives: the batch's own
// clause subset plus the shared read-only document context.
type BatchContext struct {
	Batch        *datatypes.Batch
	Document     datatypes.DocumentContext
	DocumentMap  string
	TotalBatches int
}

// PlanBatches splits the ordered clause list into contiguous batches of at
// most batchSize clauses.
//
// The batches partition the clause set exactly: every clause appears in
// precisely one batch, in document order. Batch IDs are 1-based to match
// the evaluator-facing "batch N of M" numbering.
//
// Returns ErrEmptyDocument for an empty clause list and ErrInvalidBatchSize
// for a non-positive batch size.
func PlanBatches(clauses []datatypes.ClauseRecord, batchSize int) ([]*datatypes.Batch, error) {
	if len(clauses) == 0 {
		return nil, ErrEmptyDocument
	}
	if batchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}

	total := (len(clauses) + batchSize - 1) / batchSize
	batches := make([]*datatypes.Batch, 0, total)
	for i := 0; i < len(clauses); i += batchSize {
		end := i + batchSize
		if end > len(clauses) {
			end = len(clauses)
		}
		batches = append(batches, &datatypes.Batch{
			BatchID: len(batches) + 1,
			Clauses: clauses[i:end],
			Status:  datatypes.BatchPending,
		})
	}
	return batches, nil
}

// BuildDocumentMap produces the condensed one-line-per-paragraph map that
// every batch shares, so the evaluator can cross-reference clauses outside
// its own batch.
func BuildDocumentMap(clauses []datatypes.ClauseRecord) string {
	var b strings.Builder
	for _, c := range clauses {
		preview := strings.TrimSpace(strings.ReplaceAll(c.Text, "\n", " "))
		if len(preview) > documentMapPreviewLen {
			preview = preview[:documentMapPreviewLen] + "..."
		}
		if c.SectionRef != "" {
			fmt.Fprintf(&b, "- %s [%s]: %s\n", c.ParaID, c.SectionRef, preview)
		} else {
			fmt.Fprintf(&b, "- %s: %s\n", c.ParaID, preview)
		}
	}
	return b.String()
}
