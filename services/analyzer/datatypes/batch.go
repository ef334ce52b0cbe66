// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// =============================================================================
// Input Records
// =============================================================================

// ClauseRecord is one parsed paragraph of the source document, as handed
// over by the document-parsing collaborator.
//
// ParaIDs are assumed stable and globally unique upstream; the engine does
// not verify uniqueness.
type ClauseRecord struct {
	ParaID     string `json:"para_id" yaml:"para_id" binding:"required"`
	Text       string `json:"text" yaml:"text" binding:"required"`
	SectionRef string `json:"section_ref,omitempty" yaml:"section_ref,omitempty"`
}

// DocumentContext is the document-wide context shared read-only by every
// batch sent to the evaluator.
type DocumentContext struct {
	// ContractType is the document kind: psa, lease, easement, development,
	// loan, or general.
	ContractType string `json:"contract_type" yaml:"contract_type"`

	// Representation names the party the analysis is performed for
	// (seller, buyer, landlord, tenant, lender, borrower, ...).
	Representation string `json:"representation" yaml:"representation"`

	// Aggressiveness is the 1-5 review posture, 1 conservative through 5
	// maximally client-favorable.
	Aggressiveness int `json:"aggressiveness" yaml:"aggressiveness"`

	// DefinedTerms are defined terms extracted upstream, included in
	// evaluator prompts for reference. Optional.
	DefinedTerms []string `json:"defined_terms,omitempty" yaml:"defined_terms,omitempty"`
}

// =============================================================================
// Batches
// =============================================================================

// BatchStatus is the lifecycle state of a batch.
type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchRunning   BatchStatus = "running"
	BatchSucceeded BatchStatus = "succeeded"
	BatchFailed    BatchStatus = "failed"
)

// Terminal reports whether the status is succeeded or failed.
func (s BatchStatus) Terminal() bool {
	return s == BatchSucceeded || s == BatchFailed
}

// Batch is one unit of work: a contiguous subset of the document's clauses
// sent to the evaluator as a single call.
//
// Lifecycle: pending (planner) -> running (worker) -> succeeded/failed.
// A failed batch is never retried past the configured attempt bound; its
// paragraph IDs become part of the session's coverage gap.
type Batch struct {
	BatchID int            `json:"batch_id"`
	Clauses []ClauseRecord `json:"clauses"`

	Status       BatchStatus `json:"status"`
	AttemptCount int         `json:"attempt_count"`

	// FailureReason records why a failed batch failed. Empty otherwise.
	FailureReason string `json:"failure_reason,omitempty"`
}

// ParaIDs returns the paragraph IDs carried by this batch, in order.
func (b *Batch) ParaIDs() []string {
	ids := make([]string, len(b.Clauses))
	for i, c := range b.Clauses {
		ids[i] = c.ParaID
	}
	return ids
}

// Contains reports whether the batch carries the given paragraph ID.
func (b *Batch) Contains(paraID string) bool {
	for _, c := range b.Clauses {
		if c.ParaID == paraID {
			return true
		}
	}
	return false
}
