// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "time"

// =============================================================================
// Progress
// =============================================================================

// SessionStatus is the coarse progress status of an analysis session.
//
// Transitions are strictly forward: not_started -> running -> complete.
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "not_started"
	StatusRunning    SessionStatus = "running"
	StatusComplete   SessionStatus = "complete"
)

// rank orders statuses so the tracker can refuse backwards transitions.
func (s SessionStatus) rank() int {
	switch s {
	case StatusNotStarted:
		return 0
	case StatusRunning:
		return 1
	case StatusComplete:
		return 2
	default:
		return -1
	}
}

// AtLeast reports whether s is at or past other in the lifecycle.
func (s SessionStatus) AtLeast(other SessionStatus) bool {
	return s.rank() >= other.rank()
}

// Stage labels for the progress display.
const (
	StagePlanning      = "planning"
	StageBatchAnalysis = "batch_analysis"
	StageAggregation   = "aggregation"
	StageComplete      = "complete"
)

// ProgressState is the pollable snapshot of one session's progress.
//
// Percent is monotonically non-decreasing for the lifetime of a run; the
// batch orchestrator is its only writer.
type ProgressState struct {
	SessionID string        `json:"session_id"`
	Status    SessionStatus `json:"status"`
	Stage     string        `json:"stage"`

	Percent          int `json:"percent"`
	CompletedBatches int `json:"completed_batches"`
	TotalBatches     int `json:"total_batches"`
	RisksFound       int `json:"risks_found"`

	// CurrentAction is a human-readable description of what the engine is
	// doing right now.
	CurrentAction string `json:"current_action,omitempty"`

	StartedAt      time.Time `json:"started_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
}

// =============================================================================
// Coverage and Validation
// =============================================================================

// CoverageReport records which paragraph IDs were successfully analyzed
// and which fell into the gap left by failed batches.
//
// Invariant: AnalyzedParaIDs and GapParaIDs are disjoint and their union
// is exactly the session's input paragraph set.
type CoverageReport struct {
	AnalyzedParaIDs []string `json:"analyzed_para_ids"`
	GapParaIDs      []string `json:"gap_para_ids"`

	// PartialCoverage is true whenever GapParaIDs is non-empty.
	PartialCoverage bool `json:"partial_coverage"`
}

// DanglingReference is a relationship reference that could not be resolved
// against the session's terminal risk set.
type DanglingReference struct {
	// RiskID is the canonical ID of the risk carrying the reference.
	RiskID string `json:"risk_id"`

	// Ref is the unresolved reference as the evaluator wrote it.
	Ref string `json:"ref"`

	// Kind is "mitigated_by" or "amplified_by".
	Kind string `json:"kind"`
}

// ConceptConflict records two or more differing values contributed to the
// same concept key by different batches.
type ConceptConflict struct {
	Category ConceptCategory    `json:"category"`
	Key      string             `json:"key"`
	Values   []ConceptCandidate `json:"values"`
}

// NormalizationError records one rejected raw finding. The finding is
// dropped; the batch is unaffected.
type NormalizationError struct {
	BatchID  int    `json:"batch_id"`
	SourceID string `json:"source_id,omitempty"`
	ParaID   string `json:"para_id,omitempty"`
	Reason   string `json:"reason"`
}

// UnknownCategory records a concept-map category outside the closed
// enumeration. The provision is dropped; nothing is coerced.
type UnknownCategory struct {
	BatchID  int    `json:"batch_id"`
	Category string `json:"category"`
	Key      string `json:"key,omitempty"`
}

// ValidationReport tells the caller what to distrust in an otherwise
// completed result. Nothing recorded here ever fails the session.
type ValidationReport struct {
	DanglingReferences  []DanglingReference  `json:"dangling_references,omitempty"`
	ConceptConflicts    []ConceptConflict    `json:"concept_conflicts,omitempty"`
	NormalizationErrors []NormalizationError `json:"normalization_errors,omitempty"`
	UnknownCategories   []UnknownCategory    `json:"unknown_categories,omitempty"`
}

// =============================================================================
// Session Aggregate
// =============================================================================

// AnalysisSummary is the headline numbers for a completed session.
type AnalysisSummary struct {
	TotalRisks       int              `json:"total_risks"`
	BySeverity       map[Severity]int `json:"by_severity"`
	ParagraphsTotal  int              `json:"paragraphs_total"`
	ParagraphsInGap  int              `json:"paragraphs_in_gap"`
	TotalBatches     int              `json:"total_batches"`
	SucceededBatches int              `json:"succeeded_batches"`
	FailedBatches    int              `json:"failed_batches"`
	ElapsedSeconds   int              `json:"elapsed_seconds"`

	// AnalysisMethod is "evaluator", "fallback", or "none".
	AnalysisMethod string `json:"analysis_method"`
}

// AnalysisSession is the aggregate root for one document analysis run.
//
// Mutation discipline: the orchestrator owns batch status and coverage up
// to the barrier; the resolver, merger, and severity calculator own the
// risk and concept collections during the single post-pass; nothing
// mutates the aggregate outside its designated phase.
type AnalysisSession struct {
	SessionID string          `json:"session_id"`
	Context   DocumentContext `json:"context"`

	Batches []*Batch `json:"batches"`

	// Risks is the arena keyed by canonical risk ID. RiskOrder carries the
	// deterministic presentation order (batch ID, then sequence), which is
	// independent of batch completion order.
	Risks     map[string]*Risk `json:"-"`
	RiskOrder []string         `json:"-"`

	Concepts map[ConceptKey]*ConceptEntry `json:"-"`

	Coverage   CoverageReport   `json:"coverage"`
	Validation ValidationReport `json:"validation"`
	Summary    AnalysisSummary  `json:"summary"`

	// Cancelled is set when the caller abandoned the run; results from
	// batches that finished after cancellation were discarded.
	Cancelled bool `json:"cancelled,omitempty"`

	// FallbackUsed is set when every batch failed and the deterministic
	// fallback finder supplied the result.
	FallbackUsed bool `json:"fallback_used,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// OrderedRisks returns the session's risks in presentation order.
func (s *AnalysisSession) OrderedRisks() []*Risk {
	out := make([]*Risk, 0, len(s.RiskOrder))
	for _, id := range s.RiskOrder {
		if r, ok := s.Risks[id]; ok {
			out = append(out, r)
		}
	}
	return out
}

// =============================================================================
// Result Payload
// =============================================================================

// AnalysisResult is the final queryable risk model returned to callers of
// the result query. It is assembled once, after the session reaches its
// terminal state.
type AnalysisResult struct {
	SessionID string          `json:"session_id"`
	Context   DocumentContext `json:"context"`

	Risks []*Risk `json:"risks"`

	// RisksByParagraph groups the same risks by the clause they belong to.
	RisksByParagraph map[string][]*Risk `json:"risks_by_paragraph"`

	Concepts []*ConceptEntry `json:"concepts"`

	Coverage   CoverageReport   `json:"coverage"`
	Validation ValidationReport `json:"validation"`
	Summary    AnalysisSummary  `json:"summary"`
}

// SessionInfo is the list-view projection of a session.
type SessionInfo struct {
	SessionID    string        `json:"session_id"`
	Status       SessionStatus `json:"status"`
	ContractType string        `json:"contract_type"`
	TotalRisks   int           `json:"total_risks"`
	CreatedAt    time.Time     `json:"created_at"`
}
