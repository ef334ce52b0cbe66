// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the typed domain records for document risk
// analysis: risks, concept entries, batches, sessions, and the raw wire
// shapes received from an evaluator backend.
//
// Everything downstream of the normalizer works on these types; raw
// evaluator payloads never leak past services/analyzer/engine.
package datatypes

// =============================================================================
// Severity
// =============================================================================

// Severity is the ordinal severity scale for a risk.
//
// Ordering: info < low < medium < high < critical. The ordinal index is
// used by the severity calculator; the string form is what appears on the
// wire and in reports.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityOrder maps each severity to its ordinal index.
var severityOrder = []Severity{
	SeverityInfo,
	SeverityLow,
	SeverityMedium,
	SeverityHigh,
	SeverityCritical,
}

// MaxSeverityIndex is the ordinal index of SeverityCritical.
const MaxSeverityIndex = 4

// Index returns the ordinal index for the severity (info=0 .. critical=4),
// or -1 if the severity is not one of the five known levels.
func (s Severity) Index() int {
	for i, v := range severityOrder {
		if s == v {
			return i
		}
	}
	return -1
}

// SeverityFromIndex returns the severity label at the given ordinal index.
// Indexes outside [0, MaxSeverityIndex] are clamped.
func SeverityFromIndex(i int) Severity {
	if i < 0 {
		i = 0
	}
	if i > MaxSeverityIndex {
		i = MaxSeverityIndex
	}
	return severityOrder[i]
}

// ParseSeverity parses a severity string case-insensitively.
//
// Returns the parsed severity and true, or the zero value and false if the
// input is not one of the five known levels.
func ParseSeverity(raw string) (Severity, bool) {
	s := Severity(lower(raw))
	if s.Index() >= 0 {
		return s, true
	}
	return "", false
}

// lower is strings.ToLower restricted to ASCII. Severity labels are ASCII
// by construction and this avoids pulling strings into the hot path.
func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

// =============================================================================
// Risk
// =============================================================================

// RiskRef is a reference from one risk to another by risk ID.
//
// The normalizer stores references exactly as the evaluator produced them;
// the relationship resolver rewrites RiskID to the canonical session-unique
// ID when it can be resolved, or sets Dangling when it cannot. Dangling
// references are retained for the validation report but contribute nothing
// to effective severity.
type RiskRef struct {
	// RiskID is the referenced risk. Canonical after resolution; the raw
	// evaluator-local reference before, and permanently for dangling refs.
	RiskID string `json:"risk_id"`

	// Effect is the evaluator's free-text explanation of how the referenced
	// provision mitigates or amplifies this risk. Optional.
	Effect string `json:"effect,omitempty"`

	// Dangling is set by the resolver when the reference cannot be resolved
	// against the session's terminal risk set.
	Dangling bool `json:"dangling,omitempty"`
}

// Risk is a single identified issue or opportunity tied to one clause.
//
// # Identity
//
// RiskID is unique within a session. It is assigned by the normalizer as
// "R{batch}-{seq}" and never taken from the evaluator, whose own numbering
// may collide across batches. The evaluator's ID is kept in SourceID so
// cross-batch references can still be resolved against it.
//
// # Invariants
//
//   - EffectiveSeverity is always derivable from BaseSeverity plus the
//     resolved relationship counts; it is never set independently.
//   - ParaID always belongs to the batch that produced the risk.
type Risk struct {
	RiskID     string `json:"risk_id"`
	ParaID     string `json:"para_id"`
	SectionRef string `json:"section_ref,omitempty"`

	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// HighlightText is the quoted excerpt that creates the risk. Optional.
	HighlightText string `json:"highlight_text,omitempty"`

	// Recommendation is a brief suggested action for the reviewer. Optional.
	Recommendation string `json:"recommendation,omitempty"`

	BaseSeverity      Severity `json:"base_severity"`
	EffectiveSeverity Severity `json:"effective_severity"`

	MitigatedBy []RiskRef `json:"mitigated_by,omitempty"`
	AmplifiedBy []RiskRef `json:"amplified_by,omitempty"`

	// Triggers are free-text condition tags for obligations this risk
	// activates. Not resolved against the risk index.
	Triggers []string `json:"triggers,omitempty"`

	// BatchID is the batch that produced this risk.
	BatchID int `json:"batch_id"`

	// SourceID is the evaluator-local risk ID, retained only for
	// relationship resolution. Not unique across batches.
	SourceID string `json:"source_id,omitempty"`
}

// ResolvedAmplifiers returns the number of non-dangling amplified_by refs.
func (r *Risk) ResolvedAmplifiers() int {
	return countResolved(r.AmplifiedBy)
}

// ResolvedMitigators returns the number of non-dangling mitigated_by refs.
func (r *Risk) ResolvedMitigators() int {
	return countResolved(r.MitigatedBy)
}

func countResolved(refs []RiskRef) int {
	n := 0
	for _, ref := range refs {
		if !ref.Dangling {
			n++
		}
	}
	return n
}
