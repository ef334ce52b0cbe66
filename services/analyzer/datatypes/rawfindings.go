// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// =============================================================================
// Raw Evaluator Payload
// =============================================================================

// RawFindings is the unvalidated per-batch payload produced by an
// evaluator backend.
//
// The engine treats this shape as opaque and unreliable: any field may be
// missing, mistyped, or reference paragraphs outside the batch. Only the
// normalizer reads it; everything downstream sees typed Risk and
// ConceptEntry records.
type RawFindings struct {
	Risks []RawRisk `json:"risks"`

	// Opportunities are ways to strengthen the client's position. The
	// normalizer folds them into the risk set as severity=info,
	// category=opportunity findings.
	Opportunities []RawRisk `json:"opportunities,omitempty"`

	// ConceptMap is category -> concept key -> provision, exactly as the
	// evaluator emitted it. Categories are validated by the normalizer
	// against the closed enumeration.
	ConceptMap map[string]map[string]RawProvision `json:"concept_map,omitempty"`
}

// RawRisk is a single unvalidated finding record.
//
// Category and Type both exist because evaluator backends have emitted the
// field under either name; the normalizer prefers Category.
type RawRisk struct {
	RiskID      string `json:"risk_id"`
	ParaID      string `json:"para_id"`
	Severity    string `json:"severity"`
	Category    string `json:"category"`
	Type        string `json:"type,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// HighlightText carries the problematic excerpt. AffectedText is the
	// older field name some backends still emit.
	HighlightText string `json:"problematic_text,omitempty"`
	AffectedText  string `json:"affected_text,omitempty"`

	Recommendation string `json:"recommendation,omitempty"`

	MitigatedBy []RawRef `json:"mitigated_by,omitempty"`
	AmplifiedBy []RawRef `json:"amplified_by,omitempty"`
	Triggers    []string `json:"triggers,omitempty"`
}

// Excerpt returns the problematic text, preferring the current field name.
func (r *RawRisk) Excerpt() string {
	if r.HighlightText != "" {
		return r.HighlightText
	}
	return r.AffectedText
}

// CategoryOrType returns the finding category, preferring Category.
func (r *RawRisk) CategoryOrType() string {
	if r.Category != "" {
		return r.Category
	}
	return r.Type
}

// RawRef is an unresolved relationship reference as the evaluator wrote it.
type RawRef struct {
	Ref    string `json:"ref"`
	Effect string `json:"effect,omitempty"`
}

// RawProvision is one unvalidated concept-map value.
type RawProvision struct {
	Value   string `json:"value"`
	Section string `json:"section,omitempty"`
}
