// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// =============================================================================
// Concept Categories
// =============================================================================

// ConceptCategory is the closed enumeration of provision categories.
//
// An evaluator payload carrying a category outside this set is recorded as
// an unknown-category validation finding; it is never coerced into a
// generic bucket.
type ConceptCategory string

const (
	// CategoryLiabilityLimitations covers baskets, caps, survival periods,
	// and deductibles.
	CategoryLiabilityLimitations ConceptCategory = "liability_limitations"

	// CategoryKnowledgeStandards covers knowledge definitions and who the
	// qualifier applies to.
	CategoryKnowledgeStandards ConceptCategory = "knowledge_standards"

	// CategoryTerminationTriggers covers events allowing or requiring
	// termination.
	CategoryTerminationTriggers ConceptCategory = "termination_triggers"

	// CategoryDefaultRemedies covers cure periods, notice requirements, and
	// automatic versus elective remedies.
	CategoryDefaultRemedies ConceptCategory = "default_remedies"

	// CategoryDefinedTerms covers key defined terms affecting risk
	// allocation (MAE, Permitted Exceptions, etc.).
	CategoryDefinedTerms ConceptCategory = "defined_terms"
)

// ConceptCategories lists every valid category in declaration order.
var ConceptCategories = []ConceptCategory{
	CategoryLiabilityLimitations,
	CategoryKnowledgeStandards,
	CategoryTerminationTriggers,
	CategoryDefaultRemedies,
	CategoryDefinedTerms,
}

// ParseConceptCategory parses a category string case-insensitively against
// the closed enumeration. Returns false for anything outside it.
func ParseConceptCategory(raw string) (ConceptCategory, bool) {
	c := ConceptCategory(lower(raw))
	for _, v := range ConceptCategories {
		if c == v {
			return v, true
		}
	}
	return "", false
}

// =============================================================================
// Concept Entries
// =============================================================================

// ConceptKey identifies a merged provision: one named concept under one
// category.
type ConceptKey struct {
	Category ConceptCategory `json:"category"`
	Key      string          `json:"key"`
}

// ConceptCandidate is one batch's contribution for a concept key.
//
// Candidates are accumulated, never overwritten: when two batches disagree
// on the value for the same key, both candidates survive and the merger
// records a conflict in the validation report.
type ConceptCandidate struct {
	Value      string `json:"value"`
	SectionRef string `json:"section_ref,omitempty"`
	BatchID    int    `json:"batch_id"`
}

// ConceptEntry is a named provision value grouped under a category, with
// every candidate every succeeded batch contributed for it.
type ConceptEntry struct {
	Category   ConceptCategory    `json:"category"`
	Key        string             `json:"key"`
	Candidates []ConceptCandidate `json:"candidates"`
}

// DistinctValues returns the deduplicated candidate values in first-seen
// order. More than one distinct value means the key is in conflict.
func (e *ConceptEntry) DistinctValues() []string {
	seen := make(map[string]bool, len(e.Candidates))
	var out []string
	for _, c := range e.Candidates {
		if !seen[c.Value] {
			seen[c.Value] = true
			out = append(out, c.Value)
		}
	}
	return out
}
