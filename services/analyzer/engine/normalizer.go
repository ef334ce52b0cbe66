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
// Finding Normalizer
// =============================================================================

// opportunityCategory is the category assigned to findings the evaluator
// reported as opportunities rather than risks.
const opportunityCategory = "opportunity"

// NormalizedBatch is the validated output of normalizing one batch's raw
// findings. Rejections never fail a batch; a payload where everything is
// rejected normalizes to an empty but successful batch.
type NormalizedBatch struct {
	BatchID int

	// Risks carry canonical session-unique IDs ("R{batch}-{seq}") and
	// unresolved relationship references exactly as the evaluator wrote
	// them. Resolution happens after the barrier.
	Risks []*datatypes.Risk

	// Concepts are per-batch candidates, not merged entries; the merger
	// accumulates them across batches after the barrier.
	Concepts []conceptContribution

	Errors            []datatypes.NormalizationError
	UnknownCategories []datatypes.UnknownCategory
}

// conceptContribution is one valid concept-map cell from one batch.
type conceptContribution struct {
	Key       datatypes.ConceptKey
	Candidate datatypes.ConceptCandidate
}

// NormalizeBatch converts a raw evaluator payload for one batch into typed
// records.
//
// # Description
//
// Validation rules, applied per finding:
//   - para_id, severity, and title are required; a finding missing any of
//     them is rejected.
//   - para_id must belong to the batch that produced the finding; findings
//     for paragraphs outside the batch are rejected, because the evaluator
//     has no business reporting on text it was not given.
//   - severity must parse against the five-level scale.
//
// Opportunities are folded into the risk set as severity=info findings
// under the "opportunity" category, subject to the same validation.
//
// Accepted findings get canonical IDs "R{batch}-{seq}" with seq following
// payload order, so IDs are deterministic for a given payload regardless
// of when the batch completed relative to its siblings. The evaluator's
// own risk_id is kept as SourceID for relationship resolution.
//
// Concept-map cells with a category outside the closed enumeration are
// dropped and recorded, never coerced into another category.
func NormalizeBatch(batch *datatypes.Batch, raw *datatypes.RawFindings) *NormalizedBatch {
	out := &NormalizedBatch{BatchID: batch.BatchID}
	if raw == nil {
		return out
	}

	seq := 0
	for i := range raw.Risks {
		out.normalizeRisk(batch, &raw.Risks[i], false, &seq)
	}
	for i := range raw.Opportunities {
		out.normalizeRisk(batch, &raw.Opportunities[i], true, &seq)
	}
	out.normalizeConcepts(batch, raw.ConceptMap)
	return out
}

func (nb *NormalizedBatch) normalizeRisk(batch *datatypes.Batch, raw *datatypes.RawRisk, opportunity bool, seq *int) {
	reject := func(reason string) {
		nb.Errors = append(nb.Errors, datatypes.NormalizationError{
			BatchID:  batch.BatchID,
			SourceID: raw.RiskID,
			ParaID:   raw.ParaID,
			Reason:   reason,
		})
	}

	paraID := strings.TrimSpace(raw.ParaID)
	if paraID == "" {
		reject("missing para_id")
		return
	}
	if strings.TrimSpace(raw.Title) == "" {
		reject("missing title")
		return
	}
	if !batch.Contains(paraID) {
		reject(fmt.Sprintf("para_id %q not in batch", paraID))
		return
	}

	var severity datatypes.Severity
	if opportunity {
		// Opportunities rank below every risk regardless of what the
		// evaluator claimed.
		severity = datatypes.SeverityInfo
	} else {
		s, ok := datatypes.ParseSeverity(raw.Severity)
		if !ok {
			if strings.TrimSpace(raw.Severity) == "" {
				reject("missing severity")
			} else {
				reject(fmt.Sprintf("unknown severity %q", raw.Severity))
			}
			return
		}
		severity = s
	}

	category := raw.CategoryOrType()
	if opportunity {
		category = opportunityCategory
	}

	*seq++
	risk := &datatypes.Risk{
		RiskID:            fmt.Sprintf("R%d-%d", batch.BatchID, *seq),
		ParaID:            paraID,
		SectionRef:        sectionRefFor(batch, paraID),
		Category:          category,
		Title:             strings.TrimSpace(raw.Title),
		Description:       strings.TrimSpace(raw.Description),
		HighlightText:     raw.Excerpt(),
		Recommendation:    strings.TrimSpace(raw.Recommendation),
		BaseSeverity:      severity,
		EffectiveSeverity: severity,
		Triggers:          raw.Triggers,
		BatchID:           batch.BatchID,
		SourceID:          strings.TrimSpace(raw.RiskID),
	}
	for _, ref := range raw.MitigatedBy {
		if r := strings.TrimSpace(ref.Ref); r != "" {
			risk.MitigatedBy = append(risk.MitigatedBy, datatypes.RiskRef{RiskID: r, Effect: ref.Effect})
		}
	}
	for _, ref := range raw.AmplifiedBy {
		if r := strings.TrimSpace(ref.Ref); r != "" {
			risk.AmplifiedBy = append(risk.AmplifiedBy, datatypes.RiskRef{RiskID: r, Effect: ref.Effect})
		}
	}
	nb.Risks = append(nb.Risks, risk)
}

func (nb *NormalizedBatch) normalizeConcepts(batch *datatypes.Batch, conceptMap map[string]map[string]datatypes.RawProvision) {
	for rawCategory, entries := range conceptMap {
		category, ok := datatypes.ParseConceptCategory(rawCategory)
		if !ok {
			for key := range entries {
				nb.UnknownCategories = append(nb.UnknownCategories, datatypes.UnknownCategory{
					BatchID:  batch.BatchID,
					Category: rawCategory,
					Key:      key,
				})
			}
			if len(entries) == 0 {
				nb.UnknownCategories = append(nb.UnknownCategories, datatypes.UnknownCategory{
					BatchID:  batch.BatchID,
					Category: rawCategory,
				})
			}
			continue
		}
		for key, provision := range entries {
			key = strings.TrimSpace(key)
			value := strings.TrimSpace(provision.Value)
			if key == "" || value == "" {
				continue
			}
			nb.Concepts = append(nb.Concepts, conceptContribution{
				Key: datatypes.ConceptKey{Category: category, Key: key},
				Candidate: datatypes.ConceptCandidate{
					Value:      value,
					SectionRef: provision.Section,
					BatchID:    batch.BatchID,
				},
			})
		}
	}
}

// sectionRefFor returns the section reference of the clause the finding is
// attached to, if the caller supplied one.
func sectionRefFor(batch *datatypes.Batch, paraID string) string {
	for i := range batch.Clauses {
		if batch.Clauses[i].ParaID == paraID {
			return batch.Clauses[i].SectionRef
		}
	}
	return ""
}
