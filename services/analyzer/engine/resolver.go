// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"sort"

	"github.com/clausewise/clausewise/services/analyzer/datatypes"
)

// =============================================================================
// Relationship Resolver
// =============================================================================

// ResolveReferences rewrites mitigated_by and amplified_by references to
// canonical risk IDs, flagging what it cannot resolve.
//
// # Description
//
// Runs exactly once per session, after every batch has reached a terminal
// state. The risk set is final at that point, so resolution order cannot
// change the outcome.
//
// Each reference resolves in three steps:
//  1. exact match against a canonical risk ID;
//  2. match against a SourceID within the same batch (the common case --
//     an evaluator referencing its own local numbering);
//  3. match against a SourceID that is unique across the whole session.
//
// A SourceID that appears in more than one batch is ambiguous from outside
// its own batch and deliberately does not resolve in step 3. Anything left
// unresolved is marked dangling and recorded in the validation report; the
// risk carrying it is otherwise untouched.
//
// Risks are processed in presentation order, so the report's dangling list
// is deterministic regardless of batch completion order.
func ResolveReferences(session *datatypes.AnalysisSession) []datatypes.DanglingReference {
	idx := buildRiskIndex(session)
	var dangling []datatypes.DanglingReference

	for _, id := range session.RiskOrder {
		risk := session.Risks[id]
		if risk == nil {
			continue
		}
		resolveRefs(risk, risk.MitigatedBy, "mitigated_by", idx, &dangling)
		resolveRefs(risk, risk.AmplifiedBy, "amplified_by", idx, &dangling)
	}
	return dangling
}

func resolveRefs(risk *datatypes.Risk, refs []datatypes.RiskRef, kind string, idx *riskIndex, dangling *[]datatypes.DanglingReference) {
	for i := range refs {
		ref := &refs[i]
		canonical, ok := idx.resolve(ref.RiskID, risk.BatchID)
		if ok {
			ref.RiskID = canonical
			continue
		}
		ref.Dangling = true
		*dangling = append(*dangling, datatypes.DanglingReference{
			RiskID: risk.RiskID,
			Ref:    ref.RiskID,
			Kind:   kind,
		})
	}
}

// riskIndex maps canonical and evaluator-local IDs back to canonical IDs.
type riskIndex struct {
	canonical map[string]bool

	// byBatchSource is (batchID, sourceID) -> canonical ID. A duplicate
	// source ID within one batch keeps the first occurrence; evaluator
	// numbering inside a single payload is first-wins.
	byBatchSource map[batchSourceKey]string

	// bySource is sourceID -> canonical ID for source IDs unique across
	// the session, or "" when the source ID is ambiguous.
	bySource map[string]string
}

type batchSourceKey struct {
	batchID  int
	sourceID string
}

func buildRiskIndex(session *datatypes.AnalysisSession) *riskIndex {
	idx := &riskIndex{
		canonical:     make(map[string]bool, len(session.Risks)),
		byBatchSource: make(map[batchSourceKey]string),
		bySource:      make(map[string]string),
	}
	for _, id := range session.RiskOrder {
		risk := session.Risks[id]
		if risk == nil {
			continue
		}
		idx.canonical[risk.RiskID] = true
		if risk.SourceID == "" {
			continue
		}
		key := batchSourceKey{batchID: risk.BatchID, sourceID: risk.SourceID}
		if _, dup := idx.byBatchSource[key]; !dup {
			idx.byBatchSource[key] = risk.RiskID
		}
		if prev, seen := idx.bySource[risk.SourceID]; seen {
			if prev != "" {
				idx.bySource[risk.SourceID] = ""
			}
		} else {
			idx.bySource[risk.SourceID] = risk.RiskID
		}
	}
	return idx
}

func (idx *riskIndex) resolve(ref string, batchID int) (string, bool) {
	if idx.canonical[ref] {
		return ref, true
	}
	if canonical, ok := idx.byBatchSource[batchSourceKey{batchID: batchID, sourceID: ref}]; ok {
		return canonical, true
	}
	if canonical, ok := idx.bySource[ref]; ok && canonical != "" {
		return canonical, true
	}
	return "", false
}

// =============================================================================
// Presentation Order
// =============================================================================

// SortRiskOrder puts the session's risk order into presentation order:
// batch ID ascending, then normalizer sequence. Canonical IDs encode both,
// so a lexical comparison on the parsed parts suffices.
func SortRiskOrder(session *datatypes.AnalysisSession) {
	sort.Slice(session.RiskOrder, func(i, j int) bool {
		a, b := session.Risks[session.RiskOrder[i]], session.Risks[session.RiskOrder[j]]
		if a == nil || b == nil {
			return session.RiskOrder[i] < session.RiskOrder[j]
		}
		if a.BatchID != b.BatchID {
			return a.BatchID < b.BatchID
		}
		return riskSeq(a.RiskID) < riskSeq(b.RiskID)
	})
}

// riskSeq extracts the sequence component from a canonical "R{batch}-{seq}"
// ID. Malformed IDs sort first.
func riskSeq(id string) int {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '-' {
			seq := 0
			for _, c := range id[i+1:] {
				if c < '0' || c > '9' {
					return 0
				}
				seq = seq*10 + int(c-'0')
			}
			return seq
		}
	}
	return 0
}
