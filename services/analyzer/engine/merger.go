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
// Concept Merger
// =============================================================================

// MergeConcepts folds per-batch concept contributions into the session's
// concept map.
//
// # Description
//
// Accumulate, never overwrite: every batch's candidate for a key survives
// in the merged entry, so no batch silently wins over another. Exact
// duplicate (value, section, batch) candidates are collapsed.
//
// Candidates within an entry are sorted by batch ID then value, which
// makes the merged result independent of the order batches completed in.
func MergeConcepts(session *datatypes.AnalysisSession, contributions []conceptContribution) {
	if session.Concepts == nil {
		session.Concepts = make(map[datatypes.ConceptKey]*datatypes.ConceptEntry)
	}
	for _, c := range contributions {
		entry, ok := session.Concepts[c.Key]
		if !ok {
			entry = &datatypes.ConceptEntry{Category: c.Key.Category, Key: c.Key.Key}
			session.Concepts[c.Key] = entry
		}
		if hasCandidate(entry.Candidates, c.Candidate) {
			continue
		}
		entry.Candidates = append(entry.Candidates, c.Candidate)
	}
	for _, entry := range session.Concepts {
		sort.Slice(entry.Candidates, func(i, j int) bool {
			a, b := entry.Candidates[i], entry.Candidates[j]
			if a.BatchID != b.BatchID {
				return a.BatchID < b.BatchID
			}
			return a.Value < b.Value
		})
	}
}

func hasCandidate(candidates []datatypes.ConceptCandidate, c datatypes.ConceptCandidate) bool {
	for _, existing := range candidates {
		if existing == c {
			return true
		}
	}
	return false
}

// ConceptConflicts returns every merged key holding more than one distinct
// value, in category-then-key order.
func ConceptConflicts(session *datatypes.AnalysisSession) []datatypes.ConceptConflict {
	var conflicts []datatypes.ConceptConflict
	for key, entry := range session.Concepts {
		if len(entry.DistinctValues()) > 1 {
			conflicts = append(conflicts, datatypes.ConceptConflict{
				Category: key.Category,
				Key:      key.Key,
				Values:   entry.Candidates,
			})
		}
	}
	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Category != conflicts[j].Category {
			return conflicts[i].Category < conflicts[j].Category
		}
		return conflicts[i].Key < conflicts[j].Key
	})
	return conflicts
}

// OrderedConcepts returns the merged entries in category-then-key order.
func OrderedConcepts(session *datatypes.AnalysisSession) []*datatypes.ConceptEntry {
	out := make([]*datatypes.ConceptEntry, 0, len(session.Concepts))
	for _, entry := range session.Concepts {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Key < out[j].Key
	})
	return out
}
