// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clausewise/clausewise/services/analyzer/datatypes"
)

func contribution(category datatypes.ConceptCategory, key, value string, batchID int) conceptContribution {
	return conceptContribution{
		Key:       datatypes.ConceptKey{Category: category, Key: key},
		Candidate: datatypes.ConceptCandidate{Value: value, BatchID: batchID},
	}
}

func emptySession() *datatypes.AnalysisSession {
	return &datatypes.AnalysisSession{
		Concepts: make(map[datatypes.ConceptKey]*datatypes.ConceptEntry),
	}
}

func TestMergeConcepts_AccumulatesNeverOverwrites(t *testing.T) {
	s := emptySession()
	MergeConcepts(s, []conceptContribution{
		contribution(datatypes.CategoryLiabilityLimitations, "cap", "$500,000", 1),
		contribution(datatypes.CategoryLiabilityLimitations, "cap", "$1,000,000", 2),
	})

	key := datatypes.ConceptKey{Category: datatypes.CategoryLiabilityLimitations, Key: "cap"}
	entry := s.Concepts[key]
	require.NotNil(t, entry)
	require.Len(t, entry.Candidates, 2, "both batches' values survive")
	assert.Equal(t, []string{"$500,000", "$1,000,000"}, entry.DistinctValues())
}

func TestMergeConcepts_DeduplicatesExactCandidates(t *testing.T) {
	s := emptySession()
	c := contribution(datatypes.CategoryDefinedTerms, "MAE", "Material Adverse Effect", 1)
	MergeConcepts(s, []conceptContribution{c, c})

	key := datatypes.ConceptKey{Category: datatypes.CategoryDefinedTerms, Key: "MAE"}
	assert.Len(t, s.Concepts[key].Candidates, 1)
}

func TestMergeConcepts_SameValueDifferentBatchesBothKept(t *testing.T) {
	s := emptySession()
	MergeConcepts(s, []conceptContribution{
		contribution(datatypes.CategoryKnowledgeStandards, "seller_knowledge", "actual knowledge", 1),
		contribution(datatypes.CategoryKnowledgeStandards, "seller_knowledge", "actual knowledge", 3),
	})

	key := datatypes.ConceptKey{Category: datatypes.CategoryKnowledgeStandards, Key: "seller_knowledge"}
	entry := s.Concepts[key]
	require.Len(t, entry.Candidates, 2)
	assert.Len(t, entry.DistinctValues(), 1, "agreeing batches are not a conflict")
}

func TestMergeConcepts_OrderIndependent(t *testing.T) {
	forward := emptySession()
	backward := emptySession()
	contribs := []conceptContribution{
		contribution(datatypes.CategoryDefaultRemedies, "cure_period", "30 days", 2),
		contribution(datatypes.CategoryDefaultRemedies, "cure_period", "10 days", 1),
	}
	MergeConcepts(forward, contribs)
	MergeConcepts(backward, []conceptContribution{contribs[1], contribs[0]})

	key := datatypes.ConceptKey{Category: datatypes.CategoryDefaultRemedies, Key: "cure_period"}
	assert.Equal(t, forward.Concepts[key].Candidates, backward.Concepts[key].Candidates)
}

func TestMergeConcepts_IncrementalAcrossCalls(t *testing.T) {
	s := emptySession()
	MergeConcepts(s, []conceptContribution{
		contribution(datatypes.CategoryTerminationTriggers, "financing_out", "yes", 1),
	})
	MergeConcepts(s, []conceptContribution{
		contribution(datatypes.CategoryTerminationTriggers, "financing_out", "no", 2),
	})

	key := datatypes.ConceptKey{Category: datatypes.CategoryTerminationTriggers, Key: "financing_out"}
	assert.Len(t, s.Concepts[key].Candidates, 2)
}

func TestConceptConflicts_OnlyDisagreementsReported(t *testing.T) {
	s := emptySession()
	MergeConcepts(s, []conceptContribution{
		contribution(datatypes.CategoryLiabilityLimitations, "cap", "$500,000", 1),
		contribution(datatypes.CategoryLiabilityLimitations, "cap", "$1,000,000", 2),
		contribution(datatypes.CategoryLiabilityLimitations, "basket", "$50,000", 1),
		contribution(datatypes.CategoryLiabilityLimitations, "basket", "$50,000", 2),
	})

	conflicts := ConceptConflicts(s)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "cap", conflicts[0].Key)
	assert.Len(t, conflicts[0].Values, 2)
}

func TestConceptConflicts_SortedByCategoryThenKey(t *testing.T) {
	s := emptySession()
	MergeConcepts(s, []conceptContribution{
		contribution(datatypes.CategoryTerminationTriggers, "zz", "a", 1),
		contribution(datatypes.CategoryTerminationTriggers, "zz", "b", 2),
		contribution(datatypes.CategoryDefaultRemedies, "aa", "x", 1),
		contribution(datatypes.CategoryDefaultRemedies, "aa", "y", 2),
	})

	conflicts := ConceptConflicts(s)
	require.Len(t, conflicts, 2)
	assert.Equal(t, datatypes.CategoryDefaultRemedies, conflicts[0].Category)
	assert.Equal(t, datatypes.CategoryTerminationTriggers, conflicts[1].Category)
}

func TestOrderedConcepts_Deterministic(t *testing.T) {
	s := emptySession()
	MergeConcepts(s, []conceptContribution{
		contribution(datatypes.CategoryKnowledgeStandards, "b", "v", 1),
		contribution(datatypes.CategoryDefinedTerms, "a", "v", 1),
		contribution(datatypes.CategoryDefinedTerms, "c", "v", 1),
	})

	ordered := OrderedConcepts(s)
	require.Len(t, ordered, 3)
	assert.Equal(t, "a", ordered[0].Key)
	assert.Equal(t, "c", ordered[1].Key)
	assert.Equal(t, "b", ordered[2].Key)
}
