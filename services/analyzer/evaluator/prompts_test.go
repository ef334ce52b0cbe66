// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evaluator

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clausewise/clausewise/services/analyzer/datatypes"
	"github.com/clausewise/clausewise/services/analyzer/engine"
)

func psaSellerDoc() datatypes.DocumentContext {
	return datatypes.DocumentContext{
		ContractType:   "psa",
		Representation: "seller",
		Aggressiveness: 3,
	}
}

func TestBuildSystemPrompt_PartyAndContract(t *testing.T) {
	prompt := BuildSystemPrompt(psaSellerDoc())

	assert.Contains(t, prompt, "You represent the SELLER.")
	assert.Contains(t, prompt, "Purchase and Sale Agreement")
	assert.Contains(t, prompt, "Aggressiveness: 3/5")
	assert.Contains(t, prompt, "Be balanced.")
}

func TestBuildSystemPrompt_SeverityScale(t *testing.T) {
	prompt := BuildSystemPrompt(psaSellerDoc())
	assert.Contains(t, prompt, `"critical", "high", "medium", "low", or "info"`)
}

func TestBuildSystemPrompt_ConceptCategories(t *testing.T) {
	prompt := BuildSystemPrompt(psaSellerDoc())
	for _, category := range datatypes.ConceptCategories {
		assert.Contains(t, prompt, string(category))
	}
	assert.Contains(t, prompt, "Use exactly\nthese five category names")
}

func TestBuildSystemPrompt_ScopesToGivenParagraphs(t *testing.T) {
	prompt := BuildSystemPrompt(psaSellerDoc())
	assert.Contains(t, prompt, "Report only on the paragraph IDs you were given in this request.")
}

func TestBuildSystemPrompt_UnknownPartyFallsBack(t *testing.T) {
	doc := psaSellerDoc()
	doc.Representation = "guarantor"
	prompt := BuildSystemPrompt(doc)
	assert.Contains(t, prompt, "You represent the GUARANTOR.")
}

func TestBuildSystemPrompt_GeneralContractFallsBack(t *testing.T) {
	doc := psaSellerDoc()
	doc.ContractType = "general"
	prompt := BuildSystemPrompt(doc)
	assert.Contains(t, prompt, "This is a legal contract.")
}

func TestBuildSystemPrompt_StableAcrossBatches(t *testing.T) {
	// One system prompt per document is what makes backend prompt caching
	// effective; it must not vary per call.
	assert.Equal(t, BuildSystemPrompt(psaSellerDoc()), BuildSystemPrompt(psaSellerDoc()))
}

func TestBuildBatchPrompt_Structure(t *testing.T) {
	bc := engine.BatchContext{
		Batch: &datatypes.Batch{
			BatchID: 2,
			Clauses: []datatypes.ClauseRecord{
				{ParaID: "p-6", Text: "Indemnity clause text.", SectionRef: "8.1"},
				{ParaID: "p-7", Text: "Liability cap text."},
			},
		},
		Document:     psaSellerDoc(),
		DocumentMap:  "- p-1: Deposit clause.\n- p-6: Indemnity clause.\n",
		TotalBatches: 3,
	}
	prompt := BuildBatchPrompt(bc)

	assert.Contains(t, prompt, "(batch 2 of 3)")
	assert.Contains(t, prompt, "## Full Document Map")
	assert.Contains(t, prompt, "- p-1: Deposit clause.")
	assert.Contains(t, prompt, "**Paragraph ID: p-6**\n**Section: 8.1**")
	assert.Contains(t, prompt, "**Paragraph ID: p-7**\n**Section: N/A**")
	assert.Contains(t, prompt, "Indemnity clause text.")
	assert.Contains(t, prompt, "\n---\n")
}

func TestBuildBatchPrompt_DefinedTermsCapped(t *testing.T) {
	doc := psaSellerDoc()
	for i := 0; i < maxDefinedTermsInPrompt+20; i++ {
		doc.DefinedTerms = append(doc.DefinedTerms, fmt.Sprintf("Term%d", i))
	}
	bc := engine.BatchContext{
		Batch:        &datatypes.Batch{BatchID: 1, Clauses: []datatypes.ClauseRecord{{ParaID: "p-1", Text: "x"}}},
		Document:     doc,
		TotalBatches: 1,
	}
	prompt := BuildBatchPrompt(bc)

	assert.Contains(t, prompt, "## Defined Terms in This Document")
	assert.Contains(t, prompt, fmt.Sprintf("Term%d", maxDefinedTermsInPrompt-1))
	assert.NotContains(t, prompt, fmt.Sprintf("Term%d,", maxDefinedTermsInPrompt))
	assert.Equal(t, maxDefinedTermsInPrompt-1, strings.Count(prompt, ", "))
}

func TestBuildBatchPrompt_NoOptionalSections(t *testing.T) {
	bc := engine.BatchContext{
		Batch:        &datatypes.Batch{BatchID: 1, Clauses: []datatypes.ClauseRecord{{ParaID: "p-1", Text: "x"}}},
		Document:     psaSellerDoc(),
		TotalBatches: 1,
	}
	prompt := BuildBatchPrompt(bc)

	assert.NotContains(t, prompt, "## Defined Terms")
	assert.NotContains(t, prompt, "## Full Document Map")
	assert.Contains(t, prompt, "## Clauses to Analyze")
}
