// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxParagraphs bounds a single analysis request. Documents beyond this
	// should be split upstream.
	MaxParagraphs = 2000

	// MaxParagraphBytes bounds one clause's text. Byte length, not runes,
	// so oversized payloads are rejected before prompt assembly.
	MaxParagraphBytes = 64 * 1024
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// analyzeValidate is the validator instance for analysis datatypes.
// Initialized in init() with custom validators.
var analyzeValidate *validator.Validate

func init() {
	analyzeValidate = validator.New()
	_ = analyzeValidate.RegisterValidation("parabytes", validateParagraphBytes)
}

// validateParagraphBytes enforces MaxParagraphBytes on clause text.
func validateParagraphBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxParagraphBytes
}

// =============================================================================
// Analyze Request
// =============================================================================

// AnalyzeRequest is the body of POST /v1/analysis.
//
// # Description
//
// Carries the parsed document (ordered paragraph records) plus the
// document-wide context the evaluator needs: contract type, which party we
// represent, and the 1-5 aggressiveness posture.
//
// # Validation
//
// Uses go-playground/validator:
//   - ContractType: required, one of psa/lease/easement/development/loan/general
//   - Representation: required
//   - Aggressiveness: 1-5
//   - Paragraphs: required, 1-MaxParagraphs elements, each with a para_id
//     and text within MaxParagraphBytes
//
// Paragraph ID uniqueness is assumed from the parsing collaborator and is
// not verified here.
type AnalyzeRequest struct {
	ContractType   string `json:"contract_type" validate:"required,oneof=psa lease easement development loan general"`
	Representation string `json:"representation" validate:"required,min=1,max=64"`
	Aggressiveness int    `json:"aggressiveness" validate:"required,gte=1,lte=5"`

	Paragraphs []AnalyzeParagraph `json:"paragraphs" validate:"required,min=1,max=2000,dive"`

	DefinedTerms []string `json:"defined_terms,omitempty" validate:"omitempty,max=500"`

	// BatchSize overrides the engine's configured batch size. Optional.
	BatchSize int `json:"batch_size,omitempty" validate:"omitempty,gte=1,lte=50"`
}

// AnalyzeParagraph is one paragraph record in an AnalyzeRequest.
type AnalyzeParagraph struct {
	ParaID     string `json:"para_id" validate:"required,min=1,max=128"`
	Text       string `json:"text" validate:"required,parabytes"`
	SectionRef string `json:"section_ref,omitempty" validate:"omitempty,max=128"`
}

// Validate validates the request after JSON binding.
func (r *AnalyzeRequest) Validate() error {
	return analyzeValidate.Struct(r)
}

// Clauses converts the request paragraphs to engine clause records.
func (r *AnalyzeRequest) Clauses() []ClauseRecord {
	out := make([]ClauseRecord, len(r.Paragraphs))
	for i, p := range r.Paragraphs {
		out[i] = ClauseRecord{ParaID: p.ParaID, Text: p.Text, SectionRef: p.SectionRef}
	}
	return out
}

// Document builds the shared DocumentContext from the request.
func (r *AnalyzeRequest) Document() DocumentContext {
	return DocumentContext{
		ContractType:   r.ContractType,
		Representation: r.Representation,
		Aggressiveness: r.Aggressiveness,
		DefinedTerms:   r.DefinedTerms,
	}
}
