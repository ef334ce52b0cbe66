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

	"github.com/clausewise/clausewise/services/analyzer/datatypes"
	"github.com/clausewise/clausewise/services/analyzer/engine"
)

// =============================================================================
// Prompt Construction
// =============================================================================

// maxDefinedTermsInPrompt bounds how many defined terms the batch prompt
// lists. Beyond this the list stops adding signal and starts eating
// context window.
const maxDefinedTermsInPrompt = 50

// partyContext maps the represented party to its analysis instruction.
var partyContext = map[string]string{
	"seller":    "You represent the SELLER. Identify risks that could harm the seller, such as broad representations, unlimited liability, vague conditions that benefit the buyer, etc, as well as opportunities to strengthen the seller position.",
	"buyer":     "You represent the BUYER/PURCHASER. Identify risks that could harm the buyer, such as weak warranties, limited remedies, seller-favorable termination rights, etc., as well as opportunities to strengthen the buyer position generally.",
	"landlord":  "You represent the LANDLORD. Identify risks such as tenant-favorable terms, broad use rights, weak default provisions, etc.",
	"tenant":    "You represent the TENANT. Identify risks such as excessive landlord rights, harsh default terms, rent increase exposure, etc.",
	"lender":    "You represent the LENDER. Identify risks to loan security, weak covenants, borrower-favorable cure periods, etc.",
	"borrower":  "You represent the BORROWER. Identify risks such as aggressive default triggers, cross-default provisions, excessive lender discretion, etc.",
	"grantor":   "You represent the GRANTOR (property owner granting an easement). Identify risks such as overly broad easement scope, expansion rights, insufficient compensation, etc.",
	"grantee":   "You represent the GRANTEE (easement holder). Identify risks such as narrow easement scope, revocation rights, excessive restrictions, etc.",
	"developer": "You represent the DEVELOPER. Identify risks such as unrealistic deadlines, excessive bonding requirements, subjective approval standards, etc.",
}

// contractContext maps the contract type to its key-areas instruction.
var contractContext = map[string]string{
	"psa":         "This is a Purchase and Sale Agreement (PSA) for real estate. Key areas include: deposit terms, due diligence period, title/survey review, representations & warranties, closing conditions, default remedies, survival periods, and liability caps.",
	"lease":       "This is a Lease Agreement. Key areas include: rent terms, use restrictions, maintenance obligations, assignment/subletting, default/cure provisions, indemnification, insurance requirements, and termination rights.",
	"easement":    "This is an Easement Agreement. Key areas include: easement scope/purpose, duration, maintenance obligations, relocation rights, expansion limitations, and termination conditions.",
	"development": "This is a Development Agreement. Key areas include: development timeline, approval standards, performance security, force majeure, phasing requirements, and completion obligations.",
	"loan":        "This is a Loan Agreement. Key areas include: interest rate, payment terms, covenants, default triggers, remedies, cross-default provisions, and prepayment terms.",
}

// aggressivenessContext maps the 1-5 review posture to its instruction.
var aggressivenessContext = map[int]string{
	1: "Be conservative. Only flag clearly problematic provisions that pose significant risk. Assume market-standard terms are acceptable.",
	2: "Be moderately conservative. Flag provisions that are materially unfavorable but accept reasonable market terms.",
	3: "Be balanced. Flag provisions that could be improved while recognizing legitimate business terms.",
	4: "Be thorough. Flag any provision that could be strengthened in your client's favor, even if currently market-standard.",
	5: "Be aggressive. Flag every provision that is not maximally favorable to your client. Identify all opportunities to strengthen position.",
}

// BuildSystemPrompt builds the per-document system prompt from the shared
// document context. The same system prompt is sent for every batch of a
// session, which lets backends with prompt caching reuse it.
func BuildSystemPrompt(doc datatypes.DocumentContext) string {
	party, ok := partyContext[strings.ToLower(doc.Representation)]
	if !ok {
		party = fmt.Sprintf("You represent the %s.", strings.ToUpper(doc.Representation))
	}
	contract, ok := contractContext[doc.ContractType]
	if !ok {
		contract = "This is a legal contract."
	}
	posture, ok := aggressivenessContext[doc.Aggressiveness]
	if !ok {
		posture = "Be balanced in your analysis."
	}

	return fmt.Sprintf(`You are an expert real estate attorney performing a detailed risk analysis of contract language with the skill and judgment of a senior partner.

## Client Representation
%s

## Contract Type
%s

## Analysis Approach (Aggressiveness: %d/5)
%s

## Your Task
For each clause provided, perform a thorough risk analysis:

1. **Identify Specific Risks**: Find language that could harm your client's interests
2. **Pinpoint Problematic Language**: Quote the exact words/phrases that create the risk
3. **Assess Severity**: Rate as "critical", "high", "medium", "low", or "info"
4. **Explain the Risk**: Describe WHY this language is problematic and what could go wrong
5. **Consider Context**: Think about how this clause interacts with other contract provisions

## Risk Categories to Consider
- **Liability Exposure**: Uncapped indemnities, broad representations, unlimited damages
- **Timing Risks**: Short deadlines, strict time-is-of-essence provisions unless favorable to your client, inflexible schedules
- **Discretionary Language**: "Sole discretion", "reasonable" without standards, subjective conditions
- **One-Sided Terms**: Asymmetric obligations, unilateral rights, non-mutual provisions
- **Missing Protections**: Lack of caps, no cure periods, missing knowledge qualifiers
- **Default Traps**: Hair-trigger defaults, cross-defaults, loss of deposit provisions
- **Survival Issues**: Unlimited or overly long survival periods for representations
- **Assignment/Transfer**: Restrictions or free transferability depending on client position

## CONCEPT MAP EXTRACTION

As you analyze, extract document-wide provisions into these categories:

**liability_limitations:** baskets, caps, survival periods, deductibles
**knowledge_standards:** how "knowledge" is defined, who the qualifier applies to
**termination_triggers:** events allowing or requiring termination, automatic vs. elective
**default_remedies:** cure periods, notice requirements, automatic consequences vs. elective remedies
**defined_terms:** Material Adverse Effect, Permitted Exceptions, other terms affecting risk allocation

For each provision found, note the value and section reference. Use exactly
these five category names; anything else will be discarded.

## RISK RELATIONSHIPS

For each risk identified, also determine:

**mitigated_by:** Provisions in the document that reduce this risk's severity.
Example: A $50K basket mitigates an unqualified rep because small claims won't trigger liability.

**amplified_by:** Provisions that increase exposure if this risk materializes.
Example: Automatic termination on breach amplifies an unqualified rep because a foot-fault could end the deal.

**triggers:** Obligations or consequences this risk activates.
Example: A rep breach triggers indemnification obligations under Section 8.

## Output Format
Return a single JSON object:
`+"```json"+`
{
  "risks": [
    {
      "risk_id": "R-5.3-1",
      "para_id": "the paragraph ID provided",
      "category": "category of risk (e.g., 'uncapped_liability', 'short_deadline', 'broad_discretion')",
      "severity": "critical|high|medium|low|info",
      "title": "Brief title for the risk (3-6 words)",
      "description": "Detailed explanation of the risk and its implications",
      "problematic_text": "The exact quoted text that creates this risk",
      "recommendation": "Brief suggestion for addressing this risk -- no more than 15 words",
      "mitigated_by": [{"ref": "8.3:basket", "effect": "..."}],
      "amplified_by": [{"ref": "10.4:auto_term", "effect": "..."}],
      "triggers": ["8.1:indem"]
    }
  ],
  "opportunities": [],
  "concept_map": {
    "liability_limitations": {},
    "knowledge_standards": {},
    "termination_triggers": {},
    "default_remedies": {},
    "defined_terms": {}
  }
}
`+"```"+`

If a clause has multiple distinct risks, return multiple objects.
If a clause has no significant risks for your client, return nothing for that clause.
Report only on the paragraph IDs you were given in this request.

Be thorough but precise. Focus on substance over form.`,
		party, contract, doc.Aggressiveness, posture)
}

// BuildBatchPrompt builds the user prompt for one batch: defined terms,
// the condensed whole-document map, and the batch's full clause text.
func BuildBatchPrompt(bc engine.BatchContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following contract clauses for risks to our client (batch %d of %d).\n",
		bc.Batch.BatchID, bc.TotalBatches)

	if terms := bc.Document.DefinedTerms; len(terms) > 0 {
		if len(terms) > maxDefinedTermsInPrompt {
			terms = terms[:maxDefinedTermsInPrompt]
		}
		fmt.Fprintf(&b, "\n## Defined Terms in This Document\n%s\n", strings.Join(terms, ", "))
	}

	if bc.DocumentMap != "" {
		b.WriteString("\n## Full Document Map (for identifying related clauses)\n")
		b.WriteString("Use this map to locate provisions elsewhere in the document that mitigate or amplify the risks you find.\n\n")
		b.WriteString(bc.DocumentMap)
		b.WriteString("\n")
	}

	b.WriteString("\n## Clauses to Analyze\n")
	for i, clause := range bc.Batch.Clauses {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		section := clause.SectionRef
		if section == "" {
			section = "N/A"
		}
		fmt.Fprintf(&b, "\n**Paragraph ID: %s**\n**Section: %s**\n\n%s\n", clause.ParaID, section, clause.Text)
	}

	b.WriteString("\n---\n\nReturn your analysis as a single JSON object containing all risks found across all clauses.\n")
	b.WriteString("Include the para_id for each risk so we can map it back to the correct clause.\n")
	return b.String()
}
