// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import "github.com/clausewise/clausewise/services/analyzer/datatypes"

// =============================================================================
// Severity Calculator
// =============================================================================

// EffectiveSeverity computes a risk's effective severity from its base
// severity and its resolved relationship counts.
//
// # Description
//
// effective = clamp(base + amplifiers - mitigators, info, critical)
// on the ordinal scale info < low < medium < high < critical. Each
// resolved amplifier raises the level by one; each resolved mitigator
// lowers it by one. Dangling references contribute nothing.
//
// The function is pure: recomputing an already-computed risk yields the
// same answer, and adding amplifiers never lowers the result.
func EffectiveSeverity(risk *datatypes.Risk) datatypes.Severity {
	base := risk.BaseSeverity.Index()
	if base < 0 {
		// Unparseable base severity cannot reach this point through the
		// normalizer, but an arbitrary caller gets the floor, not a panic.
		base = 0
	}
	return datatypes.SeverityFromIndex(base + risk.ResolvedAmplifiers() - risk.ResolvedMitigators())
}

// RecalculateSeverities recomputes EffectiveSeverity for every risk in the
// session. Must run after reference resolution; before it, every reference
// still counts as resolved and the results would overstate adjustment.
func RecalculateSeverities(session *datatypes.AnalysisSession) {
	for _, risk := range session.Risks {
		risk.EffectiveSeverity = EffectiveSeverity(risk)
	}
}
