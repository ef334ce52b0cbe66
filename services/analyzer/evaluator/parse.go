// Copyright (C) 2026 Clausewise (eng@clausewise.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evaluator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/clausewise/clausewise/services/analyzer/datatypes"
)

// =============================================================================
// Response Parsing
// =============================================================================

// fencedJSON matches a markdown code fence holding a JSON object or array,
// with or without the json language tag.
var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*([\\[{].*?[\\]}])\\s*```")

// ParseRawFindings extracts the findings payload from a model response.
//
// The payload may arrive inside a markdown code fence or as bare JSON, and
// in either of two shapes: the object form with risks, opportunities, and
// concept_map keys, or the legacy bare array of risks. Anything else is a
// parse failure; the caller classifies that as a malformed (non-retryable
// for the same response, retryable as a fresh attempt) batch error.
func ParseRawFindings(responseText string) (*datatypes.RawFindings, error) {
	text := strings.TrimSpace(responseText)
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if text == "" {
		return nil, fmt.Errorf("empty response")
	}

	switch text[0] {
	case '{':
		var findings datatypes.RawFindings
		if err := json.Unmarshal([]byte(text), &findings); err != nil {
			return nil, fmt.Errorf("parse findings object: %w", err)
		}
		return &findings, nil
	case '[':
		var risks []datatypes.RawRisk
		if err := json.Unmarshal([]byte(text), &risks); err != nil {
			return nil, fmt.Errorf("parse findings array: %w", err)
		}
		return &datatypes.RawFindings{Risks: risks}, nil
	default:
		return nil, fmt.Errorf("response is not JSON")
	}
}
