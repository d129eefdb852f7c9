// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llmjson extracts structured JSON from text-generation output.
//
// Models are asked for pure JSON but routinely wrap it in prose or fenced
// code blocks. Unmarshal applies an explicit ordered fallback chain:
//
//  1. Direct parse of the whole text.
//  2. Content of the first ``` fenced block (optional "json" language tag).
//  3. The slice from the first '{' to the last '}'.
//
// The chain is deliberately kept as three separate attempts rather than one
// recover-all parse so the extraction priority stays observable. Callers
// substitute their own typed fallback value when Unmarshal reports failure.
package llmjson

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when none of the extraction stages produced a
// parseable JSON document.
var ErrNoJSON = errors.New("llmjson: no parseable JSON found in text")

// Unmarshal parses LLM output text into v using the three-stage chain.
//
// On failure v is left in whatever state the last json.Unmarshal attempt
// produced; callers must treat a non-nil error as "use the fallback value"
// rather than inspecting v.
func Unmarshal(text string, v any) error {
	trimmed := strings.TrimSpace(text)

	// Stage 1: direct parse.
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	// Stage 2: first fenced code block.
	if fenced, ok := fencedBlock(trimmed); ok {
		if err := json.Unmarshal([]byte(fenced), v); err == nil {
			return nil
		}
	}

	// Stage 3: first '{' to last '}'.
	if sliced, ok := braceSlice(trimmed); ok {
		if err := json.Unmarshal([]byte(sliced), v); err == nil {
			return nil
		}
	}

	return ErrNoJSON
}

// fencedBlock returns the content of the first ``` fenced block, with a
// leading "json" language tag stripped.
func fencedBlock(text string) (string, bool) {
	if !strings.Contains(text, "```") {
		return "", false
	}
	parts := strings.SplitN(text, "```", 3)
	if len(parts) < 2 {
		return "", false
	}
	block := parts[1]
	block = strings.TrimPrefix(block, "json")
	return strings.TrimSpace(block), true
}

// braceSlice returns the substring spanning the first '{' through the last
// '}' of text.
func braceSlice(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
