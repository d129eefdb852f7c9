// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evidence

import "strings"

// NpmCandidate is one registry search hit considered by the selector.
// Score is the registry's own relevance score in [0,1].
type NpmCandidate struct {
	Name        string
	Description string
	Keywords    []string
	Score       float64
}

// NpmSelection is the selector's verdict for a library query. PackageName is
// empty when no candidate was available.
type NpmSelection struct {
	PackageName string
	Confident   bool
}

// SelectNpmCandidate picks the registry candidate most likely to match a
// free-text library description.
//
// Scoring favors an exact name match, then near-name containment, then
// fuzzy token overlap, with the registry's own relevance score as a small
// tie-breaking term. Single-token queries demand a stronger registry score
// because name overlap alone is weak evidence there. Equal scores keep the
// first candidate in input order.
func (e *RuleEngine) SelectNpmCandidate(query string, candidates []NpmCandidate) NpmSelection {
	if len(candidates) == 0 {
		return NpmSelection{}
	}

	queryLower := strings.ToLower(strings.TrimSpace(query))
	queryTokens := e.Tokenize(query)

	requiredOverlap := 1
	requiredScore := 0.7
	if len(queryTokens) >= 2 {
		requiredOverlap = 2
		requiredScore = 0.5
	}

	bestIdx := 0
	bestScore := -1.0
	bestConfident := false

	for i, cand := range candidates {
		nameLower := strings.ToLower(cand.Name)
		exact := nameLower != "" && nameLower == queryLower

		near := nameLower != "" && queryLower != "" &&
			(strings.Contains(nameLower, queryLower) || strings.Contains(queryLower, nameLower))
		if !near {
			for _, tok := range queryTokens {
				if strings.Contains(nameLower, tok) {
					near = true
					break
				}
			}
		}

		candText := cand.Name + " " + cand.Description + " " + strings.Join(cand.Keywords, " ")
		overlap := tokenOverlap(queryTokens, e.Tokenize(candText))

		registryScore := cand.Score
		if registryScore > 1 {
			registryScore = 1
		}

		score := 0.0
		if exact {
			score += 5
		}
		if near {
			score += 2
		}
		score += 1.5 * float64(overlap)
		score += registryScore

		confident := exact || (overlap >= requiredOverlap && cand.Score >= requiredScore)

		if score > bestScore {
			bestIdx = i
			bestScore = score
			bestConfident = confident
		}
	}

	return NpmSelection{
		PackageName: candidates[bestIdx].Name,
		Confident:   bestConfident,
	}
}

// Tokenize splits text into lowercase alphanumeric tokens of length three or
// more, dropping the configured stop words (generic terms and ecosystem
// names that carry no matching signal).
func (e *RuleEngine) Tokenize(text string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() >= 3 {
			tok := b.String()
			if _, stop := e.patterns.StopWords[tok]; !stop {
				tokens = append(tokens, tok)
			}
		}
		b.Reset()
	}
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

// tokenOverlap counts query tokens that match a candidate token by
// equality or containment in either direction.
func tokenOverlap(queryTokens, candTokens []string) int {
	overlap := 0
	for _, q := range queryTokens {
		for _, c := range candTokens {
			if q == c || strings.Contains(c, q) || strings.Contains(q, c) {
				overlap++
				break
			}
		}
	}
	return overlap
}
