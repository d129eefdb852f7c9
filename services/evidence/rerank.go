// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evidence

import (
	"net/url"
	"strings"
)

// RerankScore computes the deterministic relevance score of one search
// result against the idea text. Higher is more relevant; scores may go
// negative for noisy editorial content. The caller applies a stable sort so
// ties keep provider order.
//
// Idea tokens are capped at eight so very long idea descriptions cannot
// drown out the keyword and domain signals. Domain patterns match against
// the parsed hostname only, so a path segment cannot trip them.
func (e *RuleEngine) RerankScore(idea, title, resultURL, content string) float64 {
	ideaTokens := e.Tokenize(idea)
	if len(ideaTokens) > 8 {
		ideaTokens = ideaTokens[:8]
	}

	text := strings.ToLower(title + " " + content)
	host := hostnameOf(resultURL)

	score := 0.0
	for _, tok := range ideaTokens {
		if strings.Contains(text, tok) {
			score += 3
		}
	}
	for _, kw := range e.patterns.Rerank.PositiveKeywords {
		if strings.Contains(text, kw) {
			score++
		}
	}
	for _, kw := range e.patterns.Rerank.NoiseKeywords {
		if strings.Contains(text, kw) {
			score -= 2
		}
	}
	for _, domain := range e.patterns.Rerank.TrustedDomains {
		if strings.Contains(host, domain) {
			score += 3
			break
		}
	}
	for _, domain := range e.patterns.Rerank.NoisyDomains {
		if strings.Contains(host, domain) {
			score -= 2
			break
		}
	}
	return score
}

// hostnameOf extracts the lowercased hostname from a result URL. A value
// that does not parse to a host (scheme-less strings included) yields "",
// which matches no domain pattern.
func hostnameOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
