// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package evidence implements the deterministic judgment rules of the
// analysis pipeline: the data-source API/crawl rule engine, the robots
// policy-file classifier, and the npm candidate selector.
//
// Everything in this package is a pure function over already-fetched inputs.
// Network fetching lives in services/providers; streaming orchestration in
// services/analyzer.
package evidence

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// RuleEngine scores search evidence against the compiled pattern set and
// classifies a data source's access surface.
type RuleEngine struct {
	patterns *PatternSet
}

// NewRuleEngine creates a rule engine backed by the embedded pattern file.
func NewRuleEngine() (*RuleEngine, error) {
	patterns, err := LoadPatterns()
	if err != nil {
		return nil, fmt.Errorf("load evidence patterns: %w", err)
	}
	return &RuleEngine{patterns: patterns}, nil
}

// Patterns exposes the engine's compiled pattern set for components that
// share its keyword configuration (the search reranker, the npm tokenizer).
func (e *RuleEngine) Patterns() *PatternSet {
	return e.patterns
}

// SourceEvidence is the deduplicated search evidence collected for one
// candidate data source, plus the robots policy verdict for its domains.
type SourceEvidence struct {
	URLs                []string
	Snippets            []string
	RobotsDisallowAll   bool
	RobotsCheckedDomain string
}

// RuleJudgment classifies a data source's access surface.
//
// The three booleans are derived, not independent: an official API
// supersedes blocking, and Blocking is true exactly when neither an API nor
// a crawl path is usable. A judgment is created once per checked source and
// never mutated afterwards.
type RuleJudgment struct {
	HasOfficialAPI bool
	Crawlable      bool
	Blocking       bool
	EvidenceURL    string
	Note           string
}

// EvaluateDataSource classifies a data source from its search evidence.
//
// Positive API signals are counted over the combined URL + snippet text; an
// API-shaped URL contributes exactly one additional positive hit. The
// official-API verdict requires two positive hits and zero negative hits,
// so a single stray mention of an API cannot flip the classification.
func (e *RuleEngine) EvaluateDataSource(ev SourceEvidence) RuleJudgment {
	urls := dedupeNonEmpty(ev.URLs)
	snippets := dedupeNonEmpty(ev.Snippets)
	combined := strings.ToLower(strings.Join(urls, "\n") + "\n" + strings.Join(snippets, "\n"))

	apiShapedURLs := 0
	for _, u := range urls {
		if e.isLikelyAPIURL(u) {
			apiShapedURLs++
		}
	}

	positiveHits := countHits(combined, e.patterns.APIPositive)
	if apiShapedURLs > 0 {
		positiveHits++
	}
	negativeHits := countHits(combined, e.patterns.APINegative)
	legalBlockHits := countHits(combined, e.patterns.LegalBlock)

	hasAPI := positiveHits >= 2 && negativeHits == 0

	crawlSurface := len(urls)-apiShapedURLs > 0 || len(snippets) > 0
	crawlBlocked := legalBlockHits > 0 || ev.RobotsDisallowAll
	crawlable := !hasAPI && crawlSurface && !crawlBlocked
	blocking := !hasAPI && !crawlable

	note := "insufficient API/crawl evidence, manual review recommended"
	switch {
	case hasAPI:
		note = "official API documentation or developer portal confirmed"
	case legalBlockHits > 0:
		note = "terms or policy text signals a ban on automated collection"
	case ev.RobotsDisallowAll:
		if ev.RobotsCheckedDomain != "" {
			note = fmt.Sprintf("robots.txt on %s disallows all crawling", ev.RobotsCheckedDomain)
		} else {
			note = "robots.txt disallows all crawling"
		}
	case crawlable:
		note = "public web evidence found, crawl-based access looks viable"
	}

	return RuleJudgment{
		HasOfficialAPI: hasAPI,
		Crawlable:      crawlable,
		Blocking:       blocking,
		EvidenceURL:    e.pickEvidenceURL(urls, hasAPI),
		Note:           note,
	}
}

// IsLikelyAPIURL reports whether the URL shape suggests API documentation
// (developer subdomain, /api path, swagger/openapi tokens).
func (e *RuleEngine) isLikelyAPIURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, hint := range e.patterns.APIURLHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// pickEvidenceURL prefers the first API-shaped URL when an API was found,
// then falls back to the first deduplicated URL.
func (e *RuleEngine) pickEvidenceURL(urls []string, preferAPI bool) string {
	if len(urls) == 0 {
		return ""
	}
	if preferAPI {
		for _, u := range urls {
			if e.isLikelyAPIURL(u) {
				return u
			}
		}
	}
	return urls[0]
}

func countHits(text string, patterns []*regexp.Regexp) int {
	hits := 0
	for _, re := range patterns {
		if re.MatchString(text) {
			hits++
		}
	}
	return hits
}

func dedupeNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ExtractDomain returns the lowercase hostname of rawURL without a leading
// "www." prefix, or "" when the URL does not parse.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}
