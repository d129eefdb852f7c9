// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyzer

import (
	"fmt"

	"github.com/IdeaGaugeAI/IdeaGauge/services/analyzer/datatypes"
)

// Deterministic fallback payloads. Every stage resolves to one of these
// when its AI-dependent step errors, returns malformed output, or when the
// provider's credentials are absent, so the pipeline always emits a
// complete, schema-correct result set.

func fallbackWebSearch(reason string) datatypes.WebSearchResult {
	return datatypes.WebSearchResult{
		Competitors: []datatypes.Competitor{},
		RawCount:    0,
		Summary:     reason,
		Fallback:    true,
	}
}

func fallbackCodeSearch(reason string) datatypes.GitHubSearchResult {
	return datatypes.GitHubSearchResult{
		Repos:    []datatypes.GitHubRepo{},
		Summary:  reason,
		Fallback: true,
	}
}

func fallbackFeasibility() datatypes.FeasibilityResult {
	return datatypes.FeasibilityResult{
		Score:       50,
		Summary:     "AI feasibility analysis was unavailable; neutral score assigned. Check the provider credentials.",
		Bottlenecks: []datatypes.Bottleneck{},
		Fallback:    true,
	}
}

func fallbackDataAvailability() datatypes.DataAvailability {
	return datatypes.DataAvailability{
		Sources:   []datatypes.DataSource{},
		Libraries: []datatypes.LibraryCheck{},
	}
}

// fallbackDifferentiation bands the idea purely on competition signal
// counts. The score is clamped into its band's range so band and score
// never disagree: red 0..39, moderate 40..69, blue 70..100.
func fallbackDifferentiation(web datatypes.WebSearchResult, code datatypes.GitHubSearchResult) datatypes.DifferentiationResult {
	webSignals := web.RawCount
	if webSignals == 0 {
		webSignals = len(web.Competitors)
	}
	codeSignals := len(code.Repos)
	count := webSignals + codeSignals

	band := datatypes.BandBlueOcean
	switch {
	case count > 12:
		band = datatypes.BandRedOcean
	case count > 4:
		band = datatypes.BandModerate
	}

	score := 100 - count*7
	if score < 0 {
		score = 0
	}
	switch band {
	case datatypes.BandRedOcean:
		score = min(score, 39)
	case datatypes.BandModerate:
		score = min(max(score, 40), 69)
	default:
		score = max(score, 70)
	}

	return datatypes.DifferentiationResult{
		Band:  band,
		Score: score,
		Summary: fmt.Sprintf("Automatic judgment from %d competition signals (web %d, GitHub %d).",
			count, webSignals, codeSignals),
		Fallback: true,
	}
}

// fallbackVerdict averages the feasibility and competition scores. A GO
// verdict is demoted to PIVOT when any high-severity bottleneck was found;
// the score average alone must not greenlight a blocked idea.
func fallbackVerdict(feasibility datatypes.FeasibilityResult, differentiation datatypes.DifferentiationResult) datatypes.VerdictResult {
	avg := (feasibility.Score + differentiation.Score) / 2

	verdict := datatypes.VerdictKill
	switch {
	case avg >= 70:
		verdict = datatypes.VerdictGo
	case avg >= 40:
		verdict = datatypes.VerdictPivot
	}

	if verdict == datatypes.VerdictGo {
		for _, b := range feasibility.Bottlenecks {
			if b.Severity == "high" {
				verdict = datatypes.VerdictPivot
				break
			}
		}
	}

	return datatypes.VerdictResult{
		Verdict:   verdict,
		Score:     avg,
		Reasoning: "Score-based automatic verdict without AI analysis.",
		NextSteps: []string{"Configure provider credentials for a full AI-backed analysis."},
		Fallback:  true,
	}
}
