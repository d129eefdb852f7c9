// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides the result structures for the analysis
// pipeline.
//
// This file contains the per-stage result payloads. Stream event types are
// in events.go.
package datatypes

// =============================================================================
// Stage 1: Market Search
// =============================================================================

// Competitor is one web evidence item. Immutable once produced;
// deduplicated by URL within a single gathering run.
type Competitor struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebSearchResult is stage 1's payload. RawCount is the pre-truncation
// number of reranked results; the competitor list is capped at ten. The
// differentiation stage scores against RawCount, never len(Competitors).
type WebSearchResult struct {
	Competitors []Competitor `json:"competitors"`
	RawCount    int          `json:"raw_count"`
	Summary     string       `json:"summary"`
	Fallback    bool         `json:"fallback,omitempty"`
}

// =============================================================================
// Stage 2: Code Search
// =============================================================================

// GitHubRepo is one repository evidence item.
type GitHubRepo struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Stars       int    `json:"stars"`
	Language    string `json:"language,omitempty"`
}

// GitHubSearchResult is stage 2's payload. TotalCount is the maximum
// provider-reported total across all executed search plans.
type GitHubSearchResult struct {
	Repos      []GitHubRepo `json:"repos"`
	TotalCount int          `json:"total_count"`
	Summary    string       `json:"summary"`
	Fallback   bool         `json:"fallback,omitempty"`
}

// =============================================================================
// Stage 3: Feasibility
// =============================================================================

// DataSource is one data-source judgment. HasOfficialAPI and Blocking are
// never both true; Blocking means neither an API nor a crawl path is usable.
type DataSource struct {
	Name           string `json:"name"`
	HasOfficialAPI bool   `json:"has_official_api"`
	Crawlable      bool   `json:"crawlable"`
	Blocking       bool   `json:"blocking"`
	EvidenceURL    string `json:"evidence_url,omitempty"`
	Note           string `json:"note"`
}

// LibraryCheck is one library-availability judgment.
type LibraryCheck struct {
	Name        string `json:"name"`
	Available   bool   `json:"available_on_registry"`
	PackageName string `json:"package_name,omitempty"`
	Note        string `json:"note"`
}

// DataAvailability bundles all source and library judgments for an idea.
// HasBlockingIssues is true when any judged source came back blocking.
type DataAvailability struct {
	Sources           []DataSource   `json:"sources"`
	Libraries         []LibraryCheck `json:"libraries"`
	HasBlockingIssues bool           `json:"has_blocking_issues"`
}

// Bottleneck is one technical risk surfaced by the feasibility stage.
// Severity is "high", "medium" or "low".
type Bottleneck struct {
	Title       string `json:"title"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// FeasibilityResult is stage 3's payload. Score is 0..100.
type FeasibilityResult struct {
	Score            int               `json:"score"`
	Summary          string            `json:"summary"`
	Bottlenecks      []Bottleneck      `json:"bottlenecks"`
	DataAvailability *DataAvailability `json:"data_availability,omitempty"`
	Fallback         bool              `json:"fallback,omitempty"`
}

// =============================================================================
// Stage 4: Differentiation
// =============================================================================

// Competition bands, reddest first.
const (
	BandRedOcean  = "red_ocean"
	BandModerate  = "moderate"
	BandBlueOcean = "blue_ocean"
)

// DifferentiationResult is stage 4's payload. Score is 0..100 and always
// falls inside its band's range: red 0..39, moderate 40..69, blue 70..100.
type DifferentiationResult struct {
	Band     string   `json:"band"`
	Score    int      `json:"score"`
	Summary  string   `json:"summary"`
	Angles   []string `json:"angles,omitempty"`
	Fallback bool     `json:"fallback,omitempty"`
}

// =============================================================================
// Stage 5: Verdict
// =============================================================================

// Final verdicts.
const (
	VerdictGo    = "GO"
	VerdictPivot = "PIVOT"
	VerdictKill  = "KILL"
)

// VerdictResult is stage 5's payload.
type VerdictResult struct {
	Verdict   string   `json:"verdict"`
	Score     int      `json:"score"`
	Reasoning string   `json:"reasoning"`
	NextSteps []string `json:"next_steps,omitempty"`
	Fallback  bool     `json:"fallback,omitempty"`
}
