// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides user experience components for the IdeaGauge CLI.
//
// This file defines the client-side view of the analysis report. The
// structs mirror the orchestrator's stage payloads so the CLI can decode
// step_result events without importing server packages.
package ux

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// Stage Payloads
// =============================================================================

// Competitor is one market evidence item from stage 1.
type Competitor struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// MarketResult is the stage 1 payload.
type MarketResult struct {
	Competitors []Competitor `json:"competitors"`
	RawCount    int          `json:"raw_count"`
	Summary     string       `json:"summary"`
	Fallback    bool         `json:"fallback,omitempty"`
}

// Repo is one repository evidence item from stage 2.
type Repo struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Stars       int    `json:"stars"`
	Language    string `json:"language,omitempty"`
}

// RepoResult is the stage 2 payload.
type RepoResult struct {
	Repos      []Repo `json:"repos"`
	TotalCount int    `json:"total_count"`
	Summary    string `json:"summary"`
	Fallback   bool   `json:"fallback,omitempty"`
}

// DataSource is one data-source judgment from stage 3.
type DataSource struct {
	Name           string `json:"name"`
	HasOfficialAPI bool   `json:"has_official_api"`
	Crawlable      bool   `json:"crawlable"`
	Blocking       bool   `json:"blocking"`
	EvidenceURL    string `json:"evidence_url,omitempty"`
	Note           string `json:"note"`
}

// LibraryCheck is one library-availability judgment from stage 3.
type LibraryCheck struct {
	Name        string `json:"name"`
	Available   bool   `json:"available_on_registry"`
	PackageName string `json:"package_name,omitempty"`
	Note        string `json:"note"`
}

// DataAvailability bundles all stage 3 source and library judgments.
type DataAvailability struct {
	Sources           []DataSource   `json:"sources"`
	Libraries         []LibraryCheck `json:"libraries"`
	HasBlockingIssues bool           `json:"has_blocking_issues"`
}

// Bottleneck is one technical risk from stage 3.
type Bottleneck struct {
	Title       string `json:"title"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// FeasibilityResult is the stage 3 payload.
type FeasibilityResult struct {
	Score            int               `json:"score"`
	Summary          string            `json:"summary"`
	Bottlenecks      []Bottleneck      `json:"bottlenecks"`
	DataAvailability *DataAvailability `json:"data_availability,omitempty"`
	Fallback         bool              `json:"fallback,omitempty"`
}

// DifferentiationResult is the stage 4 payload.
type DifferentiationResult struct {
	Band     string   `json:"band"`
	Score    int      `json:"score"`
	Summary  string   `json:"summary"`
	Angles   []string `json:"angles,omitempty"`
	Fallback bool     `json:"fallback,omitempty"`
}

// VerdictResult is the stage 5 payload.
type VerdictResult struct {
	Verdict   string   `json:"verdict"`
	Score     int      `json:"score"`
	Reasoning string   `json:"reasoning"`
	NextSteps []string `json:"next_steps,omitempty"`
	Fallback  bool     `json:"fallback,omitempty"`
}

// Final verdicts as emitted by stage 5.
const (
	VerdictGo    = "GO"
	VerdictPivot = "PIVOT"
	VerdictKill  = "KILL"
)

// =============================================================================
// Report
// =============================================================================

// AnalysisReport accumulates decoded stage results over one analysis run.
// Stages the caller skipped stay nil.
type AnalysisReport struct {
	Market          *MarketResult          `json:"market,omitempty"`
	Repos           *RepoResult            `json:"repos,omitempty"`
	Feasibility     *FeasibilityResult     `json:"feasibility,omitempty"`
	Differentiation *DifferentiationResult `json:"differentiation,omitempty"`
	Verdict         *VerdictResult         `json:"verdict,omitempty"`
}

// ApplyStageResult decodes one step_result payload into the report slot
// for the given stage.
func (r *AnalysisReport) ApplyStageResult(step int, raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("stage %d: empty result payload", step)
	}

	switch step {
	case 1:
		r.Market = &MarketResult{}
		return json.Unmarshal(raw, r.Market)
	case 2:
		r.Repos = &RepoResult{}
		return json.Unmarshal(raw, r.Repos)
	case 3:
		r.Feasibility = &FeasibilityResult{}
		return json.Unmarshal(raw, r.Feasibility)
	case 4:
		r.Differentiation = &DifferentiationResult{}
		return json.Unmarshal(raw, r.Differentiation)
	case 5:
		r.Verdict = &VerdictResult{}
		return json.Unmarshal(raw, r.Verdict)
	default:
		return fmt.Errorf("unknown stage %d", step)
	}
}

// Complete reports whether a final verdict arrived.
func (r *AnalysisReport) Complete() bool {
	return r.Verdict != nil
}
