// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"encoding/json"
	"testing"
)

func TestApplyStageResult_AllStages(t *testing.T) {
	report := &AnalysisReport{}

	payloads := map[int]string{
		1: `{"competitors":[{"title":"Acme","url":"https://acme.dev","snippet":"s"}],"raw_count":3,"summary":"crowded"}`,
		2: `{"repos":[{"name":"acme/tool","url":"https://github.com/acme/tool","description":"d","stars":410,"language":"Go"}],"total_count":12,"summary":"active"}`,
		3: `{"score":70,"summary":"feasible","bottlenecks":[{"title":"rate limits","severity":"medium","description":"d"}],"data_availability":{"sources":[{"name":"Reddit","has_official_api":true,"crawlable":false,"blocking":false,"note":"n"}],"libraries":[{"name":"praw","available_on_registry":true,"package_name":"praw","note":"n"}]}}`,
		4: `{"band":"moderate","score":55,"summary":"some angles","angles":["niche focus"]}`,
		5: `{"verdict":"GO","score":72,"reasoning":"r","next_steps":["build an MVP"]}`,
	}

	for step, payload := range payloads {
		if err := report.ApplyStageResult(step, json.RawMessage(payload)); err != nil {
			t.Fatalf("stage %d: unexpected error: %v", step, err)
		}
	}

	if report.Market == nil || report.Market.Summary != "crowded" {
		t.Error("stage 1 did not decode into Market")
	}
	if report.Repos == nil || report.Repos.Repos[0].Stars != 410 {
		t.Error("stage 2 did not decode into Repos")
	}
	if report.Feasibility == nil || report.Feasibility.Score != 70 {
		t.Error("stage 3 did not decode into Feasibility")
	}
	if report.Feasibility.DataAvailability == nil ||
		len(report.Feasibility.DataAvailability.Sources) != 1 ||
		!report.Feasibility.DataAvailability.Sources[0].HasOfficialAPI {
		t.Error("stage 3 data availability did not decode")
	}
	if report.Differentiation == nil || report.Differentiation.Band != "moderate" {
		t.Error("stage 4 did not decode into Differentiation")
	}
	if report.Verdict == nil || report.Verdict.Verdict != VerdictGo {
		t.Error("stage 5 did not decode into Verdict")
	}
	if !report.Complete() {
		t.Error("report should be complete after stage 5")
	}
}

func TestApplyStageResult_UnknownStage(t *testing.T) {
	report := &AnalysisReport{}

	if err := report.ApplyStageResult(9, json.RawMessage(`{}`)); err == nil {
		t.Error("expected error for unknown stage")
	}
}

func TestApplyStageResult_EmptyPayload(t *testing.T) {
	report := &AnalysisReport{}

	if err := report.ApplyStageResult(1, nil); err == nil {
		t.Error("expected error for empty payload")
	}
}

func TestApplyStageResult_MalformedPayload(t *testing.T) {
	report := &AnalysisReport{}

	if err := report.ApplyStageResult(3, json.RawMessage(`{"score":"high"}`)); err == nil {
		t.Error("expected error for type-mismatched payload")
	}
}

func TestComplete_WithoutVerdict(t *testing.T) {
	report := &AnalysisReport{}

	if err := report.ApplyStageResult(1, json.RawMessage(`{"competitors":[],"raw_count":0,"summary":"s"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Complete() {
		t.Error("report without a verdict should not be complete")
	}
}

func TestApplyStageResult_FallbackFlagSurvives(t *testing.T) {
	report := &AnalysisReport{}

	if err := report.ApplyStageResult(1, json.RawMessage(`{"competitors":[],"raw_count":0,"summary":"no data","fallback":true}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Market.Fallback {
		t.Error("fallback flag should decode")
	}
}
