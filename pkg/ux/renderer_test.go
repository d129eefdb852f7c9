// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// Terminal Renderer Tests (machine personality; no spinner side effects)
// =============================================================================

func TestTerminalRenderer_MachineChatFlow(t *testing.T) {
	var buf bytes.Buffer
	renderer := NewTerminalStreamRenderer(&buf, PersonalityMachine)
	ctx := context.Background()

	renderer.OnStatus(ctx, "Connecting...")
	renderer.OnToken(ctx, "Hello")
	renderer.OnToken(ctx, " world")
	renderer.OnDone(ctx, "sess-1")
	renderer.Finalize()

	output := buf.String()
	if !strings.Contains(output, "STATUS: Connecting...") {
		t.Errorf("missing status line: %q", output)
	}
	if !strings.Contains(output, "ANSWER: Hello world") {
		t.Errorf("missing answer line: %q", output)
	}
	if !strings.Contains(output, "SESSION: sess-1") {
		t.Errorf("missing session line: %q", output)
	}
	if !strings.Contains(output, "DONE") {
		t.Errorf("missing DONE line: %q", output)
	}

	result := renderer.Result()
	if result.Answer != "Hello world" {
		t.Errorf("unexpected answer %q", result.Answer)
	}
	if result.TotalTokens != 2 {
		t.Errorf("expected 2 tokens, got %d", result.TotalTokens)
	}
}

func TestTerminalRenderer_MachineAnalysisFlow(t *testing.T) {
	var buf bytes.Buffer
	renderer := NewTerminalStreamRenderer(&buf, PersonalityMachine)
	ctx := context.Background()

	renderer.OnStepStart(ctx, 1, "Market Scan", "Searching the web")
	renderer.OnStepProgress(ctx, 1, 160)
	renderer.OnStepResult(ctx, 1, json.RawMessage(`{"competitors":[],"raw_count":2,"summary":"s"}`))
	renderer.OnStepResult(ctx, 5, json.RawMessage(`{"verdict":"KILL","score":20,"reasoning":"r"}`))
	renderer.OnDone(ctx, "sess-2")
	renderer.Finalize()

	output := buf.String()
	if !strings.Contains(output, "STEP_START: 1 Market Scan") {
		t.Errorf("missing step start: %q", output)
	}
	if !strings.Contains(output, "STEP_PROGRESS: 1 chars=160") {
		t.Errorf("missing step progress: %q", output)
	}
	if !strings.Contains(output, "STEP_RESULT: 1") {
		t.Errorf("missing step result: %q", output)
	}
	if !strings.Contains(output, "VERDICT: KILL score=20") {
		t.Errorf("missing verdict line: %q", output)
	}

	result := renderer.Result()
	if result.Report == nil || result.Report.Verdict == nil {
		t.Fatal("renderer should accumulate the report")
	}
	if result.Report.Verdict.Verdict != VerdictKill {
		t.Errorf("unexpected verdict %q", result.Report.Verdict.Verdict)
	}
}

func TestTerminalRenderer_MachineErrorFlow(t *testing.T) {
	var buf bytes.Buffer
	renderer := NewTerminalStreamRenderer(&buf, PersonalityMachine)
	ctx := context.Background()

	renderer.OnError(ctx, errors.New("llm unavailable"))
	renderer.Finalize()

	if !strings.Contains(buf.String(), "ERROR: llm unavailable") {
		t.Errorf("missing error line: %q", buf.String())
	}
	if renderer.Result().Error != "llm unavailable" {
		t.Error("error should be captured in the result")
	}
}

func TestTerminalRenderer_IgnoresEventsAfterFinalize(t *testing.T) {
	var buf bytes.Buffer
	renderer := NewTerminalStreamRenderer(&buf, PersonalityMachine)
	ctx := context.Background()

	renderer.OnToken(ctx, "before")
	renderer.Finalize()
	renderer.OnToken(ctx, " after")

	if renderer.Result().Answer != "before" {
		t.Errorf("tokens after Finalize should be ignored, got %q", renderer.Result().Answer)
	}
}

func TestTerminalRenderer_FinalizeIdempotent(t *testing.T) {
	var buf bytes.Buffer
	renderer := NewTerminalStreamRenderer(&buf, PersonalityMachine)

	renderer.Finalize()
	renderer.Finalize()

	if renderer.Result().CompletedAt == 0 {
		t.Error("CompletedAt should be set by Finalize")
	}
}

// =============================================================================
// Buffer Renderer Tests
// =============================================================================

func TestBufferRenderer_CapturesEventsInOrder(t *testing.T) {
	renderer := NewBufferStreamRenderer()
	ctx := context.Background()

	renderer.OnStatus(ctx, "start")
	renderer.OnStepStart(ctx, 1, "Market Scan", "")
	renderer.OnStepProgress(ctx, 1, 80)
	renderer.OnStepResult(ctx, 1, json.RawMessage(`{"competitors":[],"raw_count":0,"summary":"s"}`))
	renderer.OnDone(ctx, "sess-3")
	renderer.Finalize()

	events := renderer.(*bufferStreamRenderer).Events()
	expected := []StreamEventType{
		StreamEventStatus,
		StreamEventStepStart,
		StreamEventStepProgress,
		StreamEventStepResult,
		StreamEventDone,
	}
	if len(events) != len(expected) {
		t.Fatalf("expected %d events, got %d", len(expected), len(events))
	}
	for i, want := range expected {
		if events[i].Type != want {
			t.Errorf("event %d: expected %q, got %q", i, want, events[i].Type)
		}
	}
}

func TestBufferRenderer_AccumulatesAnswerAndReport(t *testing.T) {
	renderer := NewBufferStreamRenderer()
	ctx := context.Background()

	renderer.OnToken(ctx, "Hello")
	renderer.OnToken(ctx, " world")
	renderer.OnStepResult(ctx, 5, json.RawMessage(`{"verdict":"GO","score":80,"reasoning":"r"}`))
	renderer.OnDone(ctx, "sess-4")
	renderer.Finalize()

	result := renderer.Result()
	if result.Answer != "Hello world" {
		t.Errorf("unexpected answer %q", result.Answer)
	}
	if result.Report == nil || result.Report.Verdict == nil {
		t.Fatal("report should accumulate stage results")
	}
	if result.SessionID != "sess-4" {
		t.Errorf("unexpected session %q", result.SessionID)
	}
}

func TestBufferRenderer_ErrorCapture(t *testing.T) {
	renderer := NewBufferStreamRenderer()
	ctx := context.Background()

	renderer.OnError(ctx, errors.New("boom"))
	renderer.Finalize()

	if renderer.Result().Error != "boom" {
		t.Error("error should be captured")
	}
	events := renderer.(*bufferStreamRenderer).Events()
	if len(events) != 1 || events[0].Type != StreamEventError {
		t.Error("error event should be captured")
	}
}

// =============================================================================
// RenderStream Tests
// =============================================================================

func TestRenderStream_DispatchesAllEventTypes(t *testing.T) {
	renderer := NewBufferStreamRenderer()

	result, err := RenderStream(context.Background(),
		NewSSEStreamReader(NewSSEParser()),
		strings.NewReader(analysisStreamFixture),
		renderer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Report == nil || result.Report.Verdict == nil {
		t.Fatal("expected a completed report")
	}
	if result.Report.Verdict.Verdict != VerdictPivot {
		t.Errorf("unexpected verdict %q", result.Report.Verdict.Verdict)
	}
	if result.SessionID != "sess-42" {
		t.Errorf("unexpected session %q", result.SessionID)
	}

	events := renderer.(*bufferStreamRenderer).Events()
	if len(events) != 5 {
		t.Errorf("expected 5 dispatched events, got %d", len(events))
	}
}

func TestRenderStreamToResult(t *testing.T) {
	result, err := RenderStreamToResult(context.Background(),
		NewSSEStreamReader(NewSSEParser()),
		strings.NewReader(chatStreamFixture))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Answer != "The market is crowded." {
		t.Errorf("unexpected answer %q", result.Answer)
	}
}

// =============================================================================
// Stage Title Tests
// =============================================================================

func TestStageTitle(t *testing.T) {
	if stageTitle(1, "Custom") != "Custom" {
		t.Error("explicit title should win")
	}
	if stageTitle(3, "") != "Feasibility" {
		t.Error("known stages should have fallback titles")
	}
	if stageTitle(9, "") != "Stage 9" {
		t.Error("unknown stages should render generically")
	}
}
