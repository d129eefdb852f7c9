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

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		eventType StreamEventType
		terminal  bool
	}{
		{StreamEventStatus, false},
		{StreamEventToken, false},
		{StreamEventStepStart, false},
		{StreamEventStepProgress, false},
		{StreamEventStepResult, false},
		{StreamEventDone, true},
		{StreamEventError, true},
	}

	for _, tt := range tests {
		event := StreamEvent{Type: tt.eventType}
		if event.IsTerminal() != tt.terminal {
			t.Errorf("%s: expected terminal=%v", tt.eventType, tt.terminal)
		}
	}
}

func TestEventConstructors(t *testing.T) {
	status := NewStatusEvent("connecting")
	if status.Type != StreamEventStatus || status.Message != "connecting" {
		t.Error("status constructor incorrect")
	}
	if status.Id == "" || status.CreatedAt == 0 {
		t.Error("constructors should assign id and timestamp")
	}

	token := NewTokenEvent("hi")
	if token.Type != StreamEventToken || token.Content != "hi" {
		t.Error("token constructor incorrect")
	}

	start := NewStepStartEvent(2, "Open Source Scan", "Searching GitHub")
	if start.Step != 2 || start.Title != "Open Source Scan" || start.Description != "Searching GitHub" {
		t.Error("step start constructor incorrect")
	}

	progress := NewStepProgressEvent(2, 160)
	if progress.Step != 2 || progress.Chars != 160 {
		t.Error("step progress constructor incorrect")
	}

	result := NewStepResultEvent(5, json.RawMessage(`{"verdict":"GO"}`))
	if result.Step != 5 || string(result.Result) != `{"verdict":"GO"}` {
		t.Error("step result constructor incorrect")
	}

	done := NewDoneEvent("sess-1")
	if done.Type != StreamEventDone || done.SessionID != "sess-1" {
		t.Error("done constructor incorrect")
	}

	errEvent := NewErrorEvent("boom")
	if errEvent.Type != StreamEventError || errEvent.Error != "boom" {
		t.Error("error constructor incorrect")
	}
}

func TestStreamEventJSONRoundTrip(t *testing.T) {
	original := StreamEvent{
		Id:        "evt-1",
		Type:      StreamEventStepResult,
		CreatedAt: 1735657200000,
		Hash:      "aaaa",
		PrevHash:  "bbbb",
		Step:      3,
		Result:    json.RawMessage(`{"score":70}`),
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded StreamEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.Id != original.Id || decoded.Hash != original.Hash ||
		decoded.PrevHash != original.PrevHash || decoded.Step != original.Step {
		t.Error("metadata should round-trip")
	}
	if string(decoded.Result) != `{"score":70}` {
		t.Errorf("raw result should round-trip, got %s", decoded.Result)
	}
}
