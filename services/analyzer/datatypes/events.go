// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// Event types emitted by the analysis pipeline, in the order a consumer
// sees them per stage: step_start, zero or more step_progress, step_result.
// A single done event terminates every run; error is reserved for transport
// failures, never for provider degradation.
const (
	EventStepStart    = "step_start"
	EventStepProgress = "step_progress"
	EventStepResult   = "step_result"
	EventDone         = "done"
	EventError        = "error"
)

// Stage statuses tracked by the orchestrator's state machine.
const (
	StageStatusPending = "pending"
	StageStatusLoading = "loading"
	StageStatusDone    = "done"
)

// Event is one element of the pipeline's ordered event stream.
//
// Step is 1..5 for step_* events and zero for done/error. Chars carries the
// cumulative streamed character count on step_progress events. Result holds
// the stage payload on step_result events and is one of the stage result
// structs from analysis.go.
type Event struct {
	Type        string `json:"type"`
	Step        int    `json:"step,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text,omitempty"`
	Chars       int    `json:"chars,omitempty"`
	Result      any    `json:"result,omitempty"`
	Message     string `json:"message,omitempty"`
}

// StageState is the orchestrator's per-stage record. One instance per
// enabled stage per run; mutated in place, terminal in the done status.
type StageState struct {
	Step         int    `json:"step"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Status       string `json:"status"`
	ProgressText string `json:"progress_text,omitempty"`
	Result       any    `json:"result,omitempty"`
}
