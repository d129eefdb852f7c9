// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StreamEventType represents the type of streaming event
type StreamEventType string

const (
	StreamEventStatus       StreamEventType = "status"
	StreamEventToken        StreamEventType = "token"
	StreamEventStepStart    StreamEventType = "step_start"
	StreamEventStepProgress StreamEventType = "step_progress"
	StreamEventStepResult   StreamEventType = "step_result"
	StreamEventDone         StreamEventType = "done"
	StreamEventError        StreamEventType = "error"
)

// StreamEvent represents a single streaming event from the orchestrator.
//
// # Description
//
// StreamEvent mirrors the server's wire format for both the analysis
// pipeline (step_* events) and direct chat (status/token events). The
// metadata fields (Id, CreatedAt, Hash, PrevHash) come from the server
// and form a hash chain that the CLI can verify.
//
// Result is kept raw; decode it per stage with the report types once the
// step number is known.
type StreamEvent struct {
	Id        string          `json:"id,omitempty"`
	Type      StreamEventType `json:"type"`
	CreatedAt int64           `json:"created_at,omitempty"`
	Hash      string          `json:"hash,omitempty"`
	PrevHash  string          `json:"prev_hash,omitempty"`

	Step        int             `json:"step,omitempty"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Text        string          `json:"text,omitempty"`
	Chars       int             `json:"chars,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`

	Content   string `json:"content,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	// Index is the zero-based position in the received stream.
	// Assigned by the reader, never sent on the wire.
	Index int `json:"-"`
}

// IsTerminal reports whether the event ends the stream.
func (e *StreamEvent) IsTerminal() bool {
	return e.Type == StreamEventDone || e.Type == StreamEventError
}

// StreamCallback is invoked for each parsed event during streaming.
// Returning a non-nil error stops the stream.
type StreamCallback func(event StreamEvent) error

// =============================================================================
// Event Constructors
// =============================================================================

func newEvent(eventType StreamEventType) StreamEvent {
	return StreamEvent{
		Id:        uuid.New().String(),
		Type:      eventType,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// NewStatusEvent creates a status event with a fresh Id and timestamp.
func NewStatusEvent(message string) StreamEvent {
	e := newEvent(StreamEventStatus)
	e.Message = message
	return e
}

// NewTokenEvent creates a token event carrying one chunk of answer text.
func NewTokenEvent(content string) StreamEvent {
	e := newEvent(StreamEventToken)
	e.Content = content
	return e
}

// NewStepStartEvent creates a step_start event for a pipeline stage.
func NewStepStartEvent(step int, title, description string) StreamEvent {
	e := newEvent(StreamEventStepStart)
	e.Step = step
	e.Title = title
	e.Description = description
	return e
}

// NewStepProgressEvent creates a step_progress event.
func NewStepProgressEvent(step int, chars int) StreamEvent {
	e := newEvent(StreamEventStepProgress)
	e.Step = step
	e.Chars = chars
	return e
}

// NewStepResultEvent creates a step_result event carrying a raw payload.
func NewStepResultEvent(step int, result json.RawMessage) StreamEvent {
	e := newEvent(StreamEventStepResult)
	e.Step = step
	e.Result = result
	return e
}

// NewDoneEvent creates a done event.
func NewDoneEvent(sessionID string) StreamEvent {
	e := newEvent(StreamEventDone)
	e.SessionID = sessionID
	return e
}

// NewErrorEvent creates an error event.
func NewErrorEvent(message string) StreamEvent {
	e := newEvent(StreamEventError)
	e.Error = message
	return e
}

// StreamResult contains the complete result of processing a stream.
//
// Answer is populated for chat streams, Report for analysis streams.
// Events holds every received event in order for integrity verification.
type StreamResult struct {
	Answer    string
	Report    *AnalysisReport
	SessionID string
	Error     string
	Events    []StreamEvent

	// Counters for diagnostics and tests.
	TotalEvents int
	TotalTokens int

	// Timing metadata in Unix milliseconds.
	StartedAt    int64
	FirstTokenAt int64
	CompletedAt  int64
}

// HasError reports whether the stream ended with a server error event.
func (r *StreamResult) HasError() bool {
	return r.Error != ""
}

// Duration returns the wall clock time from the first event to completion.
// Returns zero if the stream never started or never completed.
func (r *StreamResult) Duration() time.Duration {
	if r.StartedAt == 0 || r.CompletedAt == 0 {
		return 0
	}
	return time.Duration(r.CompletedAt-r.StartedAt) * time.Millisecond
}

// TimeToFirstToken returns the latency from the start of the stream to the
// first token event. Returns zero for streams that produced no tokens.
func (r *StreamResult) TimeToFirstToken() time.Duration {
	if r.StartedAt == 0 || r.FirstTokenAt == 0 {
		return 0
	}
	return time.Duration(r.FirstTokenAt-r.StartedAt) * time.Millisecond
}
