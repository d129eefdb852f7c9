// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// StreamEvent is the wire form of a single SSE event.
//
// # Description
//
// StreamEvent wraps both analysis pipeline events (step_start,
// step_progress, step_result, done, error) and direct chat events (status,
// token, done, error). Metadata fields (Id, CreatedAt, Hash, PrevHash) are
// populated by the SSE writer; the hash chain lets clients verify that no
// event was dropped or reordered in transit.
//
// # Fields
//
//   - Id: UUID v4 assigned per event.
//   - Type: Event type discriminator.
//   - CreatedAt: Unix timestamp in milliseconds.
//   - Hash: SHA-256 over this event's content.
//   - PrevHash: Hash of the preceding event, empty for the first.
//   - Step: Pipeline stage number (1-5) for step_* events.
//   - Title, Description: Stage labels for step_start events.
//   - Text, Chars: Streaming preview and cumulative character count for
//     step_progress events.
//   - Result: Stage result payload for step_result events.
//   - Content: Token text for chat token events.
//   - Message: Human-readable text for status, done and error events.
//   - Error: Sanitized error message for error events.
//   - SessionId: Session identifier on done events.
type StreamEvent struct {
	Id        string `json:"id,omitempty"`
	Type      string `json:"type"`
	CreatedAt int64  `json:"created_at,omitempty"`
	Hash      string `json:"hash,omitempty"`
	PrevHash  string `json:"prev_hash,omitempty"`

	Step        int    `json:"step,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text,omitempty"`
	Chars       int    `json:"chars,omitempty"`
	Result      any    `json:"result,omitempty"`

	Content   string `json:"content,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	SessionId string `json:"session_id,omitempty"`
}
