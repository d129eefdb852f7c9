// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides user experience components for the IdeaGauge CLI.
//
// This file contains parsers for streaming response formats.
// Parsers are responsible for converting raw bytes/lines into StreamEvent structs.
//
// Single Responsibility:
//
//	Parsers ONLY parse. They do not perform I/O, rendering, or state management.
//	This separation enables easy testing and format extensibility.
package ux

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SSE Parser Interface
// =============================================================================

// SSEParser parses Server-Sent Events format into StreamEvent structs.
//
// SSE Format Reference (https://developer.mozilla.org/en-US/docs/Web/API/Server-sent_events):
//
//	event: step_result\n
//	data: {"type":"step_result","step":1,...}\n
//	\n
//
// Each line starting with "data: " contains a JSON payload.
// Lines starting with "event:" name the event type; the type is repeated
// inside the JSON payload, so they carry no extra information and are
// skipped. Empty lines are event delimiters. Lines starting with ":" are
// comments (the server uses them as keep-alives).
//
// Chain Integrity:
//
//	The server assigns Id, CreatedAt, Hash, and PrevHash to every event
//	and chains the hashes. The parser preserves those fields exactly as
//	received so a ChainVerifier can recompute them. It never regenerates
//	identity fields for well-formed payloads.
//
// Thread Safety:
//
//	SSEParser implementations must be safe for concurrent use.
//	The default implementation is stateless and inherently thread-safe.
type SSEParser interface {
	// ParseLine parses a single line of SSE input.
	//
	// Parameters:
	//   - line: A single line from the SSE stream (without trailing newline)
	//
	// Returns:
	//   - *StreamEvent: The parsed event, or nil for empty/comment/field lines
	//   - error: Non-nil if JSON parsing failed
	//
	// Line handling:
	//   - Empty lines: Returns nil, nil (event delimiter)
	//   - Comment lines (":"): Returns nil, nil (keep-alive, ignored)
	//   - Event lines ("event:"): Returns nil, nil (type lives in the payload)
	//   - Data lines ("data: "): Parses JSON payload
	//   - Other lines: Treated as raw token content
	ParseLine(line string) (*StreamEvent, error)

	// ParseRawJSON parses a raw JSON payload into a StreamEvent.
	//
	// Use this when you have JSON without the "data: " prefix.
	// Server-assigned metadata (Id, CreatedAt, Hash, PrevHash) is preserved.
	ParseRawJSON(jsonData []byte) (*StreamEvent, error)
}

// =============================================================================
// SSE Parser Implementation
// =============================================================================

// sseParser implements SSEParser for Server-Sent Events format.
//
// This implementation is stateless and safe for concurrent use.
type sseParser struct{}

// NewSSEParser creates a new SSE parser.
//
// The returned parser is stateless and can be safely shared across goroutines.
func NewSSEParser() SSEParser {
	return &sseParser{}
}

// ParseLine parses a single SSE line.
func (p *sseParser) ParseLine(line string) (*StreamEvent, error) {
	line = strings.TrimSpace(line)

	// Empty lines are event delimiters
	if line == "" {
		return nil, nil
	}

	// Comments start with ":" (server keep-alives arrive as ": ping")
	if strings.HasPrefix(line, ":") {
		return nil, nil
	}

	// The event name field duplicates the payload's type field
	if strings.HasPrefix(line, "event:") {
		return nil, nil
	}

	// Data lines start with "data: "
	if strings.HasPrefix(line, "data: ") {
		jsonData := strings.TrimPrefix(line, "data: ")
		return p.ParseRawJSON([]byte(jsonData))
	}

	// Also handle "data:" without space (some servers do this)
	if strings.HasPrefix(line, "data:") {
		jsonData := strings.TrimPrefix(line, "data:")
		return p.ParseRawJSON([]byte(jsonData))
	}

	// Non-JSON line - treat as raw token.
	// This handles servers that send plain text tokens.
	return &StreamEvent{
		Id:        uuid.New().String(),
		CreatedAt: time.Now().UnixMilli(),
		Type:      StreamEventToken,
		Content:   line,
	}, nil
}

// ParseRawJSON parses a JSON payload into a StreamEvent.
//
// StreamEvent's JSON tags match the server wire format directly, so the
// payload unmarshals without translation. Hash chain metadata survives
// the round trip untouched; recomputing it here would break verification.
func (p *sseParser) ParseRawJSON(jsonData []byte) (*StreamEvent, error) {
	event := &StreamEvent{}
	if err := json.Unmarshal(jsonData, event); err != nil {
		return nil, err
	}
	return event, nil
}

// =============================================================================
// Compile-time Interface Check
// =============================================================================

var _ SSEParser = (*sseParser)(nil)
