// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides user experience components for the IdeaGauge CLI.
//
// This file defines integrity verification types for hash chain validation.
// The hash chain provides tamper-evident logging for streamed analyses.
//
// Hash Chain Design:
//
//	Each StreamEvent has a Hash computed from its content and a PrevHash
//	linking to the previous event. This creates a chain similar to blockchain:
//
//	Event[0] → Event[1] → Event[2] → ... → Event[N]
//	  Hash₀     Hash₁     Hash₂           HashN
//	    ↑         ↑         ↑               ↑
//	    └─────────┴─────────┴───────────────┘
//	           Each PrevHash links to previous Hash
//
// If any event is modified, its hash changes, breaking the chain.
package ux

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

// secureHashEqual performs constant-time comparison of two hash strings.
// This prevents timing attacks where an attacker could determine how many
// leading characters of a hash are correct by measuring response times.
func secureHashEqual(a, b string) bool {
	// subtle.ConstantTimeCompare returns 1 if equal, 0 if not
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// =============================================================================
// Interfaces
// =============================================================================

// ChainVerifier verifies the integrity of a sequence of stream events.
//
// # Description
//
// Verifies that the hash chain is unbroken and that every stored hash
// matches a recomputation from the event's own fields.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type ChainVerifier interface {
	// Verify checks the integrity of a sequence of stream events.
	//
	// # Inputs
	//
	//   - events: Ordered list of stream events from the session
	//
	// # Outputs
	//
	//   - *ChainVerificationResult: Detailed verification results
	//
	// # Assumptions
	//
	//   - Events are in chronological order
	//   - First event has empty PrevHash
	Verify(events []StreamEvent) *ChainVerificationResult
}

// HashComputer computes cryptographic hashes for stream events.
//
// # Description
//
// Abstracts hash computation for testability. The production
// implementation mirrors the orchestrator's hash input exactly; a
// computed hash matches the stored one only if every covered field
// survived the wire untouched.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type HashComputer interface {
	// ComputeEventHash recomputes the server-side hash for an event.
	//
	// The event's own Hash field is not part of the input.
	//
	// # Outputs
	//
	//   - string: 64-character hex hash
	ComputeEventHash(event StreamEvent) string

	// ComputeContentHash computes a plain SHA-256 hash of content.
	//
	// # Outputs
	//
	//   - string: 64-character hex hash
	ComputeContentHash(content string) string
}

// =============================================================================
// Structs
// =============================================================================

// ChainVerificationResult contains detailed results from chain verification.
//
// # Description
//
// Returned by ChainVerifier.Verify to provide detailed information about
// the verification process, including where any failures occurred.
//
// # Fields
//
//   - Valid: Whether the entire chain is valid
//   - ChainLength: Number of events verified
//   - FinalHash: The hash of the last event in the chain
//   - InvalidEventIndex: Index of first invalid event (-1 if all valid)
//   - ExpectedHash: What the hash should have been (if invalid)
//   - ActualHash: What the hash actually was (if invalid)
//   - ErrorMessage: Human-readable error description
//
// # Thread Safety
//
// Immutable after creation. Safe for concurrent read access.
type ChainVerificationResult struct {
	Valid             bool   `json:"valid"`
	ChainLength       int    `json:"chain_length"`
	FinalHash         string `json:"final_hash,omitempty"`
	InvalidEventIndex int    `json:"invalid_event_index"`
	ExpectedHash      string `json:"expected_hash,omitempty"`
	ActualHash        string `json:"actual_hash,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
}

// IntegrityInfo surfaces hash chain verification results to users.
//
// # Description
//
// Shows users that the analysis stream is protected by a hash chain.
// Hashes are safe to display - they cannot be reversed to reveal content.
//
// # Fields
//
//   - ChainHash: Final hash of the streaming chain (64-char hex)
//   - ContentHash: SHA-256 of the accumulated answer text
//   - ChainLength: Number of events in chain
//   - IntegrityVerified: Whether verification passed
//   - VerificationError: Details if verification failed
//   - VerifiedAt: When verification was performed (Unix ms)
type IntegrityInfo struct {
	ChainHash         string `json:"chain_hash"`
	ContentHash       string `json:"content_hash,omitempty"`
	ChainLength       int    `json:"chain_length"`
	IntegrityVerified bool   `json:"integrity_verified"`
	VerificationError string `json:"verification_error,omitempty"`
	VerifiedAt        int64  `json:"verified_at,omitempty"`
}

// fullChainVerifier verifies chains by recomputing all hashes.
type fullChainVerifier struct {
	hashComputer HashComputer
}

// sha256HashComputer mirrors the orchestrator's SHA-256 event hashing.
type sha256HashComputer struct{}

// =============================================================================
// Constructor Functions
// =============================================================================

// NewFullChainVerifier creates a verifier that recomputes every hash.
func NewFullChainVerifier() ChainVerifier {
	return &fullChainVerifier{
		hashComputer: NewSHA256HashComputer(),
	}
}

// NewSHA256HashComputer creates the production hash computer.
func NewSHA256HashComputer() HashComputer {
	return &sha256HashComputer{}
}

// NewIntegrityInfo builds display-ready integrity information from a
// completed stream and its verification result.
//
// The chain hash is the last event's hash; the content hash covers the
// accumulated answer text (empty for pure analysis streams).
func NewIntegrityInfo(result *StreamResult, verification *ChainVerificationResult) *IntegrityInfo {
	info := &IntegrityInfo{
		ChainLength: verification.ChainLength,
		ChainHash:   verification.FinalHash,
		VerifiedAt:  time.Now().UnixMilli(),
	}
	if result != nil && result.Answer != "" {
		info.ContentHash = NewSHA256HashComputer().ComputeContentHash(result.Answer)
	}
	if verification.Valid {
		info.IntegrityVerified = true
	} else {
		info.VerificationError = verification.ErrorMessage
	}
	return info
}

// =============================================================================
// IntegrityInfo Methods
// =============================================================================

// FormatForDisplay returns a human-readable integrity summary.
func (i *IntegrityInfo) FormatForDisplay() string {
	if !i.IntegrityVerified {
		return fmt.Sprintf("integrity: FAILED (%s)", i.VerificationError)
	}
	if i.ChainHash == "" {
		return fmt.Sprintf("integrity: verified (%d events)", i.ChainLength)
	}
	return fmt.Sprintf("integrity: verified (%d events, chain %s)",
		i.ChainLength, truncateHash(i.ChainHash))
}

// =============================================================================
// fullChainVerifier Methods
// =============================================================================

// Verify fully verifies the chain by recomputing all hashes.
//
// # Description
//
// Performs complete verification by:
//  1. Checking first event has empty PrevHash
//  2. Verifying each event's PrevHash matches previous event's Hash
//  3. Recomputing each event's hash from its fields
//  4. Verifying computed hash matches stored Hash
//
// # Inputs
//
//   - events: Ordered list of stream events from the session
//
// # Outputs
//
//   - *ChainVerificationResult: Detailed verification results
//
// # Limitations
//
//   - Computationally expensive for large event chains
//
// # Assumptions
//
//   - Events are in chronological order
func (v *fullChainVerifier) Verify(events []StreamEvent) *ChainVerificationResult {
	result := &ChainVerificationResult{
		Valid:             true,
		ChainLength:       len(events),
		InvalidEventIndex: -1,
	}

	if len(events) == 0 {
		return result
	}

	// First event should have empty PrevHash
	if events[0].PrevHash != "" {
		result.Valid = false
		result.InvalidEventIndex = 0
		result.ExpectedHash = ""
		result.ActualHash = events[0].PrevHash
		result.ErrorMessage = "first event should have empty PrevHash"
		return result
	}

	// Walk the chain verifying both hash computation and chain links
	prevHash := ""
	for i, event := range events {
		// Verify PrevHash links correctly (constant-time comparison to prevent timing attacks)
		if !secureHashEqual(event.PrevHash, prevHash) {
			result.Valid = false
			result.InvalidEventIndex = i
			result.ExpectedHash = prevHash
			result.ActualHash = event.PrevHash
			result.ErrorMessage = fmt.Sprintf(
				"chain broken at event %d: expected PrevHash %s, got %s",
				i, truncateHash(prevHash), truncateHash(event.PrevHash),
			)
			return result
		}

		// Recompute hash from the event's fields
		computedHash := v.hashComputer.ComputeEventHash(event)
		// Constant-time comparison to prevent timing attacks
		if !secureHashEqual(computedHash, event.Hash) {
			result.Valid = false
			result.InvalidEventIndex = i
			result.ExpectedHash = computedHash
			result.ActualHash = event.Hash
			result.ErrorMessage = fmt.Sprintf(
				"hash mismatch at event %d: computed %s, stored %s (content may have been modified)",
				i, truncateHash(computedHash), truncateHash(event.Hash),
			)
			return result
		}

		prevHash = event.Hash
	}

	result.FinalHash = events[len(events)-1].Hash
	return result
}

// =============================================================================
// sha256HashComputer Methods
// =============================================================================

// ComputeEventHash recomputes the server-side hash for a stream event.
//
// # Description
//
// The input string concatenates every content field with "|" delimiters,
// in the fixed order the orchestrator uses. The raw Result payload is
// included verbatim; re-encoding it could reorder keys and change the
// hash, so the bytes pass through untouched.
//
// # Inputs
//
//   - event: The event to hash. Its Hash field is ignored.
//
// # Outputs
//
//   - string: 64-character lowercase hexadecimal hash
//
// # Limitations
//
//   - Format must match server-side computation exactly
func (c *sha256HashComputer) ComputeEventHash(event StreamEvent) string {
	resultJSON := ""
	if len(event.Result) > 0 {
		resultJSON = string(event.Result)
	}

	hashInput := fmt.Sprintf("%s|%s|%d|%s|%d|%s|%s|%s|%d|%s|%s|%s|%s|%s",
		event.Id,
		event.Type,
		event.CreatedAt,
		event.PrevHash,
		event.Step,
		event.Title,
		event.Description,
		event.Text,
		event.Chars,
		event.Content,
		event.Message,
		event.Error,
		event.SessionID,
		resultJSON,
	)

	hash := sha256.Sum256([]byte(hashInput))
	return hex.EncodeToString(hash[:])
}

// ComputeContentHash computes the SHA-256 hash of content.
//
// Empty content produces a valid hash, not an error.
func (c *sha256HashComputer) ComputeContentHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// =============================================================================
// Helper Functions
// =============================================================================

// truncateHash returns a truncated hash for display in error messages.
// Shows first 8 and last 4 characters with "..." in between; returns the
// original string if it is 16 characters or fewer.
func truncateHash(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:8] + "..." + hash[len(hash)-4:]
}
