// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/IdeaGaugeAI/IdeaGauge/pkg/ux"
	"github.com/IdeaGaugeAI/IdeaGauge/services/orchestrator/datatypes"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// mockStreamingHTTPClient implements HTTPClient with canned responses.
type mockStreamingHTTPClient struct {
	postResponse *http.Response
	postError    error
	getResponse  *http.Response
	getError     error

	lastPostURL  string
	lastPostBody []byte
	postCalls    int
}

func (m *mockStreamingHTTPClient) Post(_ context.Context, url, _ string, body io.Reader) (*http.Response, error) {
	m.postCalls++
	m.lastPostURL = url
	if body != nil {
		m.lastPostBody, _ = io.ReadAll(body)
	}
	if m.postError != nil {
		return nil, m.postError
	}
	return m.postResponse, nil
}

func (m *mockStreamingHTTPClient) Get(_ context.Context, _ string) (*http.Response, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	return m.getResponse, nil
}

// createSSEStream joins SSE event lines into a stream body.
func createSSEStream(events ...string) string {
	return strings.Join(events, "\n") + "\n"
}

// createMockResponse creates an http.Response with given status and body.
func createMockResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// analysisSSEFixture is a minimal but complete analysis stream: two stages
// plus the terminal done event.
func analysisSSEFixture() string {
	return createSSEStream(
		`data: {"type":"status","message":"Starting analysis"}`,
		``,
		`data: {"type":"step_start","step":1,"title":"Market Scan","description":"Searching for competitors"}`,
		``,
		`data: {"type":"step_result","step":1,"result":{"competitors":[{"title":"CompetitorX","url":"https://x.dev","snippet":"existing tool"}],"raw_count":3,"summary":"Crowded"}}`,
		``,
		`data: {"type":"step_result","step":5,"result":{"verdict":"GO","score":78,"reasoning":"Viable niche","next_steps":["Build an MVP"]}}`,
		``,
		`data: {"type":"done","session_id":"sess-cli-1"}`,
		``,
	)
}

// newTestAnalysisService wires a service with a mock client and a quiet
// buffer writer so tests produce no terminal output.
func newTestAnalysisService(client HTTPClient, steps []int) (*analysisService, *bytes.Buffer) {
	var buf bytes.Buffer
	service := NewAnalysisServiceWithClient(client, AnalysisServiceConfig{
		BaseURL:     "http://localhost:12210",
		Steps:       steps,
		Writer:      &buf,
		Personality: ux.PersonalityMachine,
	})
	return service, &buf
}

// =============================================================================
// ANALYSIS SERVICE TESTS
// =============================================================================

func TestAnalyze_Success(t *testing.T) {
	mock := &mockStreamingHTTPClient{
		postResponse: createMockResponse(http.StatusOK, analysisSSEFixture()),
	}
	service, buf := newTestAnalysisService(mock, nil)

	result, err := service.Analyze(context.Background(), "a tool that gauges ideas")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.SessionID != "sess-cli-1" {
		t.Errorf("expected session sess-cli-1, got %q", result.SessionID)
	}
	if result.Report == nil || !result.Report.Complete() {
		t.Fatal("expected a complete report with a verdict")
	}
	if result.Report.Verdict.Verdict != ux.VerdictGo {
		t.Errorf("expected GO verdict, got %q", result.Report.Verdict.Verdict)
	}
	if result.Report.Market == nil || len(result.Report.Market.Competitors) != 1 {
		t.Error("expected one competitor in the market result")
	}
	if result.TotalEvents != 5 {
		t.Errorf("expected 5 events, got %d", result.TotalEvents)
	}
	if len(result.Events) != 5 {
		t.Errorf("expected 5 raw events retained, got %d", len(result.Events))
	}

	out := buf.String()
	if !strings.Contains(out, "VERDICT: GO") {
		t.Errorf("expected machine verdict line, got:\n%s", out)
	}
}

func TestAnalyze_SendsRequestBody(t *testing.T) {
	mock := &mockStreamingHTTPClient{
		postResponse: createMockResponse(http.StatusOK, analysisSSEFixture()),
	}
	service, _ := newTestAnalysisService(mock, []int{1, 5})

	if _, err := service.Analyze(context.Background(), "an idea"); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !strings.HasSuffix(mock.lastPostURL, "/v1/analyze") {
		t.Errorf("expected /v1/analyze URL, got %q", mock.lastPostURL)
	}

	var req datatypes.AnalyzeRequest
	if err := json.Unmarshal(mock.lastPostBody, &req); err != nil {
		t.Fatalf("request body is not valid JSON: %v", err)
	}
	if req.Idea != "an idea" {
		t.Errorf("expected idea field, got %q", req.Idea)
	}
	if len(req.Steps) != 2 || req.Steps[0] != 1 || req.Steps[1] != 5 {
		t.Errorf("expected steps [1 5], got %v", req.Steps)
	}
	if req.RequestID == "" {
		t.Error("expected a generated request ID")
	}
	if req.Timestamp == 0 {
		t.Error("expected a timestamp")
	}
}

func TestAnalyze_ServerError(t *testing.T) {
	mock := &mockStreamingHTTPClient{
		postResponse: createMockResponse(http.StatusInternalServerError, `{"error":"pipeline exploded"}`),
	}
	service, _ := newTestAnalysisService(mock, nil)

	_, err := service.Analyze(context.Background(), "an idea")
	if err == nil {
		t.Fatal("expected error on 500 response")
	}
	if !strings.Contains(err.Error(), "server error (500)") {
		t.Errorf("expected server error message, got %v", err)
	}
}

func TestAnalyze_NetworkError(t *testing.T) {
	mock := &mockStreamingHTTPClient{
		postError: errors.New("connection refused"),
	}
	service, _ := newTestAnalysisService(mock, nil)

	_, err := service.Analyze(context.Background(), "an idea")
	if err == nil {
		t.Fatal("expected error on network failure")
	}
	if !strings.Contains(err.Error(), "http post") {
		t.Errorf("expected http post error, got %v", err)
	}
}

func TestAnalyze_StreamErrorEvent(t *testing.T) {
	stream := createSSEStream(
		`data: {"type":"step_start","step":1,"title":"Market Scan"}`,
		``,
		`data: {"type":"error","error":"provider unavailable"}`,
		``,
	)
	mock := &mockStreamingHTTPClient{
		postResponse: createMockResponse(http.StatusOK, stream),
	}
	service, _ := newTestAnalysisService(mock, nil)

	result, err := service.Analyze(context.Background(), "an idea")
	if err != nil {
		t.Fatalf("stream error events should not fail the call: %v", err)
	}
	if !result.HasError() {
		t.Fatal("expected result to carry the stream error")
	}
	if !strings.Contains(result.Error, "provider unavailable") {
		t.Errorf("unexpected error text %q", result.Error)
	}
}

func TestAnalyze_EventsVerifiable(t *testing.T) {
	// Events pass through the parser byte-preserved, so an unhashed
	// fixture must fail verification rather than crash it.
	mock := &mockStreamingHTTPClient{
		postResponse: createMockResponse(http.StatusOK, analysisSSEFixture()),
	}
	service, _ := newTestAnalysisService(mock, nil)

	result, err := service.Analyze(context.Background(), "an idea")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	verification := ux.NewFullChainVerifier().Verify(result.Events)
	if verification == nil {
		t.Fatal("expected a verification result")
	}
	if verification.ChainLength != len(result.Events) {
		t.Errorf("expected chain length %d, got %d", len(result.Events), verification.ChainLength)
	}
}

func TestPrintReportJSON(t *testing.T) {
	mock := &mockStreamingHTTPClient{
		postResponse: createMockResponse(http.StatusOK, analysisSSEFixture()),
	}
	service, _ := newTestAnalysisService(mock, nil)

	result, err := service.Analyze(context.Background(), "an idea")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	var out bytes.Buffer
	if err := printReportJSON(&out, result); err != nil {
		t.Fatalf("printReportJSON failed: %v", err)
	}

	var decoded struct {
		SessionID string             `json:"session_id"`
		Report    *ux.AnalysisReport `json:"report"`
	}
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.SessionID != "sess-cli-1" {
		t.Errorf("expected session in JSON output, got %q", decoded.SessionID)
	}
	if decoded.Report == nil || decoded.Report.Verdict == nil {
		t.Fatal("expected verdict in JSON output")
	}
	if decoded.Report.Verdict.Score != 78 {
		t.Errorf("expected score 78, got %d", decoded.Report.Verdict.Score)
	}
}
