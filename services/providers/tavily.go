// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultTavilyURL = "https://api.tavily.com/search"

// Search depths supported by the provider. Basic is the cheap first pass;
// advanced is used only on the refine path when results were sparse.
const (
	SearchDepthBasic    = "basic"
	SearchDepthAdvanced = "advanced"
)

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// SearchProvider is the contract the evidence gatherer depends on.
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int, depth string, timeout time.Duration) ([]SearchResult, error)
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilyResponse struct {
	Results []SearchResult `json:"results"`
}

// TavilyClient calls the Tavily web search API.
type TavilyClient struct {
	httpClient HTTPClient
	apiKey     string
	baseURL    string
}

// NewTavilyClient reads TAVILY_API_KEY from the environment or the secrets
// mount. A missing key is an error; the caller decides whether to run the
// pipeline in fallback mode.
func NewTavilyClient(httpClient HTTPClient) (*TavilyClient, error) {
	apiKey := loadSecret("TAVILY_API_KEY", "tavily_api_key")
	if apiKey == "" {
		slog.Warn("Tavily API Key is missing.")
		return nil, fmt.Errorf("TAVILY_API_KEY is missing")
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &TavilyClient{
		httpClient: httpClient,
		apiKey:     apiKey,
		baseURL:    defaultTavilyURL,
	}, nil
}

// Search issues one query at the given depth. The timeout bounds the whole
// request; per-call timeouts differ between the basic and refine passes.
func (t *TavilyClient) Search(ctx context.Context, query string, maxResults int, depth string, timeout time.Duration) ([]SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(tavilyRequest{
		APIKey:      t.apiKey,
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: depth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	slog.Debug("Tavily search", "query", query, "depth", depth, "max_results", maxResults)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tavily returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	return parsed.Results, nil
}
