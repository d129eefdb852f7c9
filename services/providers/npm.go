// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/IdeaGaugeAI/IdeaGauge/services/evidence"
)

const defaultNpmRegistryURL = "https://registry.npmjs.org"

// NpmRegistry is the contract the library-availability checks depend on.
type NpmRegistry interface {
	Exists(ctx context.Context, name string) (bool, error)
	Search(ctx context.Context, query string, size int) ([]evidence.NpmCandidate, error)
}

type npmSearchResponse struct {
	Objects []struct {
		Package struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Keywords    []string `json:"keywords"`
		} `json:"package"`
		SearchScore float64 `json:"searchScore"`
		Score       struct {
			Final float64 `json:"final"`
		} `json:"score"`
	} `json:"objects"`
}

// NpmClient queries the public npm registry. No credentials are needed.
type NpmClient struct {
	httpClient HTTPClient
	baseURL    string
}

func NewNpmClient(httpClient HTTPClient) *NpmClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &NpmClient{httpClient: httpClient, baseURL: defaultNpmRegistryURL}
}

// Exists reports whether an exactly-named package is published.
func (n *NpmClient) Exists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/"+url.PathEscape(name), nil)
	if err != nil {
		return false, fmt.Errorf("failed to create registry request: %w", err)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}
}

// Search returns up to size candidates for a free-text library query. The
// registry's own relevance score rides along for the selector's
// confidence rule.
func (n *NpmClient) Search(ctx context.Context, query string, size int) ([]evidence.NpmCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	params := url.Values{}
	params.Set("text", query)
	params.Set("size", fmt.Sprintf("%d", size))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/-/v1/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry search request: %w", err)
	}

	slog.Debug("npm registry search", "query", query, "size", size)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var parsed npmSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse registry response: %w", err)
	}

	candidates := make([]evidence.NpmCandidate, 0, len(parsed.Objects))
	for _, obj := range parsed.Objects {
		candidates = append(candidates, evidence.NpmCandidate{
			Name:        obj.Package.Name,
			Description: obj.Package.Description,
			Keywords:    obj.Package.Keywords,
			Score:       obj.Score.Final,
		})
	}
	return candidates, nil
}
