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

	"golang.org/x/time/rate"
)

const defaultGitHubSearchURL = "https://api.github.com/search/repositories"

// Repo is one repository search hit, trimmed to the fields the analysis
// stages report.
type Repo struct {
	FullName    string `json:"full_name"`
	HTMLURL     string `json:"html_url"`
	Description string `json:"description"`
	Stars       int    `json:"stargazers_count"`
	Language    string `json:"language"`
	PushedAt    string `json:"pushed_at"`
}

// RepoSearchResult carries one plan's hits plus the provider's total count,
// which can exceed the returned page.
type RepoSearchResult struct {
	Items      []Repo
	TotalCount int
}

// RepoSearchOptions narrow a repository search. Zero values mean
// "no constraint" except ExcludeArchived, which is always sent explicitly.
type RepoSearchOptions struct {
	MinStars        int
	PushedAfter     time.Time
	ExcludeArchived bool
}

// RepoSearchProvider is the contract the code-search stage depends on.
type RepoSearchProvider interface {
	SearchRepos(ctx context.Context, query string, opts RepoSearchOptions) (RepoSearchResult, error)
}

type githubSearchResponse struct {
	TotalCount int    `json:"total_count"`
	Items      []Repo `json:"items"`
}

// GitHubClient calls the GitHub repository search API. Unauthenticated
// search is limited to 10 requests per minute, so all calls share a rate
// limiter sized for the anonymous tier; a token raises throughput but the
// limiter stays as a safety margin.
type GitHubClient struct {
	httpClient HTTPClient
	token      string
	baseURL    string
	limiter    *rate.Limiter
}

// NewGitHubClient builds a search client. The token is optional;
// unauthenticated requests work with tighter rate limits.
func NewGitHubClient(httpClient HTTPClient) *GitHubClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	token := loadSecret("GITHUB_TOKEN", "github_token")
	if token == "" {
		slog.Info("GITHUB_TOKEN not set, using unauthenticated GitHub search")
	}
	return &GitHubClient{
		httpClient: httpClient,
		token:      token,
		baseURL:    defaultGitHubSearchURL,
		limiter:    rate.NewLimiter(rate.Every(6*time.Second), 2),
	}
}

// SearchRepos runs one repository search sorted by stars descending.
func (g *GitHubClient) SearchRepos(ctx context.Context, query string, opts RepoSearchOptions) (RepoSearchResult, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return RepoSearchResult{}, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	q := query
	if opts.MinStars > 0 {
		q += fmt.Sprintf(" stars:>=%d", opts.MinStars)
	}
	if !opts.PushedAfter.IsZero() {
		q += " pushed:>=" + opts.PushedAfter.Format("2006-01-02")
	}
	if opts.ExcludeArchived {
		q += " archived:false"
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("sort", "stars")
	params.Set("order", "desc")
	params.Set("per_page", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return RepoSearchResult{}, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("accept", "application/vnd.github+json")
	if g.token != "" {
		req.Header.Set("authorization", "Bearer "+g.token)
	}

	slog.Debug("GitHub repo search", "query", q)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return RepoSearchResult{}, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return RepoSearchResult{}, fmt.Errorf("github returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed githubSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return RepoSearchResult{}, fmt.Errorf("failed to parse search response: %w", err)
	}
	return RepoSearchResult{Items: parsed.Items, TotalCount: parsed.TotalCount}, nil
}
