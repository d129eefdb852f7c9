// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// Tests for the phased web evidence gatherer.

package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IdeaGaugeAI/IdeaGauge/services/analyzer/datatypes"
	"github.com/IdeaGaugeAI/IdeaGauge/services/llm"
	"github.com/IdeaGaugeAI/IdeaGauge/services/providers"
)

func searchHits(urls ...string) []providers.SearchResult {
	var hits []providers.SearchResult
	for _, u := range urls {
		hits = append(hits, providers.SearchResult{Title: "hit " + u, URL: u, Content: "a product page"})
	}
	return hits
}

func TestSearchWebMergesAndDeduplicates(t *testing.T) {
	mock := &MockSearch{SearchFunc: func(ctx context.Context, query string, maxResults int, depth string, timeout time.Duration) ([]providers.SearchResult, error) {
		if maxResults == 8 {
			return searchHits("https://a.com", "https://b.com"), nil
		}
		return searchHits("https://b.com", "https://c.com"), nil
	}}
	a, err := New(Config{Search: mock})
	require.NoError(t, err)

	result := a.searchWeb(context.Background(), "flight tracker", []string{"q1", "q2"})
	require.Len(t, result.Competitors, 3)
	assert.Equal(t, 3, result.RawCount)

	urls := map[string]bool{}
	for _, c := range result.Competitors {
		urls[c.URL] = true
	}
	assert.True(t, urls["https://a.com"] && urls["https://b.com"] && urls["https://c.com"])
}

func TestSearchWebRefinesWhenSparse(t *testing.T) {
	mock := &MockSearch{SearchFunc: func(ctx context.Context, query string, maxResults int, depth string, timeout time.Duration) ([]providers.SearchResult, error) {
		if depth == providers.SearchDepthAdvanced {
			return searchHits("https://refined1.com", "https://refined2.com"), nil
		}
		return searchHits("https://only.com"), nil
	}}
	mockLLM := &MockLLM{GenerateFunc: func(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
		if strings.Contains(prompt, "better search queries") {
			return `{"queries":["broader query 1","broader query 2"]}`, nil
		}
		// Relevance filter keeps everything.
		return `{"relevant_indices":[0,1,2]}`, nil
	}}
	a, err := New(Config{Search: mock, LLM: mockLLM})
	require.NoError(t, err)

	result := a.searchWeb(context.Background(), "obscure niche idea", []string{"q1", "q2"})
	assert.Equal(t, 3, result.RawCount)
	assert.Len(t, mock.Calls, 4, "two basic and two advanced searches")
	assert.Contains(t, mock.Calls, "broader query 1")
}

func TestSearchWebSkipsRefineWhenEnoughResults(t *testing.T) {
	mock := &MockSearch{SearchFunc: func(ctx context.Context, query string, maxResults int, depth string, timeout time.Duration) ([]providers.SearchResult, error) {
		return searchHits("https://a.com", "https://b.com", "https://c.com"), nil
	}}
	a, err := New(Config{Search: mock})
	require.NoError(t, err)

	a.searchWeb(context.Background(), "idea", []string{"q1", "q2"})
	assert.Len(t, mock.Calls, 2)
}

func TestSearchWebFilterFailureKeepsAllResults(t *testing.T) {
	mock := &MockSearch{SearchFunc: func(ctx context.Context, query string, maxResults int, depth string, timeout time.Duration) ([]providers.SearchResult, error) {
		return searchHits("https://a.com", "https://b.com", "https://c.com"), nil
	}}
	mockLLM := &MockLLM{GenerateFunc: func(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
		return "", errors.New("llm down")
	}}
	a, err := New(Config{Search: mock, LLM: mockLLM})
	require.NoError(t, err)

	result := a.searchWeb(context.Background(), "idea", []string{"q1", "q2"})
	assert.Equal(t, 3, result.RawCount)
}

func TestSearchWebFilterDropsOutOfRangeIndices(t *testing.T) {
	mock := &MockSearch{SearchFunc: func(ctx context.Context, query string, maxResults int, depth string, timeout time.Duration) ([]providers.SearchResult, error) {
		return searchHits("https://a.com", "https://b.com", "https://c.com"), nil
	}}
	mockLLM := &MockLLM{GenerateFunc: func(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
		return `{"relevant_indices":[2, 99, -1, 0]}`, nil
	}}
	a, err := New(Config{Search: mock, LLM: mockLLM})
	require.NoError(t, err)

	result := a.searchWeb(context.Background(), "idea", []string{"q1", "q2"})
	assert.Equal(t, 2, result.RawCount)
}

func TestSearchWebProviderFailureDegradesToEmpty(t *testing.T) {
	mock := &MockSearch{SearchFunc: func(ctx context.Context, query string, maxResults int, depth string, timeout time.Duration) ([]providers.SearchResult, error) {
		return nil, errors.New("tavily down")
	}}
	a, err := New(Config{Search: mock})
	require.NoError(t, err)

	result := a.searchWeb(context.Background(), "idea", []string{"q1", "q2"})
	assert.Empty(t, result.Competitors)
	assert.Equal(t, 0, result.RawCount)
	assert.False(t, result.Fallback, "a degraded search is still a real result")
}

func TestSearchWebTruncatesToTenKeepingRawCount(t *testing.T) {
	var urls []string
	for i := 0; i < 13; i++ {
		urls = append(urls, fmt.Sprintf("https://site%02d.com", i))
	}
	mock := &MockSearch{SearchFunc: func(ctx context.Context, query string, maxResults int, depth string, timeout time.Duration) ([]providers.SearchResult, error) {
		if maxResults == 8 {
			return searchHits(urls[:8]...), nil
		}
		return searchHits(urls[8:]...), nil
	}}
	a, err := New(Config{Search: mock})
	require.NoError(t, err)

	result := a.searchWeb(context.Background(), "idea", []string{"q1", "q2"})
	assert.Len(t, result.Competitors, 10)
	assert.Equal(t, 13, result.RawCount)
}

func TestSearchWebCachesByNormalizedQueries(t *testing.T) {
	mock := &MockSearch{SearchFunc: func(ctx context.Context, query string, maxResults int, depth string, timeout time.Duration) ([]providers.SearchResult, error) {
		return searchHits("https://a.com", "https://b.com", "https://c.com"), nil
	}}
	a, err := New(Config{Search: mock})
	require.NoError(t, err)

	a.searchWeb(context.Background(), "idea", []string{"Flight  Tracker", "q2"})
	a.searchWeb(context.Background(), "idea", []string{"flight tracker", "Q2"})
	assert.Len(t, mock.Calls, 2, "second call must be served from cache")
}

func TestRerankTrustedDomainOutranksIdenticalResult(t *testing.T) {
	mock := &MockSearch{SearchFunc: func(ctx context.Context, query string, maxResults int, depth string, timeout time.Duration) ([]providers.SearchResult, error) {
		if maxResults == 8 {
			return []providers.SearchResult{
				{Title: "tracker platform", URL: "https://randomsite.com/tracker", Content: "pricing page"},
				{Title: "tracker platform", URL: "https://github.com/owner/tracker", Content: "pricing page"},
			}, nil
		}
		return searchHits("https://filler.com"), nil
	}}
	a, err := New(Config{Search: mock})
	require.NoError(t, err)

	result := a.searchWeb(context.Background(), "tracker", []string{"q1", "q2"})
	require.NotEmpty(t, result.Competitors)
	assert.Equal(t, "https://github.com/owner/tracker", result.Competitors[0].URL)
}

func TestRerankIsStableOnTies(t *testing.T) {
	hits := []providers.SearchResult{
		{Title: "same", URL: "https://tie-one.com", Content: "same"},
		{Title: "same", URL: "https://tie-two.com", Content: "same"},
		{Title: "same", URL: "https://tie-three.com", Content: "same"},
	}
	mock := &MockSearch{SearchFunc: func(ctx context.Context, query string, maxResults int, depth string, timeout time.Duration) ([]providers.SearchResult, error) {
		if maxResults == 8 {
			return hits, nil
		}
		return nil, nil
	}}
	a, err := New(Config{Search: mock})
	require.NoError(t, err)

	result := a.searchWeb(context.Background(), "idea", []string{"q1", "q2"})
	var got []string
	for _, c := range result.Competitors {
		got = append(got, c.URL)
	}
	assert.Equal(t, []string{"https://tie-one.com", "https://tie-two.com", "https://tie-three.com"}, got)
}

func TestSearchWebWithoutProviderIsFallback(t *testing.T) {
	a, err := New(Config{})
	require.NoError(t, err)

	result := a.searchWeb(context.Background(), "idea", nil)
	assert.True(t, result.Fallback)
	assert.Equal(t, datatypes.WebSearchResult{
		Competitors: []datatypes.Competitor{},
		Summary:     result.Summary,
		Fallback:    true,
	}, result)
}
