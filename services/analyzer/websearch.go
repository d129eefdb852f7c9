// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IdeaGaugeAI/IdeaGauge/pkg/llmjson"
	"github.com/IdeaGaugeAI/IdeaGauge/services/analyzer/datatypes"
	"github.com/IdeaGaugeAI/IdeaGauge/services/llm"
	"github.com/IdeaGaugeAI/IdeaGauge/services/providers"
)

const (
	basicSearchTimeout    = 15 * time.Second
	advancedSearchTimeout = 25 * time.Second
	maxSnippetLen         = 500
	maxCompetitors        = 10
	sparseThreshold       = 3
)

// searchWeb runs the four-phase gathering algorithm: parallel basic search,
// refine-if-sparse, LLM relevance filter, deterministic rerank. Any
// provider-level failure degrades its phase to an empty result; the
// function itself never fails.
func (a *Analyzer) searchWeb(ctx context.Context, idea string, aiQueries []string) datatypes.WebSearchResult {
	if a.search == nil {
		return fallbackWebSearch("Search provider credentials are not configured.")
	}

	query1 := idea + " tool service app"
	query2 := idea + " alternative competitor similar"
	if len(aiQueries) > 0 && aiQueries[0] != "" {
		query1 = aiQueries[0]
	}
	if len(aiQueries) > 1 && aiQueries[1] != "" {
		query2 = aiQueries[1]
	}

	cacheKey := buildCacheKey("web", query1, query2)
	if cached, ok := a.searchCache.Get(cacheKey); ok {
		return cached.(datatypes.WebSearchResult)
	}

	// Phase 1: parallel basic search.
	competitors := a.parallelSearch(ctx, query1, query2, providers.SearchDepthBasic)

	// Phase 2: refine queries and retry at advanced depth when sparse.
	if len(competitors) < sparseThreshold {
		refined := a.refineQueries(ctx, idea, competitors)
		if len(refined) > 0 {
			rq1, rq2 := query1, query2
			if refined[0] != "" {
				rq1 = refined[0]
			}
			if len(refined) > 1 && refined[1] != "" {
				rq2 = refined[1]
			}
			retry := a.parallelSearch(ctx, rq1, rq2, providers.SearchDepthAdvanced)
			seen := make(map[string]struct{}, len(competitors))
			for _, c := range competitors {
				seen[c.URL] = struct{}{}
			}
			for _, c := range retry {
				if _, dup := seen[c.URL]; !dup {
					seen[c.URL] = struct{}{}
					competitors = append(competitors, c)
				}
			}
		}
	}

	// Phase 3: relevance filter. Strictly additive; any failure keeps the
	// unfiltered set.
	competitors = a.filterRelevant(ctx, idea, competitors)

	// Phase 4: deterministic rerank, stable on ties.
	sort.SliceStable(competitors, func(i, j int) bool {
		return a.rules.RerankScore(idea, competitors[i].Title, competitors[i].URL, competitors[i].Snippet) >
			a.rules.RerankScore(idea, competitors[j].Title, competitors[j].URL, competitors[j].Snippet)
	})

	rawCount := len(competitors)
	if len(competitors) > maxCompetitors {
		competitors = competitors[:maxCompetitors]
	}

	result := datatypes.WebSearchResult{
		Competitors: competitors,
		RawCount:    rawCount,
		Summary:     fmt.Sprintf("Found %d relevant results on the web.", rawCount),
	}
	a.searchCache.Set(cacheKey, result)
	return result
}

// parallelSearch issues the two differently-weighted queries concurrently
// and merges their results, deduplicating by URL in arrival order (first
// query's results first).
func (a *Analyzer) parallelSearch(ctx context.Context, query1, query2 string, depth string) []datatypes.Competitor {
	timeout := basicSearchTimeout
	if depth == providers.SearchDepthAdvanced {
		timeout = advancedSearchTimeout
	}

	results := make([][]providers.SearchResult, 2)
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range []struct {
		query string
		max   int
	}{
		{query1, 8},
		{query2, 5},
	} {
		g.Go(func() error {
			hits, err := a.search.Search(gctx, spec.query, spec.max, depth, timeout)
			if err != nil {
				slog.Warn("web search degraded to empty", "query", spec.query, "error", err)
				return nil
			}
			results[i] = hits
			return nil
		})
	}
	_ = g.Wait()

	var competitors []datatypes.Competitor
	seen := make(map[string]struct{})
	for _, hits := range results {
		for _, r := range hits {
			if r.URL == "" {
				continue
			}
			if _, dup := seen[r.URL]; dup {
				continue
			}
			seen[r.URL] = struct{}{}
			snippet := r.Content
			if len(snippet) > maxSnippetLen {
				snippet = snippet[:maxSnippetLen]
			}
			competitors = append(competitors, datatypes.Competitor{
				Title:   r.Title,
				URL:     r.URL,
				Snippet: snippet,
			})
		}
	}
	return competitors
}

func (a *Analyzer) refineQueries(ctx context.Context, idea string, current []datatypes.Competitor) []string {
	if a.llm == nil {
		return nil
	}
	text, err := a.llm.Generate(ctx, buildRefinePrompt(idea, current), llm.GenerationParams{MaxTokens: llm.IntPtr(128)})
	if err != nil {
		slog.Warn("query refinement failed", "error", err)
		return nil
	}
	var parsed struct {
		Queries []string `json:"queries"`
	}
	if err := llmjson.Unmarshal(text, &parsed); err != nil {
		return nil
	}
	return parsed.Queries
}

// filterRelevant asks the LLM for the indices of genuinely relevant items.
// Out-of-range indices are dropped; a missing LLM or any failure returns
// the input unchanged.
func (a *Analyzer) filterRelevant(ctx context.Context, idea string, competitors []datatypes.Competitor) []datatypes.Competitor {
	if a.llm == nil || len(competitors) == 0 {
		return competitors
	}
	text, err := a.llm.Generate(ctx, buildFilterPrompt(idea, competitors), llm.GenerationParams{MaxTokens: llm.IntPtr(128)})
	if err != nil {
		slog.Warn("relevance filter failed, keeping unfiltered results", "error", err)
		return competitors
	}
	var parsed struct {
		RelevantIndices []int `json:"relevant_indices"`
	}
	if err := llmjson.Unmarshal(text, &parsed); err != nil || parsed.RelevantIndices == nil {
		return competitors
	}
	var filtered []datatypes.Competitor
	for _, idx := range parsed.RelevantIndices {
		if idx >= 0 && idx < len(competitors) {
			filtered = append(filtered, competitors[idx])
		}
	}
	return filtered
}

// buildCacheKey normalizes and sorts the query parts so concurrent
// identical requests converge on the same cache entry.
func buildCacheKey(kind string, parts ...string) string {
	normalized := make([]string, 0, len(parts))
	for _, p := range parts {
		normalized = append(normalized, strings.ToLower(strings.Join(strings.Fields(p), " ")))
	}
	sort.Strings(normalized)
	return kind + "|" + strings.Join(normalized, "|")
}
