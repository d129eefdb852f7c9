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

	"github.com/IdeaGaugeAI/IdeaGauge/services/analyzer/datatypes"
	"github.com/IdeaGaugeAI/IdeaGauge/services/providers"
)

const (
	maxRepos       = 10
	maxRepoDescLen = 200
	enoughRepos    = 5
)

type repoSearchPlan struct {
	query          string
	minStars       int
	withDateFilter bool
}

// searchGithub executes progressively relaxed repository search plans:
// primary query with strict recency and stars, then the primary without the
// date filter, then the broader secondary query. It stops early once enough
// repositories are collected. The largest provider-reported total across
// executed plans is kept as the competition signal.
func (a *Analyzer) searchGithub(ctx context.Context, idea string, aiQueries []string) datatypes.GitHubSearchResult {
	if a.repos == nil {
		return fallbackCodeSearch("Repository search provider is not configured.")
	}

	primary := normalizeQuery(firstNonEmpty(aiQueries, 0, idea))
	secondary := normalizeQuery(firstNonEmpty(aiQueries, 1, ""))

	cacheKey := buildCacheKey("github", primary, secondary)
	if cached, ok := a.searchCache.Get(cacheKey); ok {
		return cached.(datatypes.GitHubSearchResult)
	}

	plans := []repoSearchPlan{
		{query: primary, minStars: 50, withDateFilter: true},
		{query: primary, minStars: 10, withDateFilter: false},
	}
	if secondary != "" {
		plans = append(plans, repoSearchPlan{query: secondary, minStars: 10, withDateFilter: false})
	}

	twoYearsAgo := a.now().AddDate(-2, 0, 0)

	seen := make(map[string]struct{})
	var collected []datatypes.GitHubRepo
	totalCount := 0

	for _, plan := range plans {
		if len(collected) >= enoughRepos {
			break
		}

		opts := providers.RepoSearchOptions{
			MinStars:        plan.minStars,
			ExcludeArchived: true,
		}
		if plan.withDateFilter {
			opts.PushedAfter = twoYearsAgo
		}

		result, err := a.repos.SearchRepos(ctx, plan.query, opts)
		if err != nil {
			// Query syntax errors and rate limits move on to the next plan.
			slog.Warn("repo search plan failed", "query", plan.query, "error", err)
			continue
		}
		if result.TotalCount > totalCount {
			totalCount = result.TotalCount
		}

		for _, item := range result.Items {
			if item.HTMLURL == "" {
				continue
			}
			if _, dup := seen[item.HTMLURL]; dup {
				continue
			}
			seen[item.HTMLURL] = struct{}{}
			desc := item.Description
			if len(desc) > maxRepoDescLen {
				desc = desc[:maxRepoDescLen]
			}
			collected = append(collected, datatypes.GitHubRepo{
				Name:        item.FullName,
				URL:         item.HTMLURL,
				Description: desc,
				Stars:       item.Stars,
				Language:    item.Language,
			})
		}
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].Stars > collected[j].Stars
	})
	if len(collected) > maxRepos {
		collected = collected[:maxRepos]
	}

	result := datatypes.GitHubSearchResult{
		Repos:      collected,
		TotalCount: totalCount,
		Summary:    fmt.Sprintf("Selected %d notable GitHub repositories (out of %d total matches).", len(collected), totalCount),
	}
	a.searchCache.Set(cacheKey, result)
	return result
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

func firstNonEmpty(values []string, idx int, fallback string) string {
	if idx < len(values) && strings.TrimSpace(values[idx]) != "" {
		return values[idx]
	}
	return fallback
}

// now is split out for tests that pin the date-filter cutoff.
func (a *Analyzer) now() time.Time {
	if a.clock != nil {
		return a.clock()
	}
	return time.Now()
}
