// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyzer

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/IdeaGaugeAI/IdeaGauge/pkg/llmjson"
	"github.com/IdeaGaugeAI/IdeaGauge/services/analyzer/datatypes"
	"github.com/IdeaGaugeAI/IdeaGauge/services/evidence"
	"github.com/IdeaGaugeAI/IdeaGauge/services/llm"
	"github.com/IdeaGaugeAI/IdeaGauge/services/providers"
)

const (
	maxDataSources       = 3
	maxLibraries         = 3
	maxAvailQueries      = 6
	availResultsPerQuery = 3
	maxEvidenceItems     = 8
	availSnippetLen      = 300
)

var npmNameRe = regexp.MustCompile(`^(@[a-z0-9-~][a-z0-9-._~]*/)?[a-z0-9-~][a-z0-9-._~]*$`)

type extractedSource struct {
	Name          string   `json:"name"`
	SearchQueries []string `json:"search_queries"`
}

// checkDataAndLibraries extracts candidate data sources and libraries from
// the idea, gathers bounded search evidence per source, and judges each
// with the deterministic rule engine. Extraction failure or an empty
// extraction resolves to the empty availability result, never an error.
func (a *Analyzer) checkDataAndLibraries(ctx context.Context, idea string) datatypes.DataAvailability {
	if a.llm == nil {
		return fallbackDataAvailability()
	}

	cacheKey := buildCacheKey("data-availability", idea)
	if cached, ok := a.availCache.Get(cacheKey); ok {
		return cached.(datatypes.DataAvailability)
	}

	sources, libraries := a.extractNeeds(ctx, idea)
	if len(sources) == 0 && len(libraries) == 0 {
		result := fallbackDataAvailability()
		a.availCache.Set(cacheKey, result)
		return result
	}

	// Two fixed queries per source: prefer the extraction's own queries,
	// fall back to the API-documentation angle.
	queriesBySource := make(map[string][]string, len(sources))
	var allQueries []string
	for _, src := range sources {
		queries := src.SearchQueries
		if len(queries) > 2 {
			queries = queries[:2]
		}
		if len(queries) < 2 {
			queries = []string{
				src.Name + " official API documentation",
				src.Name + " developer portal",
			}
		}
		queriesBySource[src.Name] = queries
		allQueries = append(allQueries, queries...)
	}

	evidenceByQuery := a.gatherAvailabilityEvidence(ctx, dedupeStrings(allQueries))

	var (
		judged []datatypes.DataSource
		libs   []datatypes.LibraryCheck
	)
	g, gctx := errgroup.WithContext(ctx)

	judged = make([]datatypes.DataSource, len(sources))
	for i, src := range sources {
		g.Go(func() error {
			judged[i] = a.judgeDataSource(gctx, src.Name, queriesBySource[src.Name], evidenceByQuery)
			return nil
		})
	}

	libs = make([]datatypes.LibraryCheck, len(libraries))
	for i, library := range libraries {
		g.Go(func() error {
			libs[i] = a.validateLibrary(gctx, library)
			return nil
		})
	}
	_ = g.Wait()

	result := datatypes.DataAvailability{Sources: judged, Libraries: libs}
	result.HasBlockingIssues = HasBlockingIssues(result)
	a.availCache.Set(cacheKey, result)
	return result
}

// extractNeeds asks the LLM for at most three data sources and three
// libraries. Both the structured {name, search_queries} form and a bare
// string form are accepted per entry.
func (a *Analyzer) extractNeeds(ctx context.Context, idea string) ([]extractedSource, []string) {
	text, err := a.llm.Generate(ctx, buildExtractionPrompt(idea), llm.GenerationParams{MaxTokens: llm.IntPtr(512)})
	if err != nil {
		slog.Warn("data-source extraction failed", "error", err)
		return nil, nil
	}

	var parsed struct {
		DataSources []any    `json:"data_sources"`
		Libraries   []string `json:"libraries"`
	}
	if err := llmjson.Unmarshal(text, &parsed); err != nil {
		return nil, nil
	}

	seen := make(map[string]struct{})
	var sources []extractedSource
	for _, raw := range parsed.DataSources {
		if len(sources) >= maxDataSources {
			break
		}
		var src extractedSource
		switch v := raw.(type) {
		case string:
			src.Name = strings.TrimSpace(v)
		case map[string]any:
			if name, ok := v["name"].(string); ok {
				src.Name = strings.TrimSpace(name)
			}
			if queries, ok := v["search_queries"].([]any); ok {
				for _, q := range queries {
					if s, ok := q.(string); ok && strings.TrimSpace(s) != "" {
						src.SearchQueries = append(src.SearchQueries, s)
					}
				}
			}
		}
		if src.Name == "" {
			continue
		}
		if _, dup := seen[src.Name]; dup {
			continue
		}
		seen[src.Name] = struct{}{}
		sources = append(sources, src)
	}

	var libraries []string
	libSeen := make(map[string]struct{})
	for _, lib := range parsed.Libraries {
		if len(libraries) >= maxLibraries {
			break
		}
		lib = strings.TrimSpace(lib)
		if lib == "" {
			continue
		}
		if _, dup := libSeen[lib]; dup {
			continue
		}
		libSeen[lib] = struct{}{}
		libraries = append(libraries, lib)
	}
	return sources, libraries
}

// gatherAvailabilityEvidence runs one bounded basic search per query in
// parallel. A missing search provider or any failure leaves that query's
// evidence empty.
func (a *Analyzer) gatherAvailabilityEvidence(ctx context.Context, queries []string) map[string]evidence.SourceEvidence {
	if len(queries) > maxAvailQueries {
		queries = queries[:maxAvailQueries]
	}

	results := make([]evidence.SourceEvidence, len(queries))
	if a.search != nil {
		g, gctx := errgroup.WithContext(ctx)
		for i, query := range queries {
			g.Go(func() error {
				hits, err := a.search.Search(gctx, query, availResultsPerQuery, providers.SearchDepthBasic, basicSearchTimeout)
				if err != nil {
					slog.Warn("availability evidence search degraded to empty", "query", query, "error", err)
					return nil
				}
				var ev evidence.SourceEvidence
				for _, r := range hits {
					if r.URL != "" {
						ev.URLs = append(ev.URLs, r.URL)
					}
					snippet := strings.TrimSpace(r.Content)
					if len(snippet) > availSnippetLen {
						snippet = snippet[:availSnippetLen]
					}
					if snippet != "" {
						ev.Snippets = append(ev.Snippets, snippet)
					}
				}
				results[i] = ev
				return nil
			})
		}
		_ = g.Wait()
	}

	byQuery := make(map[string]evidence.SourceEvidence, len(queries))
	for i, query := range queries {
		byQuery[query] = results[i]
	}
	return byQuery
}

// judgeDataSource merges a source's per-query evidence, applies the robots
// check and the rule engine, then HEAD-verifies the chosen evidence URL. An
// unreachable evidence URL demotes an official-API judgment; a crawlable
// judgment is re-checked against robots.txt on the evidence domain.
func (a *Analyzer) judgeDataSource(ctx context.Context, name string, queries []string, evidenceByQuery map[string]evidence.SourceEvidence) datatypes.DataSource {
	var merged evidence.SourceEvidence
	for _, query := range queries {
		ev := evidenceByQuery[query]
		merged.URLs = append(merged.URLs, ev.URLs...)
		merged.Snippets = append(merged.Snippets, ev.Snippets...)
	}
	merged.URLs = capStrings(dedupeStrings(merged.URLs), maxEvidenceItems)
	merged.Snippets = capStrings(dedupeStrings(merged.Snippets), maxEvidenceItems)

	if a.robots != nil && len(merged.URLs) > 0 {
		merged.RobotsDisallowAll, merged.RobotsCheckedDomain = a.robots.CheckDomains(ctx, merged.URLs)
	}

	judgment := a.rules.EvaluateDataSource(merged)

	if judgment.EvidenceURL != "" && a.verifier != nil {
		alive := providers.VerifyURL(ctx, a.verifier, judgment.EvidenceURL)
		switch {
		case alive && judgment.HasOfficialAPI:
			judgment.Note += " (evidence URL verified)"
		case !alive && judgment.HasOfficialAPI:
			judgment.HasOfficialAPI = false
			judgment.Blocking = !judgment.Crawlable
			judgment.Note += " (evidence URL unreachable, manual review recommended)"
		}
	}

	return datatypes.DataSource{
		Name:           name,
		HasOfficialAPI: judgment.HasOfficialAPI,
		Crawlable:      judgment.Crawlable,
		Blocking:       judgment.Blocking,
		EvidenceURL:    judgment.EvidenceURL,
		Note:           judgment.Note,
	}
}

// validateLibrary resolves a free-text library need against the npm
// registry: an exact-name check when the input already looks like a package
// name, otherwise registry search plus the candidate selector, with a
// confirming existence check on the selected name.
func (a *Analyzer) validateLibrary(ctx context.Context, library string) datatypes.LibraryCheck {
	query, isCategoryHint := normalizeLibraryInput(library)
	if query == "" {
		return datatypes.LibraryCheck{Name: library, Note: "empty library input"}
	}
	if a.registry == nil {
		return datatypes.LibraryCheck{Name: library, Note: "package registry is not configured"}
	}

	if looksLikeNpmPackageName(query) {
		exists, err := a.registry.Exists(ctx, query)
		if err != nil {
			slog.Warn("npm existence check failed", "package", query, "error", err)
		} else if exists {
			return datatypes.LibraryCheck{
				Name:        library,
				Available:   true,
				PackageName: query,
				Note:        "confirmed on the npm registry as " + query,
			}
		}
	}

	candidates, err := a.registry.Search(ctx, query, 6)
	if err != nil {
		slog.Warn("npm candidate search failed", "query", query, "error", err)
	}
	selection := a.rules.SelectNpmCandidate(query, candidates)
	if selection.PackageName == "" {
		return datatypes.LibraryCheck{Name: library, Note: "no matching package found on the npm registry"}
	}

	if selection.Confident {
		confirmed, err := a.registry.Exists(ctx, selection.PackageName)
		if err == nil && confirmed {
			note := "resolved to " + selection.PackageName + " on the npm registry"
			if isCategoryHint {
				note += " (inferred from category hint)"
			}
			return datatypes.LibraryCheck{
				Name:        library,
				Available:   true,
				PackageName: selection.PackageName,
				Note:        note,
			}
		}
	}

	return datatypes.LibraryCheck{
		Name:        library,
		PackageName: selection.PackageName,
		Note:        "closest npm match is " + selection.PackageName + " (manual review recommended)",
	}
}

var (
	npmPrefixRe    = regexp.MustCompile(`(?i)^npm[:\s]+`)
	categoryHintRe = regexp.MustCompile(`(?i)^category\s*:\s*(.+)$`)
)

func normalizeLibraryInput(raw string) (query string, isCategoryHint bool) {
	trimmed := npmPrefixRe.ReplaceAllString(strings.TrimSpace(raw), "")
	if m := categoryHintRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return trimmed, false
}

func looksLikeNpmPackageName(value string) bool {
	return npmNameRe.MatchString(strings.ToLower(strings.TrimSpace(value)))
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func capStrings(values []string, limit int) []string {
	if len(values) > limit {
		return values[:limit]
	}
	return values
}

// HasBlockingIssues reports whether any judged source is blocking.
func HasBlockingIssues(availability datatypes.DataAvailability) bool {
	for _, s := range availability.Sources {
		if s.Blocking {
			return true
		}
	}
	return false
}
