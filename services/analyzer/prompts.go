// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyzer

import (
	"fmt"
	"strings"

	"github.com/IdeaGaugeAI/IdeaGauge/services/analyzer/datatypes"
)

// Every prompt demands pure JSON output. The lenient parser in pkg/llmjson
// tolerates fenced blocks and surrounding prose anyway, but asking for JSON
// up front keeps the extraction path on its cheapest branch.

func buildQueryPrompt(idea string) string {
	return fmt.Sprintf(`Generate optimal search keywords to find competing products and similar projects for the idea below.

Idea: %s

Respond with pure JSON only:

{
  "web_queries": ["web search query 1", "web search query 2"],
  "github_queries": ["github keywords 1", "github keywords 2"]
}

Rules:
- web_queries: exactly two English queries. The first targets the general market, the second targets direct competitors.
- github_queries: two keyword sets suited to repository search (2-4 words each), the second broader than the first.
- Reflect the core technology and domain of the idea.`, idea)
}

func buildRefinePrompt(idea string, current []datatypes.Competitor) string {
	var lines []string
	for i, c := range current {
		if i >= 5 {
			break
		}
		lines = append(lines, "- "+c.Title)
	}
	summary := strings.Join(lines, "\n")
	if summary == "" {
		summary = "no results"
	}
	return fmt.Sprintf(`The initial search returned too little signal. Generate better search queries.

Idea: %s
Current results (%d):
%s

Respond with pure JSON only:
{"queries": ["improved query 1", "improved query 2"]}

Rules:
- Search from a different angle than before.
- Use broader keywords or adjacent domains.
- Consider synonyms, parent categories and related technologies.`, idea, len(current), summary)
}

func buildFilterPrompt(idea string, competitors []datatypes.Competitor) string {
	var items []string
	for i, c := range competitors {
		snippet := c.Snippet
		if len(snippet) > 100 {
			snippet = snippet[:100]
		}
		items = append(items, fmt.Sprintf("%d. %s - %s", i, c.Title, snippet))
	}
	return fmt.Sprintf(`Idea: %s

From the search results below, keep only actual competing products, services or tools.
Exclude news articles, blog posts, tutorials and documentation.

%s

Respond with pure JSON only:
{"relevant_indices": [0, 2, 5]}`, idea, strings.Join(items, "\n"))
}

func buildExtractionPrompt(idea string) string {
	return fmt.Sprintf(`Identify the external data sources and libraries the idea below would depend on.

Idea: %s

Respond with pure JSON only:

{
  "data_sources": [
    {"name": "source name", "search_queries": ["query to find its API docs", "query to find its developer portal"]}
  ],
  "libraries": ["library need 1", "library need 2"]
}

Rules:
- At most 3 data sources and 3 libraries; return empty arrays when the idea needs none.
- data_sources are external services or datasets the product must read from.
- libraries are npm package needs, as an exact name or a "category: description" hint.`, idea)
}

func buildFeasibilityPrompt(idea string, availability *datatypes.DataAvailability) string {
	var evidence strings.Builder
	if availability != nil {
		for _, s := range availability.Sources {
			fmt.Fprintf(&evidence, "- %s: official_api=%t crawlable=%t blocking=%t (%s)\n",
				s.Name, s.HasOfficialAPI, s.Crawlable, s.Blocking, s.Note)
		}
		for _, l := range availability.Libraries {
			fmt.Fprintf(&evidence, "- library %s: available=%t package=%s\n", l.Name, l.Available, l.PackageName)
		}
	}
	if evidence.Len() == 0 {
		evidence.WriteString("no data-source or library evidence collected\n")
	}
	return fmt.Sprintf(`You are a senior engineer assessing technical feasibility with cold honesty.

Idea: %s

Verified data and library evidence:
%s
Respond with pure JSON only:

{
  "score": 0-100,
  "bottlenecks": [
    {"title": "bottleneck", "severity": "high|medium|low", "description": "one line"}
  ],
  "summary": "one-line overall judgment"
}

Rules:
- Treat a blocking data source as a severe bottleneck.
- Score reflects how much of the idea one small team could actually build.`, idea, evidence.String())
}

func buildDifferentiationPrompt(idea string, web *datatypes.WebSearchResult, code *datatypes.GitHubSearchResult) string {
	var competitorList []string
	if web != nil {
		for i, c := range web.Competitors {
			if i >= 5 {
				break
			}
			competitorList = append(competitorList, fmt.Sprintf("- %s: %s", c.Title, c.Snippet))
		}
	}
	competitors := strings.Join(competitorList, "\n")
	if competitors == "" {
		competitors = "no competing products found"
	}

	var repoList []string
	if code != nil {
		for i, r := range code.Repos {
			if i >= 5 {
				break
			}
			repoList = append(repoList, fmt.Sprintf("- %s (%d stars): %s", r.Name, r.Stars, r.Description))
		}
	}
	repos := strings.Join(repoList, "\n")
	if repos == "" {
		repos = "no similar projects found"
	}

	return fmt.Sprintf(`You are a devil's advocate. Assess how this idea can differentiate, without flattery.

Idea: %s

Competing products:
%s

Similar open-source projects:
%s

Respond with pure JSON only:

{
  "band": "blue_ocean" | "moderate" | "red_ocean",
  "score": 0-100,
  "angles": ["differentiation angle 1", "angle 2"],
  "summary": "one-line overall judgment"
}

Rules:
- score must stay inside the band range: red_ocean 0-39, moderate 40-69, blue_ocean 70-100.
- Higher score means less competition.`, idea, competitors, repos)
}

// buildVerdictPrompt assembles stage 5's context from whichever upstream
// stages actually ran. A disabled stage's slot is omitted entirely.
func buildVerdictPrompt(idea string, state verdictContext) string {
	var ctx strings.Builder
	if state.Web != nil {
		fmt.Fprintf(&ctx, "Web competition: %d relevant results\n", state.Web.RawCount)
	}
	if state.Code != nil {
		fmt.Fprintf(&ctx, "GitHub competition: %d similar repositories\n", state.Code.TotalCount)
	}
	if state.Feasibility != nil {
		fmt.Fprintf(&ctx, "Feasibility: %d/100 (%s)\n", state.Feasibility.Score, state.Feasibility.Summary)
		for _, b := range state.Feasibility.Bottlenecks {
			fmt.Fprintf(&ctx, "- bottleneck [%s] %s: %s\n", b.Severity, b.Title, b.Description)
		}
	}
	if state.Differentiation != nil {
		fmt.Fprintf(&ctx, "Differentiation: %d/100, band %s (%s)\n",
			state.Differentiation.Score, state.Differentiation.Band, state.Differentiation.Summary)
	}
	if ctx.Len() == 0 {
		ctx.WriteString("no upstream analysis available\n")
	}

	return fmt.Sprintf(`You are the final judge of a product idea. Weigh all collected analysis into one verdict.

Idea: %s

Collected analysis:
%s
Respond with pure JSON only:

{
  "verdict": "GO" | "PIVOT" | "KILL",
  "score": 0-100,
  "reasoning": "one-line reason",
  "next_steps": ["concrete next action 1", "action 2"]
}

Rules:
- GO only when both feasibility and differentiation support it.
- A high-severity bottleneck rules out GO.`, idea, ctx.String())
}
