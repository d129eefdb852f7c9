// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package analyzer implements the five-stage idea analysis pipeline.
//
// # Description
//
// Analyze runs the enabled stages strictly in order, emitting a typed event
// stream: step_start when a stage begins, step_progress while streamed LLM
// output accumulates, step_result when the stage resolves, and a single
// terminal done event. Every stage resolves to a deterministic fallback
// under any provider failure, so the pipeline always completes.
//
// # Inputs
//
// An idea text, a caller-selected stage subset (empty or invalid defaults
// to all five stages), and an emit callback that receives each event. An
// emit error means the consumer is gone and aborts the run.
//
// # Outputs
//
// The ordered event sequence. Stage results are the structs in the
// datatypes package.
//
// # Limitations
//
// Caches are process-lifetime and best-effort; a second concurrent
// analysis of the same idea may duplicate work rather than coordinate.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/IdeaGaugeAI/IdeaGauge/pkg/llmjson"
	"github.com/IdeaGaugeAI/IdeaGauge/pkg/ttlcache"
	"github.com/IdeaGaugeAI/IdeaGauge/services/analyzer/datatypes"
	"github.com/IdeaGaugeAI/IdeaGauge/services/evidence"
	"github.com/IdeaGaugeAI/IdeaGauge/services/llm"
	"github.com/IdeaGaugeAI/IdeaGauge/services/providers"
)

const (
	// progressThreshold is the number of accumulated streamed characters
	// that triggers one step_progress event.
	progressThreshold = 80

	totalStages = 5

	searchCacheTTL       = 10 * time.Minute
	availabilityCacheTTL = 30 * time.Minute
	cacheCapacity        = 100
)

// EmitFunc receives pipeline events in order. Returning an error stops
// the run.
type EmitFunc func(datatypes.Event) error

// Config wires the pipeline's collaborators. Any provider may be nil; the
// dependent stages then resolve to their fallbacks. Nil caches get fresh
// private instances, so distinct Analyzer values never share state unless
// the caller passes the same cache in.
type Config struct {
	LLM          llm.LLMClient
	Search       providers.SearchProvider
	Repos        providers.RepoSearchProvider
	Registry     providers.NpmRegistry
	Robots       providers.RobotsChecker
	Verifier     providers.HTTPClient
	SearchCache  *ttlcache.Cache
	AvailCache   *ttlcache.Cache
	Clock        func() time.Time
}

// Analyzer is the pipeline orchestrator.
type Analyzer struct {
	llm         llm.LLMClient
	search      providers.SearchProvider
	repos       providers.RepoSearchProvider
	registry    providers.NpmRegistry
	robots      providers.RobotsChecker
	verifier    providers.HTTPClient
	rules       *evidence.RuleEngine
	searchCache *ttlcache.Cache
	availCache  *ttlcache.Cache
	clock       func() time.Time
}

func New(cfg Config) (*Analyzer, error) {
	rules, err := evidence.NewRuleEngine()
	if err != nil {
		return nil, fmt.Errorf("build rule engine: %w", err)
	}
	searchCache := cfg.SearchCache
	if searchCache == nil {
		searchCache = ttlcache.New(searchCacheTTL, cacheCapacity)
	}
	availCache := cfg.AvailCache
	if availCache == nil {
		availCache = ttlcache.New(availabilityCacheTTL, cacheCapacity)
	}
	return &Analyzer{
		llm:         cfg.LLM,
		search:      cfg.Search,
		repos:       cfg.Repos,
		registry:    cfg.Registry,
		robots:      cfg.Robots,
		verifier:    cfg.Verifier,
		rules:       rules,
		searchCache: searchCache,
		availCache:  availCache,
		clock:       cfg.Clock,
	}, nil
}

// SanitizeSteps keeps the valid 1..5 subset of the requested stages in
// ascending order without duplicates. An empty or entirely invalid
// selection enables all stages.
func SanitizeSteps(steps []int) []int {
	seen := make(map[int]struct{}, totalStages)
	var out []int
	for _, s := range steps {
		if s < 1 || s > totalStages {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return []int{1, 2, 3, 4, 5}
	}
	sort.Ints(out)
	return out
}

type verdictContext struct {
	Web             *datatypes.WebSearchResult
	Code            *datatypes.GitHubSearchResult
	Feasibility     *datatypes.FeasibilityResult
	Differentiation *datatypes.DifferentiationResult
}

// newStageState builds the pending record for one enabled stage. Every
// stage event is derived from its record, so the emitted stream and the
// state machine cannot drift apart.
func newStageState(step int, title, description string) *datatypes.StageState {
	return &datatypes.StageState{
		Step:        step,
		Title:       title,
		Description: description,
		Status:      datatypes.StageStatusPending,
	}
}

// startStage moves a pending stage to loading and emits its step_start.
func startStage(st *datatypes.StageState, emit EmitFunc) error {
	st.Status = datatypes.StageStatusLoading
	return emit(datatypes.Event{
		Type:        datatypes.EventStepStart,
		Step:        st.Step,
		Title:       st.Title,
		Description: st.Description,
	})
}

// finishStage stores the stage payload, marks the record done, and emits
// its step_result.
func finishStage(st *datatypes.StageState, result any, emit EmitFunc) error {
	st.Result = result
	st.Status = datatypes.StageStatusDone
	return emit(datatypes.Event{
		Type:   datatypes.EventStepResult,
		Step:   st.Step,
		Result: result,
	})
}

// Analyze runs the pipeline. The returned error is non-nil only when the
// emit callback failed; provider failures degrade to fallbacks instead.
func (a *Analyzer) Analyze(ctx context.Context, idea string, steps []int, emit EmitFunc) error {
	enabled := make(map[int]bool, totalStages)
	for _, s := range SanitizeSteps(steps) {
		enabled[s] = true
	}

	// Pre-step: AI-optimized search queries for the two search stages.
	var webQueries, githubQueries []string
	if enabled[1] || enabled[2] {
		webQueries, githubQueries = a.generateSearchQueries(ctx, idea)
	}

	var vctx verdictContext

	// Stage 1: market search.
	if enabled[1] {
		st := newStageState(1, "Market Search",
			"Scanning the web for competing products: "+joinPreview(webQueries, idea))
		if err := startStage(st, emit); err != nil {
			return err
		}
		web := a.searchWeb(ctx, idea, webQueries)
		vctx.Web = &web
		if err := finishStage(st, web, emit); err != nil {
			return err
		}
	}

	// Stage 2: repository search.
	if enabled[2] {
		st := newStageState(2, "Repository Search",
			"Searching GitHub for similar projects: "+joinPreview(githubQueries, idea))
		if err := startStage(st, emit); err != nil {
			return err
		}
		code := a.searchGithub(ctx, idea, githubQueries)
		vctx.Code = &code
		if err := finishStage(st, code, emit); err != nil {
			return err
		}
	}

	// Stage 3: data availability and technical feasibility.
	if enabled[3] {
		st := newStageState(3, "Technical Feasibility",
			"Checking data availability and technical difficulty...")
		if err := startStage(st, emit); err != nil {
			return err
		}
		availability := a.checkDataAndLibraries(ctx, idea)

		var parsed datatypes.FeasibilityResult
		ok, err := a.streamStage(ctx, st, buildFeasibilityPrompt(idea, &availability), 1024, emit, &parsed)
		if err != nil {
			return err
		}
		feasibility := fallbackFeasibility()
		if ok {
			feasibility = parsed
		}
		feasibility.DataAvailability = &availability
		vctx.Feasibility = &feasibility
		if err := finishStage(st, feasibility, emit); err != nil {
			return err
		}
	}

	// Stage 4: differentiation.
	if enabled[4] {
		st := newStageState(4, "Differentiation",
			"Comparing the idea against everything the searches found...")
		if err := startStage(st, emit); err != nil {
			return err
		}
		var web datatypes.WebSearchResult
		if vctx.Web != nil {
			web = *vctx.Web
		}
		var code datatypes.GitHubSearchResult
		if vctx.Code != nil {
			code = *vctx.Code
		}

		var parsed datatypes.DifferentiationResult
		ok, err := a.streamStage(ctx, st, buildDifferentiationPrompt(idea, vctx.Web, vctx.Code), 1024, emit, &parsed)
		if err != nil {
			return err
		}
		differentiation := fallbackDifferentiation(web, code)
		if ok {
			differentiation = parsed
		}
		vctx.Differentiation = &differentiation
		if err := finishStage(st, differentiation, emit); err != nil {
			return err
		}
	}

	// Stage 5: verdict over whatever stages actually ran.
	if enabled[5] {
		st := newStageState(5, "Final Verdict",
			"Weighing all collected analysis into one verdict...")
		if err := startStage(st, emit); err != nil {
			return err
		}
		feasibility := fallbackFeasibility()
		if vctx.Feasibility != nil {
			feasibility = *vctx.Feasibility
		}
		var differentiation datatypes.DifferentiationResult
		if vctx.Differentiation != nil {
			differentiation = *vctx.Differentiation
		} else {
			var web datatypes.WebSearchResult
			if vctx.Web != nil {
				web = *vctx.Web
			}
			var code datatypes.GitHubSearchResult
			if vctx.Code != nil {
				code = *vctx.Code
			}
			differentiation = fallbackDifferentiation(web, code)
		}

		var parsed datatypes.VerdictResult
		ok, err := a.streamStage(ctx, st, buildVerdictPrompt(idea, vctx), 1024, emit, &parsed)
		if err != nil {
			return err
		}
		verdict := fallbackVerdict(feasibility, differentiation)
		if ok {
			verdict = parsed
		}
		if err := finishStage(st, verdict, emit); err != nil {
			return err
		}
	}

	return emit(datatypes.Event{Type: datatypes.EventDone, Message: "analysis complete"})
}

// generateSearchQueries asks the LLM for optimized web and repository
// queries. Any failure falls back to deterministic templates over the raw
// idea text.
func (a *Analyzer) generateSearchQueries(ctx context.Context, idea string) (web, github []string) {
	fallbackWeb := []string{idea + " tool service app", idea + " alternative competitor similar"}
	fallbackGitHub := []string{idea}

	if a.llm == nil {
		return fallbackWeb, fallbackGitHub
	}
	text, err := a.llm.Generate(ctx, buildQueryPrompt(idea), llm.GenerationParams{MaxTokens: llm.IntPtr(256)})
	if err != nil {
		slog.Warn("search query generation failed, using template queries", "error", err)
		return fallbackWeb, fallbackGitHub
	}
	var parsed struct {
		WebQueries    []string `json:"web_queries"`
		GitHubQueries []string `json:"github_queries"`
	}
	if err := llmjson.Unmarshal(text, &parsed); err != nil || len(parsed.WebQueries) == 0 {
		return fallbackWeb, fallbackGitHub
	}
	if len(parsed.GitHubQueries) == 0 {
		parsed.GitHubQueries = fallbackGitHub
	}
	return parsed.WebQueries, parsed.GitHubQueries
}

// streamStage streams one LLM call for a loading stage, emitting a progress
// event per progressThreshold accumulated characters (runes, not bytes)
// with the cumulative count, then parses the collected text into out. The
// stage record's ProgressText tracks the last emitted progress line. ok is
// false when the provider is missing, the stream failed, or the output was
// not parseable JSON; the caller substitutes its fallback then. The
// returned error is non-nil only when emit failed.
func (a *Analyzer) streamStage(ctx context.Context, st *datatypes.StageState, prompt string, maxTokens int, emit EmitFunc, out any) (ok bool, err error) {
	if a.llm == nil {
		return false, nil
	}

	var emitErr error
	unflushed := 0
	total := 0
	collected, genErr := a.llm.GenerateStream(ctx, prompt,
		llm.GenerationParams{MaxTokens: llm.IntPtr(maxTokens)},
		func(delta string) error {
			runes := utf8.RuneCountInString(delta)
			total += runes
			unflushed += runes
			if unflushed >= progressThreshold {
				unflushed = 0
				st.ProgressText = fmt.Sprintf("Generating analysis... (%d chars)", total)
				emitErr = emit(datatypes.Event{
					Type:  datatypes.EventStepProgress,
					Step:  st.Step,
					Text:  st.ProgressText,
					Chars: total,
				})
			}
			return emitErr
		})
	if emitErr != nil {
		return false, emitErr
	}
	if genErr != nil {
		slog.Warn("stage stream failed, using fallback result", "step", st.Step, "error", genErr)
		return false, nil
	}
	if err := llmjson.Unmarshal(collected, out); err != nil {
		slog.Warn("stage output is not parseable JSON, using fallback result", "step", st.Step, "error", err)
		return false, nil
	}
	return true, nil
}

func joinPreview(queries []string, fallback string) string {
	if len(queries) == 0 {
		return fallback
	}
	if len(queries) > 2 {
		queries = queries[:2]
	}
	out := queries[0]
	if len(queries) > 1 {
		out += " / " + queries[1]
	}
	return out
}
