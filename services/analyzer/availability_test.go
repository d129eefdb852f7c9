// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// Tests for the data-availability checker: extraction, evidence judgment
// and npm library resolution.

package analyzer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IdeaGaugeAI/IdeaGauge/services/evidence"
	"github.com/IdeaGaugeAI/IdeaGauge/services/llm"
	"github.com/IdeaGaugeAI/IdeaGauge/services/providers"
)

type MockVerifier struct {
	Status   int
	Requests []string
}

func (m *MockVerifier) Do(req *http.Request) (*http.Response, error) {
	m.Requests = append(m.Requests, req.URL.String())
	return &http.Response{StatusCode: m.Status, Body: http.NoBody}, nil
}

func extractionLLM(response string) *MockLLM {
	return &MockLLM{GenerateFunc: func(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
		return response, nil
	}}
}

func apiEvidenceSearch() *MockSearch {
	return &MockSearch{SearchFunc: func(ctx context.Context, query string, maxResults int, depth string, timeout time.Duration) ([]providers.SearchResult, error) {
		return []providers.SearchResult{{
			Title:   "FlightData developer portal",
			URL:     "https://developer.flightdata.io/api",
			Content: "Official REST API reference for the flight data platform.",
		}}, nil
	}}
}

func TestCheckDataAndLibrariesJudgesOfficialAPI(t *testing.T) {
	verifier := &MockVerifier{Status: 200}
	a, err := New(Config{
		LLM:      extractionLLM(`{"data_sources":[{"name":"FlightData","search_queries":["flightdata api docs","flightdata developer portal"]}],"libraries":[]}`),
		Search:   apiEvidenceSearch(),
		Robots:   &MockRobots{},
		Verifier: verifier,
	})
	require.NoError(t, err)

	result := a.checkDataAndLibraries(context.Background(), "realtime flight tracker")
	require.Len(t, result.Sources, 1)

	src := result.Sources[0]
	assert.Equal(t, "FlightData", src.Name)
	assert.True(t, src.HasOfficialAPI)
	assert.False(t, src.Blocking)
	assert.Equal(t, "https://developer.flightdata.io/api", src.EvidenceURL)
	assert.Contains(t, src.Note, "(evidence URL verified)")
	assert.Equal(t, []string{"https://developer.flightdata.io/api"}, verifier.Requests)
	assert.False(t, result.HasBlockingIssues)
}

func TestCheckDataAndLibrariesDemotesDeadEvidenceURL(t *testing.T) {
	a, err := New(Config{
		LLM:      extractionLLM(`{"data_sources":[{"name":"FlightData","search_queries":["q1","q2"]}],"libraries":[]}`),
		Search:   apiEvidenceSearch(),
		Robots:   &MockRobots{},
		Verifier: &MockVerifier{Status: 503},
	})
	require.NoError(t, err)

	result := a.checkDataAndLibraries(context.Background(), "realtime flight tracker")
	require.Len(t, result.Sources, 1)

	src := result.Sources[0]
	assert.False(t, src.HasOfficialAPI)
	assert.True(t, src.Blocking)
	assert.Contains(t, src.Note, "manual review recommended")
	assert.True(t, HasBlockingIssues(result))
}

func TestCheckDataAndLibrariesRobotsBlockedSourceIsBlocking(t *testing.T) {
	search := &MockSearch{SearchFunc: func(ctx context.Context, query string, maxResults int, depth string, timeout time.Duration) ([]providers.SearchResult, error) {
		return []providers.SearchResult{{
			Title:   "ListingHub",
			URL:     "https://www.listinghub.com/listings",
			Content: "Browse thousands of listings updated daily.",
		}}, nil
	}}
	a, err := New(Config{
		LLM:    extractionLLM(`{"data_sources":["ListingHub"],"libraries":[]}`),
		Search: search,
		Robots: &MockRobots{Blocked: true, Domain: "listinghub.com"},
	})
	require.NoError(t, err)

	result := a.checkDataAndLibraries(context.Background(), "aggregated listings search")
	require.Len(t, result.Sources, 1)

	src := result.Sources[0]
	assert.False(t, src.HasOfficialAPI)
	assert.False(t, src.Crawlable)
	assert.True(t, src.Blocking)
	assert.Contains(t, src.Note, "listinghub.com")
	assert.True(t, result.HasBlockingIssues)
}

func TestCheckDataAndLibrariesDefaultQueriesForBareSourceName(t *testing.T) {
	search := &MockSearch{SearchFunc: func(ctx context.Context, query string, maxResults int, depth string, timeout time.Duration) ([]providers.SearchResult, error) {
		return nil, nil
	}}
	a, err := New(Config{
		LLM:    extractionLLM(`{"data_sources":["WeatherAPI"],"libraries":[]}`),
		Search: search,
	})
	require.NoError(t, err)

	a.checkDataAndLibraries(context.Background(), "weather dashboard")
	assert.Contains(t, search.Calls, "WeatherAPI official API documentation")
	assert.Contains(t, search.Calls, "WeatherAPI developer portal")
}

func TestCheckDataAndLibrariesEmptyExtraction(t *testing.T) {
	a, err := New(Config{LLM: extractionLLM(`{"data_sources":[],"libraries":[]}`)})
	require.NoError(t, err)

	result := a.checkDataAndLibraries(context.Background(), "a local-only notes app")
	assert.Empty(t, result.Sources)
	assert.Empty(t, result.Libraries)
	assert.False(t, HasBlockingIssues(result))
}

func TestCheckDataAndLibrariesMalformedExtraction(t *testing.T) {
	a, err := New(Config{LLM: extractionLLM("I am not sure what this idea needs.")})
	require.NoError(t, err)

	result := a.checkDataAndLibraries(context.Background(), "an idea")
	assert.Empty(t, result.Sources)
	assert.Empty(t, result.Libraries)
}

func TestCheckDataAndLibrariesCachesByIdea(t *testing.T) {
	calls := 0
	mockLLM := &MockLLM{GenerateFunc: func(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
		calls++
		return `{"data_sources":["WeatherAPI"],"libraries":[]}`, nil
	}}
	a, err := New(Config{LLM: mockLLM})
	require.NoError(t, err)

	a.checkDataAndLibraries(context.Background(), "Weather  Dashboard")
	a.checkDataAndLibraries(context.Background(), "weather dashboard")
	assert.Equal(t, 1, calls, "second check must be served from cache")
}

func TestCheckDataAndLibrariesCapsExtraction(t *testing.T) {
	mockLLM := extractionLLM(`{
		"data_sources":["S1","S2","S3","S4","S5"],
		"libraries":["l1","l2","l3","l4"]
	}`)
	a, err := New(Config{LLM: mockLLM, Registry: &MockRegistry{}})
	require.NoError(t, err)

	result := a.checkDataAndLibraries(context.Background(), "an idea")
	assert.Len(t, result.Sources, 3)
	assert.Len(t, result.Libraries, 3)
}

func TestValidateLibraryExactPackageName(t *testing.T) {
	registry := &MockRegistry{ExistsFunc: func(ctx context.Context, name string) (bool, error) {
		return name == "axios", nil
	}}
	a, err := New(Config{Registry: registry})
	require.NoError(t, err)

	check := a.validateLibrary(context.Background(), "npm: axios")
	assert.True(t, check.Available)
	assert.Equal(t, "axios", check.PackageName)
	assert.Equal(t, "npm: axios", check.Name)
	assert.Contains(t, check.Note, "confirmed on the npm registry")
}

func TestValidateLibraryCategoryHintResolvesViaSearch(t *testing.T) {
	registry := &MockRegistry{
		ExistsFunc: func(ctx context.Context, name string) (bool, error) {
			return name == "pdf-parse", nil
		},
		SearchFunc: func(ctx context.Context, query string, size int) ([]evidence.NpmCandidate, error) {
			assert.Equal(t, 6, size)
			return []evidence.NpmCandidate{
				{Name: "pdf-parse", Description: "pure javascript pdf parsing", Keywords: []string{"pdf", "parse"}, Score: 0.8},
				{Name: "some-other", Description: "unrelated", Score: 0.9},
			}, nil
		},
	}
	a, err := New(Config{Registry: registry})
	require.NoError(t, err)

	check := a.validateLibrary(context.Background(), "category: pdf parsing")
	assert.True(t, check.Available)
	assert.Equal(t, "pdf-parse", check.PackageName)
	assert.Contains(t, check.Note, "inferred from category hint")
}

func TestValidateLibraryUnconfidentMatchNeedsReview(t *testing.T) {
	registry := &MockRegistry{
		SearchFunc: func(ctx context.Context, query string, size int) ([]evidence.NpmCandidate, error) {
			return []evidence.NpmCandidate{
				{Name: "left-pad", Description: "string padding", Score: 0.2},
			}, nil
		},
	}
	a, err := New(Config{Registry: registry})
	require.NoError(t, err)

	check := a.validateLibrary(context.Background(), "category: distributed quantum scheduling")
	assert.False(t, check.Available)
	assert.Equal(t, "left-pad", check.PackageName)
	assert.Contains(t, check.Note, "manual review recommended")
}

func TestValidateLibraryNoMatch(t *testing.T) {
	registry := &MockRegistry{
		SearchFunc: func(ctx context.Context, query string, size int) ([]evidence.NpmCandidate, error) {
			return nil, errors.New("registry timeout")
		},
	}
	a, err := New(Config{Registry: registry})
	require.NoError(t, err)

	check := a.validateLibrary(context.Background(), "category: something obscure")
	assert.False(t, check.Available)
	assert.Empty(t, check.PackageName)
	assert.Contains(t, check.Note, "no matching package")
}

func TestValidateLibraryWithoutRegistry(t *testing.T) {
	a, err := New(Config{})
	require.NoError(t, err)

	check := a.validateLibrary(context.Background(), "axios")
	assert.False(t, check.Available)
	assert.Contains(t, check.Note, "not configured")
}

func TestNormalizeLibraryInput(t *testing.T) {
	cases := []struct {
		in       string
		want     string
		category bool
	}{
		{"axios", "axios", false},
		{"npm: axios", "axios", false},
		{"npm:cheerio", "cheerio", false},
		{"category: pdf parsing", "pdf parsing", true},
		{"Category : html scraping", "html scraping", true},
		{"  left-pad  ", "left-pad", false},
	}
	for _, tc := range cases {
		got, isCategory := normalizeLibraryInput(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.category, isCategory, tc.in)
	}
}

func TestLooksLikeNpmPackageName(t *testing.T) {
	assert.True(t, looksLikeNpmPackageName("axios"))
	assert.True(t, looksLikeNpmPackageName("@scope/pkg-name"))
	assert.True(t, looksLikeNpmPackageName("pdf-parse"))
	assert.False(t, looksLikeNpmPackageName("pdf parsing library"))
	assert.False(t, looksLikeNpmPackageName(""))
}

func TestGatherAvailabilityEvidenceCapsQueriesAndSnippets(t *testing.T) {
	long := strings.Repeat("x", 400)
	search := &MockSearch{SearchFunc: func(ctx context.Context, query string, maxResults int, depth string, timeout time.Duration) ([]providers.SearchResult, error) {
		assert.Equal(t, availResultsPerQuery, maxResults)
		return []providers.SearchResult{{URL: "https://" + query + ".example.com", Content: long}}, nil
	}}
	a, err := New(Config{Search: search})
	require.NoError(t, err)

	queries := []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8"}
	byQuery := a.gatherAvailabilityEvidence(context.Background(), queries)
	assert.Len(t, byQuery, maxAvailQueries)
	assert.Len(t, search.Calls, maxAvailQueries)
	for _, ev := range byQuery {
		require.Len(t, ev.Snippets, 1)
		assert.Len(t, ev.Snippets[0], availSnippetLen)
	}
}
