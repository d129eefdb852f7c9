// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *RuleEngine {
	t.Helper()
	engine, err := NewRuleEngine()
	require.NoError(t, err)
	return engine
}

func TestEvaluateDataSourceOfficialAPI(t *testing.T) {
	engine := newTestEngine(t)

	judgment := engine.EvaluateDataSource(SourceEvidence{
		URLs:     []string{"https://developers.x.com"},
		Snippets: []string{"public api documentation", "rest api reference"},
	})

	assert.True(t, judgment.HasOfficialAPI)
	assert.False(t, judgment.Crawlable)
	assert.False(t, judgment.Blocking)
	assert.Equal(t, "https://developers.x.com", judgment.EvidenceURL)
	assert.Contains(t, judgment.Note, "API")
}

func TestEvaluateDataSourceEmptyEvidenceIsBlocking(t *testing.T) {
	engine := newTestEngine(t)

	judgment := engine.EvaluateDataSource(SourceEvidence{})

	assert.False(t, judgment.HasOfficialAPI)
	assert.False(t, judgment.Crawlable)
	assert.True(t, judgment.Blocking)
	assert.Empty(t, judgment.EvidenceURL)
}

func TestEvaluateDataSourceSingleSignalIsNotAPI(t *testing.T) {
	engine := newTestEngine(t)

	// One positive phrase and no API-shaped URL stays below the two-signal
	// threshold, so the source falls through to crawlable.
	judgment := engine.EvaluateDataSource(SourceEvidence{
		URLs:     []string{"https://example.com/pricing"},
		Snippets: []string{"our public api is coming soon"},
	})

	assert.False(t, judgment.HasOfficialAPI)
	assert.True(t, judgment.Crawlable)
	assert.False(t, judgment.Blocking)
}

func TestEvaluateDataSourceNegativeSignalVetoesAPI(t *testing.T) {
	engine := newTestEngine(t)

	judgment := engine.EvaluateDataSource(SourceEvidence{
		URLs:     []string{"https://developer.example.com/api"},
		Snippets: []string{"api documentation", "rest api", "private api, contact sales for access"},
	})

	assert.False(t, judgment.HasOfficialAPI)
	assert.False(t, judgment.Blocking && judgment.HasOfficialAPI)
}

func TestEvaluateDataSourceLegalBlock(t *testing.T) {
	engine := newTestEngine(t)

	judgment := engine.EvaluateDataSource(SourceEvidence{
		URLs:     []string{"https://example.com/terms"},
		Snippets: []string{"no scraping of any content is permitted"},
	})

	assert.False(t, judgment.HasOfficialAPI)
	assert.False(t, judgment.Crawlable)
	assert.True(t, judgment.Blocking)
	assert.Contains(t, judgment.Note, "ban on automated collection")
}

func TestEvaluateDataSourceRobotsBlock(t *testing.T) {
	engine := newTestEngine(t)

	judgment := engine.EvaluateDataSource(SourceEvidence{
		URLs:              []string{"https://example.com/products"},
		Snippets:          []string{"product catalog with reviews"},
		RobotsDisallowAll: true, RobotsCheckedDomain: "example.com",
	})

	assert.False(t, judgment.Crawlable)
	assert.True(t, judgment.Blocking)
	assert.Contains(t, judgment.Note, "example.com")
}

func TestEvaluateDataSourceNeverAPIAndBlocking(t *testing.T) {
	engine := newTestEngine(t)

	cases := []SourceEvidence{
		{},
		{URLs: []string{"https://developers.x.com"}, Snippets: []string{"public api documentation", "rest api"}},
		{URLs: []string{"https://example.com"}, Snippets: []string{"no scraping allowed"}},
		{Snippets: []string{"just a snippet"}, RobotsDisallowAll: true},
		{URLs: []string{"https://a.com", "https://a.com", "  "}, Snippets: []string{"", "api documentation"}},
	}
	for _, ev := range cases {
		judgment := engine.EvaluateDataSource(ev)
		assert.False(t, judgment.HasOfficialAPI && judgment.Blocking, "evidence %+v", ev)
	}
}

func TestEvaluateDataSourceEvidenceURLFallsBackToFirst(t *testing.T) {
	engine := newTestEngine(t)

	judgment := engine.EvaluateDataSource(SourceEvidence{
		URLs:     []string{"https://example.com/blog", "https://example.com/docs"},
		Snippets: []string{"a community site"},
	})

	assert.Equal(t, "https://example.com/blog", judgment.EvidenceURL)
}

func TestExtractDomain(t *testing.T) {
	assert.Equal(t, "example.com", ExtractDomain("https://www.example.com/path?q=1"))
	assert.Equal(t, "developers.x.com", ExtractDomain("https://developers.x.com"))
	assert.Equal(t, "", ExtractDomain("not a url"))
}
