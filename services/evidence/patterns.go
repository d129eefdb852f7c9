// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
This file bridges the build system and the runtime rule engine. The
patterns.yaml signal file is baked into the binary via the Go embed package,
so the scoring rules are immutable at runtime and travel with the executable.
*/

package evidence

import (
	_ "embed"
	"fmt"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"
)

// rawPatterns holds the embedded patterns.yaml bytes, populated at compile
// time. Pass these bytes to yaml.Unmarshal when loading a PatternSet.
//
//go:embed patterns.yaml
var rawPatterns []byte

// RerankConfig holds the keyword and domain lists used by the deterministic
// search-result reranker. Weights live in the reranker itself; the lists are
// deployment-tunable configuration.
type RerankConfig struct {
	PositiveKeywords []string `yaml:"positive_keywords"`
	NoiseKeywords    []string `yaml:"noise_keywords"`
	TrustedDomains   []string `yaml:"trusted_domains"`
	NoisyDomains     []string `yaml:"noisy_domains"`
}

// PatternSet is the compiled form of patterns.yaml.
type PatternSet struct {
	APIPositive []*regexp.Regexp
	APINegative []*regexp.Regexp
	LegalBlock  []*regexp.Regexp
	APIURLHints []string
	StopWords   map[string]struct{}
	Rerank      RerankConfig
}

type patternFile struct {
	APIPositivePatterns []string     `yaml:"api_positive_patterns"`
	APINegativePatterns []string     `yaml:"api_negative_patterns"`
	LegalBlockPatterns  []string     `yaml:"legal_block_patterns"`
	APIURLHints         []string     `yaml:"api_url_hints"`
	StopWords           []string     `yaml:"stop_words"`
	Rerank              RerankConfig `yaml:"rerank"`
}

var (
	loadOnce    sync.Once
	loadedSet   *PatternSet
	loadedError error
)

// LoadPatterns parses and compiles the embedded pattern file.
//
// The result is cached after the first call; an invalid embedded file is a
// build defect, so the error is returned rather than panicking to keep the
// engine usable in tests that construct their own sets.
func LoadPatterns() (*PatternSet, error) {
	loadOnce.Do(func() {
		loadedSet, loadedError = parsePatterns(rawPatterns)
	})
	return loadedSet, loadedError
}

func parsePatterns(data []byte) (*PatternSet, error) {
	var file patternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal embedded pattern file: %w", err)
	}

	set := &PatternSet{
		APIURLHints: file.APIURLHints,
		StopWords:   make(map[string]struct{}, len(file.StopWords)),
		Rerank:      file.Rerank,
	}
	for _, word := range file.StopWords {
		set.StopWords[word] = struct{}{}
	}

	var err error
	if set.APIPositive, err = compileAll(file.APIPositivePatterns); err != nil {
		return nil, err
	}
	if set.APINegative, err = compileAll(file.APINegativePatterns); err != nil {
		return nil, err
	}
	if set.LegalBlock, err = compileAll(file.LegalBlockPatterns); err != nil {
		return nil, err
	}
	return set, nil
}

// compileAll compiles patterns case-insensitively.
func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}
