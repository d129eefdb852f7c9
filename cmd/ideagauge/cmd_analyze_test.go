// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"reflect"
	"testing"
)

func TestParseSteps(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    []int
		wantErr bool
	}{
		{"empty runs all stages", "", nil, false},
		{"whitespace only", "   ", nil, false},
		{"single step", "3", []int{3}, false},
		{"multiple steps", "1,2,5", []int{1, 2, 5}, false},
		{"spaces around commas", " 1 , 4 ", []int{1, 4}, false},
		{"trailing comma", "2,", []int{2}, false},
		{"zero rejected", "0", nil, true},
		{"out of range rejected", "6", nil, true},
		{"non-numeric rejected", "one", nil, true},
		{"mixed valid and invalid", "1,x", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSteps(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseSteps(%q) expected error", tt.spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSteps(%q) failed: %v", tt.spec, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseSteps(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestResolveIdea_FromArgs(t *testing.T) {
	idea, err := resolveIdea([]string{"an", "AI", "bird", "feeder"})
	if err != nil {
		t.Fatalf("resolveIdea failed: %v", err)
	}
	if idea != "an AI bird feeder" {
		t.Errorf("unexpected idea %q", idea)
	}
}

func TestResolveIdea_TrimsWhitespace(t *testing.T) {
	idea, err := resolveIdea([]string{"  padded idea  "})
	if err != nil {
		t.Fatalf("resolveIdea failed: %v", err)
	}
	if idea != "padded idea" {
		t.Errorf("unexpected idea %q", idea)
	}
}
