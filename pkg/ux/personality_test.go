// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"testing"
)

func TestParsePersonalityLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected PersonalityLevel
	}{
		{"full", PersonalityFull},
		{"f", PersonalityFull},
		{"FULL", PersonalityFull},
		{"standard", PersonalityStandard},
		{"std", PersonalityStandard},
		{"s", PersonalityStandard},
		{"minimal", PersonalityMinimal},
		{"min", PersonalityMinimal},
		{"m", PersonalityMinimal},
		{"machine", PersonalityMachine},
		{"quiet", PersonalityMachine},
		{"q", PersonalityMachine},
		{"bogus", PersonalityStandard},
		{"", PersonalityStandard},
	}

	for _, tt := range tests {
		if got := ParsePersonalityLevel(tt.input); got != tt.expected {
			t.Errorf("ParsePersonalityLevel(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestSetPersonalityLevel(t *testing.T) {
	prev := GetPersonality()
	defer SetPersonality(prev)

	SetPersonalityLevel(PersonalityMinimal)
	if GetPersonality().Level != PersonalityMinimal {
		t.Error("level should update")
	}

	// Other fields should survive a level-only change
	if GetPersonality().Theme != prev.Theme {
		t.Error("theme should be unchanged")
	}
}

func TestInitPersonality_EnvOverride(t *testing.T) {
	prev := GetPersonality()
	defer SetPersonality(prev)

	t.Setenv("IDEAGAUGE_PERSONALITY", "machine")
	InitPersonality()
	if GetPersonality().Level != PersonalityMachine {
		t.Errorf("env override should win, got %q", GetPersonality().Level)
	}
}

func TestInitPersonality_NonInteractiveDefaultsToMachine(t *testing.T) {
	prev := GetPersonality()
	defer SetPersonality(prev)

	t.Setenv("IDEAGAUGE_PERSONALITY", "")
	// Test binaries run with stdout redirected, so the terminal check fails
	InitPersonality()
	if GetPersonality().Level != PersonalityMachine {
		t.Errorf("expected machine level in non-interactive context, got %q", GetPersonality().Level)
	}
}

func TestShouldShowProgress(t *testing.T) {
	prev := GetPersonality()
	defer SetPersonality(prev)

	SetPersonalityLevel(PersonalityMachine)
	if ShouldShowProgress() {
		t.Error("machine mode should not show progress")
	}

	SetPersonalityLevel(PersonalityFull)
	if !ShouldShowProgress() {
		t.Error("full mode should show progress")
	}
}

func TestDefaultPersonality(t *testing.T) {
	p := DefaultPersonality()
	if p.Level != PersonalityFull {
		t.Errorf("expected full default level, got %q", p.Level)
	}
	if !p.ShowTips {
		t.Error("tips should default on")
	}
}
