package provider

import (
	"testing"
)

const scoringJSON = `{
  "brainDominance": {"leftBrain": 0.7, "rightBrain": 0.3},
  "processingStyle": {"reflexive": 0.2, "reasoning": 0.8},
  "emotionalAnalysis": {"joy": 0.5, "intensity": 0.4, "engagement": 0.6, "sentiment": 0.1},
  "conversationMetrics": {"complexity": 0.5, "depth": 60, "coherence": 80, "engagement": 70, "topicStability": 90},
  "cognitiveStyle": {"cognitiveStrength": 75}
}`

func TestParseScoring(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"plain json", scoringJSON},
		{"fenced", "```\n" + scoringJSON + "\n```"},
		{"fenced with language tag", "```json\n" + scoringJSON + "\n```"},
		{"surrounding whitespace", "\n\n  " + scoringJSON + "  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scoring, err := ParseScoring(tt.raw)
			if err != nil {
				t.Fatalf("ParseScoring: %v", err)
			}
			if scoring.BrainDominance.LeftBrain != 0.7 {
				t.Errorf("leftBrain = %v, want 0.7", scoring.BrainDominance.LeftBrain)
			}
			if scoring.ConversationMetrics.Depth != 60 {
				t.Errorf("depth = %v, want 60", scoring.ConversationMetrics.Depth)
			}
			if scoring.CognitiveStyle.Strength != 75 {
				t.Errorf("cognitiveStrength = %v, want 75", scoring.CognitiveStyle.Strength)
			}
		})
	}
}

func TestParseScoringRejectsGarbage(t *testing.T) {
	if _, err := ParseScoring("I cannot analyze that."); err == nil {
		t.Error("expected error for non-JSON response")
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"{}", "{}"},
		{"```\n{}\n```", "{}"},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"  {} ", "{}"},
	}
	for _, tt := range tests {
		if got := StripFences(tt.in); got != tt.want {
			t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
