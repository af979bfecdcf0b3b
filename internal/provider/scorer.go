package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ExpressedAi/Pinkmemory/internal/affect"
	"github.com/ExpressedAi/Pinkmemory/internal/config"
)

// Scorer produces an affective analysis for a piece of text.
type Scorer interface {
	Score(ctx context.Context, text string) (*affect.Scoring, error)
}

const scoringSystemPrompt = `You are an affective analysis engine. Analyze the user's text and return strict JSON only, no markdown, with exactly this shape:
{
  "brainDominance": {"leftBrain": 0.0, "rightBrain": 0.0},
  "processingStyle": {"reflexive": 0.0, "reasoning": 0.0},
  "emotionalAnalysis": {"joy": 0.0, "intensity": 0.0, "engagement": 0.0, "sentiment": 0.0},
  "conversationMetrics": {"complexity": 0.0, "depth": 0, "coherence": 0, "engagement": 0, "topicStability": 0},
  "cognitiveStyle": {"cognitiveStrength": 0}
}
brainDominance, processingStyle, emotionalAnalysis values and complexity are in [0,1] except sentiment which is in [-1,1]. depth, coherence, engagement, topicStability and cognitiveStrength are in [0,100].`

// AnthropicScorer scores text with a small Claude model constrained to JSON
// output.
type AnthropicScorer struct {
	client anthropic.Client
	model  string
}

func NewAnthropicScorer(cfg config.ProviderConfig) (*AnthropicScorer, error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, &AuthError{Provider: "anthropic", Reason: "missing api key"}
	}
	return &AnthropicScorer{
		client: anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey)),
		model:  cfg.MetaModel,
	}, nil
}

// NewLongTermScorer builds a scorer from the secondary credential pair used
// for long-term duplicates of reflections. It returns nil when no secondary
// key is configured; the model falls back to MetaModel.
func NewLongTermScorer(cfg config.ProviderConfig) *AnthropicScorer {
	if cfg.LongTermAPIKey == "" {
		return nil
	}
	model := cfg.LongTermModel
	if model == "" {
		model = cfg.MetaModel
	}
	return &AnthropicScorer{
		client: anthropic.NewClient(option.WithAPIKey(cfg.LongTermAPIKey)),
		model:  model,
	}
}

func (s *AnthropicScorer) Score(ctx context.Context, text string) (*affect.Scoring, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: scoringSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &CancelledError{Err: ctx.Err()}
		}
		return nil, &ProviderError{Provider: "anthropic", Err: err}
	}

	var raw string
	for _, block := range resp.Content {
		if block.Type == "text" {
			raw += block.Text
		}
	}

	return ParseScoring(raw)
}

// ParseScoring decodes a scoring response, tolerating the code fences models
// sometimes wrap JSON in despite instructions.
func ParseScoring(raw string) (*affect.Scoring, error) {
	cleaned := StripFences(raw)
	var scoring affect.Scoring
	if err := json.Unmarshal([]byte(cleaned), &scoring); err != nil {
		return nil, &ProviderError{Provider: "anthropic", Err: fmt.Errorf("parse scoring json: %w", err)}
	}
	return &scoring, nil
}

// StripFences removes a surrounding markdown code fence, if present.
func StripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag on the opening fence line.
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
