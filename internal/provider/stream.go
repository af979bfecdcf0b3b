package provider

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ExpressedAi/Pinkmemory/internal/config"
)

// Streamer produces a completion, invoking onDelta for each text fragment as
// it arrives. The full text is returned only when the stream finishes cleanly.
type Streamer interface {
	Complete(ctx context.Context, system, prompt string, onDelta func(string)) (string, error)
}

// AnthropicStreamer streams completions from the Claude Messages API.
type AnthropicStreamer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicStreamer(cfg config.ProviderConfig) (*AnthropicStreamer, error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, &AuthError{Provider: "anthropic", Reason: "missing api key"}
	}
	return &AnthropicStreamer{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey)),
		model:     cfg.GenerateModel,
		maxTokens: 4096,
	}, nil
}

func (s *AnthropicStreamer) Complete(ctx context.Context, system, prompt string, onDelta func(string)) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: s.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	stream := s.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	message := anthropic.Message{}
	var sb strings.Builder

	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			continue
		}

		switch evt := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := evt.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				sb.WriteString(delta.Text)
				if onDelta != nil {
					onDelta(delta.Text)
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		if ctx.Err() != nil {
			return "", &CancelledError{Err: ctx.Err()}
		}
		return "", &ProviderError{Provider: "anthropic", Err: err}
	}
	if ctx.Err() != nil {
		return "", &CancelledError{Err: ctx.Err()}
	}

	return sb.String(), nil
}
