// Package affect models the structured affective/cognitive scoring an
// observation receives from the generation provider, and flattens it into the
// fixed-length meta-vector stored next to the semantic embedding.
package affect

import "github.com/ExpressedAi/Pinkmemory/internal/vecmath"

// MetaDim is the length of every meta-vector. Records carrying a meta-vector
// of any other length are rejected at insert time.
const MetaDim = 14

// Scoring is the raw scoring payload returned by the provider. Missing
// sections or sub-scores unmarshal to zero, so a partial payload still
// produces a usable vector.
type Scoring struct {
	BrainDominance      BrainDominance      `json:"brainDominance"`
	ProcessingStyle     ProcessingStyle     `json:"processingStyle"`
	EmotionalAnalysis   EmotionalAnalysis   `json:"emotionalAnalysis"`
	ConversationMetrics ConversationMetrics `json:"conversationMetrics"`
	CognitiveStyle      CognitiveStyle      `json:"cognitiveStyle"`
}

type BrainDominance struct {
	LeftBrain  float64 `json:"leftBrain"`
	RightBrain float64 `json:"rightBrain"`
}

type ProcessingStyle struct {
	Reflexive float64 `json:"reflexive"`
	Reasoning float64 `json:"reasoning"`
}

type EmotionalAnalysis struct {
	Joy        float64 `json:"joy"`
	Intensity  float64 `json:"intensity"`
	Engagement float64 `json:"engagement"`
	Sentiment  float64 `json:"sentiment"` // [-1, 1]
}

type ConversationMetrics struct {
	Complexity     float64 `json:"complexity"`
	Depth          float64 `json:"depth"`          // [0, 100]
	Coherence      float64 `json:"coherence"`      // [0, 100]
	Engagement     float64 `json:"engagement"`     // [0, 100]
	TopicStability float64 `json:"topicStability"` // [0, 100]
}

type CognitiveStyle struct {
	Strength float64 `json:"cognitiveStrength"` // [0, 100]
}

// Vector flattens the scoring into the canonical MetaDim-element order. The
// field order is part of the storage format: vectors written with one order
// are never comparable to vectors written with another.
func (s Scoring) Vector() []float32 {
	percent := func(v float64) float64 { return vecmath.Normalize(v, 0, 100) }

	vals := [MetaDim]float64{
		s.BrainDominance.LeftBrain,
		s.BrainDominance.RightBrain,
		s.ProcessingStyle.Reflexive,
		s.ProcessingStyle.Reasoning,
		s.EmotionalAnalysis.Joy,
		s.EmotionalAnalysis.Intensity,
		s.EmotionalAnalysis.Engagement,
		s.ConversationMetrics.Complexity,
		vecmath.Normalize(s.EmotionalAnalysis.Sentiment, -1, 1),
		percent(s.ConversationMetrics.Depth),
		percent(s.ConversationMetrics.Coherence),
		percent(s.ConversationMetrics.Engagement),
		percent(s.ConversationMetrics.TopicStability),
		percent(s.CognitiveStyle.Strength),
	}

	out := make([]float32, MetaDim)
	for i, v := range vals {
		out[i] = float32(v)
	}
	return out
}
