package client

import (
	"encoding/json"
	"time"
)

type Memory struct {
	ID           int64           `json:"id"`
	Tier         string          `json:"tier"`
	Text         string          `json:"text"`
	Meta         json.RawMessage `json:"meta,omitempty"`
	AgentID      string          `json:"agent_id,omitempty"`
	Source       string          `json:"source,omitempty"`
	Score        float64         `json:"score"`
	CreatedAt    time.Time       `json:"created_at"`
	LastAccessed time.Time       `json:"last_accessed"`
}

type RememberRequest struct {
	Text    string `json:"text"`
	AgentID string `json:"agent_id,omitempty"`
	Source  string `json:"source,omitempty"`
}

type RememberResult struct {
	Records []Memory `json:"records"`
	Count   int      `json:"count"`
}

type RecallRequest struct {
	Query string `json:"query"`
}

type RecallResult struct {
	Record     Memory  `json:"record"`
	Similarity float64 `json:"similarity"`
	FinalScore float64 `json:"final_score"`
}

type RecallResponse struct {
	ShortTerm []RecallResult `json:"short_term"`
	LongTerm  []RecallResult `json:"long_term"`
}

type ChatRequest struct {
	Text string `json:"text"`
}

type ChatResult struct {
	Reply    string          `json:"reply"`
	Recalled *RecallResponse `json:"recalled,omitempty"`
}

type DecayResult struct {
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

type TierStats struct {
	Count    int64   `json:"count"`
	AvgScore float64 `json:"avg_score"`
	MaxScore float64 `json:"max_score"`
}

type Stats struct {
	ShortTerm TierStats `json:"short_term"`
	LongTerm  TierStats `json:"long_term"`
}

// ExportedMemory carries the vectors as plain float slices so a dump
// round-trips through JSON.
type ExportedMemory struct {
	ID           int64           `json:"id"`
	Tier         string          `json:"tier"`
	Text         string          `json:"text"`
	Embedding    []float32       `json:"embedding"`
	MetaVector   []float32       `json:"meta_vector"`
	Meta         json.RawMessage `json:"meta,omitempty"`
	AgentID      string          `json:"agent_id,omitempty"`
	Source       string          `json:"source,omitempty"`
	Score        float64         `json:"score"`
	CreatedAt    time.Time       `json:"created_at"`
	LastAccessed time.Time       `json:"last_accessed"`
}

type ExportResult struct {
	ExportedAt time.Time        `json:"exported_at"`
	Records    []ExportedMemory `json:"records"`
}

type ImportRequest struct {
	Records []ExportedMemory `json:"records"`
}

type Settings struct {
	Autonomy           bool    `json:"autonomy"`
	ReflectionInterval string  `json:"reflection_interval"`
	TopK               int     `json:"top_k"`
	ShortDecayRate     float64 `json:"short_decay_rate"`
	LongDecayRate      float64 `json:"long_decay_rate"`
	MinScore           float64 `json:"min_score"`
}

type SettingsUpdate struct {
	Autonomy           *bool    `json:"autonomy,omitempty"`
	ReflectionInterval *string  `json:"reflection_interval,omitempty"`
	TopK               *int     `json:"top_k,omitempty"`
	ShortDecayRate     *float64 `json:"short_decay_rate,omitempty"`
	LongDecayRate      *float64 `json:"long_decay_rate,omitempty"`
	MinScore           *float64 `json:"min_score,omitempty"`
}
