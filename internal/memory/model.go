package memory

import (
	"encoding/json"
	"time"

	"github.com/pgvector/pgvector-go"
)

// Tier selects one of the two stores. Short-term memories decay fast and
// churn; long-term memories decay slowly and mostly hold reflections.
type Tier string

const (
	TierShort Tier = "short"
	TierLong  Tier = "long"
)

// DefaultScore is the relevance score assigned to a freshly stored memory.
const DefaultScore = 1.0

// BoostAmount is added to a memory's score each time retrieval returns it.
const BoostAmount = 1.0

type Record struct {
	ID           int64           `json:"id"`
	Tier         Tier            `json:"tier"`
	Text         string          `json:"text"`
	Embedding    pgvector.Vector `json:"-"`
	MetaVector   pgvector.Vector `json:"-"`
	Meta         json.RawMessage `json:"meta,omitempty"`
	AgentID      string          `json:"agent_id,omitempty"`
	Source       string          `json:"source,omitempty"`
	Score        float64         `json:"score"`
	CreatedAt    time.Time       `json:"created_at"`
	LastAccessed time.Time       `json:"last_accessed"`
}

type AddRequest struct {
	Text       string          `json:"text"`
	Embedding  []float32       `json:"-"`
	MetaVector []float32       `json:"-"`
	Meta       json.RawMessage `json:"meta,omitempty"`
	AgentID    string          `json:"agent_id,omitempty"`
	Source     string          `json:"source,omitempty"`
	Score      float64         `json:"score,omitempty"`
}

// RecallResult is one ranked retrieval hit.
type RecallResult struct {
	Record     Record  `json:"record"`
	Similarity float64 `json:"similarity"`
	FinalScore float64 `json:"final_score"`
}

// RecallResponse groups hits by tier. A tier that fails to rank degrades to
// an empty slice rather than failing the whole recall.
type RecallResponse struct {
	ShortTerm []RecallResult `json:"short_term"`
	LongTerm  []RecallResult `json:"long_term"`
}

// DecayResult summarizes one decay sweep over a single tier.
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

// ExportRecord is the portable form of a Record: vectors are carried as
// plain float slices so a dump round-trips through JSON.
type ExportRecord struct {
	ID           int64           `json:"id"`
	Tier         Tier            `json:"tier"`
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

func (r Record) Export() ExportRecord {
	return ExportRecord{
		ID:           r.ID,
		Tier:         r.Tier,
		Text:         r.Text,
		Embedding:    r.Embedding.Slice(),
		MetaVector:   r.MetaVector.Slice(),
		Meta:         r.Meta,
		AgentID:      r.AgentID,
		Source:       r.Source,
		Score:        r.Score,
		CreatedAt:    r.CreatedAt,
		LastAccessed: r.LastAccessed,
	}
}

func (e ExportRecord) Record() Record {
	return Record{
		ID:           e.ID,
		Tier:         e.Tier,
		Text:         e.Text,
		Embedding:    pgvector.NewVector(e.Embedding),
		MetaVector:   pgvector.NewVector(e.MetaVector),
		Meta:         e.Meta,
		AgentID:      e.AgentID,
		Source:       e.Source,
		Score:        e.Score,
		CreatedAt:    e.CreatedAt,
		LastAccessed: e.LastAccessed,
	}
}

// ChatResult is the outcome of one completed conversation turn.
type ChatResult struct {
	Reply    string          `json:"reply"`
	Recalled *RecallResponse `json:"recalled,omitempty"`
}
