package memory

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/ExpressedAi/Pinkmemory/internal/affect"
)

// Store is one memory tier bound to its decay parameters. The same type
// serves both tiers; only the rate differs.
type Store struct {
	tier       Tier
	repo       Repository
	decayRate  float64
	minScore   float64
	dimensions int

	// Serializes decay sweeps so two sweeps never interleave their reads
	// and writes.
	sweepMu sync.Mutex

	now func() time.Time
}

func NewStore(tier Tier, repo Repository, decayRate, minScore float64, dimensions int) *Store {
	return &Store{
		tier:       tier,
		repo:       repo,
		decayRate:  decayRate,
		minScore:   minScore,
		dimensions: dimensions,
		now:        time.Now,
	}
}

func (s *Store) Tier() Tier { return s.tier }

// SetClockForTest overrides the store's time source.
func (s *Store) SetClockForTest(now func() time.Time) { s.now = now }

// Add validates and stores a new memory. A zero score defaults to
// DefaultScore; reflections pass a higher seed explicitly.
func (s *Store) Add(ctx context.Context, req AddRequest) (*Record, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, &ValidationError{Field: "text", Reason: "must not be empty"}
	}
	if len(req.Embedding) != s.dimensions {
		return nil, &ValidationError{Field: "embedding", Reason: "dimension mismatch"}
	}
	if len(req.MetaVector) != affect.MetaDim {
		return nil, &ValidationError{Field: "meta_vector", Reason: "dimension mismatch"}
	}

	score := req.Score
	if score == 0 {
		score = DefaultScore
	}
	if score < 0 {
		return nil, &ValidationError{Field: "score", Reason: "must not be negative"}
	}

	now := s.now()
	rec := &Record{
		Tier:         s.tier,
		Text:         req.Text,
		Embedding:    pgvector.NewVector(req.Embedding),
		MetaVector:   pgvector.NewVector(req.MetaVector),
		Meta:         req.Meta,
		AgentID:      req.AgentID,
		Source:       req.Source,
		Score:        score,
		CreatedAt:    now,
		LastAccessed: now,
	}
	if _, err := s.repo.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	rec, err := s.repo.Get(ctx, s.tier, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &NotFoundError{Tier: s.tier, ID: id}
	}
	return rec, nil
}

func (s *Store) All(ctx context.Context) ([]Record, error) {
	return s.repo.ListAll(ctx, s.tier)
}

func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	return s.repo.ListRecent(ctx, s.tier, limit)
}

// Boost adds amount to the record's score and stamps last access. Missing
// records are an error here; rank-triggered boosts log it and move on.
func (s *Store) Boost(ctx context.Context, id int64, amount float64) error {
	if id <= 0 {
		return &ValidationError{Field: "id", Reason: "must be positive"}
	}
	rec, err := s.repo.Get(ctx, s.tier, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return &NotFoundError{Tier: s.tier, ID: id}
	}
	return s.repo.Boost(ctx, s.tier, id, amount, s.now())
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	rec, err := s.repo.Get(ctx, s.tier, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return &NotFoundError{Tier: s.tier, ID: id}
	}
	return s.repo.Delete(ctx, s.tier, id)
}

func (s *Store) Clear(ctx context.Context) error {
	return s.repo.Clear(ctx, s.tier)
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, s.tier)
}

func (s *Store) Stats(ctx context.Context) (*TierStats, error) {
	return s.repo.TierStats(ctx, s.tier)
}

// Decay applies exponential decay to every record and evicts records whose
// score fell below the floor. Each record loses rate^hours of its score,
// where hours counts from its last access; surviving records are stamped
// with the sweep time so consecutive sweeps compose instead of compounding.
// The whole sweep is persisted atomically.
func (s *Store) Decay(ctx context.Context) (*DecayResult, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	records, err := s.repo.ListAll(ctx, s.tier)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var updates []ScoreUpdate
	var deletes []int64

	for _, rec := range records {
		hours := now.Sub(rec.LastAccessed).Hours()
		if hours <= 0 {
			continue
		}
		decayed := rec.Score * math.Pow(s.decayRate, hours)
		if decayed < s.minScore {
			deletes = append(deletes, rec.ID)
		} else {
			updates = append(updates, ScoreUpdate{ID: rec.ID, Score: decayed})
		}
	}

	if err := s.repo.ApplyDecay(ctx, s.tier, updates, deletes, now); err != nil {
		return nil, err
	}
	return &DecayResult{Updated: len(updates), Deleted: len(deletes)}, nil
}
