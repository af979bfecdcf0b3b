package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/ExpressedAi/Pinkmemory/internal/vecmath"
)

// Retrieval blends semantic similarity with the affect vector, then folds in
// the record's standing score. A returned record is boosted so retrieval
// itself reinforces what the agent keeps reaching for.
const (
	embedWeight = 0.6
	metaWeight  = 0.4

	similarityWeight = 0.85
	standingWeight   = 0.15

	// Scores are normalized against this ceiling before blending.
	scoreCeiling = 5.0
)

// Ranker scores a tier's records against a query and returns the top hits.
type Ranker struct {
	store *Store
	topK  int

	boosts sync.WaitGroup
}

func NewRanker(store *Store, topK int) *Ranker {
	return &Ranker{store: store, topK: topK}
}

// Rank returns the tier's best matches for the query vectors. Returned
// records are boosted asynchronously; callers that need the boosts settled
// use Wait.
func (r *Ranker) Rank(ctx context.Context, queryEmbed, queryMeta []float32) ([]RecallResult, error) {
	records, err := r.store.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	results := make([]RecallResult, 0, len(records))
	for _, rec := range records {
		sim := embedWeight*vecmath.Cosine(queryEmbed, rec.Embedding.Slice()) +
			metaWeight*vecmath.Cosine(queryMeta, rec.MetaVector.Slice())
		standing := vecmath.Normalize(rec.Score, 0, scoreCeiling)
		final := similarityWeight*sim + standingWeight*standing

		results = append(results, RecallResult{
			Record:     rec,
			Similarity: sim,
			FinalScore: final,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalScore == results[j].FinalScore {
			return results[i].Record.ID < results[j].Record.ID
		}
		return results[i].FinalScore > results[j].FinalScore
	})

	if len(results) > r.topK {
		results = results[:r.topK]
	}

	boostCtx := context.WithoutCancel(ctx)
	for _, hit := range results {
		id := hit.Record.ID
		r.boosts.Add(1)
		go func() {
			defer r.boosts.Done()
			if err := r.store.Boost(boostCtx, id, BoostAmount); err != nil {
				slog.Warn("retrieval boost failed", "tier", r.store.Tier(), "id", id, "error", err)
			}
		}()
	}

	return results, nil
}

// Wait blocks until all in-flight retrieval boosts have been applied.
func (r *Ranker) Wait() {
	r.boosts.Wait()
}
