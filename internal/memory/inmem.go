package memory

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository keeps both tiers in process memory. It backs the test
// suite; the ID counter mirrors the database sequence and is never rewound.
type InMemoryRepository struct {
	mu      sync.Mutex
	nextID  int64
	records map[Tier]map[int64]*Record
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		nextID: 1,
		records: map[Tier]map[int64]*Record{
			TierShort: {},
			TierLong:  {},
		},
	}
}

func (r *InMemoryRepository) Insert(ctx context.Context, rec *Record) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *rec
	stored.ID = r.nextID
	r.nextID++
	r.records[stored.Tier][stored.ID] = &stored
	rec.ID = stored.ID
	return stored.ID, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, tier Tier, id int64) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[tier][id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *InMemoryRepository) ListAll(ctx context.Context, tier Tier) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, 0, len(r.records[tier]))
	for _, rec := range r.records[tier] {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) ListRecent(ctx context.Context, tier Tier, limit int) ([]Record, error) {
	all, _ := r.ListAll(ctx, tier)
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *InMemoryRepository) Boost(ctx context.Context, tier Tier, id int64, amount float64, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[tier][id]
	if !ok {
		return nil
	}
	rec.Score += amount
	rec.LastAccessed = now
	return nil
}

func (r *InMemoryRepository) ApplyDecay(ctx context.Context, tier Tier, updates []ScoreUpdate, deleteIDs []int64, sweepTime time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range updates {
		if rec, ok := r.records[tier][u.ID]; ok {
			rec.Score = u.Score
			rec.LastAccessed = sweepTime
		}
	}
	for _, id := range deleteIDs {
		delete(r.records[tier], id)
	}
	return nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, tier Tier, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records[tier], id)
	return nil
}

func (r *InMemoryRepository) Clear(ctx context.Context, tier Tier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[tier] = map[int64]*Record{}
	return nil
}

func (r *InMemoryRepository) Count(ctx context.Context, tier Tier) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.records[tier])), nil
}

func (r *InMemoryRepository) TierStats(ctx context.Context, tier Tier) (*TierStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &TierStats{}
	for _, rec := range r.records[tier] {
		stats.Count++
		stats.AvgScore += rec.Score
		if rec.Score > stats.MaxScore {
			stats.MaxScore = rec.Score
		}
	}
	if stats.Count > 0 {
		stats.AvgScore /= float64(stats.Count)
	}
	return stats, nil
}

func (r *InMemoryRepository) ExportAll(ctx context.Context) ([]Record, error) {
	short, _ := r.ListAll(ctx, TierShort)
	long, _ := r.ListAll(ctx, TierLong)
	all := append(short, long...)
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (r *InMemoryRepository) ImportAll(ctx context.Context, recs []Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = map[Tier]map[int64]*Record{
		TierShort: {},
		TierLong:  {},
	}
	for _, rec := range recs {
		cp := rec
		r.records[rec.Tier][rec.ID] = &cp
		if rec.ID >= r.nextID {
			r.nextID = rec.ID + 1
		}
	}
	return nil
}
