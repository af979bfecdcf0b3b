package memory

import (
	"context"
	"time"
)

// ScoreUpdate carries one decayed score to persist during a sweep.
type ScoreUpdate struct {
	ID    int64
	Score float64
}

// Repository persists memory records. Both tiers share one ID sequence, so an
// ID is never reused even across tiers.
type Repository interface {
	// Insert stores a record and returns its assigned ID.
	Insert(ctx context.Context, rec *Record) (int64, error)

	// Get returns the record, or nil when the tier holds no such ID.
	Get(ctx context.Context, tier Tier, id int64) (*Record, error)

	// ListAll returns every record in the tier, ordered by ID.
	ListAll(ctx context.Context, tier Tier) ([]Record, error)

	// ListRecent returns up to limit records in the tier, newest first.
	ListRecent(ctx context.Context, tier Tier, limit int) ([]Record, error)

	// Boost atomically adds amount to the record's score and stamps
	// last_accessed.
	Boost(ctx context.Context, tier Tier, id int64, amount float64, now time.Time) error

	// ApplyDecay persists one sweep atomically: all score updates are stamped
	// with sweepTime and all listed records are deleted, or nothing changes.
	ApplyDecay(ctx context.Context, tier Tier, updates []ScoreUpdate, deleteIDs []int64, sweepTime time.Time) error

	// Delete removes one record from the tier.
	Delete(ctx context.Context, tier Tier, id int64) error

	// Clear removes every record in the tier.
	Clear(ctx context.Context, tier Tier) error

	Count(ctx context.Context, tier Tier) (int64, error)
	TierStats(ctx context.Context, tier Tier) (*TierStats, error)

	// ExportAll returns every record across both tiers, ordered by ID.
	ExportAll(ctx context.Context) ([]Record, error)

	// ImportAll replaces the full contents of both tiers with the given
	// records, preserving their IDs.
	ImportAll(ctx context.Context, recs []Record) error
}
