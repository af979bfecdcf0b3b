package memory

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ExpressedAi/Pinkmemory/internal/affect"
)

const testDims = 4

func testEmbedding(vals ...float32) []float32 {
	vec := make([]float32, testDims)
	copy(vec, vals)
	return vec
}

func testMetaVector() []float32 {
	return make([]float32, affect.MetaDim)
}

func newTestStore(t *testing.T, tier Tier, decayRate, minScore float64) (*Store, *InMemoryRepository) {
	t.Helper()
	repo := NewInMemoryRepository()
	return NewStore(tier, repo, decayRate, minScore, testDims), repo
}

func TestAddDefaultsScore(t *testing.T) {
	store, _ := newTestStore(t, TierShort, 0.995, 0.05)

	rec, err := store.Add(context.Background(), AddRequest{
		Text:       "the sky was orange at dusk",
		Embedding:  testEmbedding(1),
		MetaVector: testMetaVector(),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.Score != DefaultScore {
		t.Errorf("score = %v, want %v", rec.Score, DefaultScore)
	}
	if rec.ID == 0 {
		t.Error("record was not assigned an ID")
	}
	if rec.CreatedAt.IsZero() || rec.LastAccessed.IsZero() {
		t.Error("timestamps were not set")
	}
}

func TestAddValidation(t *testing.T) {
	store, _ := newTestStore(t, TierShort, 0.995, 0.05)

	tests := []struct {
		name string
		req  AddRequest
	}{
		{"empty text", AddRequest{Text: "  ", Embedding: testEmbedding(1), MetaVector: testMetaVector()}},
		{"wrong embedding dims", AddRequest{Text: "x", Embedding: []float32{1, 2}, MetaVector: testMetaVector()}},
		{"wrong meta dims", AddRequest{Text: "x", Embedding: testEmbedding(1), MetaVector: []float32{1}}},
		{"negative score", AddRequest{Text: "x", Embedding: testEmbedding(1), MetaVector: testMetaVector(), Score: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Add(context.Background(), tt.req)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestIDsAreMonotonicAndNeverReused(t *testing.T) {
	store, _ := newTestStore(t, TierShort, 0.995, 0.05)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		rec, err := store.Add(ctx, AddRequest{Text: "m", Embedding: testEmbedding(1), MetaVector: testMetaVector()})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		ids = append(ids, rec.ID)
	}
	if !(ids[0] < ids[1] && ids[1] < ids[2]) {
		t.Fatalf("ids not monotonic: %v", ids)
	}

	if err := store.Delete(ctx, ids[2]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	rec, err := store.Add(ctx, AddRequest{Text: "m", Embedding: testEmbedding(1), MetaVector: testMetaVector()})
	if err != nil {
		t.Fatalf("Add after delete: %v", err)
	}
	if rec.ID <= ids[2] {
		t.Errorf("id %d reused after deleting %d", rec.ID, ids[2])
	}
}

func TestGetNotFound(t *testing.T) {
	store, _ := newTestStore(t, TierShort, 0.995, 0.05)

	_, err := store.Get(context.Background(), 42)
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if nfErr.ID != 42 || nfErr.Tier != TierShort {
		t.Errorf("NotFoundError = %+v", nfErr)
	}
}

func TestBoostAddsAndStampsAccess(t *testing.T) {
	store, _ := newTestStore(t, TierShort, 0.995, 0.05)
	ctx := context.Background()

	rec, err := store.Add(ctx, AddRequest{Text: "m", Embedding: testEmbedding(1), MetaVector: testMetaVector()})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	before := rec.LastAccessed

	store.now = func() time.Time { return before.Add(time.Minute) }
	if err := store.Boost(ctx, rec.ID, BoostAmount); err != nil {
		t.Fatalf("Boost: %v", err)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Score != DefaultScore+BoostAmount {
		t.Errorf("score = %v, want %v", got.Score, DefaultScore+BoostAmount)
	}
	if !got.LastAccessed.After(before) {
		t.Error("boost did not advance last_accessed")
	}
}

func TestBoostMissingRecord(t *testing.T) {
	store, _ := newTestStore(t, TierShort, 0.995, 0.05)

	err := store.Boost(context.Background(), 42, BoostAmount)
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestBoostRejectsNonPositiveID(t *testing.T) {
	store, _ := newTestStore(t, TierShort, 0.995, 0.05)

	for _, id := range []int64{0, -1} {
		err := store.Boost(context.Background(), id, BoostAmount)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Boost(%d) err = %v, want ValidationError", id, err)
		}
	}
}

func TestDecayAppliesExponentialRate(t *testing.T) {
	store, _ := newTestStore(t, TierShort, 0.9, 0.05)
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	rec, err := store.Add(ctx, AddRequest{Text: "m", Embedding: testEmbedding(1), MetaVector: testMetaVector()})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	store.now = func() time.Time { return base.Add(10 * time.Hour) }
	result, err := store.Decay(ctx)
	if err != nil {
		t.Fatalf("Decay: %v", err)
	}
	if result.Updated != 1 || result.Deleted != 0 {
		t.Fatalf("result = %+v, want 1 update", result)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := DefaultScore * math.Pow(0.9, 10)
	if math.Abs(got.Score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", got.Score, want)
	}
}

func TestDecaySweepsCompose(t *testing.T) {
	store, _ := newTestStore(t, TierShort, 0.9, 0.001)
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	rec, err := store.Add(ctx, AddRequest{Text: "m", Embedding: testEmbedding(1), MetaVector: testMetaVector()})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Two sweeps five hours apart must equal one ten-hour sweep.
	store.now = func() time.Time { return base.Add(5 * time.Hour) }
	if _, err := store.Decay(ctx); err != nil {
		t.Fatalf("first Decay: %v", err)
	}
	store.now = func() time.Time { return base.Add(10 * time.Hour) }
	if _, err := store.Decay(ctx); err != nil {
		t.Fatalf("second Decay: %v", err)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := DefaultScore * math.Pow(0.9, 10)
	if math.Abs(got.Score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", got.Score, want)
	}
}

func TestDecayEvictsBelowFloor(t *testing.T) {
	store, _ := newTestStore(t, TierShort, 0.5, 0.05)
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	rec, err := store.Add(ctx, AddRequest{Text: "m", Embedding: testEmbedding(1), MetaVector: testMetaVector()})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	// 0.5^10 = ~0.001, far below the 0.05 floor.
	store.now = func() time.Time { return base.Add(10 * time.Hour) }
	result, err := store.Decay(ctx)
	if err != nil {
		t.Fatalf("Decay: %v", err)
	}
	if result.Deleted != 1 || result.Updated != 0 {
		t.Fatalf("result = %+v, want 1 delete", result)
	}

	if _, err := store.Get(ctx, rec.ID); err == nil {
		t.Error("evicted record is still retrievable")
	}
}

func TestDecaySkipsFreshRecords(t *testing.T) {
	store, _ := newTestStore(t, TierShort, 0.5, 0.05)
	ctx := context.Background()

	// Pin the clock so the record is exactly as old as the sweep.
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	if _, err := store.Add(ctx, AddRequest{Text: "m", Embedding: testEmbedding(1), MetaVector: testMetaVector()}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	result, err := store.Decay(ctx)
	if err != nil {
		t.Fatalf("Decay: %v", err)
	}
	if result.Updated != 0 || result.Deleted != 0 {
		t.Errorf("fresh record was touched: %+v", result)
	}
}

func TestTiersAreIsolated(t *testing.T) {
	repo := NewInMemoryRepository()
	short := NewStore(TierShort, repo, 0.995, 0.05, testDims)
	long := NewStore(TierLong, repo, 0.999, 0.05, testDims)
	ctx := context.Background()

	sRec, err := short.Add(ctx, AddRequest{Text: "short", Embedding: testEmbedding(1), MetaVector: testMetaVector()})
	if err != nil {
		t.Fatalf("short Add: %v", err)
	}
	lRec, err := long.Add(ctx, AddRequest{Text: "long", Embedding: testEmbedding(1), MetaVector: testMetaVector()})
	if err != nil {
		t.Fatalf("long Add: %v", err)
	}

	if sRec.ID == lRec.ID {
		t.Error("tiers issued the same ID")
	}
	if _, err := short.Get(ctx, lRec.ID); err == nil {
		t.Error("short tier returned a long-term record")
	}
	if _, err := long.Get(ctx, sRec.ID); err == nil {
		t.Error("long tier returned a short-term record")
	}
}
