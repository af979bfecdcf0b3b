package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ExpressedAi/Pinkmemory/internal/affect"
	"github.com/ExpressedAi/Pinkmemory/internal/config"
	"github.com/ExpressedAi/Pinkmemory/internal/provider"
)

type fakeEmbedder struct {
	dims  int
	calls atomic.Int64
	fail  bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	if f.fail {
		return nil, &provider.ProviderError{Provider: "embed", Err: errors.New("down")}
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, f.dims)
		// Deterministic direction derived from the text so similar strings
		// collide and distinct strings do not.
		vec[int(text[0])%f.dims] = 1
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }

type fakeScorer struct {
	fail  bool
	calls atomic.Int64
}

func (f *fakeScorer) Score(ctx context.Context, text string) (*affect.Scoring, error) {
	f.calls.Add(1)
	if f.fail {
		return nil, &provider.ProviderError{Provider: "anthropic", Err: errors.New("down")}
	}
	s := &affect.Scoring{}
	s.EmotionalAnalysis.Joy = 0.5
	s.BrainDominance.LeftBrain = 0.5
	return s, nil
}

type fakeStreamer struct {
	reply string
	block bool
	calls atomic.Int64

	mu      sync.Mutex
	systems []string
}

func (f *fakeStreamer) Complete(ctx context.Context, system, prompt string, onDelta func(string)) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.systems = append(f.systems, system)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", &provider.CancelledError{Err: ctx.Err()}
	}
	if onDelta != nil {
		for _, r := range f.reply {
			onDelta(string(r))
		}
	}
	return f.reply, nil
}

func newTestService(t *testing.T) (*Service, *fakeEmbedder, *fakeScorer, *fakeStreamer) {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	embedder := &fakeEmbedder{dims: testDims}
	scorer := &fakeScorer{}
	streamer := &fakeStreamer{reply: "hello there"}
	svc := NewService(NewInMemoryRepository(), embedder, scorer, streamer, config.NewRuntime(cfg))
	return svc, embedder, scorer, streamer
}

func TestRememberStoresChunks(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	text := strings.Repeat("The first paragraph talks about the weather today. ", 2) +
		"\n\n" +
		strings.Repeat("The second paragraph describes a walk through the park. ", 2)

	records, err := svc.Remember(ctx, text, "agent-1", SourceUser)
	if err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	for _, rec := range records {
		if rec.Tier != TierShort {
			t.Errorf("record stored in %s tier, want short", rec.Tier)
		}
		if rec.Score != DefaultScore {
			t.Errorf("score = %v, want %v", rec.Score, DefaultScore)
		}
		if len(rec.Meta) == 0 {
			t.Error("record missing affect metadata")
		}
		if rec.AgentID != "agent-1" || rec.Source != SourceUser {
			t.Errorf("attribution = %q/%q", rec.AgentID, rec.Source)
		}
	}
}

func TestRememberStoresShortTextWhole(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	// Well under the chunker's minimum fragment length.
	records, err := svc.Remember(context.Background(), "ok, noted.", "", SourceAssistant)
	if err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Text != "ok, noted." {
		t.Errorf("text = %q, want the turn stored verbatim", records[0].Text)
	}
}

func TestRememberRejectsEmptyText(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Remember(context.Background(), "   \n  ", "", SourceUser)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestRememberSurvivesScorerFailure(t *testing.T) {
	svc, _, scorer, _ := newTestService(t)
	scorer.fail = true

	records, err := svc.Remember(context.Background(), strings.Repeat("resilient storage despite scoring outage. ", 3), "", SourceUser)
	if err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("no records stored")
	}
	if len(records[0].Meta) != 0 {
		t.Error("failed scoring should leave meta empty")
	}
	// Neutral vector still has the canonical width.
	if len(records[0].MetaVector.Slice()) != affect.MetaDim {
		t.Errorf("meta vector length = %d", len(records[0].MetaVector.Slice()))
	}
}

func TestRecallReturnsRankedHits(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Remember(ctx, strings.Repeat("a memory about sailing across the bay. ", 2), "", SourceUser); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	resp, err := svc.Recall(ctx, "a question about sailing")
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(resp.ShortTerm) == 0 {
		t.Error("no short-term hits")
	}
	if len(resp.LongTerm) != 0 {
		t.Error("unexpected long-term hits")
	}
	svc.WaitBoosts()
}

func TestRecallRejectsEmptyQuery(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Recall(context.Background(), "")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestRecallEmptyStores(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	resp, err := svc.Recall(context.Background(), "anything at all")
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(resp.ShortTerm) != 0 || len(resp.LongTerm) != 0 {
		t.Errorf("empty stores returned hits: %+v", resp)
	}
}

func TestRecallDecaysBeforeRanking(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Remember(ctx, strings.Repeat("something worth forgetting eventually. ", 2), "", SourceUser); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	// Make the stored record ancient so the pre-recall sweep evicts it.
	short := svc.ShortTerm()
	short.now = func() time.Time { return time.Now().Add(100000 * time.Hour) }

	resp, err := svc.Recall(ctx, "something worth forgetting")
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(resp.ShortTerm) != 0 {
		t.Error("evicted record still recalled")
	}
}

func TestChatStreamsAndStoresTurn(t *testing.T) {
	svc, _, _, streamer := newTestService(t)
	ctx := context.Background()

	var streamed strings.Builder
	result, err := svc.Chat(ctx, "tell me something interesting about whales", func(delta string) {
		streamed.WriteString(delta)
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if result.Reply != streamer.reply {
		t.Errorf("reply = %q, want %q", result.Reply, streamer.reply)
	}
	if streamed.String() != streamer.reply {
		t.Errorf("streamed %q, want %q", streamed.String(), streamer.reply)
	}

	count, err := svc.ShortTerm().Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count == 0 {
		t.Error("chat turn was not committed to short-term memory")
	}
}

func TestChatRecalledContextInSystemPrompt(t *testing.T) {
	svc, _, _, streamer := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Remember(ctx, strings.Repeat("the user's favorite color is teal. ", 2), "", SourceUser); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	if _, err := svc.Chat(ctx, "the user asks what their favorite color is", nil); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(streamer.systems) == 0 {
		t.Fatal("streamer never called")
	}
	if !strings.Contains(streamer.systems[0], "teal") {
		t.Error("recalled memory missing from system prompt")
	}
}

func TestChatCancelledBySuccessor(t *testing.T) {
	svc, _, _, streamer := newTestService(t)
	streamer.block = true
	ctx := context.Background()

	before, _ := svc.ShortTerm().Count(ctx)

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Chat(ctx, "first question that will be interrupted", nil)
		errCh <- err
	}()

	// Wait until the first turn is streaming, then start a second.
	deadline := time.After(2 * time.Second)
	for !svc.Busy() {
		select {
		case <-deadline:
			t.Fatal("first turn never started")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	secondCtx, cancelSecond := context.WithCancel(ctx)
	defer cancelSecond()
	go svc.Chat(secondCtx, "second question that preempts", nil)

	select {
	case err := <-errCh:
		var cancelled *provider.CancelledError
		if !errors.As(err, &cancelled) {
			t.Fatalf("first turn err = %v, want CancelledError", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first turn never returned")
	}

	// The aborted turn must not have committed anything.
	after, _ := svc.ShortTerm().Count(ctx)
	if after != before {
		t.Errorf("aborted turn stored %d records", after-before)
	}
}

func TestReflectSeedsBothTiers(t *testing.T) {
	svc, _, _, streamer := newTestService(t)
	svc.SetLongTermScorer(&fakeScorer{})
	streamer.reply = "I keep returning to the sea in every conversation."
	ctx := context.Background()

	if _, err := svc.Remember(ctx, strings.Repeat("we talked about tides and moorings. ", 2), "", SourceUser); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	rec, err := svc.Reflect(ctx)
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if rec == nil {
		t.Fatal("Reflect returned nil with memories present")
	}
	if rec.Source != SourceReflection {
		t.Errorf("source = %q, want %q", rec.Source, SourceReflection)
	}
	if rec.Score != 2.0 {
		t.Errorf("short-term seed = %v, want 2.0", rec.Score)
	}

	longRecs, err := svc.LongTerm().All(ctx)
	if err != nil {
		t.Fatalf("LongTerm.All: %v", err)
	}
	if len(longRecs) != 1 {
		t.Fatalf("long tier holds %d records, want 1", len(longRecs))
	}
	if longRecs[0].Score != 2.5 {
		t.Errorf("long-term seed = %v, want 2.5", longRecs[0].Score)
	}
	if longRecs[0].Text != streamer.reply {
		t.Errorf("long-term text = %q", longRecs[0].Text)
	}
}

func TestReflectWithoutLongTermScorerStaysShortTerm(t *testing.T) {
	svc, _, _, streamer := newTestService(t)
	streamer.reply = "an insight that has nowhere permanent to go"
	ctx := context.Background()

	if _, err := svc.Remember(ctx, strings.Repeat("we talked about tides and moorings. ", 2), "", SourceUser); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	rec, err := svc.Reflect(ctx)
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if rec == nil {
		t.Fatal("Reflect returned nil with memories present")
	}

	count, err := svc.LongTerm().Count(ctx)
	if err != nil {
		t.Fatalf("LongTerm.Count: %v", err)
	}
	if count != 0 {
		t.Errorf("long tier holds %d records without a long-term scorer, want 0", count)
	}
}

func TestReflectSkipsEmptyStore(t *testing.T) {
	svc, _, _, streamer := newTestService(t)

	rec, err := svc.Reflect(context.Background())
	if err != nil {
		t.Fatalf("Reflect: %v", err)
	}
	if rec != nil {
		t.Error("Reflect produced a record from an empty store")
	}
	if streamer.calls.Load() != 0 {
		t.Error("streamer called with nothing to reflect on")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Remember(ctx, strings.Repeat("a memory that should survive export. ", 2), "", SourceUser); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	exported, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(exported) == 0 {
		t.Fatal("nothing exported")
	}
	if len(exported[0].Embedding) != testDims {
		t.Errorf("exported embedding length = %d, want %d", len(exported[0].Embedding), testDims)
	}

	if err := svc.ShortTerm().Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := svc.Import(ctx, exported); err != nil {
		t.Fatalf("Import: %v", err)
	}

	restored, err := svc.Export(ctx)
	if err != nil {
		t.Fatalf("Export after import: %v", err)
	}
	if len(restored) != len(exported) {
		t.Errorf("restored %d records, want %d", len(restored), len(exported))
	}
	if restored[0].ID != exported[0].ID {
		t.Errorf("IDs not preserved: %d vs %d", restored[0].ID, exported[0].ID)
	}
}

func TestImportRejectsUnknownTier(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	err := svc.Import(context.Background(), []ExportRecord{{ID: 1, Tier: Tier("medium"), Text: "x"}})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestStats(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Remember(ctx, strings.Repeat("counting memories for the dashboard. ", 2), "", SourceUser); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ShortTerm.Count == 0 {
		t.Error("short-term count is zero")
	}
	if stats.LongTerm.Count != 0 {
		t.Error("long-term count should be zero")
	}
	if stats.ShortTerm.AvgScore != DefaultScore {
		t.Errorf("avg score = %v, want %v", stats.ShortTerm.AvgScore, DefaultScore)
	}
}
