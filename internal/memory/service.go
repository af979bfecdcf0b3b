package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ExpressedAi/Pinkmemory/internal/affect"
	"github.com/ExpressedAi/Pinkmemory/internal/chunker"
	"github.com/ExpressedAi/Pinkmemory/internal/config"
	"github.com/ExpressedAi/Pinkmemory/internal/provider"
)

// Well-known record sources.
const (
	SourceUser       = "user"
	SourceAssistant  = "assistant"
	SourceReflection = "Autonomous Reflection"
)

const chatSystemPrompt = `You are a thoughtful conversational agent with an associative memory. Relevant memories from past conversations are provided below; weave them in naturally when they help, and ignore them when they do not.`

const reflectionSystemPrompt = `You are reflecting on fragments of recent experience. Synthesize the fragments below into one short first-person insight that connects them. Return only the insight text.`

type turnHandle struct {
	cancel context.CancelFunc
}

// Service orchestrates the two memory tiers behind the conversation loop:
// remembering text, recalling by blended similarity, chatting with recalled
// context, and synthesizing reflections.
type Service struct {
	repo           Repository
	defaultAgentID string
	embedder       provider.Embedder
	scorer         provider.Scorer
	longScorer     provider.Scorer
	streamer       provider.Streamer
	runtime        *config.Runtime

	mu          sync.RWMutex
	short, long *Store
	shortRank   *Ranker
	longRank    *Ranker

	turnMu      sync.Mutex
	currentTurn *turnHandle

	activeTurns atomic.Int32
}

func NewService(repo Repository, embedder provider.Embedder, scorer provider.Scorer, streamer provider.Streamer, runtime *config.Runtime) *Service {
	s := &Service{
		repo:           repo,
		defaultAgentID: uuid.NewString(),
		embedder:       embedder,
		scorer:         scorer,
		streamer:       streamer,
		runtime:        runtime,
	}
	s.rebuild(runtime.Current())
	return s
}

func (s *Service) rebuild(cfg *config.Config) {
	dims := s.embedder.Dimensions()
	short := NewStore(TierShort, s.repo, cfg.Memory.ShortDecayRate, cfg.Memory.MinScore, dims)
	long := NewStore(TierLong, s.repo, cfg.Memory.LongDecayRate, cfg.Memory.MinScore, dims)

	s.mu.Lock()
	s.short = short
	s.long = long
	s.shortRank = NewRanker(short, cfg.Retrieval.TopK)
	s.longRank = NewRanker(long, cfg.Retrieval.TopK)
	s.mu.Unlock()
}

// SetLongTermScorer enables duplication of reflections into long-term
// storage, scored under the secondary credential and model pair. Without
// one, reflections stay short-term only.
func (s *Service) SetLongTermScorer(sc provider.Scorer) {
	s.longScorer = sc
}

// Reconfigure swaps in updated settings; new decay rates and top-K take
// effect on the next operation.
func (s *Service) Reconfigure(cfg *config.Config) error {
	if err := s.runtime.Update(cfg); err != nil {
		return err
	}
	s.rebuild(cfg)
	return nil
}

func (s *Service) stores() (*Store, *Store) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.short, s.long
}

func (s *Service) rankers() (*Ranker, *Ranker) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shortRank, s.longRank
}

// ShortTerm exposes the fast-decay store.
func (s *Service) ShortTerm() *Store {
	short, _ := s.stores()
	return short
}

// LongTerm exposes the slow-decay store.
func (s *Service) LongTerm() *Store {
	_, long := s.stores()
	return long
}

// Busy reports whether a conversation turn is currently streaming.
func (s *Service) Busy() bool {
	return s.activeTurns.Load() > 0
}

// Remember chunks text, embeds and scores every chunk, and stores the chunks
// as short-term memories.
func (s *Service) Remember(ctx context.Context, text, agentID, source string) ([]Record, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Field: "text", Reason: "must not be empty"}
	}

	if agentID == "" {
		agentID = s.defaultAgentID
	}

	chunks := chunker.Split(text)
	if len(chunks) == 0 {
		// Text shorter than the chunker's floor is still worth keeping;
		// a brief chat turn would otherwise never be persisted.
		chunks = []string{strings.TrimSpace(text)}
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	short, _ := s.stores()
	records := make([]Record, 0, len(chunks))
	for i, chunk := range chunks {
		metaVec, metaJSON := s.scoreChunk(ctx, s.scorer, chunk)
		rec, err := short.Add(ctx, AddRequest{
			Text:       chunk,
			Embedding:  embeddings[i],
			MetaVector: metaVec,
			Meta:       metaJSON,
			AgentID:    agentID,
			Source:     source,
		})
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	slog.Info("remembered text", "chunks", len(records), "source", source)
	return records, nil
}

// scoreChunk runs the affective scorer. Scoring failure degrades to a neutral
// vector instead of failing the write.
func (s *Service) scoreChunk(ctx context.Context, scorer provider.Scorer, chunk string) ([]float32, json.RawMessage) {
	scoring, err := scorer.Score(ctx, chunk)
	if err != nil {
		slog.Warn("affect scoring failed, storing neutral vector", "error", err)
		neutral := affect.Scoring{}
		return neutral.Vector(), nil
	}
	metaJSON, err := json.Marshal(scoring)
	if err != nil {
		metaJSON = nil
	}
	return scoring.Vector(), metaJSON
}

// Recall decays both tiers, then ranks each against the query. The tiers are
// independent failure domains: a tier that cannot be ranked comes back empty
// while the other still answers.
func (s *Service) Recall(ctx context.Context, query string) (*RecallResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Field: "query", Reason: "must not be empty"}
	}

	queryEmbed, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var queryMeta []float32
	if scoring, err := s.scorer.Score(ctx, query); err != nil {
		slog.Warn("query affect scoring failed, ranking on embedding only", "error", err)
	} else {
		queryMeta = scoring.Vector()
	}

	short, long := s.stores()
	for _, store := range []*Store{short, long} {
		if _, err := store.Decay(ctx); err != nil {
			slog.Warn("pre-recall decay failed", "tier", store.Tier(), "error", err)
		}
	}

	shortRank, longRank := s.rankers()
	resp := &RecallResponse{}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		hits, err := shortRank.Rank(ctx, queryEmbed, queryMeta)
		if err != nil {
			slog.Warn("short-term ranking failed", "error", err)
			return
		}
		resp.ShortTerm = hits
	}()
	go func() {
		defer wg.Done()
		hits, err := longRank.Rank(ctx, queryEmbed, queryMeta)
		if err != nil {
			slog.Warn("long-term ranking failed", "error", err)
			return
		}
		resp.LongTerm = hits
	}()
	wg.Wait()

	return resp, nil
}

// Chat runs one conversation turn: recall context, stream a completion, and
// commit the exchange to short-term memory. Starting a new turn cancels any
// turn still streaming; a cancelled turn discards its partial output and
// stores nothing.
func (s *Service) Chat(ctx context.Context, userText string, onDelta func(string)) (*ChatResult, error) {
	if strings.TrimSpace(userText) == "" {
		return nil, &ValidationError{Field: "text", Reason: "must not be empty"}
	}

	turnCtx, cancel := context.WithCancel(ctx)
	handle := &turnHandle{cancel: cancel}
	s.turnMu.Lock()
	if s.currentTurn != nil {
		s.currentTurn.cancel()
	}
	s.currentTurn = handle
	s.turnMu.Unlock()
	defer func() {
		cancel()
		s.turnMu.Lock()
		if s.currentTurn == handle {
			s.currentTurn = nil
		}
		s.turnMu.Unlock()
	}()

	s.activeTurns.Add(1)
	defer s.activeTurns.Add(-1)

	recalled, err := s.Recall(turnCtx, userText)
	if err != nil {
		var cancelled *provider.CancelledError
		if errors.As(err, &cancelled) {
			return nil, err
		}
		slog.Warn("recall failed, answering without memories", "error", err)
		recalled = &RecallResponse{}
	}

	system := buildChatSystem(recalled)
	reply, err := s.streamer.Complete(turnCtx, system, userText, onDelta)
	if err != nil {
		return nil, err
	}

	// Memory writes survive the turn's own cancellation window.
	storeCtx := context.WithoutCancel(ctx)
	if _, err := s.Remember(storeCtx, userText, "", SourceUser); err != nil {
		slog.Warn("failed to store user turn", "error", err)
	}
	if _, err := s.Remember(storeCtx, reply, "", SourceAssistant); err != nil {
		slog.Warn("failed to store assistant turn", "error", err)
	}

	return &ChatResult{Reply: reply, Recalled: recalled}, nil
}

func buildChatSystem(recalled *RecallResponse) string {
	var sb strings.Builder
	sb.WriteString(chatSystemPrompt)

	writeTier := func(label string, hits []RecallResult) {
		if len(hits) == 0 {
			return
		}
		sb.WriteString("\n\n")
		sb.WriteString(label)
		sb.WriteString(":\n")
		for _, hit := range hits {
			sb.WriteString("- ")
			sb.WriteString(hit.Record.Text)
			sb.WriteString("\n")
		}
	}
	writeTier("Recent memories", recalled.ShortTerm)
	writeTier("Long-held memories", recalled.LongTerm)
	return sb.String()
}

// Reflect samples recent short-term memories and synthesizes them into one
// insight, stored with an elevated seed score. When a long-term scorer is
// configured the insight is also duplicated into long-term storage; failure
// of the duplicate is not fatal. With nothing to sample, Reflect is a no-op
// and returns nil.
func (s *Service) Reflect(ctx context.Context) (*Record, error) {
	cfg := s.runtime.Current()
	short, long := s.stores()

	records, err := short.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	sample := sampleRecords(records, cfg.Reflection.SampleSize)
	var sb strings.Builder
	for i, rec := range sample {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		sb.WriteString(rec.Text)
	}

	insight, err := s.streamer.Complete(ctx, reflectionSystemPrompt, sb.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("synthesize reflection: %w", err)
	}
	if strings.TrimSpace(insight) == "" {
		return nil, nil
	}

	embedding, err := s.embedder.Embed(ctx, insight)
	if err != nil {
		return nil, fmt.Errorf("embed reflection: %w", err)
	}
	metaVec, metaJSON := s.scoreChunk(ctx, s.scorer, insight)

	rec, err := short.Add(ctx, AddRequest{
		Text:       insight,
		Embedding:  embedding,
		MetaVector: metaVec,
		Meta:       metaJSON,
		Source:     SourceReflection,
		Score:      cfg.Reflection.ShortSeedScore,
	})
	if err != nil {
		return nil, err
	}

	if s.longScorer == nil {
		slog.Debug("no long-term credentials configured, reflection stays short-term")
	} else {
		longVec, longJSON := s.scoreChunk(ctx, s.longScorer, insight)
		if _, err := long.Add(ctx, AddRequest{
			Text:       insight,
			Embedding:  embedding,
			MetaVector: longVec,
			Meta:       longJSON,
			Source:     SourceReflection,
			Score:      cfg.Reflection.LongSeedScore,
		}); err != nil {
			slog.Warn("long-term reflection copy failed", "error", err)
		}
	}

	slog.Info("reflection stored", "id", rec.ID, "sampled", len(sample))
	return rec, nil
}

func sampleRecords(records []Record, n int) []Record {
	if n <= 0 || n >= len(records) {
		return records
	}
	perm := rand.Perm(len(records))
	out := make([]Record, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, records[idx])
	}
	return out
}

// DecayNow sweeps both tiers immediately.
func (s *Service) DecayNow(ctx context.Context) (map[Tier]*DecayResult, error) {
	short, long := s.stores()
	results := make(map[Tier]*DecayResult, 2)
	for _, store := range []*Store{short, long} {
		res, err := store.Decay(ctx)
		if err != nil {
			return nil, fmt.Errorf("decay %s tier: %w", store.Tier(), err)
		}
		results[store.Tier()] = res
	}
	return results, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	short, long := s.stores()
	shortStats, err := short.Stats(ctx)
	if err != nil {
		return nil, err
	}
	longStats, err := long.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{ShortTerm: *shortStats, LongTerm: *longStats}, nil
}

// Export returns every record across both tiers in portable form.
func (s *Service) Export(ctx context.Context) ([]ExportRecord, error) {
	records, err := s.repo.ExportAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ExportRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Export())
	}
	return out, nil
}

// Import replaces both tiers with the given records.
func (s *Service) Import(ctx context.Context, recs []ExportRecord) error {
	restored := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if rec.Tier != TierShort && rec.Tier != TierLong {
			return &ValidationError{Field: "tier", Reason: fmt.Sprintf("unknown tier %q", rec.Tier)}
		}
		if strings.TrimSpace(rec.Text) == "" {
			return &ValidationError{Field: "text", Reason: "must not be empty"}
		}
		restored = append(restored, rec.Record())
	}
	return s.repo.ImportAll(ctx, restored)
}

// WaitBoosts blocks until pending retrieval boosts have settled.
func (s *Service) WaitBoosts() {
	shortRank, longRank := s.rankers()
	shortRank.Wait()
	longRank.Wait()
}
