package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ExpressedAi/Pinkmemory/internal/config"
	"github.com/ExpressedAi/Pinkmemory/internal/memory"
	"github.com/ExpressedAi/Pinkmemory/internal/provider"
	"github.com/ExpressedAi/Pinkmemory/internal/scheduler"
)

// statusClientClosedRequest mirrors nginx's code for a client that went away
// mid-request.
const statusClientClosedRequest = 499

type Handlers struct {
	svc        *memory.Service
	runtime    *config.Runtime
	reflection *scheduler.Reflection
}

func NewHandlers(svc *memory.Service, runtime *config.Runtime, reflection *scheduler.Reflection) *Handlers {
	return &Handlers{svc: svc, runtime: runtime, reflection: reflection}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type rememberRequest struct {
	Text    string `json:"text"`
	AgentID string `json:"agent_id,omitempty"`
	Source  string `json:"source,omitempty"`
}

// POST /api/v1/memories
func (h *Handlers) Remember(w http.ResponseWriter, r *http.Request) {
	var req rememberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	source := req.Source
	if source == "" {
		source = memory.SourceUser
	}

	records, err := h.svc.Remember(r.Context(), req.Text, req.AgentID, source)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"records": records, "count": len(records)})
}

// GET /api/v1/memories?tier=short&limit=50
func (h *Handlers) ListMemories(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	store, ok := h.storeFor(r.URL.Query().Get("tier"))
	if !ok {
		writeError(w, http.StatusBadRequest, "tier must be 'short' or 'long'")
		return
	}

	records, err := store.Recent(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if records == nil {
		records = []memory.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

// GET /api/v1/memories/{tier}/{id}
func (h *Handlers) GetMemory(w http.ResponseWriter, r *http.Request) {
	store, id, ok := h.storeAndID(w, r)
	if !ok {
		return
	}

	rec, err := store.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DELETE /api/v1/memories/{tier}/{id}
func (h *Handlers) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	store, id, ok := h.storeAndID(w, r)
	if !ok {
		return
	}

	if err := store.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "id": id})
}

// POST /api/v1/memories/{tier}/{id}/boost
func (h *Handlers) BoostMemory(w http.ResponseWriter, r *http.Request) {
	store, id, ok := h.storeAndID(w, r)
	if !ok {
		return
	}

	if err := store.Boost(r.Context(), id, memory.BoostAmount); err != nil {
		writeServiceError(w, err)
		return
	}

	rec, err := store.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DELETE /api/v1/memories?tier=short
func (h *Handlers) ClearMemories(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(r.URL.Query().Get("tier"))
	if !ok {
		writeError(w, http.StatusBadRequest, "tier must be 'short' or 'long'")
		return
	}

	if err := store.Clear(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared", "tier": store.Tier()})
}

type recallRequest struct {
	Query string `json:"query"`
}

// POST /api/v1/memories/recall
func (h *Handlers) Recall(w http.ResponseWriter, r *http.Request) {
	var req recallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.svc.Recall(r.Context(), req.Query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if resp.ShortTerm == nil {
		resp.ShortTerm = []memory.RecallResult{}
	}
	if resp.LongTerm == nil {
		resp.LongTerm = []memory.RecallResult{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/v1/memories/decay
func (h *Handlers) Decay(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.DecayNow(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// POST /api/v1/reflect
func (h *Handlers) Reflect(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Reflect(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "skipped", "reason": "nothing to reflect on"})
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// GET /api/v1/stats
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type chatRequest struct {
	Text string `json:"text"`
}

// POST /api/v1/chat
//
// Streams the reply as server-sent events: "delta" events carry text
// fragments, one final "done" event carries the full result.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	result, err := h.svc.Chat(r.Context(), req.Text, func(delta string) {
		writeEvent("delta", map[string]string{"text": delta})
	})
	if err != nil {
		writeEvent("error", map[string]string{"error": err.Error()})
		return
	}

	writeEvent("done", result)
}

// GET /api/v1/export
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.Export(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if records == nil {
		records = []memory.ExportRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"exported_at": time.Now().UTC(),
		"records":     records,
	})
}

type importRequest struct {
	Records []memory.ExportRecord `json:"records"`
}

// POST /api/v1/import
func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.svc.Import(r.Context(), req.Records); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "imported", "count": len(req.Records)})
}

type settingsResponse struct {
	Autonomy           bool    `json:"autonomy"`
	ReflectionInterval string  `json:"reflection_interval"`
	TopK               int     `json:"top_k"`
	ShortDecayRate     float64 `json:"short_decay_rate"`
	LongDecayRate      float64 `json:"long_decay_rate"`
	MinScore           float64 `json:"min_score"`
}

type settingsRequest struct {
	Autonomy           *bool    `json:"autonomy,omitempty"`
	ReflectionInterval *string  `json:"reflection_interval,omitempty"`
	TopK               *int     `json:"top_k,omitempty"`
	ShortDecayRate     *float64 `json:"short_decay_rate,omitempty"`
	LongDecayRate      *float64 `json:"long_decay_rate,omitempty"`
	MinScore           *float64 `json:"min_score,omitempty"`
}

// GET /api/v1/settings
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg := h.runtime.Current()
	writeJSON(w, http.StatusOK, settingsResponse{
		Autonomy:           h.reflection.Running(),
		ReflectionInterval: cfg.Reflection.Interval.String(),
		TopK:               cfg.Retrieval.TopK,
		ShortDecayRate:     cfg.Memory.ShortDecayRate,
		LongDecayRate:      cfg.Memory.LongDecayRate,
		MinScore:           cfg.Memory.MinScore,
	})
}

// PUT /api/v1/settings
//
// Disabling autonomy stops the reflection scheduler before the response is
// written; no reflection begins afterwards.
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	next := *h.runtime.Current()
	if req.ReflectionInterval != nil {
		d, err := time.ParseDuration(*req.ReflectionInterval)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid reflection_interval: "+err.Error())
			return
		}
		next.Reflection.Interval = d
	}
	if req.TopK != nil {
		next.Retrieval.TopK = *req.TopK
	}
	if req.ShortDecayRate != nil {
		next.Memory.ShortDecayRate = *req.ShortDecayRate
	}
	if req.LongDecayRate != nil {
		next.Memory.LongDecayRate = *req.LongDecayRate
	}
	if req.MinScore != nil {
		next.Memory.MinScore = *req.MinScore
	}
	if req.Autonomy != nil {
		next.Reflection.Autonomy = *req.Autonomy
	}

	if err := h.svc.Reconfigure(&next); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.ReflectionInterval != nil {
		// Validate may have clamped the interval up to the floor.
		h.reflection.SetInterval(next.Reflection.Interval)
		if h.reflection.Running() {
			h.reflection.Stop()
			h.reflection.Start()
		}
	}

	if req.Autonomy != nil {
		if *req.Autonomy {
			h.reflection.Start()
		} else {
			h.reflection.Stop()
		}
	}

	h.GetSettings(w, r)
}

func (h *Handlers) storeFor(tier string) (*memory.Store, bool) {
	switch memory.Tier(tier) {
	case memory.TierShort:
		return h.svc.ShortTerm(), true
	case memory.TierLong:
		return h.svc.LongTerm(), true
	default:
		return nil, false
	}
}

func (h *Handlers) storeAndID(w http.ResponseWriter, r *http.Request) (*memory.Store, int64, bool) {
	store, ok := h.storeFor(chi.URLParam(r, "tier"))
	if !ok {
		writeError(w, http.StatusBadRequest, "tier must be 'short' or 'long'")
		return nil, 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return nil, 0, false
	}
	return store, id, true
}

// writeServiceError maps domain error types to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var vErr *memory.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, vErr.Error())
		return
	}
	var nfErr *memory.NotFoundError
	if errors.As(err, &nfErr) {
		writeError(w, http.StatusNotFound, nfErr.Error())
		return
	}
	var authErr *provider.AuthError
	if errors.As(err, &authErr) {
		writeError(w, http.StatusUnauthorized, authErr.Error())
		return
	}
	var cancelErr *provider.CancelledError
	if errors.As(err, &cancelErr) {
		writeError(w, statusClientClosedRequest, cancelErr.Error())
		return
	}
	var provErr *provider.ProviderError
	if errors.As(err, &provErr) {
		writeError(w, http.StatusBadGateway, provErr.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
