package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ExpressedAi/Pinkmemory/internal/memory"
)

// Reflection drives autonomous reflection: on each tick it asks the service
// to synthesize an insight from recent short-term memories. Ticks never
// overlap, and a tick is skipped while a conversation turn is streaming.
type Reflection struct {
	svc      *memory.Service
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

func NewReflection(svc *memory.Service, interval time.Duration) *Reflection {
	return &Reflection{
		svc:      svc,
		interval: interval,
	}
}

// Start begins the reflection loop. Starting an already-running scheduler is
// a no-op.
func (r *Reflection) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		return
	}
	r.stop = make(chan struct{})
	slog.Info("starting reflection scheduler", "interval", r.interval)
	go r.run(r.stop, r.interval)
}

// SetInterval changes the tick interval for the next Start. A running loop
// keeps its current interval until restarted.
func (r *Reflection) SetInterval(d time.Duration) {
	r.mu.Lock()
	r.interval = d
	r.mu.Unlock()
}

// Stop halts the loop immediately. No further reflections begin after Stop
// returns; stopping a stopped scheduler is a no-op.
func (r *Reflection) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop == nil {
		return
	}
	close(r.stop)
	r.stop = nil
}

func (r *Reflection) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop != nil
}

func (r *Reflection) run(stop chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// A tick can sit buffered in ticker.C while a cycle is in
			// flight; if Stop ran in the meantime the buffered tick must
			// not start another cycle.
			select {
			case <-stop:
				slog.Info("reflection scheduler stopped")
				return
			default:
			}
			if r.svc.Busy() {
				slog.Debug("skipping reflection, conversation in progress")
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			rec, err := r.svc.Reflect(ctx)
			cancel()
			if err != nil {
				slog.Error("reflection failed", "error", err)
				continue
			}
			if rec != nil {
				slog.Info("autonomous reflection", "id", rec.ID)
			}
		case <-stop:
			slog.Info("reflection scheduler stopped")
			return
		}
	}
}
