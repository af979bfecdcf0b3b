package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/ExpressedAi/Pinkmemory/internal/memory"
)

// Sweeper periodically applies decay to both memory tiers so scores erode
// even when nothing queries the store.
type Sweeper struct {
	svc      *memory.Service
	interval time.Duration
	stop     chan struct{}
}

func NewSweeper(svc *memory.Service, interval time.Duration) *Sweeper {
	return &Sweeper{
		svc:      svc,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	slog.Info("starting decay sweeper", "interval", s.interval)
	go s.run()
}

func (s *Sweeper) Stop() {
	close(s.stop)
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			results, err := s.svc.DecayNow(ctx)
			cancel()
			if err != nil {
				slog.Error("decay sweep failed", "error", err)
				continue
			}
			for tier, res := range results {
				if res.Updated > 0 || res.Deleted > 0 {
					slog.Info("decay sweep", "tier", tier, "updated", res.Updated, "deleted", res.Deleted)
				}
			}
		case <-s.stop:
			slog.Info("decay sweeper stopped")
			return
		}
	}
}
