package store

import (
	"context"
	"sync"
	"time"

	"github.com/scoremilk/chat-gateway/pkg/logger"
)

// Refresher owns the process-wide recurring data refresh.
type Refresher struct {
	store    *Store
	log      logger.Logger
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRefresher creates a Refresher driving the given store at the given interval.
func NewRefresher(s *Store, interval time.Duration, log logger.Logger) *Refresher {
	return &Refresher{
		store:    s,
		log:      log,
		interval: interval,
	}
}

// Initialize performs one immediate refresh so the process starts with warm
// data, then arms a recurring ticker. Calling Initialize again replaces the
// previously armed ticker.
func (r *Refresher) Initialize(ctx context.Context) {
	r.Stop()

	r.store.RefreshData(ctx)

	tickCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go r.run(tickCtx, done)

	r.log.Info("data refresher initialized",
		logger.DurationField("interval", r.interval))
}

// run drives the ticker until cancelled. RefreshData never returns an error
// and recovers below from anything else, so one bad cycle cannot disarm the
// ticker.
func (r *Refresher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshTick(ctx)
		}
	}
}

func (r *Refresher) refreshTick(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("refresh tick panicked", logger.Field("panic", rec))
		}
	}()
	r.store.RefreshData(ctx)
}

// Stop cancels the recurring refresh and waits for the in-flight tick, if any,
// to complete. Safe to call when not armed.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.log.Info("data refresher stopped")
}
