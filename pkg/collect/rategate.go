package collect

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/grokpulse/grokpulse/internal/store"
)

// RateGate enforces the minimum interval between calls to the external
// search API, derived from the usage ledger's last collection timestamp.
type RateGate struct {
	store    store.Store
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewRateGate creates a gate with the given minimum inter-call interval.
func NewRateGate(s store.Store, interval time.Duration, log *zap.Logger) *RateGate {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &RateGate{
		store:    s,
		interval: interval,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NextAllowed returns the earliest time a collection call may be made.
// When no prior collection exists it returns now. A ledger read failure is
// a warning, not a block: the gate opens and the caller decides.
func (g *RateGate) NextAllowed(ctx context.Context) time.Time {
	last, err := g.store.LastCollectedAt(ctx)
	if err != nil {
		g.log.Warn("rate gate: ledger read failed, allowing collection", zap.Error(err))
		return g.now()
	}
	if last == nil {
		return g.now()
	}
	return last.Add(g.interval)
}

// CanCollectNow reports whether the gate is open.
func (g *RateGate) CanCollectNow(ctx context.Context) bool {
	return !g.now().Before(g.NextAllowed(ctx))
}

// Wait blocks until the gate opens or ctx is cancelled, logging a
// countdown once a minute.
func (g *RateGate) Wait(ctx context.Context) error {
	wait := g.NextAllowed(ctx).Sub(g.now())
	if wait <= 0 {
		return nil
	}

	g.log.Info("rate limited, waiting for next allowed window", zap.Duration("wait", wait))

	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	progress := time.NewTicker(time.Minute)
	defer progress.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		case <-progress.C:
			remaining := g.NextAllowed(ctx).Sub(g.now())
			if remaining > 0 {
				g.log.Info("still rate limited", zap.Duration("remaining", remaining.Round(time.Second)))
			}
		}
	}
}
