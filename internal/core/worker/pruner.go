package worker

import (
	"context"
	"log/slog"
	"time"
)

// Store deletes blacklist entries recorded before a threshold.
type Store interface {
	DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error)
}

// Pruner deletes blacklist entries of past sessions based on a retention period.
// The store decides which session is current and keeps it.
type Pruner struct {
	retention time.Duration
	store     Store
	now       func() time.Time
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, store Store) *Pruner {
	return &Pruner{
		retention: retention,
		store:     store,
		now:       time.Now,
	}
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return
	}

	// 10% of the retention period, between 1 minute and 1 hour
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	threshold := p.now().Add(-p.retention)

	n, err := p.store.DeleteOlderThan(ctx, threshold)
	if err != nil {
		slog.Error("Failed to prune blacklist", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Pruned blacklist entries", "count", n, "older_than", threshold)
	}
}
