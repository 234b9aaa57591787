package rental

import (
	"context"
	"log/slog"
	"time"
)

// OverdueMarker is the slice of the rental repository the sweeper needs.
type OverdueMarker interface {
	MarkOverdueDue(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper periodically flips ACTIVE rentals past their grace window to
// OVERDUE. The overview computes this live anyway; the sweeper keeps the
// persisted rows from drifting when nobody is looking.
type Sweeper struct {
	repo     OverdueMarker
	interval time.Duration
	log      *slog.Logger
}

func NewSweeper(repo OverdueMarker, interval time.Duration, log *slog.Logger) *Sweeper {
	return &Sweeper{repo: repo, interval: interval, log: log}
}

// Run blocks until ctx is cancelled. One sweep fires immediately on start.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("overdue sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.repo.MarkOverdueDue(ctx, time.Now())
	if err != nil {
		s.log.Error("overdue sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("marked rentals overdue", "count", n)
	}
}
