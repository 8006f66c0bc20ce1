package worker

import (
	"context"
	"log/slog"
	"time"
)

type LockSweeper interface {
	Sweep(ctx context.Context, trigger string) (int64, error)
}

// Sweeper resets expired locks on a fixed interval, on top of the sweep
// every slot read already does.
type Sweeper struct {
	slots    LockSweeper
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(slots LockSweeper, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{slots: slots, interval: interval, logger: logger}
}

// Run blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("lock sweeper started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("lock sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.slots.Sweep(ctx, "background"); err != nil && ctx.Err() == nil {
				s.logger.Error("background sweep failed", "error", err)
			}
		}
	}
}
