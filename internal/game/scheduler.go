package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/moneyrush/round-engine/internal/model"
)

// DefaultTickInterval is how often the scheduler checks the phase deadline.
const DefaultTickInterval = time.Second

// Scheduler advances the game when the advisory phase deadline elapses,
// invoking the same transitions an admin would. It is optional; without it
// deadlines are display-only.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	log      *slog.Logger
}

// NewScheduler creates a scheduler polling at interval (DefaultTickInterval
// when zero or negative).
func NewScheduler(e *Engine, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{engine: e, interval: interval, log: e.log}
}

// Tick performs at most one transition. It reports the phase entered, or ""
// when nothing was due.
func (s *Scheduler) Tick(ctx context.Context) (model.Phase, error) {
	phase, err := s.engine.AdvanceExpired(ctx)
	if err != nil {
		return "", err
	}
	if phase != "" {
		s.log.Info("phase deadline elapsed, advanced", "phase", phase)
	}
	return phase, nil
}

// Run ticks until ctx is cancelled. Tick errors are logged and do not stop
// the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("auto-advance scheduler started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.log.Info("auto-advance scheduler stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				s.log.Error("auto-advance failed", "error", err)
			}
		}
	}
}
