package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper removes idle visitor sessions and reports how many it removed
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// SweepScheduler runs a Sweeper on a cron schedule
type SweepScheduler struct {
	sweeper  Sweeper
	expr     string
	schedule cron.Schedule
	logger   zerolog.Logger
	now      func() time.Time
}

// ParseSchedule parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week)
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", expr, err)
	}
	return schedule, nil
}

// NewSweepScheduler creates a scheduler for expr
func NewSweepScheduler(sweeper Sweeper, expr string, logger zerolog.Logger) (*SweepScheduler, error) {
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}

	return &SweepScheduler{
		sweeper:  sweeper,
		expr:     expr,
		schedule: schedule,
		logger:   logger.With().Str("component", "sweeper").Logger(),
		now:      time.Now,
	}, nil
}

// NextRun returns when the sweep after from is due
func (s *SweepScheduler) NextRun(from time.Time) time.Time {
	return s.schedule.Next(from)
}

// Run sweeps on every tick of the schedule until ctx is cancelled
func (s *SweepScheduler) Run(ctx context.Context) {
	s.logger.Info().Str("schedule", s.expr).Msg("Starting idle session sweeper")

	for {
		now := s.now()
		next := s.NextRun(now)

		s.logger.Debug().Time("next_sweep_at", next).Msg("Sweep scheduled")

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("Idle session sweeper stopped")
			return
		case <-timer.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Failures are logged; the next tick tries
// again.
func (s *SweepScheduler) RunOnce(ctx context.Context) {
	start := s.now()

	n, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Idle session sweep failed")
		return
	}

	if n > 0 {
		s.logger.Info().
			Int("visitors", n).
			Dur("duration", s.now().Sub(start)).
			Msg("Released idle visitors")
		return
	}
	s.logger.Debug().Msg("No idle visitors")
}
