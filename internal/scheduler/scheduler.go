// Package scheduler fires a job once a day at a fixed local time.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs a job daily at an HH:MM wall-clock time in a configured
// timezone. A job that overruns into the next slot delays that slot rather
// than firing twice.
type Scheduler struct {
	hour, minute int
	loc          *time.Location
	logger       *zap.Logger

	// now is swapped in tests.
	now func() time.Time
}

// New parses at ("HH:MM", 24h) and tz (IANA name, e.g. "Europe/Berlin").
func New(at, tz string, logger *zap.Logger) (*Scheduler, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("parse schedule time %q: %w", at, err)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		hour:   t.Hour(),
		minute: t.Minute(),
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}, nil
}

// NextRun returns the first scheduled instant strictly after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	now = now.In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks, invoking job at every scheduled instant until ctx is canceled.
// Job errors are logged; they do not stop the schedule.
func (s *Scheduler) Run(ctx context.Context, job func(context.Context) error) error {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		next := s.NextRun(s.now())
		s.logger.Info("next run scheduled", zap.Time("at", next))
		timer.Reset(time.Until(next))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		started := s.now()
		if err := job(ctx); err != nil {
			s.logger.Error("scheduled run failed", zap.Error(err))
		}
		s.logger.Info("scheduled run finished", zap.Duration("took", s.now().Sub(started)))
	}
}
