package scout

import (
	"context"
	"time"

	"github.com/raptor-ai/event-scout/internal/config"
	"github.com/raptor-ai/event-scout/internal/logger"
)

// Scheduler runs a cycle at a fixed weekday and hour.
type Scheduler struct {
	scout   *Scout
	weekday time.Weekday
	hour    int
	loc     *time.Location
	now     func() time.Time
}

// NewScheduler creates a Scheduler from the schedule config.
func NewScheduler(s *Scout, cfg config.Config) (*Scheduler, error) {
	weekday, err := cfg.ScheduleWeekday()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.ScheduleLocation()
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		scout:   s,
		weekday: weekday,
		hour:    cfg.Schedule.Hour,
		loc:     loc,
		now:     time.Now,
	}, nil
}

// Next returns the first scheduled instant strictly after t.
func (sch *Scheduler) Next(t time.Time) time.Time {
	local := t.In(sch.loc)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), sch.hour, 0, 0, 0, sch.loc)

	days := (int(sch.weekday) - int(local.Weekday()) + 7) % 7
	candidate = candidate.AddDate(0, 0, days)
	if !candidate.After(t) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// Run blocks, executing a cycle at every scheduled instant until the context
// is cancelled. Cycle failures are logged; the scheduler keeps going.
func (sch *Scheduler) Run(ctx context.Context) error {
	for {
		next := sch.Next(sch.now())
		logger.Info("next cycle scheduled", logger.Fields{
			"at": next.Format(time.RFC3339),
		})

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		summary, err := sch.scout.Run(ctx)
		if err != nil {
			logger.Error("cycle failed", nil, err)
			continue
		}
		if summary.Partial() {
			logger.Warn("cycle completed with degraded results", logger.Fields{
				"source_failures": len(summary.SourceFailures),
				"failed_attempts": summary.FailedAttempts,
			})
		}
	}
}
