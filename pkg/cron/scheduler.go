// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ReminderRunner dispatches reminders that are due for delivery.
type ReminderRunner interface {
	RunDue(ctx context.Context) (sent int, err error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	reminders ReminderRunner
	logger    *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(reminders ReminderRunner, logger *slog.Logger) *Scheduler {
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:      c,
		reminders: reminders,
		logger:    logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// Reminder sweep: every 5 minutes
	_, err := s.cron.AddFunc("*/5 * * * *", s.sweepDueReminders)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the reminder sweep (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.sweepDueReminders()
}

// sweepDueReminders sends every reminder whose send time has arrived.
func (s *Scheduler) sweepDueReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sent, err := s.reminders.RunDue(ctx)
	if err != nil {
		s.logger.Error("reminder sweep failed", slog.Any("error", err))
		return
	}

	if sent > 0 {
		s.logger.Info("reminder sweep completed", slog.Int("sent", sent))
	}
}
