package reminders

import (
	"context"
	"log/slog"
	"time"

	"github.com/finmind-app/finmind-api/pkg/metrics"
)

// dueGrace pulls in reminders due within the next minute so a sweep never
// narrowly misses one scheduled between runs.
const dueGrace = time.Minute

// Service implements reminder operations and the due-reminder sweep
type Service struct {
	repo     Repository
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new reminder service
func NewService(repo Repository, notifier Notifier, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// List returns the user's reminders ordered by send time
func (s *Service) List(ctx context.Context, userID int64) ([]*Reminder, error) {
	return s.repo.List(ctx, userID)
}

// Create schedules a reminder. An empty channel defaults to email.
func (s *Service) Create(ctx context.Context, userID int64, billID *int64, message string, sendAt time.Time, channel string) (*Reminder, error) {
	if channel == "" {
		channel = "email"
	}
	reminder := &Reminder{
		UserID:  userID,
		BillID:  billID,
		Message: message,
		SendAt:  sendAt,
		Channel: channel,
	}
	if err := s.repo.Create(ctx, reminder); err != nil {
		return nil, err
	}

	s.logger.Info("created reminder",
		slog.Int64("id", reminder.ID),
		slog.Int64("user_id", userID),
		slog.Time("send_at", sendAt),
	)
	return reminder, nil
}

// RunDueForUser processes the user's due reminders and returns how many
// were handled
func (s *Service) RunDueForUser(ctx context.Context, userID int64) (int, error) {
	due, err := s.repo.ListDueForUser(ctx, userID, s.now().Add(dueGrace))
	if err != nil {
		return 0, err
	}
	return s.dispatch(ctx, due)
}

// RunDue processes due reminders across all users. The cron scheduler calls
// this every sweep.
func (s *Service) RunDue(ctx context.Context) (int, error) {
	due, err := s.repo.ListDue(ctx, s.now().Add(dueGrace))
	if err != nil {
		return 0, err
	}
	return s.dispatch(ctx, due)
}

// dispatch sends each reminder and marks it sent. Delivery failures are
// logged but still consume the reminder, matching at-most-once delivery.
func (s *Service) dispatch(ctx context.Context, due []*Reminder) (int, error) {
	processed := 0
	for _, reminder := range due {
		channel, err := s.notifier.Send(ctx, reminder)
		if err != nil {
			s.logger.Warn("reminder delivery failed",
				slog.Int64("id", reminder.ID),
				slog.String("channel", channel),
				slog.Any("error", err),
			)
		} else {
			s.metrics.RemindersSentTotal.WithLabelValues(channel).Inc()
		}

		if err := s.repo.MarkSent(ctx, reminder.ID); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}
