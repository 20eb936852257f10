// Package reminders implements scheduled bill reminders with email and
// WhatsApp delivery.
package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/finmind-app/finmind-api/pkg/db"
)

// Reminder is a scheduled notification
type Reminder struct {
	ID      int64     `json:"id"`
	UserID  int64     `json:"-"`
	BillID  *int64    `json:"bill_id,omitempty"`
	Message string    `json:"message"`
	SendAt  time.Time `json:"send_at"`
	Sent    bool      `json:"sent"`
	Channel string    `json:"channel"`
}

// Repository is the storage contract for reminders
type Repository interface {
	List(ctx context.Context, userID int64) ([]*Reminder, error)
	Create(ctx context.Context, reminder *Reminder) error
	ListDueForUser(ctx context.Context, userID int64, cutoff time.Time) ([]*Reminder, error)
	ListDue(ctx context.Context, cutoff time.Time) ([]*Reminder, error)
	MarkSent(ctx context.Context, id int64) error
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool db.Querier
}

// NewPostgresRepository creates a new PostgreSQL reminder repository
func NewPostgresRepository(pool db.Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const reminderColumns = `id, user_id, bill_id, message, send_at, sent, channel`

// List returns the user's reminders ordered by send time
func (r *PostgresRepository) List(ctx context.Context, userID int64) ([]*Reminder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE user_id = $1 ORDER BY send_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// Create inserts a new reminder
func (r *PostgresRepository) Create(ctx context.Context, reminder *Reminder) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO reminders (user_id, bill_id, message, send_at, channel)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		reminder.UserID, reminder.BillID, reminder.Message, reminder.SendAt, reminder.Channel).
		Scan(&reminder.ID)
	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

// ListDueForUser returns the user's unsent reminders due by cutoff
func (r *PostgresRepository) ListDueForUser(ctx context.Context, userID int64, cutoff time.Time) ([]*Reminder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE user_id = $1 AND NOT sent AND send_at <= $2
		 ORDER BY send_at`, userID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// ListDue returns all unsent reminders due by cutoff, across users
func (r *PostgresRepository) ListDue(ctx context.Context, cutoff time.Time) ([]*Reminder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE NOT sent AND send_at <= $1
		 ORDER BY send_at`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// MarkSent flags a reminder as delivered
func (r *PostgresRepository) MarkSent(ctx context.Context, id int64) error {
	if _, err := r.pool.Exec(ctx, `UPDATE reminders SET sent = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return nil
}

func scanReminders(rows pgx.Rows) ([]*Reminder, error) {
	var reminders []*Reminder
	for rows.Next() {
		reminder := &Reminder{}
		if err := rows.Scan(&reminder.ID, &reminder.UserID, &reminder.BillID,
			&reminder.Message, &reminder.SendAt, &reminder.Sent, &reminder.Channel); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reminders: %w", err)
	}
	return reminders, nil
}
