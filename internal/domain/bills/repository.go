// Package bills implements recurring bill tracking.
package bills

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/finmind-app/finmind-api/pkg/db"
)

// Bill cadences.
const (
	CadenceMonthly = "MONTHLY"
	CadenceWeekly  = "WEEKLY"
	CadenceYearly  = "YEARLY"
	CadenceOnce    = "ONCE"
)

// Bill is a recurring payment obligation
type Bill struct {
	ID              int64
	UserID          int64
	Name            string
	AmountCents     int64
	Currency        string
	NextDueDate     time.Time
	Cadence         string
	ChannelWhatsapp bool
	ChannelEmail    bool
	Active          bool
}

// Repository is the storage contract for bills
type Repository interface {
	ListActive(ctx context.Context, userID int64) ([]*Bill, error)
	Upcoming(ctx context.Context, userID int64, from time.Time, limit int) ([]*Bill, error)
	GetByID(ctx context.Context, userID, id int64) (*Bill, error)
	Create(ctx context.Context, bill *Bill) error
	Update(ctx context.Context, bill *Bill) error
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool db.Querier
}

// NewPostgresRepository creates a new PostgreSQL bill repository
func NewPostgresRepository(pool db.Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const billColumns = `id, user_id, name, amount_cents, currency, next_due_date, cadence, channel_whatsapp, channel_email, active`

// ListActive returns the user's active bills ordered by due date
func (r *PostgresRepository) ListActive(ctx context.Context, userID int64) ([]*Bill, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+billColumns+` FROM bills WHERE user_id = $1 AND active ORDER BY next_due_date`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()
	return scanBills(rows)
}

// Upcoming returns active bills due on or after from, soonest first
func (r *PostgresRepository) Upcoming(ctx context.Context, userID int64, from time.Time, limit int) ([]*Bill, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+billColumns+` FROM bills
		 WHERE user_id = $1 AND active AND next_due_date >= $2
		 ORDER BY next_due_date LIMIT $3`,
		userID, from, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming bills: %w", err)
	}
	defer rows.Close()
	return scanBills(rows)
}

// GetByID retrieves one of the user's bills
func (r *PostgresRepository) GetByID(ctx context.Context, userID, id int64) (*Bill, error) {
	b := &Bill{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = $1 AND user_id = $2`, id, userID).
		Scan(&b.ID, &b.UserID, &b.Name, &b.AmountCents, &b.Currency, &b.NextDueDate,
			&b.Cadence, &b.ChannelWhatsapp, &b.ChannelEmail, &b.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return b, nil
}

// Create inserts a new bill
func (r *PostgresRepository) Create(ctx context.Context, bill *Bill) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO bills (user_id, name, amount_cents, currency, next_due_date, cadence, channel_whatsapp, channel_email, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		bill.UserID, bill.Name, bill.AmountCents, bill.Currency, bill.NextDueDate,
		bill.Cadence, bill.ChannelWhatsapp, bill.ChannelEmail, bill.Active).
		Scan(&bill.ID)
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}
	return nil
}

// Update rewrites a bill owned by the user
func (r *PostgresRepository) Update(ctx context.Context, bill *Bill) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE bills
		 SET name = $3, amount_cents = $4, currency = $5, next_due_date = $6,
		     cadence = $7, channel_whatsapp = $8, channel_email = $9, active = $10
		 WHERE id = $1 AND user_id = $2`,
		bill.ID, bill.UserID, bill.Name, bill.AmountCents, bill.Currency,
		bill.NextDueDate, bill.Cadence, bill.ChannelWhatsapp, bill.ChannelEmail, bill.Active)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanBills(rows pgx.Rows) ([]*Bill, error) {
	var bills []*Bill
	for rows.Next() {
		b := &Bill{}
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.AmountCents, &b.Currency,
			&b.NextDueDate, &b.Cadence, &b.ChannelWhatsapp, &b.ChannelEmail, &b.Active); err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bills: %w", err)
	}
	return bills, nil
}
