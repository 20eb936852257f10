// Package dashboard assembles the cached per-month summary view.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/finmind-app/finmind-api/pkg/db"
)

// RecentTransaction is a ledger entry trimmed for the dashboard feed
type RecentTransaction struct {
	ID          int64
	Description string
	AmountCents int64
	SpentAt     time.Time
	ExpenseType string
	CategoryID  *int64
	Currency    string
}

// BreakdownRow is a per-category spend total for one month
type BreakdownRow struct {
	CategoryID   *int64
	CategoryName string
	AmountCents  int64
}

// Repository is the read-model contract for dashboard aggregates
type Repository interface {
	MonthlyTotals(ctx context.Context, userID int64, year, month int) (incomeCents, expenseCents int64, err error)
	RecentTransactions(ctx context.Context, userID int64, limit int) ([]RecentTransaction, error)
	CategoryBreakdown(ctx context.Context, userID int64, year, month int) ([]BreakdownRow, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool db.Querier
}

// NewPostgresRepository creates a new PostgreSQL dashboard repository
func NewPostgresRepository(pool db.Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// MonthlyTotals sums the month's income and non-income entries
func (r *PostgresRepository) MonthlyTotals(ctx context.Context, userID int64, year, month int) (int64, int64, error) {
	var incomeCents, expenseCents int64
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount_cents) FILTER (WHERE expense_type = 'INCOME'), 0),
			COALESCE(SUM(amount_cents) FILTER (WHERE expense_type <> 'INCOME'), 0)
		FROM expenses
		WHERE user_id = $1
		  AND EXTRACT(YEAR FROM spent_at) = $2
		  AND EXTRACT(MONTH FROM spent_at) = $3`,
		userID, year, month).Scan(&incomeCents, &expenseCents)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sum monthly totals: %w", err)
	}
	return incomeCents, expenseCents, nil
}

// RecentTransactions returns the newest ledger entries regardless of month
func (r *PostgresRepository) RecentTransactions(ctx context.Context, userID int64, limit int) ([]RecentTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, COALESCE(notes, ''), amount_cents, spent_at, expense_type, category_id, currency
		FROM expenses
		WHERE user_id = $1
		ORDER BY spent_at DESC, id DESC
		LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent transactions: %w", err)
	}
	defer rows.Close()

	var transactions []RecentTransaction
	for rows.Next() {
		var t RecentTransaction
		if err := rows.Scan(&t.ID, &t.Description, &t.AmountCents, &t.SpentAt,
			&t.ExpenseType, &t.CategoryID, &t.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan recent transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recent transactions: %w", err)
	}
	return transactions, nil
}

// CategoryBreakdown totals the month's spend per category, largest first.
// Entries without a category land under "Uncategorized".
func (r *PostgresRepository) CategoryBreakdown(ctx context.Context, userID int64, year, month int) ([]BreakdownRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.category_id, COALESCE(c.name, 'Uncategorized'), COALESCE(SUM(e.amount_cents), 0)
		FROM expenses e
		LEFT JOIN categories c ON c.id = e.category_id AND c.user_id = $1
		WHERE e.user_id = $1
		  AND EXTRACT(YEAR FROM e.spent_at) = $2
		  AND EXTRACT(MONTH FROM e.spent_at) = $3
		  AND e.expense_type <> 'INCOME'
		GROUP BY e.category_id, c.name
		ORDER BY SUM(e.amount_cents) DESC`,
		userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to compute category breakdown: %w", err)
	}
	defer rows.Close()

	var breakdown []BreakdownRow
	for rows.Next() {
		var row BreakdownRow
		if err := rows.Scan(&row.CategoryID, &row.CategoryName, &row.AmountCents); err != nil {
			return nil, fmt.Errorf("failed to scan breakdown row: %w", err)
		}
		breakdown = append(breakdown, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read category breakdown: %w", err)
	}
	return breakdown, nil
}
