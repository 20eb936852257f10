// Package insights produces monthly budget suggestions, model-assisted with
// a rule-based fallback.
package insights

import (
	"context"
	"fmt"

	"github.com/finmind-app/finmind-api/pkg/db"
)

// CategoryTotal is one category's spend for a month. A nil CategoryID means
// uncategorized.
type CategoryTotal struct {
	CategoryID  *int64
	AmountCents int64
}

// Repository is the read-model contract for insight aggregates
type Repository interface {
	MonthlyTotal(ctx context.Context, userID int64, year, month int) (int64, error)
	CategoryTotals(ctx context.Context, userID int64, year, month int) ([]CategoryTotal, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool db.Querier
}

// NewPostgresRepository creates a new PostgreSQL insights repository
func NewPostgresRepository(pool db.Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// MonthlyTotal sums every ledger entry for the month
func (r *PostgresRepository) MonthlyTotal(ctx context.Context, userID int64, year, month int) (int64, error) {
	var totalCents int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM expenses
		WHERE user_id = $1
		  AND EXTRACT(YEAR FROM spent_at) = $2
		  AND EXTRACT(MONTH FROM spent_at) = $3`,
		userID, year, month).Scan(&totalCents)
	if err != nil {
		return 0, fmt.Errorf("failed to sum monthly total: %w", err)
	}
	return totalCents, nil
}

// CategoryTotals sums the month's entries per category
func (r *PostgresRepository) CategoryTotals(ctx context.Context, userID int64, year, month int) ([]CategoryTotal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category_id, COALESCE(SUM(amount_cents), 0)
		FROM expenses
		WHERE user_id = $1
		  AND EXTRACT(YEAR FROM spent_at) = $2
		  AND EXTRACT(MONTH FROM spent_at) = $3
		GROUP BY category_id`,
		userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to sum category totals: %w", err)
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var total CategoryTotal
		if err := rows.Scan(&total.CategoryID, &total.AmountCents); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read category totals: %w", err)
	}
	return totals, nil
}
