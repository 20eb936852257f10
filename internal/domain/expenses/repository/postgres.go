package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/finmind-app/finmind-api/pkg/db"
)

// PostgresExpenseRepository implements ExpenseRepository using PostgreSQL
type PostgresExpenseRepository struct {
	pool db.Querier
}

// NewPostgresExpenseRepository creates a new PostgreSQL expense repository
func NewPostgresExpenseRepository(pool db.Querier) *PostgresExpenseRepository {
	return &PostgresExpenseRepository{pool: pool}
}

// Create inserts a new ledger entry
func (r *PostgresExpenseRepository) Create(ctx context.Context, expense *Expense) error {
	query := `
		INSERT INTO expenses (user_id, category_id, amount_cents, currency, expense_type, notes, spent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		expense.UserID,
		expense.CategoryID,
		expense.AmountCents,
		expense.Currency,
		expense.ExpenseType,
		expense.Notes,
		expense.SpentAt,
	).Scan(&expense.ID, &expense.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetByID retrieves one of the user's ledger entries
func (r *PostgresExpenseRepository) GetByID(ctx context.Context, userID, id int64) (*Expense, error) {
	query := `
		SELECT id, user_id, category_id, amount_cents, currency, expense_type, notes, spent_at, created_at
		FROM expenses
		WHERE id = $1 AND user_id = $2`

	expense := &Expense{}
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&expense.ID,
		&expense.UserID,
		&expense.CategoryID,
		&expense.AmountCents,
		&expense.Currency,
		&expense.ExpenseType,
		&expense.Notes,
		&expense.SpentAt,
		&expense.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return expense, nil
}

// List returns the user's entries, newest first, honoring the filter
func (r *PostgresExpenseRepository) List(ctx context.Context, userID int64, filter ListFilter) ([]*Expense, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, user_id, category_id, amount_cents, currency, expense_type, notes, spent_at, created_at
		FROM expenses
		WHERE user_id = $1`)

	args := []any{userID}
	if filter.From != nil {
		args = append(args, *filter.From)
		fmt.Fprintf(&sb, " AND spent_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		fmt.Fprintf(&sb, " AND spent_at <= $%d", len(args))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		fmt.Fprintf(&sb, " AND category_id = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		fmt.Fprintf(&sb, " AND notes ILIKE $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 200
	}
	args = append(args, pageSize, (page-1)*pageSize)
	fmt.Fprintf(&sb, " ORDER BY spent_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*Expense
	for rows.Next() {
		expense := &Expense{}
		if err := rows.Scan(
			&expense.ID,
			&expense.UserID,
			&expense.CategoryID,
			&expense.AmountCents,
			&expense.Currency,
			&expense.ExpenseType,
			&expense.Notes,
			&expense.SpentAt,
			&expense.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read expenses: %w", err)
	}
	return expenses, nil
}

// Update rewrites a ledger entry owned by the user
func (r *PostgresExpenseRepository) Update(ctx context.Context, expense *Expense) error {
	query := `
		UPDATE expenses
		SET category_id = $3, amount_cents = $4, currency = $5, expense_type = $6, notes = $7, spent_at = $8
		WHERE id = $1 AND user_id = $2`

	result, err := r.pool.Exec(ctx, query,
		expense.ID,
		expense.UserID,
		expense.CategoryID,
		expense.AmountCents,
		expense.Currency,
		expense.ExpenseType,
		expense.Notes,
		expense.SpentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a ledger entry owned by the user
func (r *PostgresExpenseRepository) Delete(ctx context.Context, userID, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExistsByFingerprint performs the exact-match duplicate probe
func (r *PostgresExpenseRepository) ExistsByFingerprint(ctx context.Context, userID int64, spentAt time.Time, amountCents int64, notes string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM expenses
			WHERE user_id = $1 AND spent_at = $2 AND amount_cents = $3 AND notes = $4
		)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, spentAt, amountCents, notes).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check for duplicate expense: %w", err)
	}
	return exists, nil
}
