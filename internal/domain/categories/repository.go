// Package categories implements per-user expense categories.
package categories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/finmind-app/finmind-api/pkg/db"
)

// Category is a user-scoped expense label
type Category struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"-"`
	Name   string `json:"name"`
}

// Repository is the storage contract for categories
type Repository interface {
	List(ctx context.Context, userID int64) ([]*Category, error)
	GetByID(ctx context.Context, userID, id int64) (*Category, error)
	Create(ctx context.Context, category *Category) error
	Update(ctx context.Context, category *Category) error
	Delete(ctx context.Context, userID, id int64) error
	ExistsByName(ctx context.Context, userID int64, name string) (bool, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool db.Querier
}

// NewPostgresRepository creates a new PostgreSQL category repository
func NewPostgresRepository(pool db.Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// List returns the user's categories ordered by name
func (r *PostgresRepository) List(ctx context.Context, userID int64) ([]*Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, name FROM categories WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		c := &Category{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}
	return categories, nil
}

// GetByID retrieves one of the user's categories
func (r *PostgresRepository) GetByID(ctx context.Context, userID, id int64) (*Category, error) {
	c := &Category{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, name FROM categories WHERE id = $1 AND user_id = $2`, id, userID).
		Scan(&c.ID, &c.UserID, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// Create inserts a new category
func (r *PostgresRepository) Create(ctx context.Context, category *Category) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (user_id, name) VALUES ($1, $2) RETURNING id`,
		category.UserID, category.Name).Scan(&category.ID)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// Update renames a category owned by the user
func (r *PostgresRepository) Update(ctx context.Context, category *Category) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE categories SET name = $3 WHERE id = $1 AND user_id = $2`,
		category.ID, category.UserID, category.Name)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a category owned by the user
func (r *PostgresRepository) Delete(ctx context.Context, userID, id int64) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if result.RowsAffected() == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExistsByName reports whether the user already has a category with this name
func (r *PostgresRepository) ExistsByName(ctx context.Context, userID int64, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE user_id = $1 AND name = $2)`,
		userID, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check category name: %w", err)
	}
	return exists, nil
}
