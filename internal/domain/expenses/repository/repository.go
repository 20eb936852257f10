// Package repository provides persistence for ledger entries.
package repository

import (
	"context"
	"time"
)

// Expense is a persisted ledger entry. Amounts are stored as integer cents
// and only converted to dollars at the JSON boundary.
type Expense struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"-"`
	CategoryID  *int64    `json:"category_id"`
	AmountCents int64     `json:"-"`
	Currency    string    `json:"currency"`
	ExpenseType string    `json:"expense_type"`
	Notes       string    `json:"description"`
	SpentAt     time.Time `json:"-"`
	CreatedAt   time.Time `json:"-"`
}

// ListFilter narrows a ledger listing. Zero values mean "no constraint".
type ListFilter struct {
	From       *time.Time
	To         *time.Time
	CategoryID *int64
	Search     string
	Page       int
	PageSize   int
}

// ExpenseRepository is the storage contract for ledger entries
type ExpenseRepository interface {
	Create(ctx context.Context, expense *Expense) error
	GetByID(ctx context.Context, userID, id int64) (*Expense, error)
	List(ctx context.Context, userID int64, filter ListFilter) ([]*Expense, error)
	Update(ctx context.Context, expense *Expense) error
	Delete(ctx context.Context, userID, id int64) error

	// ExistsByFingerprint reports whether the user already has an entry with
	// the exact (date, amount-to-the-cent, description) triple.
	ExistsByFingerprint(ctx context.Context, userID int64, spentAt time.Time, amountCents int64, notes string) (bool, error)
}
