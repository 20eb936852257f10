// Package service implements ledger operations: CRUD, statement import
// preview/commit, and export.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/finmind-app/finmind-api/internal/domain/expenses/repository"
	"github.com/finmind-app/finmind-api/internal/domain/statements"
	"github.com/finmind-app/finmind-api/pkg/cache"
	"github.com/finmind-app/finmind-api/pkg/metrics"
	"github.com/finmind-app/finmind-api/pkg/money"
)

const maxCurrencyLen = 10

// StatementExtractor turns uploaded statement bytes into raw rows.
type StatementExtractor interface {
	Extract(ctx context.Context, filename, contentType string, data []byte) ([]statements.RawRow, error)
}

// CacheInvalidator clears derived read models after ledger writes.
// *cache.Cache satisfies it.
type CacheInvalidator interface {
	DeletePatterns(ctx context.Context, patterns ...string)
}

// ExpenseService coordinates the ledger repository, the statement
// extraction pipeline and cache invalidation.
type ExpenseService struct {
	repo      repository.ExpenseRepository
	extractor StatementExtractor
	cache     CacheInvalidator
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewExpenseService creates a new expense service
func NewExpenseService(
	repo repository.ExpenseRepository,
	extractor StatementExtractor,
	invalidator CacheInvalidator,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ExpenseService {
	return &ExpenseService{
		repo:      repo,
		extractor: extractor,
		cache:     invalidator,
		metrics:   m,
		logger:    logger,
	}
}

// ExpenseResponse is the wire shape of a ledger entry. Amounts cross the
// JSON boundary as dollars.
type ExpenseResponse struct {
	ID          int64   `json:"id"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	CategoryID  *int64  `json:"category_id"`
	ExpenseType string  `json:"expense_type"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

// CreateExpenseInput is a validated create request. The handler has already
// parsed and rounded the amount.
type CreateExpenseInput struct {
	AmountCents int64
	Currency    string
	ExpenseType string
	CategoryID  *int64
	Description string
	SpentAt     time.Time
}

// UpdateExpenseInput carries only the fields present in a patch request.
// CategorySet distinguishes "clear the category" from "leave it alone".
type UpdateExpenseInput struct {
	AmountCents *int64
	Currency    *string
	ExpenseType *string
	CategoryID  *int64
	CategorySet bool
	Description *string
	SpentAt     *time.Time
}

// ImportPreview is the dry-run result of a statement upload.
type ImportPreview struct {
	Total        int                      `json:"total"`
	Duplicates   int                      `json:"duplicates"`
	Transactions []statements.Transaction `json:"transactions"`
}

// ImportResult reports a commit outcome.
type ImportResult struct {
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
}

// List returns the user's ledger entries, newest first
func (s *ExpenseService) List(ctx context.Context, userID int64, filter repository.ListFilter) ([]ExpenseResponse, error) {
	expenses, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	s.logger.Info("listed expenses",
		slog.Int64("user_id", userID),
		slog.Int("count", len(expenses)),
	)

	responses := make([]ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		responses = append(responses, toResponse(e))
	}
	return responses, nil
}

// Get returns one ledger entry owned by the user
func (s *ExpenseService) Get(ctx context.Context, userID, id int64) (*ExpenseResponse, error) {
	expense, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(expense)
	return &resp, nil
}

// Create inserts a ledger entry and invalidates the month's derived caches
func (s *ExpenseService) Create(ctx context.Context, userID int64, in CreateExpenseInput) (*ExpenseResponse, error) {
	expense := &repository.Expense{
		UserID:      userID,
		CategoryID:  in.CategoryID,
		AmountCents: in.AmountCents,
		Currency:    normalizeCurrency(in.Currency),
		ExpenseType: normalizeType(in.ExpenseType),
		Notes:       in.Description,
		SpentAt:     in.SpentAt,
	}
	if err := s.repo.Create(ctx, expense); err != nil {
		return nil, err
	}

	s.logger.Info("created expense",
		slog.Int64("id", expense.ID),
		slog.Int64("user_id", userID),
		slog.Int64("amount_cents", expense.AmountCents),
	)

	s.cache.DeletePatterns(ctx,
		cache.MonthlySummaryKey(userID, yearMonth(expense.SpentAt)),
		cache.InsightsPattern(userID),
	)

	resp := toResponse(expense)
	return &resp, nil
}

// Update applies a partial edit to a ledger entry owned by the user
func (s *ExpenseService) Update(ctx context.Context, userID, id int64, in UpdateExpenseInput) (*ExpenseResponse, error) {
	expense, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.AmountCents != nil {
		expense.AmountCents = *in.AmountCents
	}
	if in.Currency != nil {
		expense.Currency = normalizeCurrency(*in.Currency)
	}
	if in.ExpenseType != nil {
		expense.ExpenseType = normalizeType(*in.ExpenseType)
	}
	if in.CategorySet {
		expense.CategoryID = in.CategoryID
	}
	if in.Description != nil {
		expense.Notes = *in.Description
	}
	if in.SpentAt != nil {
		expense.SpentAt = *in.SpentAt
	}

	if err := s.repo.Update(ctx, expense); err != nil {
		return nil, err
	}

	s.invalidateMonth(ctx, userID, expense.SpentAt)

	resp := toResponse(expense)
	return &resp, nil
}

// Delete removes a ledger entry owned by the user
func (s *ExpenseService) Delete(ctx context.Context, userID, id int64) error {
	expense, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}

	s.invalidateMonth(ctx, userID, expense.SpentAt)
	return nil
}

// PreviewImport runs the extraction pipeline over an uploaded statement and
// screens the normalized rows against the ledger. Storage is never mutated.
func (s *ExpenseService) PreviewImport(ctx context.Context, userID int64, filename, contentType string, data []byte) (*ImportPreview, error) {
	rows, err := s.extractor.Extract(ctx, filename, contentType, data)
	if err != nil {
		return nil, err
	}

	transactions := statements.Normalize(rows)
	s.metrics.ImportRowsTotal.WithLabelValues("normalized").Add(float64(len(transactions)))
	s.metrics.ImportRowsTotal.WithLabelValues("dropped").Add(float64(len(rows) - len(transactions)))

	duplicates := 0
	for _, t := range transactions {
		dup, err := s.isDuplicate(ctx, userID, t)
		if err != nil {
			return nil, err
		}
		if dup {
			duplicates++
		}
	}

	s.logger.Info("statement preview",
		slog.Int64("user_id", userID),
		slog.String("filename", filename),
		slog.Int("total", len(transactions)),
		slog.Int("duplicates", duplicates),
	)

	return &ImportPreview{
		Total:        len(transactions),
		Duplicates:   duplicates,
		Transactions: transactions,
	}, nil
}

// CommitImport normalizes the given rows, inserts non-duplicates in input
// order and skips duplicates. Each row stands alone; there is no rollback
// of earlier inserts when a later one fails.
func (s *ExpenseService) CommitImport(ctx context.Context, userID int64, rows []statements.RawRow) (*ImportResult, error) {
	transactions := statements.Normalize(rows)

	result := &ImportResult{}
	touchedMonths := make(map[string]struct{})
	for _, t := range transactions {
		dup, err := s.isDuplicate(ctx, userID, t)
		if err != nil {
			s.invalidateMonths(ctx, userID, touchedMonths)
			return nil, err
		}
		if dup {
			result.Duplicates++
			s.metrics.ImportDuplicateTotal.Inc()
			continue
		}

		spentAt, err := time.Parse("2006-01-02", t.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse transaction date %q: %w", t.Date, err)
		}
		expense := &repository.Expense{
			UserID:      userID,
			CategoryID:  t.CategoryID,
			AmountCents: t.AmountCents,
			Currency:    t.Currency,
			ExpenseType: t.ExpenseType,
			Notes:       t.Description,
			SpentAt:     spentAt,
		}
		if err := s.repo.Create(ctx, expense); err != nil {
			s.invalidateMonths(ctx, userID, touchedMonths)
			return nil, err
		}
		result.Inserted++
		s.metrics.ImportRowsTotal.WithLabelValues("inserted").Inc()
		touchedMonths[t.Date[:7]] = struct{}{}
	}

	s.invalidateMonths(ctx, userID, touchedMonths)

	s.logger.Info("statement commit",
		slog.Int64("user_id", userID),
		slog.Int("inserted", result.Inserted),
		slog.Int("duplicates", result.Duplicates),
	)
	return result, nil
}

// ExportXLSX renders the user's filtered ledger as a spreadsheet
func (s *ExpenseService) ExportXLSX(ctx context.Context, userID int64, filter repository.ListFilter) ([]byte, error) {
	expenses, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Expenses"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{"Date", "Description", "Category ID", "Amount", "Currency", "Type"}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetCellValue(sheet, col+"1", h); err != nil {
			return nil, fmt.Errorf("failed to write export header: %w", err)
		}
	}

	for i, e := range expenses {
		row := i + 2
		values := []any{
			e.SpentAt.Format("2006-01-02"),
			e.Notes,
			categoryCell(e.CategoryID),
			money.FloatFromCents(e.AmountCents),
			e.Currency,
			e.ExpenseType,
		}
		for j, v := range values {
			col, _ := excelize.ColumnNumberToName(j + 1)
			if err := f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v); err != nil {
				return nil, fmt.Errorf("failed to write export row %d: %w", row, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render export: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *ExpenseService) isDuplicate(ctx context.Context, userID int64, t statements.Transaction) (bool, error) {
	spentAt, err := time.Parse("2006-01-02", t.Date)
	if err != nil {
		return false, nil
	}
	return s.repo.ExistsByFingerprint(ctx, userID, spentAt, t.AmountCents, t.Description)
}

func (s *ExpenseService) invalidateMonth(ctx context.Context, userID int64, spentAt time.Time) {
	s.cache.DeletePatterns(ctx,
		cache.MonthlySummaryKey(userID, yearMonth(spentAt)),
		cache.InsightsPattern(userID),
		cache.DashboardSummaryPattern(userID),
	)
}

func (s *ExpenseService) invalidateMonths(ctx context.Context, userID int64, months map[string]struct{}) {
	for ym := range months {
		s.cache.DeletePatterns(ctx,
			cache.MonthlySummaryKey(userID, ym),
			cache.InsightsPattern(userID),
			cache.DashboardSummaryPattern(userID),
		)
	}
}

func toResponse(e *repository.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:          e.ID,
		Amount:      money.FloatFromCents(e.AmountCents),
		Currency:    e.Currency,
		CategoryID:  e.CategoryID,
		ExpenseType: e.ExpenseType,
		Description: e.Notes,
		Date:        e.SpentAt.Format("2006-01-02"),
	}
}

func categoryCell(id *int64) any {
	if id == nil {
		return ""
	}
	return *id
}

func normalizeCurrency(currency string) string {
	if currency == "" {
		return "USD"
	}
	if len(currency) > maxCurrencyLen {
		return currency[:maxCurrencyLen]
	}
	return currency
}

func normalizeType(expenseType string) string {
	if expenseType == "" {
		return statements.TypeExpense
	}
	return strings.ToUpper(expenseType)
}

func yearMonth(t time.Time) string {
	return t.Format("2006-01")
}
