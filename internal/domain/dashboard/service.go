package dashboard

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/finmind-app/finmind-api/internal/domain/bills"
	"github.com/finmind-app/finmind-api/pkg/cache"
	"github.com/finmind-app/finmind-api/pkg/money"
)

const (
	summaryCacheTTL = 5 * time.Minute
	recentLimit     = 10
	upcomingLimit   = 8
)

// SummaryCache caches assembled dashboard payloads. *cache.Cache satisfies it.
type SummaryCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// BillsProvider supplies the upcoming-bill section.
type BillsProvider interface {
	Upcoming(ctx context.Context, userID int64, from time.Time, limit int) ([]bills.BillResponse, error)
}

// Service assembles the dashboard summary
type Service struct {
	repo   Repository
	bills  BillsProvider
	cache  SummaryCache
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new dashboard service
func NewService(repo Repository, billsProvider BillsProvider, summaryCache SummaryCache, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		bills:  billsProvider,
		cache:  summaryCache,
		logger: logger,
		now:    time.Now,
	}
}

// Summary is the dashboard payload. Sections that fail to load are zeroed
// and named in Errors instead of failing the request.
type Summary struct {
	Period             Period               `json:"period"`
	Totals             Totals               `json:"summary"`
	RecentTransactions []TransactionEntry   `json:"recent_transactions"`
	UpcomingBills      []bills.BillResponse `json:"upcoming_bills"`
	CategoryBreakdown  []BreakdownEntry     `json:"category_breakdown"`
	Errors             []string             `json:"errors"`
}

// Period names the summarized month
type Period struct {
	Month string `json:"month"`
}

// Totals carries the month's headline numbers
type Totals struct {
	NetFlow            float64 `json:"net_flow"`
	MonthlyIncome      float64 `json:"monthly_income"`
	MonthlyExpenses    float64 `json:"monthly_expenses"`
	UpcomingBillsTotal float64 `json:"upcoming_bills_total"`
	UpcomingBillsCount int     `json:"upcoming_bills_count"`
}

// TransactionEntry is one row in the recent-transactions feed
type TransactionEntry struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Type        string  `json:"type"`
	CategoryID  *int64  `json:"category_id"`
	Currency    string  `json:"currency"`
}

// BreakdownEntry is one category's share of the month's spend
type BreakdownEntry struct {
	CategoryID   *int64  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Amount       float64 `json:"amount"`
	SharePct     float64 `json:"share_pct"`
}

// GetSummary returns the user's dashboard for the month, cached for five
// minutes. Partial storage failures degrade to an errors list, never a 5xx.
func (s *Service) GetSummary(ctx context.Context, userID int64, ym string) (*Summary, error) {
	key := cache.DashboardSummaryKey(userID, ym)
	cached := &Summary{}
	if hit, err := s.cache.Get(ctx, key, cached); err == nil && hit {
		return cached, nil
	}

	summary := &Summary{
		Period:             Period{Month: ym},
		RecentTransactions: []TransactionEntry{},
		UpcomingBills:      []bills.BillResponse{},
		CategoryBreakdown:  []BreakdownEntry{},
		Errors:             []string{},
	}

	month, err := time.Parse("2006-01", ym)
	if err != nil {
		return nil, err
	}
	year, monthNum := month.Year(), int(month.Month())

	if incomeCents, expenseCents, err := s.repo.MonthlyTotals(ctx, userID, year, monthNum); err != nil {
		s.sectionFailed(summary, "summary_unavailable", err)
	} else {
		summary.Totals.MonthlyIncome = money.FloatFromCents(incomeCents)
		summary.Totals.MonthlyExpenses = money.FloatFromCents(expenseCents)
		summary.Totals.NetFlow = round2(summary.Totals.MonthlyIncome - summary.Totals.MonthlyExpenses)
	}

	if recent, err := s.repo.RecentTransactions(ctx, userID, recentLimit); err != nil {
		s.sectionFailed(summary, "recent_transactions_unavailable", err)
	} else {
		for _, t := range recent {
			description := t.Description
			if description == "" {
				description = "Transaction"
			}
			summary.RecentTransactions = append(summary.RecentTransactions, TransactionEntry{
				ID:          t.ID,
				Description: description,
				Amount:      money.FloatFromCents(t.AmountCents),
				Date:        t.SpentAt.Format("2006-01-02"),
				Type:        t.ExpenseType,
				CategoryID:  t.CategoryID,
				Currency:    t.Currency,
			})
		}
	}

	if upcoming, err := s.bills.Upcoming(ctx, userID, s.today(), upcomingLimit); err != nil {
		s.sectionFailed(summary, "upcoming_bills_unavailable", err)
	} else {
		summary.UpcomingBills = upcoming
		total := 0.0
		for _, b := range upcoming {
			total += b.Amount
		}
		summary.Totals.UpcomingBillsTotal = round2(total)
		summary.Totals.UpcomingBillsCount = len(upcoming)
	}

	if breakdown, err := s.repo.CategoryBreakdown(ctx, userID, year, monthNum); err != nil {
		s.sectionFailed(summary, "category_breakdown_unavailable", err)
	} else {
		var totalCents int64
		for _, row := range breakdown {
			totalCents += row.AmountCents
		}
		for _, row := range breakdown {
			sharePct := 0.0
			if totalCents > 0 {
				sharePct = round2(float64(row.AmountCents) / float64(totalCents) * 100)
			}
			summary.CategoryBreakdown = append(summary.CategoryBreakdown, BreakdownEntry{
				CategoryID:   row.CategoryID,
				CategoryName: row.CategoryName,
				Amount:       money.FloatFromCents(row.AmountCents),
				SharePct:     sharePct,
			})
		}
	}

	if err := s.cache.Set(ctx, key, summary, summaryCacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard summary", slog.Any("error", err))
	}
	return summary, nil
}

func (s *Service) sectionFailed(summary *Summary, name string, err error) {
	s.logger.Warn("dashboard section failed",
		slog.String("section", name),
		slog.Any("error", err),
	)
	summary.Errors = append(summary.Errors, name)
}

func (s *Service) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
