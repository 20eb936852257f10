package insights

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/finmind-app/finmind-api/pkg/cache"
	"github.com/finmind-app/finmind-api/pkg/money"
)

const (
	suggestionCacheTTL = time.Hour

	// fallbackBudget is suggested when the user has no spend history.
	fallbackBudget = 500.00
)

// SuggestionCache caches budget suggestions. *cache.Cache satisfies it.
type SuggestionCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Service produces monthly budget suggestions
type Service struct {
	repo   Repository
	model  BudgetModel
	cache  SuggestionCache
	logger *slog.Logger
}

// NewService creates a new insights service. model may be disabled; the
// rule-based budget then always applies.
func NewService(repo Repository, model BudgetModel, suggestionCache SuggestionCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, model: model, cache: suggestionCache, logger: logger}
}

// BudgetSuggestion recommends next month's budget from the month's spend.
// The model path gets a single attempt; any failure falls back to 90% of
// the month's spend split 50/30/20.
func (s *Service) BudgetSuggestion(ctx context.Context, userID int64, ym string) (*Suggestion, error) {
	key := cache.InsightsKey(userID, ym)
	cached := &Suggestion{}
	if hit, err := s.cache.Get(ctx, key, cached); err == nil && hit {
		return cached, nil
	}

	month, err := time.Parse("2006-01", ym)
	if err != nil {
		return nil, err
	}
	year, monthNum := month.Year(), int(month.Month())

	suggestion := s.modelSuggestion(ctx, userID, ym, year, monthNum)
	if suggestion == nil {
		suggestion, err = s.heuristicSuggestion(ctx, userID, ym, year, monthNum)
		if err != nil {
			return nil, err
		}
	}

	if err := s.cache.Set(ctx, key, suggestion, suggestionCacheTTL); err != nil {
		s.logger.Warn("failed to cache budget suggestion", slog.Any("error", err))
	}
	return suggestion, nil
}

// modelSuggestion returns nil when the model is disabled or fails.
func (s *Service) modelSuggestion(ctx context.Context, userID int64, ym string, year, month int) *Suggestion {
	if s.model == nil || !s.model.Enabled() {
		return nil
	}

	totals, err := s.repo.CategoryTotals(ctx, userID, year, month)
	if err != nil {
		s.logger.Warn("failed to load spend profile for model suggestion",
			slog.Any("error", err),
		)
		return nil
	}

	categories := make(map[string]float64, len(totals))
	for _, t := range totals {
		name := "uncat"
		if t.CategoryID != nil {
			name = strconv.FormatInt(*t.CategoryID, 10)
		}
		categories[name] = money.FloatFromCents(t.AmountCents)
	}

	suggestion, err := s.model.SuggestBudget(ctx, categories)
	if err != nil {
		s.logger.Warn("model budget suggestion failed, using heuristic",
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
		return nil
	}

	suggestion.Month = ym
	suggestion.Method = "gemini"
	return suggestion
}

// heuristicSuggestion budgets 90% of the month's spend, or a flat floor for
// users with no history, split 50/30/20.
func (s *Service) heuristicSuggestion(ctx context.Context, userID int64, ym string, year, month int) (*Suggestion, error) {
	totalCents, err := s.repo.MonthlyTotal(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}

	target := fallbackBudget
	if totalCents > 0 {
		target = money.FloatFromCents(totalCents) * 0.9
	}

	return &Suggestion{
		Month:          ym,
		SuggestedTotal: round2(target),
		Breakdown: Breakdown{
			Needs:   round2(target * 0.5),
			Wants:   round2(target * 0.3),
			Savings: round2(target * 0.2),
		},
		Method: "heuristic",
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
