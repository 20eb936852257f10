package insights

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	totalCents int64
	totals     []CategoryTotal
	err        error
}

func (f *fakeRepo) MonthlyTotal(context.Context, int64, int, int) (int64, error) {
	return f.totalCents, f.err
}

func (f *fakeRepo) CategoryTotals(context.Context, int64, int, int) ([]CategoryTotal, error) {
	return f.totals, f.err
}

type fakeModel struct {
	enabled    bool
	suggestion *Suggestion
	err        error
	profiles   []map[string]float64
}

func (f *fakeModel) Enabled() bool { return f.enabled }

func (f *fakeModel) SuggestBudget(_ context.Context, categories map[string]float64) (*Suggestion, error) {
	f.profiles = append(f.profiles, categories)
	return f.suggestion, f.err
}

type fakeCache struct {
	sets map[string]any
}

func (f *fakeCache) Get(context.Context, string, any) (bool, error) { return false, nil }

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if f.sets == nil {
		f.sets = map[string]any{}
	}
	f.sets[key] = value
	return nil
}

func newTestService(repo *fakeRepo, model *fakeModel) (*Service, *fakeCache) {
	fc := &fakeCache{}
	return NewService(repo, model, fc, slog.New(slog.NewTextHandler(io.Discard, nil))), fc
}

func TestBudgetSuggestionHeuristic(t *testing.T) {
	t.Run("budgets 90 percent of last spend", func(t *testing.T) {
		svc, fc := newTestService(&fakeRepo{totalCents: 100000}, &fakeModel{})

		suggestion, err := svc.BudgetSuggestion(context.Background(), 7, "2026-02")
		require.NoError(t, err)

		assert.Equal(t, "heuristic", suggestion.Method)
		assert.Equal(t, 900.00, suggestion.SuggestedTotal)
		assert.Equal(t, Breakdown{Needs: 450.00, Wants: 270.00, Savings: 180.00}, suggestion.Breakdown)
		assert.Contains(t, fc.sets, "insights:7:2026-02")
	})

	t.Run("no history gets the floor budget", func(t *testing.T) {
		svc, _ := newTestService(&fakeRepo{totalCents: 0}, &fakeModel{})

		suggestion, err := svc.BudgetSuggestion(context.Background(), 7, "2026-02")
		require.NoError(t, err)
		assert.Equal(t, 500.00, suggestion.SuggestedTotal)
		assert.Equal(t, Breakdown{Needs: 250.00, Wants: 150.00, Savings: 100.00}, suggestion.Breakdown)
	})
}

func TestBudgetSuggestionModel(t *testing.T) {
	catID := int64(3)
	repo := &fakeRepo{
		totalCents: 100000,
		totals: []CategoryTotal{
			{CategoryID: &catID, AmountCents: 60000},
			{CategoryID: nil, AmountCents: 40000},
		},
	}

	t.Run("model suggestion wins when it succeeds", func(t *testing.T) {
		model := &fakeModel{enabled: true, suggestion: &Suggestion{
			SuggestedTotal: 850.00,
			Breakdown:      Breakdown{Needs: 425.00, Wants: 255.00, Savings: 170.00},
			Tips:           []string{"Cook at home twice a week"},
		}}
		svc, _ := newTestService(repo, model)

		suggestion, err := svc.BudgetSuggestion(context.Background(), 7, "2026-02")
		require.NoError(t, err)
		assert.Equal(t, "gemini", suggestion.Method)
		assert.Equal(t, "2026-02", suggestion.Month)
		assert.Equal(t, 850.00, suggestion.SuggestedTotal)

		require.Len(t, model.profiles, 1)
		assert.Equal(t, map[string]float64{"3": 600.00, "uncat": 400.00}, model.profiles[0])
	})

	t.Run("model failure falls back to heuristic", func(t *testing.T) {
		model := &fakeModel{enabled: true, err: errors.New("quota exceeded")}
		svc, _ := newTestService(repo, model)

		suggestion, err := svc.BudgetSuggestion(context.Background(), 7, "2026-02")
		require.NoError(t, err)
		assert.Equal(t, "heuristic", suggestion.Method)
	})

	t.Run("disabled model never gets called", func(t *testing.T) {
		model := &fakeModel{enabled: false}
		svc, _ := newTestService(repo, model)

		_, err := svc.BudgetSuggestion(context.Background(), 7, "2026-02")
		require.NoError(t, err)
		assert.Empty(t, model.profiles)
	})
}

func TestGeminiSuggester(t *testing.T) {
	newTestSuggester := func(t *testing.T, handler http.HandlerFunc) *GeminiSuggester {
		t.Helper()
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		g := NewGeminiSuggester("test-key", "", 5*time.Second)
		g.baseURL = srv.URL
		return g
	}

	reply := func(text string) []byte {
		return []byte(`{"candidates":[{"content":{"parts":[{"text":` + jsonString(text) + `}]}}]}`)
	}

	t.Run("fenced object output", func(t *testing.T) {
		g := newTestSuggester(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write(reply("```json\n{\"suggested_total\": 900, \"breakdown\": {\"needs\": 450, \"wants\": 270, \"savings\": 180}, \"tips\": [\"tip one\", \"tip two\"]}\n```"))
		})

		suggestion, err := g.SuggestBudget(context.Background(), map[string]float64{"uncat": 1000})
		require.NoError(t, err)
		assert.Equal(t, 900.00, suggestion.SuggestedTotal)
		assert.Len(t, suggestion.Tips, 2)
	})

	t.Run("output without a usable total is rejected", func(t *testing.T) {
		g := newTestSuggester(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write(reply(`{"note": "no budget here"}`))
		})
		_, err := g.SuggestBudget(context.Background(), nil)
		assert.Error(t, err)
	})

	t.Run("disabled without key", func(t *testing.T) {
		g := NewGeminiSuggester("", "", 0)
		assert.False(t, g.Enabled())
	})
}

func jsonString(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}
