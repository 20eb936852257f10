package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finmind-app/finmind-api/internal/domain/expenses/repository"
	"github.com/finmind-app/finmind-api/internal/domain/expenses/service"
	"github.com/finmind-app/finmind-api/internal/domain/statements"
	"github.com/finmind-app/finmind-api/pkg/auth"
	"github.com/finmind-app/finmind-api/pkg/metrics"
)

type memRepo struct {
	expenses []*repository.Expense
	nextID   int64
}

func (m *memRepo) Create(_ context.Context, e *repository.Expense) error {
	m.nextID++
	e.ID = m.nextID
	stored := *e
	m.expenses = append(m.expenses, &stored)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, userID, id int64) (*repository.Expense, error) {
	for _, e := range m.expenses {
		if e.ID == id && e.UserID == userID {
			found := *e
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memRepo) List(_ context.Context, userID int64, _ repository.ListFilter) ([]*repository.Expense, error) {
	var out []*repository.Expense
	for _, e := range m.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memRepo) Update(_ context.Context, updated *repository.Expense) error {
	for i, e := range m.expenses {
		if e.ID == updated.ID && e.UserID == updated.UserID {
			stored := *updated
			m.expenses[i] = &stored
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memRepo) Delete(_ context.Context, userID, id int64) error {
	for i, e := range m.expenses {
		if e.ID == id && e.UserID == userID {
			m.expenses = append(m.expenses[:i], m.expenses[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memRepo) ExistsByFingerprint(_ context.Context, userID int64, spentAt time.Time, amountCents int64, notes string) (bool, error) {
	for _, e := range m.expenses {
		if e.UserID == userID && e.SpentAt.Equal(spentAt) && e.AmountCents == amountCents && e.Notes == notes {
			return true, nil
		}
	}
	return false, nil
}

type noopInvalidator struct{}

func (noopInvalidator) DeletePatterns(context.Context, ...string) {}

func newTestMux(t *testing.T, repo *memRepo) *http.ServeMux {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	extractor := statements.NewExtractor(nil, logger)
	svc := service.NewExpenseService(repo, extractor, noopInvalidator{}, metrics.New(), logger)
	h := NewExpensesHandler(svc, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /expenses", h.List)
	mux.HandleFunc("POST /expenses", h.Create)
	mux.HandleFunc("PATCH /expenses/{id}", h.Update)
	mux.HandleFunc("DELETE /expenses/{id}", h.Delete)
	mux.HandleFunc("POST /expenses/import/preview", h.ImportPreview)
	mux.HandleFunc("POST /expenses/import/commit", h.ImportCommit)
	mux.HandleFunc("GET /expenses/export", h.Export)
	return mux
}

func doJSON(mux *http.ServeMux, method, target string, userID int64, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(auth.WithUserID(req.Context(), userID))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateExpense(t *testing.T) {
	t.Run("creates with defaults", func(t *testing.T) {
		repo := &memRepo{}
		mux := newTestMux(t, repo)

		rec := doJSON(mux, http.MethodPost, "/expenses", 7,
			`{"amount": 4.5, "description": "Coffee", "date": "2026-02-10"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp service.ExpenseResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 4.50, resp.Amount)
		assert.Equal(t, "USD", resp.Currency)
		assert.Equal(t, "EXPENSE", resp.ExpenseType)
		assert.Equal(t, "2026-02-10", resp.Date)
	})

	t.Run("accepts string amounts and notes alias", func(t *testing.T) {
		repo := &memRepo{}
		mux := newTestMux(t, repo)

		rec := doJSON(mux, http.MethodPost, "/expenses", 7,
			`{"amount": "12.00", "notes": "Lunch", "spent_at": "2026-02-11"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		require.Len(t, repo.expenses, 1)
		assert.Equal(t, "Lunch", repo.expenses[0].Notes)
		assert.Equal(t, int64(1200), repo.expenses[0].AmountCents)
	})

	t.Run("missing amount", func(t *testing.T) {
		rec := doJSON(newTestMux(t, &memRepo{}), http.MethodPost, "/expenses", 7,
			`{"description": "Coffee"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("blank description", func(t *testing.T) {
		rec := doJSON(newTestMux(t, &memRepo{}), http.MethodPost, "/expenses", 7,
			`{"amount": 1, "description": "   "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListExpenses(t *testing.T) {
	repo := &memRepo{}
	mux := newTestMux(t, repo)
	spentAt := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(context.Background(), &repository.Expense{
		UserID: 7, AmountCents: 450, Currency: "USD", ExpenseType: "EXPENSE",
		Notes: "Coffee", SpentAt: spentAt,
	}))

	t.Run("returns the user's entries", func(t *testing.T) {
		rec := doJSON(mux, http.MethodGet, "/expenses", 7, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp []service.ExpenseResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		assert.Equal(t, "Coffee", resp[0].Description)
	})

	t.Run("invalid pagination", func(t *testing.T) {
		rec := doJSON(mux, http.MethodGet, "/expenses?page=abc", 7, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid date filter", func(t *testing.T) {
		rec := doJSON(mux, http.MethodGet, "/expenses?from=notadate", 7, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateExpense(t *testing.T) {
	catID := int64(3)
	spentAt := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &memRepo{}
	mux := newTestMux(t, repo)
	require.NoError(t, repo.Create(context.Background(), &repository.Expense{
		UserID: 7, AmountCents: 450, Currency: "USD", ExpenseType: "EXPENSE",
		Notes: "Coffee", SpentAt: spentAt, CategoryID: &catID,
	}))

	t.Run("patches amount only", func(t *testing.T) {
		rec := doJSON(mux, http.MethodPatch, "/expenses/1", 7, `{"amount": 5}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp service.ExpenseResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 5.00, resp.Amount)
		assert.Equal(t, "Coffee", resp.Description)
	})

	t.Run("null clears the category", func(t *testing.T) {
		rec := doJSON(mux, http.MethodPatch, "/expenses/1", 7, `{"category_id": null}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp service.ExpenseResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Nil(t, resp.CategoryID)
	})

	t.Run("blank description rejected", func(t *testing.T) {
		rec := doJSON(mux, http.MethodPatch, "/expenses/1", 7, `{"description": ""}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("other user's expense is not found", func(t *testing.T) {
		rec := doJSON(mux, http.MethodPatch, "/expenses/1", 8, `{"amount": 5}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDeleteExpense(t *testing.T) {
	repo := &memRepo{}
	mux := newTestMux(t, repo)
	require.NoError(t, repo.Create(context.Background(), &repository.Expense{
		UserID: 7, AmountCents: 450, Notes: "Coffee",
		SpentAt: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	}))

	rec := doJSON(mux, http.MethodDelete, "/expenses/1", 7, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(mux, http.MethodDelete, "/expenses/1", 7, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartUpload(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
	if contentType != "" {
		header["Content-Type"] = []string{contentType}
	}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImportPreview(t *testing.T) {
	t.Run("csv upload", func(t *testing.T) {
		mux := newTestMux(t, &memRepo{})
		body, contentType := multipartUpload(t, "file", "statement.csv", "text/csv",
			[]byte("date,amount,description\n2026-02-10,4.50,Coffee Shop\n"))

		req := httptest.NewRequest(http.MethodPost, "/expenses/import/preview", body)
		req.Header.Set("Content-Type", contentType)
		req = req.WithContext(auth.WithUserID(req.Context(), 7))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var preview service.ImportPreview
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
		assert.Equal(t, 1, preview.Total)
		assert.Zero(t, preview.Duplicates)
	})

	t.Run("unsupported format", func(t *testing.T) {
		mux := newTestMux(t, &memRepo{})
		body, contentType := multipartUpload(t, "file", "statement.txt", "text/plain",
			[]byte("2026-02-10 Coffee 4.50"))

		req := httptest.NewRequest(http.MethodPost, "/expenses/import/preview", body)
		req.Header.Set("Content-Type", contentType)
		req = req.WithContext(auth.WithUserID(req.Context(), 7))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		rec := doJSON(newTestMux(t, &memRepo{}), http.MethodPost, "/expenses/import/preview", 7, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestImportCommit(t *testing.T) {
	t.Run("inserts rows", func(t *testing.T) {
		repo := &memRepo{}
		mux := newTestMux(t, repo)

		rec := doJSON(mux, http.MethodPost, "/expenses/import/commit", 7,
			`{"transactions": [{"date": "2026-02-10", "amount": "4.50", "description": "Coffee Shop"}]}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var result service.ImportResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, 1, result.Inserted)
		assert.Len(t, repo.expenses, 1)
	})

	t.Run("empty transactions rejected", func(t *testing.T) {
		rec := doJSON(newTestMux(t, &memRepo{}), http.MethodPost, "/expenses/import/commit", 7,
			`{"transactions": []}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestExport(t *testing.T) {
	repo := &memRepo{}
	mux := newTestMux(t, repo)
	require.NoError(t, repo.Create(context.Background(), &repository.Expense{
		UserID: 7, AmountCents: 450, Currency: "USD", ExpenseType: "EXPENSE",
		Notes: "Coffee", SpentAt: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	}))

	rec := doJSON(mux, http.MethodGet, "/expenses/export", 7, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Equal(t, "PK", rec.Body.String()[:2])
}
