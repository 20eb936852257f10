package categories

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finmind-app/finmind-api/pkg/auth"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	svc, _ := newTestService(&fakeRepo{})
	h := NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /categories", h.List)
	mux.HandleFunc("POST /categories", h.Create)
	mux.HandleFunc("PATCH /categories/{id}", h.Update)
	mux.HandleFunc("DELETE /categories/{id}", h.Delete)
	mux.HandleFunc("GET /categories/suggest", h.Suggest)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(auth.WithUserID(req.Context(), 7))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateConflict(t *testing.T) {
	mux := newTestMux(t)

	rec := do(mux, http.MethodPost, "/categories", `{"name": "Groceries"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(mux, http.MethodPost, "/categories", `{"name": "Groceries"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerValidation(t *testing.T) {
	mux := newTestMux(t)

	t.Run("blank name", func(t *testing.T) {
		rec := do(mux, http.MethodPost, "/categories", `{"name": "  "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing suggest query", func(t *testing.T) {
		rec := do(mux, http.MethodGet, "/categories/suggest", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty list is a json array", func(t *testing.T) {
		rec := do(mux, http.MethodGet, "/categories", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
	})

	t.Run("delete unknown id", func(t *testing.T) {
		rec := do(mux, http.MethodDelete, "/categories/99", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
