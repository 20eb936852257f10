// Package handler exposes the ledger and statement-import HTTP endpoints.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finmind-app/finmind-api/internal/domain/expenses/repository"
	"github.com/finmind-app/finmind-api/internal/domain/expenses/service"
	"github.com/finmind-app/finmind-api/internal/domain/statements"
	"github.com/finmind-app/finmind-api/pkg/auth"
	"github.com/finmind-app/finmind-api/pkg/money"
	"github.com/finmind-app/finmind-api/pkg/render"
)

// maxUploadBytes bounds statement uploads read into memory.
const maxUploadBytes = 16 << 20

// ExpensesHandler implements the expense HTTP endpoints
type ExpensesHandler struct {
	svc    *service.ExpenseService
	logger *slog.Logger
}

// NewExpensesHandler constructs a new handler
func NewExpensesHandler(svc *service.ExpenseService, logger *slog.Logger) *ExpensesHandler {
	return &ExpensesHandler{svc: svc, logger: logger}
}

// List handles GET /expenses
func (h *ExpensesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		render.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	expenses, err := h.svc.List(r.Context(), userID, filter)
	if err != nil {
		h.serverError(w, "list expenses", err)
		return
	}
	render.JSON(w, http.StatusOK, expenses)
}

// Create handles POST /expenses
func (h *ExpensesHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body struct {
		Amount      *decimal.Decimal `json:"amount"`
		Currency    string           `json:"currency"`
		ExpenseType string           `json:"expense_type"`
		CategoryID  *int64           `json:"category_id"`
		Description string           `json:"description"`
		Notes       string           `json:"notes"`
		Date        string           `json:"date"`
		SpentAt     string           `json:"spent_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		render.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if body.Amount == nil {
		render.Error(w, http.StatusBadRequest, "invalid amount")
		return
	}
	description := strings.TrimSpace(coalesce(body.Description, body.Notes))
	if description == "" {
		render.Error(w, http.StatusBadRequest, "description required")
		return
	}

	spentAt := time.Now().UTC().Truncate(24 * time.Hour)
	if rawDate := coalesce(body.Date, body.SpentAt); rawDate != "" {
		parsed, err := time.Parse("2006-01-02", rawDate)
		if err != nil {
			render.Error(w, http.StatusBadRequest, "invalid date")
			return
		}
		spentAt = parsed
	}

	expense, err := h.svc.Create(r.Context(), userID, service.CreateExpenseInput{
		AmountCents: money.CentsFromDecimal(body.Amount.RoundBank(2)),
		Currency:    body.Currency,
		ExpenseType: body.ExpenseType,
		CategoryID:  body.CategoryID,
		Description: description,
		SpentAt:     spentAt,
	})
	if err != nil {
		h.serverError(w, "create expense", err)
		return
	}
	render.JSON(w, http.StatusCreated, expense)
}

// Update handles PATCH /expenses/{id}
func (h *ExpensesHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := pathID(r)
	if err != nil {
		render.Error(w, http.StatusBadRequest, "invalid id")
		return
	}

	// Patch semantics need field presence, so decode to raw messages first.
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		render.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	var in service.UpdateExpenseInput
	if msg, present := raw["amount"]; present {
		var amount decimal.Decimal
		if err := json.Unmarshal(msg, &amount); err != nil {
			render.Error(w, http.StatusBadRequest, "invalid amount")
			return
		}
		cents := money.CentsFromDecimal(amount.RoundBank(2))
		in.AmountCents = &cents
	}
	if msg, present := raw["currency"]; present {
		var currency string
		if err := json.Unmarshal(msg, &currency); err != nil {
			render.Error(w, http.StatusBadRequest, "invalid currency")
			return
		}
		in.Currency = &currency
	}
	if msg, present := raw["expense_type"]; present {
		var expenseType string
		if err := json.Unmarshal(msg, &expenseType); err != nil {
			render.Error(w, http.StatusBadRequest, "invalid expense_type")
			return
		}
		in.ExpenseType = &expenseType
	}
	if msg, present := raw["category_id"]; present {
		in.CategorySet = true
		if string(msg) != "null" {
			var categoryID int64
			if err := json.Unmarshal(msg, &categoryID); err != nil {
				render.Error(w, http.StatusBadRequest, "invalid category_id")
				return
			}
			in.CategoryID = &categoryID
		}
	}
	if description, present, err := patchDescription(raw); err != nil {
		render.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if present {
		in.Description = &description
	}
	if msg, present := firstPresent(raw, "date", "spent_at"); present {
		var rawDate string
		if err := json.Unmarshal(msg, &rawDate); err != nil {
			render.Error(w, http.StatusBadRequest, "invalid date")
			return
		}
		parsed, err := time.Parse("2006-01-02", rawDate)
		if err != nil {
			render.Error(w, http.StatusBadRequest, "invalid date")
			return
		}
		in.SpentAt = &parsed
	}

	expense, err := h.svc.Update(r.Context(), userID, id, in)
	if errors.Is(err, sql.ErrNoRows) {
		render.Error(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.serverError(w, "update expense", err)
		return
	}
	render.JSON(w, http.StatusOK, expense)
}

// Delete handles DELETE /expenses/{id}
func (h *ExpensesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := pathID(r)
	if err != nil {
		render.Error(w, http.StatusBadRequest, "invalid id")
		return
	}

	err = h.svc.Delete(r.Context(), userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		render.Error(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.serverError(w, "delete expense", err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// ImportPreview handles POST /expenses/import/preview
func (h *ExpensesHandler) ImportPreview(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		render.Error(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.serverError(w, "read statement upload", err)
		return
	}

	preview, err := h.svc.PreviewImport(r.Context(), userID, header.Filename, header.Header.Get("Content-Type"), data)
	if errors.Is(err, statements.ErrUnsupportedFormat) || errors.Is(err, statements.ErrNoReadableText) {
		render.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("statement preview failed",
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
		render.Error(w, http.StatusInternalServerError, fmt.Sprintf("failed to parse statement: %v", err))
		return
	}
	render.JSON(w, http.StatusOK, preview)
}

// ImportCommit handles POST /expenses/import/commit
func (h *ExpensesHandler) ImportCommit(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body struct {
		Transactions []statements.RawRow `json:"transactions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		render.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(body.Transactions) == 0 {
		render.Error(w, http.StatusBadRequest, "transactions required")
		return
	}

	result, err := h.svc.CommitImport(r.Context(), userID, body.Transactions)
	if err != nil {
		h.serverError(w, "commit import", err)
		return
	}
	render.JSON(w, http.StatusCreated, result)
}

// Export handles GET /expenses/export
func (h *ExpensesHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter, err := parseListFilter(r)
	if err != nil {
		render.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := h.svc.ExportXLSX(r.Context(), userID, filter)
	if err != nil {
		h.serverError(w, "export expenses", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *ExpensesHandler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("expense operation failed",
		slog.String("op", op),
		slog.Any("error", err),
	)
	render.Error(w, http.StatusInternalServerError, "internal error")
}

func parseListFilter(r *http.Request) (repository.ListFilter, error) {
	var filter repository.ListFilter
	q := r.URL.Query()

	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, errors.New("invalid filter values")
		}
		filter.From = &from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, errors.New("invalid filter values")
		}
		filter.To = &to
	}
	if raw := q.Get("category_id"); raw != "" {
		categoryID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, errors.New("invalid filter values")
		}
		filter.CategoryID = &categoryID
	}
	filter.Search = strings.TrimSpace(q.Get("search"))

	var err error
	if filter.Page, err = parsePositiveInt(q.Get("page"), 1); err != nil {
		return filter, errors.New("invalid pagination")
	}
	if filter.PageSize, err = parsePositiveInt(q.Get("page_size"), 200); err != nil {
		return filter, errors.New("invalid pagination")
	}
	return filter, nil
}

func parsePositiveInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v < 1 {
		v = 1
	}
	return v, nil
}

func patchDescription(raw map[string]json.RawMessage) (string, bool, error) {
	msg, present := firstPresent(raw, "description", "notes")
	if !present {
		return "", false, nil
	}
	var description string
	if err := json.Unmarshal(msg, &description); err != nil {
		return "", false, errors.New("invalid description")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return "", false, errors.New("description required")
	}
	return description, true, nil
}

func firstPresent(raw map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		if msg, present := raw[key]; present {
			return msg, true
		}
	}
	return nil, false
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
