package categories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/finmind-app/finmind-api/pkg/auth"
	"github.com/finmind-app/finmind-api/pkg/render"
)

// Handler implements the category HTTP endpoints
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler constructs a new handler
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// List handles GET /categories
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	categories, err := h.svc.List(r.Context(), userID)
	if err != nil {
		h.serverError(w, "list categories", err)
		return
	}
	if categories == nil {
		categories = []*Category{}
	}
	render.JSON(w, http.StatusOK, categories)
}

// Create handles POST /categories
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	name, ok := decodeName(w, r)
	if !ok {
		return
	}

	category, err := h.svc.Create(r.Context(), userID, name)
	if errors.Is(err, ErrCategoryExists) {
		render.Error(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.serverError(w, "create category", err)
		return
	}
	render.JSON(w, http.StatusCreated, category)
}

// Update handles PATCH /categories/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		render.Error(w, http.StatusBadRequest, "invalid id")
		return
	}

	name, ok := decodeName(w, r)
	if !ok {
		return
	}

	category, err := h.svc.Rename(r.Context(), userID, id, name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		render.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrCategoryExists):
		render.Error(w, http.StatusConflict, err.Error())
	case err != nil:
		h.serverError(w, "update category", err)
	default:
		render.JSON(w, http.StatusOK, category)
	}
}

// Delete handles DELETE /categories/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
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
		h.serverError(w, "delete category", err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// Suggest handles GET /categories/suggest
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		render.Error(w, http.StatusBadRequest, "q required")
		return
	}

	suggestions, err := h.svc.Suggest(r.Context(), userID, query)
	if err != nil {
		h.serverError(w, "suggest categories", err)
		return
	}
	render.JSON(w, http.StatusOK, suggestions)
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("category operation failed",
		slog.String("op", op),
		slog.Any("error", err),
	)
	render.Error(w, http.StatusInternalServerError, "internal error")
}

func decodeName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		render.Error(w, http.StatusBadRequest, "invalid json")
		return "", false
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		render.Error(w, http.StatusBadRequest, "name required")
		return "", false
	}
	return name, true
}
