package insights

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/finmind-app/finmind-api/pkg/auth"
	"github.com/finmind-app/finmind-api/pkg/render"
)

// Handler implements the insight HTTP endpoints
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler constructs a new handler
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// BudgetSuggestion handles GET /insights/budget-suggestion
func (h *Handler) BudgetSuggestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ym := strings.TrimSpace(r.URL.Query().Get("month"))
	if ym == "" {
		ym = time.Now().UTC().Format("2006-01")
	}
	if _, err := time.Parse("2006-01", ym); err != nil {
		render.Error(w, http.StatusBadRequest, "invalid month, expected YYYY-MM")
		return
	}

	suggestion, err := h.svc.BudgetSuggestion(r.Context(), userID, ym)
	if err != nil {
		h.logger.Error("budget suggestion failed",
			slog.Int64("user_id", userID),
			slog.Any("error", err),
		)
		render.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	render.JSON(w, http.StatusOK, suggestion)
}
