package reminders

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/finmind-app/finmind-api/pkg/auth"
	"github.com/finmind-app/finmind-api/pkg/render"
)

// Handler implements the reminder HTTP endpoints
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler constructs a new handler
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// List handles GET /reminders
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reminders, err := h.svc.List(r.Context(), userID)
	if err != nil {
		h.serverError(w, "list reminders", err)
		return
	}
	if reminders == nil {
		reminders = []*Reminder{}
	}
	render.JSON(w, http.StatusOK, reminders)
}

// Create handles POST /reminders
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body struct {
		BillID  *int64 `json:"bill_id"`
		Message string `json:"message"`
		SendAt  string `json:"send_at"`
		Channel string `json:"channel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		render.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	message := strings.TrimSpace(body.Message)
	if message == "" {
		render.Error(w, http.StatusBadRequest, "message required")
		return
	}
	sendAt, err := parseSendAt(body.SendAt)
	if err != nil {
		render.Error(w, http.StatusBadRequest, "invalid send_at")
		return
	}

	reminder, err := h.svc.Create(r.Context(), userID, body.BillID, message, sendAt, body.Channel)
	if err != nil {
		h.serverError(w, "create reminder", err)
		return
	}
	render.JSON(w, http.StatusCreated, reminder)
}

// Run handles POST /reminders/run
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	processed, err := h.svc.RunDueForUser(r.Context(), userID)
	if err != nil {
		h.serverError(w, "run due reminders", err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]int{"processed": processed})
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("reminder operation failed",
		slog.String("op", op),
		slog.Any("error", err),
	)
	render.Error(w, http.StatusInternalServerError, "internal error")
}

// parseSendAt accepts RFC 3339 timestamps with or without a zone offset.
func parseSendAt(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", raw)
}
