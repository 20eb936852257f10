package bills

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finmind-app/finmind-api/pkg/auth"
	"github.com/finmind-app/finmind-api/pkg/money"
	"github.com/finmind-app/finmind-api/pkg/render"
)

// Handler implements the bill HTTP endpoints
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler constructs a new handler
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// List handles GET /bills
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bills, err := h.svc.List(r.Context(), userID)
	if err != nil {
		h.serverError(w, "list bills", err)
		return
	}
	if bills == nil {
		bills = []BillResponse{}
	}
	render.JSON(w, http.StatusOK, bills)
}

// Create handles POST /bills
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body struct {
		Name            string           `json:"name"`
		Amount          *decimal.Decimal `json:"amount"`
		Currency        string           `json:"currency"`
		NextDueDate     string           `json:"next_due_date"`
		Cadence         string           `json:"cadence"`
		ChannelWhatsapp bool             `json:"channel_whatsapp"`
		ChannelEmail    *bool            `json:"channel_email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		render.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		render.Error(w, http.StatusBadRequest, "name required")
		return
	}
	if body.Amount == nil {
		render.Error(w, http.StatusBadRequest, "invalid amount")
		return
	}
	dueDate, err := time.Parse("2006-01-02", body.NextDueDate)
	if err != nil {
		render.Error(w, http.StatusBadRequest, "invalid next_due_date")
		return
	}

	// Email notifications default on, matching the schema default.
	channelEmail := true
	if body.ChannelEmail != nil {
		channelEmail = *body.ChannelEmail
	}

	bill, err := h.svc.Create(r.Context(), userID, CreateBillInput{
		Name:            name,
		AmountCents:     money.CentsFromDecimal(body.Amount.RoundBank(2)),
		Currency:        body.Currency,
		NextDueDate:     dueDate,
		Cadence:         body.Cadence,
		ChannelWhatsapp: body.ChannelWhatsapp,
		ChannelEmail:    channelEmail,
	})
	if errors.Is(err, ErrInvalidCadence) {
		render.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.serverError(w, "create bill", err)
		return
	}
	render.JSON(w, http.StatusCreated, bill)
}

// Pay handles POST /bills/{id}/pay
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
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

	err = h.svc.Pay(r.Context(), userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		render.Error(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.serverError(w, "pay bill", err)
		return
	}
	render.JSON(w, http.StatusOK, map[string]string{"message": "updated"})
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("bill operation failed",
		slog.String("op", op),
		slog.Any("error", err),
	)
	render.Error(w, http.StatusInternalServerError, "internal error")
}
