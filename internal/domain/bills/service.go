package bills

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/finmind-app/finmind-api/pkg/cache"
	"github.com/finmind-app/finmind-api/pkg/money"
)

// ErrInvalidCadence is returned for cadence values outside the known set.
var ErrInvalidCadence = errors.New("invalid cadence")

const listCacheTTL = 5 * time.Minute

// ListCache caches the per-user upcoming bill list. *cache.Cache satisfies it.
type ListCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DeletePatterns(ctx context.Context, patterns ...string)
}

// Service implements bill operations
type Service struct {
	repo   Repository
	cache  ListCache
	logger *slog.Logger
}

// NewService creates a new bill service
func NewService(repo Repository, listCache ListCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: listCache, logger: logger}
}

// BillResponse is the wire shape of a bill
type BillResponse struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	NextDueDate     string  `json:"next_due_date"`
	Cadence         string  `json:"cadence"`
	ChannelWhatsapp bool    `json:"channel_whatsapp"`
	ChannelEmail    bool    `json:"channel_email"`
}

// CreateBillInput is a validated create request
type CreateBillInput struct {
	Name            string
	AmountCents     int64
	Currency        string
	NextDueDate     time.Time
	Cadence         string
	ChannelWhatsapp bool
	ChannelEmail    bool
}

// List returns the user's active bills ordered by due date
func (s *Service) List(ctx context.Context, userID int64) ([]BillResponse, error) {
	key := cache.UpcomingBillsKey(userID)
	var cached []BillResponse
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	bills, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]BillResponse, 0, len(bills))
	for _, b := range bills {
		responses = append(responses, toResponse(b))
	}

	if err := s.cache.Set(ctx, key, responses, listCacheTTL); err != nil {
		s.logger.Warn("failed to cache bills", slog.Any("error", err))
	}
	return responses, nil
}

// Create inserts an active bill
func (s *Service) Create(ctx context.Context, userID int64, in CreateBillInput) (*BillResponse, error) {
	cadence := in.Cadence
	if cadence == "" {
		cadence = CadenceMonthly
	}
	if !validCadence(cadence) {
		return nil, ErrInvalidCadence
	}
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	bill := &Bill{
		UserID:          userID,
		Name:            in.Name,
		AmountCents:     in.AmountCents,
		Currency:        currency,
		NextDueDate:     in.NextDueDate,
		Cadence:         cadence,
		ChannelWhatsapp: in.ChannelWhatsapp,
		ChannelEmail:    in.ChannelEmail,
		Active:          true,
	}
	if err := s.repo.Create(ctx, bill); err != nil {
		return nil, err
	}

	s.logger.Info("created bill",
		slog.Int64("id", bill.ID),
		slog.Int64("user_id", userID),
		slog.String("cadence", bill.Cadence),
	)
	s.cache.DeletePatterns(ctx, cache.UpcomingBillsPattern(userID))

	resp := toResponse(bill)
	return &resp, nil
}

// Pay advances the bill's due date by its cadence. A one-off bill is
// deactivated instead.
func (s *Service) Pay(ctx context.Context, userID, id int64) error {
	bill, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}

	switch bill.Cadence {
	case CadenceMonthly:
		bill.NextDueDate = bill.NextDueDate.AddDate(0, 0, 30)
	case CadenceWeekly:
		bill.NextDueDate = bill.NextDueDate.AddDate(0, 0, 7)
	case CadenceYearly:
		bill.NextDueDate = bill.NextDueDate.AddDate(0, 0, 365)
	default:
		bill.Active = false
	}

	if err := s.repo.Update(ctx, bill); err != nil {
		return err
	}

	s.logger.Info("marked bill paid",
		slog.Int64("id", bill.ID),
		slog.Int64("user_id", userID),
		slog.Bool("active", bill.Active),
	)
	s.cache.DeletePatterns(ctx, cache.UpcomingBillsPattern(userID))
	return nil
}

// Upcoming returns up to limit active bills due on or after from
func (s *Service) Upcoming(ctx context.Context, userID int64, from time.Time, limit int) ([]BillResponse, error) {
	bills, err := s.repo.Upcoming(ctx, userID, from, limit)
	if err != nil {
		return nil, err
	}
	responses := make([]BillResponse, 0, len(bills))
	for _, b := range bills {
		responses = append(responses, toResponse(b))
	}
	return responses, nil
}

func validCadence(cadence string) bool {
	switch cadence {
	case CadenceMonthly, CadenceWeekly, CadenceYearly, CadenceOnce:
		return true
	}
	return false
}

func toResponse(b *Bill) BillResponse {
	return BillResponse{
		ID:              b.ID,
		Name:            b.Name,
		Amount:          money.FloatFromCents(b.AmountCents),
		Currency:        b.Currency,
		NextDueDate:     b.NextDueDate.Format("2006-01-02"),
		Cadence:         b.Cadence,
		ChannelWhatsapp: b.ChannelWhatsapp,
		ChannelEmail:    b.ChannelEmail,
	}
}
