// Package server wires the HTTP surface: routing, auth, CORS, rate
// limiting and request instrumentation.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/finmind-app/finmind-api/internal/domain/bills"
	"github.com/finmind-app/finmind-api/internal/domain/categories"
	"github.com/finmind-app/finmind-api/internal/domain/dashboard"
	expenseshandler "github.com/finmind-app/finmind-api/internal/domain/expenses/handler"
	"github.com/finmind-app/finmind-api/internal/domain/insights"
	"github.com/finmind-app/finmind-api/internal/domain/reminders"
	"github.com/finmind-app/finmind-api/pkg/auth"
	"github.com/finmind-app/finmind-api/pkg/config"
	"github.com/finmind-app/finmind-api/pkg/metrics"
	"github.com/finmind-app/finmind-api/pkg/render"
)

// Handlers collects the domain handlers the server routes to.
type Handlers struct {
	Expenses   *expenseshandler.ExpensesHandler
	Categories *categories.Handler
	Bills      *bills.Handler
	Reminders  *reminders.Handler
	Dashboard  *dashboard.Handler
	Insights   *insights.Handler
}

// Server is the HTTP front of the API.
type Server struct {
	cfg           config.ServerConfig
	logger        *slog.Logger
	metrics       *metrics.Metrics
	authenticator *auth.Authenticator
	handlers      Handlers
	httpServer    *http.Server
}

// New builds the server. Call Start to begin serving.
func New(cfg config.ServerConfig, logger *slog.Logger, m *metrics.Metrics, authenticator *auth.Authenticator, handlers Handlers) *Server {
	s := &Server{
		cfg:           cfg,
		logger:        logger,
		metrics:       m,
		authenticator: authenticator,
		handlers:      handlers,
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	mux := s.routes()

	var handler http.Handler = mux
	handler = s.observe(mux, handler)
	handler = s.rateLimit(handler)
	handler = s.requestID(handler)
	handler = cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(handler)
	return handler
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", s.metrics.Handler())

	api := http.NewServeMux()
	h := s.handlers

	api.HandleFunc("GET /api/v1/expenses", h.Expenses.List)
	api.HandleFunc("POST /api/v1/expenses", h.Expenses.Create)
	api.HandleFunc("PATCH /api/v1/expenses/{id}", h.Expenses.Update)
	api.HandleFunc("DELETE /api/v1/expenses/{id}", h.Expenses.Delete)
	api.HandleFunc("POST /api/v1/expenses/import/preview", h.Expenses.ImportPreview)
	api.HandleFunc("POST /api/v1/expenses/import/commit", h.Expenses.ImportCommit)
	api.HandleFunc("GET /api/v1/expenses/export", h.Expenses.Export)

	api.HandleFunc("GET /api/v1/categories", h.Categories.List)
	api.HandleFunc("POST /api/v1/categories", h.Categories.Create)
	api.HandleFunc("PATCH /api/v1/categories/{id}", h.Categories.Update)
	api.HandleFunc("DELETE /api/v1/categories/{id}", h.Categories.Delete)
	api.HandleFunc("GET /api/v1/categories/suggest", h.Categories.Suggest)

	api.HandleFunc("GET /api/v1/bills", h.Bills.List)
	api.HandleFunc("POST /api/v1/bills", h.Bills.Create)
	api.HandleFunc("POST /api/v1/bills/{id}/pay", h.Bills.Pay)

	api.HandleFunc("GET /api/v1/reminders", h.Reminders.List)
	api.HandleFunc("POST /api/v1/reminders", h.Reminders.Create)
	api.HandleFunc("POST /api/v1/reminders/run", h.Reminders.Run)

	api.HandleFunc("GET /api/v1/dashboard/summary", h.Dashboard.Summary)
	api.HandleFunc("GET /api/v1/insights/budget-suggestion", h.Insights.BudgetSuggestion)

	mux.Handle("/api/v1/", s.authenticator.Middleware(api))
	return mux
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
