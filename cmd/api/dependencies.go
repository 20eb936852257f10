package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/finmind-app/finmind-api/internal/domain/bills"
	"github.com/finmind-app/finmind-api/internal/domain/categories"
	"github.com/finmind-app/finmind-api/internal/domain/dashboard"
	expenseshandler "github.com/finmind-app/finmind-api/internal/domain/expenses/handler"
	expensesrepo "github.com/finmind-app/finmind-api/internal/domain/expenses/repository"
	expensesservice "github.com/finmind-app/finmind-api/internal/domain/expenses/service"
	"github.com/finmind-app/finmind-api/internal/domain/insights"
	"github.com/finmind-app/finmind-api/internal/domain/reminders"
	"github.com/finmind-app/finmind-api/internal/domain/statements"
	"github.com/finmind-app/finmind-api/internal/server"
	"github.com/finmind-app/finmind-api/pkg/auth"
	"github.com/finmind-app/finmind-api/pkg/cache"
	"github.com/finmind-app/finmind-api/pkg/config"
	"github.com/finmind-app/finmind-api/pkg/cron"
	"github.com/finmind-app/finmind-api/pkg/db"
	"github.com/finmind-app/finmind-api/pkg/metrics"
)

const tokenTTL = 24 * time.Hour

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger

	DB            *db.DB
	Cache         *cache.Cache
	Metrics       *metrics.Metrics
	Authenticator *auth.Authenticator
	Extractor     *statements.Extractor
	Scheduler     *cron.Scheduler

	// Repositories
	ExpensesRepo   expensesrepo.ExpenseRepository
	CategoriesRepo categories.Repository
	BillsRepo      bills.Repository
	RemindersRepo  reminders.Repository
	DashboardRepo  dashboard.Repository
	InsightsRepo   insights.Repository

	// Services
	ExpensesService   *expensesservice.ExpenseService
	CategoriesService *categories.Service
	BillsService      *bills.Service
	RemindersService  *reminders.Service
	DashboardService  *dashboard.Service
	InsightsService   *insights.Service

	// Handlers
	Handlers server.Handlers
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}
	deps.initRepositories()
	deps.initServices()
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initInfrastructure connects the database and cache and builds the shared
// collaborators.
func (d *Dependencies) initInfrastructure() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	d.Logger.Info("database connected and migrations completed successfully")

	redisCache, err := cache.New(d.Config.Redis.Addr, d.Config.Redis.Password, d.Config.Redis.DB, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	d.Cache = redisCache

	if d.Config.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	d.Authenticator = auth.NewAuthenticator(d.Config.Auth.JWTSecret, tokenTTL)

	d.Metrics = metrics.New()

	model := statements.NewGeminiExtractor(d.Config.Gemini.APIKey, d.Config.Gemini.Model, d.Config.Gemini.Timeout)
	if !model.Enabled() {
		d.Logger.Info("gemini extraction disabled, statement parsing is heuristic only")
	}
	d.Extractor = statements.NewExtractor(model, d.Logger).
		WithFallbackCounter(d.Metrics.ExtractionFallbacks)

	return nil
}

func (d *Dependencies) initRepositories() {
	pool := d.DB.Pool
	d.ExpensesRepo = expensesrepo.NewPostgresExpenseRepository(pool)
	d.CategoriesRepo = categories.NewPostgresRepository(pool)
	d.BillsRepo = bills.NewPostgresRepository(pool)
	d.RemindersRepo = reminders.NewPostgresRepository(pool)
	d.DashboardRepo = dashboard.NewPostgresRepository(pool)
	d.InsightsRepo = insights.NewPostgresRepository(pool)

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initServices() {
	d.ExpensesService = expensesservice.NewExpenseService(d.ExpensesRepo, d.Extractor, d.Cache, d.Metrics, d.Logger)
	d.CategoriesService = categories.NewService(d.CategoriesRepo, d.Cache, d.Logger)
	d.BillsService = bills.NewService(d.BillsRepo, d.Cache, d.Logger)

	notifier := reminders.NewChannelNotifier(reminders.NotifierConfig{
		ResendAPIKey:     d.Config.Email.ResendAPIKey,
		EmailFrom:        d.Config.Email.FromEmail,
		TwilioAccountSID: d.Config.Twilio.AccountSID,
		TwilioAuthToken:  d.Config.Twilio.AuthToken,
		WhatsappFrom:     d.Config.Twilio.WhatsAppFrom,
	})
	d.RemindersService = reminders.NewService(d.RemindersRepo, notifier, d.Metrics, d.Logger)

	d.DashboardService = dashboard.NewService(d.DashboardRepo, d.BillsService, d.Cache, d.Logger)

	suggester := insights.NewGeminiSuggester(d.Config.Gemini.APIKey, d.Config.Gemini.Model, d.Config.Gemini.Timeout)
	d.InsightsService = insights.NewService(d.InsightsRepo, suggester, d.Cache, d.Logger)

	d.Scheduler = cron.NewScheduler(d.RemindersService, d.Logger)

	d.Logger.Info("services initialized")
}

func (d *Dependencies) initHandlers() {
	d.Handlers = server.Handlers{
		Expenses:   expenseshandler.NewExpensesHandler(d.ExpensesService, d.Logger),
		Categories: categories.NewHandler(d.CategoriesService, d.Logger),
		Bills:      bills.NewHandler(d.BillsService, d.Logger),
		Reminders:  reminders.NewHandler(d.RemindersService, d.Logger),
		Dashboard:  dashboard.NewHandler(d.DashboardService, d.Logger),
		Insights:   insights.NewHandler(d.InsightsService, d.Logger),
	}

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			d.Logger.Warn("failed to close cache", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
