// Command seed fills the database with demo users, categories, expenses,
// bills and reminders, and prints a bearer token per user for manual testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/finmind-app/finmind-api/pkg/auth"
	"github.com/finmind-app/finmind-api/pkg/config"
	"github.com/finmind-app/finmind-api/pkg/db"
	"github.com/finmind-app/finmind-api/pkg/money"
)

func main() {
	var (
		userCount = flag.Int("users", 3, "number of demo users to create")
		expenses  = flag.Int("expenses", 60, "expenses per user")
		seed      = flag.Int64("seed", 42, "generator seed")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	database, err := db.New(db.Config{DSN: cfg.Database.DSN()}, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer database.Close()

	if err := database.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	s := &seeder{
		pool:   database.Pool,
		gen:    money.NewTestDataGeneratorWithSeed(*seed),
		faker:  gofakeit.New(*seed),
		tokens: auth.NewAuthenticator(cfg.Auth.JWTSecret, 30*24*time.Hour),
		logger: logger,
	}

	ctx := context.Background()
	for i := 0; i < *userCount; i++ {
		if err := s.seedUser(ctx, *expenses); err != nil {
			logger.Error("seeding failed", slog.Any("error", err))
			os.Exit(1)
		}
	}
	logger.Info("seeding complete", slog.Int("users", *userCount))
}

type seeder struct {
	pool   db.Querier
	gen    *money.TestDataGenerator
	faker  *gofakeit.Faker
	tokens *auth.Authenticator
	logger *slog.Logger
}

func (s *seeder) seedUser(ctx context.Context, expenseCount int) error {
	var userID int64
	email := s.gen.Email()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (email, display_name) VALUES ($1, $2) RETURNING id`,
		email, s.faker.Name()).Scan(&userID)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	categoryIDs, err := s.seedCategories(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.seedExpenses(ctx, userID, categoryIDs, expenseCount); err != nil {
		return err
	}
	if err := s.seedBills(ctx, userID); err != nil {
		return err
	}

	token, err := s.tokens.GenerateToken(userID)
	if err != nil {
		return fmt.Errorf("failed to mint token: %w", err)
	}
	s.logger.Info("seeded user",
		slog.Int64("user_id", userID),
		slog.String("email", email),
		slog.String("token", token),
	)
	return nil
}

func (s *seeder) seedCategories(ctx context.Context, userID int64) ([]int64, error) {
	names := []string{"Groceries", "Dining", "Transport", "Utilities", "Entertainment", "Health"}
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		var id int64
		err := s.pool.QueryRow(ctx,
			`INSERT INTO categories (user_id, name) VALUES ($1, $2) RETURNING id`,
			userID, name).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to insert category %q: %w", name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *seeder) seedExpenses(ctx context.Context, userID int64, categoryIDs []int64, count int) error {
	for i := 0; i < count; i++ {
		var tx money.TestTransaction
		var categoryID *int64
		if i%7 == 0 {
			tx = s.gen.IncomeTransaction("USD")
		} else {
			tx = s.gen.ExpenseTransaction("USD")
			// Leave roughly one in five uncategorized.
			if s.faker.IntRange(0, 4) > 0 {
				id := categoryIDs[s.faker.IntRange(0, len(categoryIDs)-1)]
				categoryID = &id
			}
		}

		_, err := s.pool.Exec(ctx,
			`INSERT INTO expenses (user_id, category_id, amount_cents, currency, expense_type, notes, spent_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			userID, categoryID, tx.Amount.Amount(), tx.Amount.Currency(), tx.Type, tx.Description,
			tx.SpentAt.Format("2006-01-02"))
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}
	}
	return nil
}

func (s *seeder) seedBills(ctx context.Context, userID int64) error {
	cadences := []string{"MONTHLY", "WEEKLY", "YEARLY"}
	for i := 0; i < 3; i++ {
		name := s.gen.BillName()
		amount := s.gen.RandomAmount("USD", 1500, 20000)
		due := time.Now().UTC().AddDate(0, 0, s.faker.IntRange(1, 28))

		var billID int64
		err := s.pool.QueryRow(ctx,
			`INSERT INTO bills (user_id, name, amount_cents, currency, next_due_date, cadence)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			userID, name, amount.Amount(), amount.Currency(), due.Format("2006-01-02"), cadences[i%len(cadences)]).Scan(&billID)
		if err != nil {
			return fmt.Errorf("failed to insert bill: %w", err)
		}

		_, err = s.pool.Exec(ctx,
			`INSERT INTO reminders (user_id, bill_id, message, send_at, channel)
			 VALUES ($1, $2, $3, $4, $5)`,
			userID, billID, fmt.Sprintf("%s is due soon", name), due.AddDate(0, 0, -1), "email")
		if err != nil {
			return fmt.Errorf("failed to insert reminder: %w", err)
		}
	}
	return nil
}
