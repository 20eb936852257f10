package money

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// TestDataGenerator generates realistic financial test data using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a new test data generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(0)}
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for
// reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// TestTransaction is a generated expense or income row.
type TestTransaction struct {
	Description string
	Amount      *Money
	Type        string
	SpentAt     time.Time
}

// RandomAmount returns a Money value between minCents and maxCents inclusive.
func (g *TestDataGenerator) RandomAmount(currency string, minCents, maxCents int64) *Money {
	if maxCents <= minCents {
		return New(minCents, currency)
	}
	cents := minCents + int64(g.faker.IntRange(0, int(maxCents-minCents)))
	return New(cents, currency)
}

// ExpenseTransaction generates a plausible expense row.
func (g *TestDataGenerator) ExpenseTransaction(currency string) TestTransaction {
	return TestTransaction{
		Description: g.Merchant(),
		Amount:      g.RandomAmount(currency, 150, 25000),
		Type:        "EXPENSE",
		SpentAt:     g.faker.DateRange(time.Now().AddDate(0, -3, 0), time.Now()),
	}
}

// IncomeTransaction generates a plausible income row.
func (g *TestDataGenerator) IncomeTransaction(currency string) TestTransaction {
	return TestTransaction{
		Description: g.faker.RandomString([]string{"SALARY PAYMENT", "PAYROLL DEPOSIT", "INTEREST CREDIT", "TAX REFUND"}),
		Amount:      g.RandomAmount(currency, 50000, 600000),
		Type:        "INCOME",
		SpentAt:     g.faker.DateRange(time.Now().AddDate(0, -3, 0), time.Now()),
	}
}

// Merchant returns a realistic merchant descriptor.
func (g *TestDataGenerator) Merchant() string {
	return g.faker.Company()
}

// Category returns a typical expense category name.
func (g *TestDataGenerator) Category() string {
	return g.faker.RandomString([]string{
		"Groceries", "Dining", "Transport", "Utilities", "Rent",
		"Entertainment", "Health", "Shopping", "Travel", "Subscriptions",
	})
}

// BillName returns a typical recurring bill name.
func (g *TestDataGenerator) BillName() string {
	return g.faker.RandomString([]string{
		"Electricity", "Internet", "Water", "Phone", "Gym", "Streaming", "Insurance",
	})
}

// Email returns a fake email address.
func (g *TestDataGenerator) Email() string {
	return g.faker.Email()
}
