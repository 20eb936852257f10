package bills

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresRepository(mock)
}

func billRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "user_id", "name", "amount_cents", "currency",
		"next_due_date", "cadence", "channel_whatsapp", "channel_email", "active",
	})
}

func TestPostgresRepository_Upcoming(t *testing.T) {
	mock, repo := newMockRepo(t)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM bills").
		WithArgs(int64(7), from, 8).
		WillReturnRows(billRows().
			AddRow(int64(1), int64(7), "Internet", int64(4999), "USD",
				time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), CadenceMonthly, false, true, true))

	bills, err := repo.Upcoming(context.Background(), 7, from, 8)
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, "Internet", bills[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Create(t *testing.T) {
	mock, repo := newMockRepo(t)
	due := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO bills").
		WithArgs(int64(7), "Internet", int64(4999), "USD", due, CadenceMonthly, false, true, true).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))

	bill := &Bill{
		UserID: 7, Name: "Internet", AmountCents: 4999, Currency: "USD",
		NextDueDate: due, Cadence: CadenceMonthly, ChannelEmail: true, Active: true,
	}
	require.NoError(t, repo.Create(context.Background(), bill))
	assert.Equal(t, int64(3), bill.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetByID(t *testing.T) {
	t.Run("missing row maps to ErrNoRows", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery("SELECT (.+) FROM bills").
			WithArgs(int64(9), int64(7)).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(context.Background(), 7, 9)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestPostgresRepository_Update(t *testing.T) {
	t.Run("missing row maps to ErrNoRows", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		due := time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC)

		mock.ExpectExec("UPDATE bills").
			WithArgs(int64(9), int64(7), "Internet", int64(4999), "USD", due, CadenceMonthly, false, true, true).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		bill := &Bill{
			ID: 9, UserID: 7, Name: "Internet", AmountCents: 4999, Currency: "USD",
			NextDueDate: due, Cadence: CadenceMonthly, ChannelEmail: true, Active: true,
		}
		assert.ErrorIs(t, repo.Update(context.Background(), bill), sql.ErrNoRows)
	})
}
