package reminders

import (
	"context"
	"testing"
	"time"

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

func reminderRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "user_id", "bill_id", "message", "send_at", "sent", "channel"})
}

func TestPostgresRepository_Create(t *testing.T) {
	mock, repo := newMockRepo(t)
	sendAt := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO reminders").
		WithArgs(int64(7), (*int64)(nil), "Internet is due soon", sendAt, "email").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))

	reminder := &Reminder{UserID: 7, Message: "Internet is due soon", SendAt: sendAt, Channel: "email"}
	require.NoError(t, repo.Create(context.Background(), reminder))
	assert.Equal(t, int64(11), reminder.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListDue(t *testing.T) {
	mock, repo := newMockRepo(t)
	cutoff := time.Date(2026, 3, 4, 9, 1, 0, 0, time.UTC)
	billID := int64(3)

	mock.ExpectQuery("SELECT (.+) FROM reminders").
		WithArgs(cutoff).
		WillReturnRows(reminderRows().
			AddRow(int64(11), int64(7), &billID, "Internet is due soon",
				cutoff.Add(-time.Hour), false, "email"))

	due, err := repo.ListDue(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, int64(7), due[0].UserID)
	require.NotNil(t, due[0].BillID)
	assert.Equal(t, int64(3), *due[0].BillID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_MarkSent(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectExec("UPDATE reminders SET sent").
		WithArgs(int64(11)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.MarkSent(context.Background(), 11))
	assert.NoError(t, mock.ExpectationsWereMet())
}
